package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mcastd.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_FullFile(t *testing.T) {
	path := writeConfig(t, `
node_id = "router-1"
script = "/usr/sbin/mcast-notify"
bp_debounce = "500ms"
rp_debounce = "2s"
external_interfaces = ["wan0", " ppp0 ", ""]
poll_interval = "1s"
metrics_addr = "127.0.0.1:9090"
log_level = "debug"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned %v", err)
	}
	want := Config{
		NodeID:             "router-1",
		Script:             "/usr/sbin/mcast-notify",
		BPDebounce:         500 * time.Millisecond,
		RPDebounce:         2 * time.Second,
		ExternalInterfaces: []string{"wan0", "ppp0"},
		PollInterval:       time.Second,
		MetricsAddr:        "127.0.0.1:9090",
		LogLevel:           "debug",
	}
	if !reflect.DeepEqual(cfg, want) {
		t.Errorf("Load = %+v, want %+v", cfg, want)
	}
}

func TestLoad_DefaultsApply(t *testing.T) {
	path := writeConfig(t, `
node_id = "router-1"
script = "/usr/sbin/mcast-notify"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned %v", err)
	}
	if cfg.BPDebounce != time.Second || cfg.RPDebounce != time.Second {
		t.Errorf("Default debounces not applied: %+v", cfg)
	}
	if cfg.PollInterval != 5*time.Second {
		t.Errorf("Default poll interval not applied: %+v", cfg)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Default log level not applied: %+v", cfg)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "missing node_id",
			body: "script = \"/bin/true\"\n",
			want: "node_id",
		},
		{
			name: "missing script",
			body: "node_id = \"r1\"\n",
			want: "script",
		},
		{
			name: "bad duration",
			body: "node_id = \"r1\"\nscript = \"/bin/true\"\nrp_debounce = \"soon\"\n",
			want: "rp_debounce",
		},
		{
			name: "negative poll interval",
			body: "node_id = \"r1\"\nscript = \"/bin/true\"\npoll_interval = \"-1s\"\n",
			want: "poll_interval",
		},
		{
			name: "malformed toml",
			body: "node_id = \n",
			want: "load config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil {
				t.Fatal("Load succeeded")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Error("Load of a missing file succeeded")
	}
}

func TestValidate_ZeroDebounce(t *testing.T) {
	cfg := Default()
	cfg.NodeID = "r1"
	cfg.Script = "/bin/true"
	cfg.BPDebounce = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Validate accepted a zero debounce")
	}
}

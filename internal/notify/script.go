package notify

import (
	"os/exec"
	"strings"

	"github.com/rs/zerolog"
)

// Script delivers events by spawning an external executable with the
// event's Args. The child is reaped asynchronously; a non-zero exit is
// logged at warn and otherwise ignored.
type Script struct {
	path string
	log  zerolog.Logger
}

// NewScript creates a Script notifier invoking path.
func NewScript(path string, log zerolog.Logger) *Script {
	return &Script{path: path, log: log}
}

// Deliver spawns the script. The returned error covers spawn failure
// only; the script's own exit status is fire-and-forget.
func (s *Script) Deliver(ev Event) error {
	args := ev.Args()
	cmd := exec.Command(s.path, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			s.log.Warn().
				Err(err).
				Str("script", s.path).
				Str("args", strings.Join(args, " ")).
				Msg("notify script failed")
		}
	}()
	return nil
}

package timer

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// CommandAlerter plays the completion alert by running a host command,
// e.g. "paplay /usr/share/sounds/freedesktop/stereo/complete.oga".
type CommandAlerter struct {
	name string
	args []string
}

// NewCommandAlerter splits command on whitespace. An empty command gives a
// nil Alerter, meaning "no alert".
func NewCommandAlerter(command string) Alerter {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil
	}
	return &CommandAlerter{name: fields[0], args: fields[1:]}
}

// Alert runs the command and waits for it, bounded by ctx.
func (a *CommandAlerter) Alert(ctx context.Context) error {
	if a == nil || a.name == "" {
		return errors.New("timer: no alert command configured")
	}
	out, err := exec.CommandContext(ctx, a.name, a.args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("timer: running %s: %w (output: %s)", a.name, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// AlertFunc adapts a function to the Alerter interface.
type AlertFunc func(ctx context.Context) error

func (f AlertFunc) Alert(ctx context.Context) error { return f(ctx) }

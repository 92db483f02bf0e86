// Package notify emits best-effort desktop notifications. Failures —
// including notify-send being entirely absent — are never fatal,
// grounded on the original notifications.py's try/except-and-continue
// behavior.
package notify

import (
	"os/exec"

	"github.com/veighnsche/darkwall-comfyui/internal/logging"
)

// Notifier emits a notification via notify-send, silently degrading to
// a debug log line when the binary is unavailable or the call fails.
type Notifier struct {
	runCommand func(summary, body string) error
}

// New returns a Notifier backed by the real notify-send binary.
func New() *Notifier {
	return &Notifier{runCommand: runNotifySend}
}

func runNotifySend(summary, body string) error {
	return exec.Command("notify-send", summary, body).Run()
}

// Notify sends event as the notification summary and payload as its
// body. Errors are logged at debug level and otherwise swallowed.
func (n *Notifier) Notify(event, payload string) {
	if err := n.runCommand(event, payload); err != nil {
		logging.LogDebug("notify-send unavailable or failed: %v", err)
	}
}

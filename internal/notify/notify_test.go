package notify

import (
	"errors"
	"testing"
)

func TestNotifyCallsRunCommandWithEventAndPayload(t *testing.T) {
	var gotSummary, gotBody string
	n := &Notifier{runCommand: func(summary, body string) error {
		gotSummary, gotBody = summary, body
		return nil
	}}
	n.Notify("wallpaper_generated", "DP-1: /tmp/out.png")
	if gotSummary != "wallpaper_generated" || gotBody != "DP-1: /tmp/out.png" {
		t.Errorf("got summary=%q body=%q", gotSummary, gotBody)
	}
}

func TestNotifyNeverPanicsOnFailure(t *testing.T) {
	n := &Notifier{runCommand: func(summary, body string) error {
		return errors.New("notify-send: command not found")
	}}
	n.Notify("event", "payload")
}

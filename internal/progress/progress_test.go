package progress

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestShowProgress(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		message string
		fn      func() error
		wantErr bool
	}{
		{
			name:    "generation succeeds",
			message: "Generating wallpaper",
			fn: func() error {
				return nil
			},
			wantErr: false,
		},
		{
			name:    "generation fails",
			message: "Generating wallpaper",
			fn: func() error {
				return errors.New("submission rejected")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ShowProgress(ctx, tt.message, tt.fn)
			if (err != nil) != tt.wantErr {
				t.Errorf("ShowProgress() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestShowProgressContextCancellation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := ShowProgress(ctx, "Generating wallpaper", func() error {
		time.Sleep(200 * time.Millisecond)
		return nil
	})

	_ = err
}

func TestShowProgressWithSteps(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		steps   []ProgressStep
		wantErr bool
	}{
		{
			name: "submit poll and fetch all succeed",
			steps: []ProgressStep{
				{Message: "Submitting prompt", Fn: func() error { return nil }},
				{Message: "Polling queue", Fn: func() error { return nil }},
				{Message: "Fetching image", Fn: func() error { return nil }},
			},
			wantErr: false,
		},
		{
			name: "fetch step fails",
			steps: []ProgressStep{
				{Message: "Submitting prompt", Fn: func() error { return nil }},
				{Message: "Fetching image", Fn: func() error { return errors.New("image fetch failed") }},
			},
			wantErr: true,
		},
		{
			name:    "no steps",
			steps:   []ProgressStep{},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ShowProgressWithSteps(ctx, tt.steps)
			if (err != nil) != tt.wantErr {
				t.Errorf("ShowProgressWithSteps() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestProgressStep(t *testing.T) {
	step := ProgressStep{
		Message: "Applying wallpaper",
		Fn: func() error {
			return nil
		},
	}

	if step.Message != "Applying wallpaper" {
		t.Errorf("ProgressStep.Message = %q, want %q", step.Message, "Applying wallpaper")
	}

	if step.Fn == nil {
		t.Error("ProgressStep.Fn should not be nil")
	}

	if err := step.Fn(); err != nil {
		t.Errorf("ProgressStep.Fn() error = %v, want nil", err)
	}
}

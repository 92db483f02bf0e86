package errors

import "testing"

func TestExitCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"config", &ConfigInvalid{Key: "prompt.time_slot_minutes", Reason: "out of range"}, 1},
		{"network", &NetworkUnreachable{BaseURL: "http://localhost:8188"}, 2},
		{"submission", &SubmissionRejected{Reason: "bad node"}, 3},
		{"generation failed", &GenerationFailed{NodeErrors: map[string]string{"1": "boom"}}, 3},
		{"workflow missing", &WorkflowMissing{ID: "z-image-1920x1080"}, 3},
		{"timeout", &GenerationTimeout{Elapsed: 301}, 4},
		{"fetch failed", &ImageFetchFailed{Filename: "out.png"}, 5},
		{"state persist", &StatePersistError{Path: "/tmp/x"}, 5},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExitCode(tc.err); got != tc.want {
				t.Errorf("ExitCode(%v) = %d, want %d", tc.err, got, tc.want)
			}
		})
	}
}

func TestWorkflowMissingMessageNamesPath(t *testing.T) {
	err := &WorkflowMissing{ID: "z-image-1920x1080", Path: "/home/u/.config/darkwall-comfyui/workflows/z-image-1920x1080.json"}
	msg := err.Error()
	if msg == "" {
		t.Fatal("expected non-empty message")
	}
	want := "/home/u/.config/darkwall-comfyui/workflows/z-image-1920x1080.json"
	if !containsSubstring(msg, want) {
		t.Errorf("message %q does not contain path %q", msg, want)
	}
}

func containsSubstring(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}

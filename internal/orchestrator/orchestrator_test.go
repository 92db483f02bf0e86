package orchestrator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/veighnsche/darkwall-comfyui/internal/config"
	"github.com/veighnsche/darkwall-comfyui/internal/domain"
	"github.com/veighnsche/darkwall-comfyui/internal/generation"
	"github.com/veighnsche/darkwall-comfyui/internal/history"
	"github.com/veighnsche/darkwall-comfyui/testutil"
)

type fakeDetector struct {
	monitors []domain.Monitor
}

func (f *fakeDetector) ListConnected(ctx context.Context) ([]domain.Monitor, error) {
	return f.monitors, nil
}

type fakeSetter struct {
	applied []string
}

func (f *fakeSetter) Apply(ctx context.Context, path, monitorName, commandID string) error {
	f.applied = append(f.applied, monitorName+":"+path)
	return nil
}

type fakeNotifier struct {
	events []string
}

func (f *fakeNotifier) Notify(event, payload string) {
	f.events = append(f.events, event+":"+payload)
}

type fakeSink struct {
	entries []history.Entry
}

func (f *fakeSink) Record(entry history.Entry) (int64, error) {
	f.entries = append(f.entries, entry)
	return int64(len(f.entries)), nil
}

// setupFixture builds a minimal on-disk theme/workflow/template tree
// and returns a ready-to-use *config.Config rooted at it.
func setupFixture(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteThemeFixture(t, dir, "default", "z-image-1920x1080")

	return &config.Config{
		Dir: dir,
		Service: config.ServiceConfig{
			BaseURL:      "http://unused",
			Timeout:      300,
			PollInterval: 5,
		},
		Monitors: map[string]config.MonitorConfig{
			"DP-1": {Resolution: "1920x1080", Output: filepath.Join(dir, "output", "DP-1.png")},
		},
		Themes: map[string]config.ThemeConfig{
			"default": {
				WorkflowPrefix:  "z-image",
				DefaultTemplate: "base.prompt",
				AtomsDir:        filepath.Join("atoms", "default"),
				PromptsDir:      filepath.Join("prompts", "default"),
			},
		},
		Prompt: config.PromptConfig{TimeSlotMinutes: 30, UseMonitorSeed: true},
	}
}

func TestPlanProducesInjectedWorkflow(t *testing.T) {
	cfg := setupFixture(t)
	rc := New(cfg, filepath.Join(cfg.Dir, "rotation.json"), &fakeDetector{}, nil, nil, nil)

	plan, err := rc.Plan(context.Background(), domain.Monitor{Name: "DP-1", Resolution: "1920x1080"}, "default", "")
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if plan.Template != "base.prompt" {
		t.Errorf("Template = %q, want base.prompt", plan.Template)
	}
	if plan.WorkflowID != "z-image-1920x1080" {
		t.Errorf("WorkflowID = %q", plan.WorkflowID)
	}
	node := plan.InjectedWorkflow["node"].(map[string]any)["inputs"].(map[string]any)
	text, _ := node["text"].(string)
	if text == "" || text == "$$positive$$" {
		t.Errorf("injected positive text not substituted: %q", text)
	}
}

func TestPlanIsDeterministicForSameSlot(t *testing.T) {
	cfg := setupFixture(t)
	rc := New(cfg, filepath.Join(cfg.Dir, "rotation.json"), &fakeDetector{}, nil, nil, nil)

	monitor := domain.Monitor{Name: "DP-1", Resolution: "1920x1080"}
	a, err := rc.Plan(context.Background(), monitor, "default", "")
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	b, err := rc.Plan(context.Background(), monitor, "default", "")
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if a.Seed != b.Seed || a.PositivePrompts["positive"] != b.PositivePrompts["positive"] {
		t.Errorf("two Plan() calls within the same slot diverged: %+v vs %+v", a, b)
	}
}

func TestRunSingleDryRunSkipsNetworkAndFiles(t *testing.T) {
	cfg := setupFixture(t)
	detector := &fakeDetector{monitors: []domain.Monitor{{Name: "DP-1", Resolution: "1920x1080"}}}
	rc := New(cfg, filepath.Join(cfg.Dir, "rotation.json"), detector, nil, nil, nil)

	plan, err := rc.RunSingle(context.Background(), nil, "", "default", "", true)
	if err != nil {
		t.Fatalf("RunSingle() error = %v", err)
	}
	if plan.Monitor.Name != "DP-1" {
		t.Errorf("Monitor = %q, want DP-1", plan.Monitor.Name)
	}
	if _, err := os.Stat(plan.OutputPath); err == nil {
		t.Errorf("dry run must not write output file, found %s", plan.OutputPath)
	}
}

func TestRunSingleEndToEndRecordsHistoryAndAdvancesRotation(t *testing.T) {
	cfg := setupFixture(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/prompt", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"prompt_id": "p1"})
	})
	mux.HandleFunc("/history/p1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"p1": {"outputs": {"9": {"images": [{"filename": "out.png", "subfolder": "", "type": "output"}]}}}}`))
	})
	mux.HandleFunc("/view", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("image-bytes"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	driver, err := generation.NewDriver(generation.Config{BaseURL: server.URL, Timeout: 10, PollInterval: 1})
	if err != nil {
		t.Fatalf("NewDriver() error = %v", err)
	}

	detector := &fakeDetector{monitors: []domain.Monitor{{Name: "DP-1", Resolution: "1920x1080"}}}
	setter := &fakeSetter{}
	notifier := &fakeNotifier{}
	sink := &fakeSink{}
	rc := New(cfg, filepath.Join(cfg.Dir, "rotation.json"), detector, setter, notifier, sink)

	plan, err := rc.RunSingle(context.Background(), driver, "DP-1", "default", "", false)
	if err != nil {
		t.Fatalf("RunSingle() error = %v", err)
	}

	data, err := os.ReadFile(plan.OutputPath)
	if err != nil {
		t.Fatalf("read output file: %v", err)
	}
	if string(data) != "image-bytes" {
		t.Errorf("output file content = %q", data)
	}
	if len(setter.applied) != 1 {
		t.Errorf("wallpaper setter invoked %d times, want 1", len(setter.applied))
	}
	if len(sink.entries) != 1 {
		t.Errorf("history entries recorded = %d, want 1", len(sink.entries))
	}
	if len(notifier.events) != 1 {
		t.Errorf("notifications sent = %d, want 1", len(notifier.events))
	}
}

func TestRunAllContinuesAfterOneMonitorFails(t *testing.T) {
	cfg := setupFixture(t)
	cfg.Monitors["HDMI-A-1"] = config.MonitorConfig{Resolution: "2560x1440", Output: filepath.Join(cfg.Dir, "output", "hdmi.png")}

	detector := &fakeDetector{monitors: []domain.Monitor{
		{Name: "DP-1", Resolution: "1920x1080"},
		{Name: "HDMI-A-1", Resolution: "2560x1440"}, // no workflow file for this resolution
	}}
	rc := New(cfg, filepath.Join(cfg.Dir, "rotation.json"), detector, nil, nil, nil)

	plans, errs := rc.RunAll(context.Background(), nil, "default", "", true)
	if len(plans) != 1 {
		t.Errorf("plans = %d, want 1 (DP-1 only)", len(plans))
	}
	if len(errs) != 1 {
		t.Errorf("errs = %d, want 1 (HDMI-A-1 missing workflow)", len(errs))
	}
}

func TestRunAllReportsOnMonitorDoneForEveryAttempt(t *testing.T) {
	cfg := setupFixture(t)
	cfg.Monitors["HDMI-A-1"] = config.MonitorConfig{Resolution: "2560x1440", Output: filepath.Join(cfg.Dir, "output", "hdmi.png")}

	detector := &fakeDetector{monitors: []domain.Monitor{
		{Name: "DP-1", Resolution: "1920x1080"},
		{Name: "HDMI-A-1", Resolution: "2560x1440"}, // no workflow file for this resolution
	}}
	rc := New(cfg, filepath.Join(cfg.Dir, "rotation.json"), detector, nil, nil, nil)

	var done []string
	var failed []string
	rc.OnMonitorDone = func(monitorName string, err error) {
		done = append(done, monitorName)
		if err != nil {
			failed = append(failed, monitorName)
		}
	}

	rc.RunAll(context.Background(), nil, "default", "", true)

	if len(done) != 2 {
		t.Errorf("OnMonitorDone called %d times, want 2", len(done))
	}
	if len(failed) != 1 || failed[0] != "HDMI-A-1" {
		t.Errorf("failed monitors = %v, want [HDMI-A-1]", failed)
	}
}

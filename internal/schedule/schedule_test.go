package schedule

import (
	"math/rand/v2"
	"testing"
	"time"
)

func TestPhaseDayAndNight(t *testing.T) {
	loc := time.UTC
	cfg := Config{
		Location:             loc,
		SunriseOverride:      "06:00",
		SunsetOverride:       "18:00",
		DayThemes:            []Weight{{Name: "default", Weight: 1}},
		NightThemes:          []Weight{{Name: "nsfw", Weight: 1}},
		BlendDurationMinutes: 30,
	}
	s := New(cfg)

	noon := time.Date(2025, 1, 15, 12, 0, 0, 0, loc)
	phase, probs, err := s.Phase(noon)
	if err != nil {
		t.Fatalf("Phase() error = %v", err)
	}
	if phase != PhaseDay {
		t.Errorf("Phase() = %v, want day", phase)
	}
	if probs["default"] != 1 {
		t.Errorf("probs[default] = %v, want 1", probs["default"])
	}

	midnight := time.Date(2025, 1, 15, 0, 0, 0, 0, loc)
	phase, probs, err = s.Phase(midnight)
	if err != nil {
		t.Fatalf("Phase() error = %v", err)
	}
	if phase != PhaseNight {
		t.Errorf("Phase() = %v, want night", phase)
	}
	if probs["nsfw"] != 1 {
		t.Errorf("probs[nsfw] = %v, want 1", probs["nsfw"])
	}
}

func TestBlendSamplingMatchesScenario(t *testing.T) {
	loc := time.UTC
	cfg := Config{
		Location:             loc,
		SunriseOverride:      "06:00",
		SunsetOverride:       "18:00",
		DayThemes:            []Weight{{Name: "default", Weight: 1.0}},
		NightThemes:          []Weight{{Name: "nsfw", Weight: 1.0}},
		BlendDurationMinutes: 30,
	}
	s := New(cfg)

	// 17:45 is 15 minutes before sunset (18:00), blend radius 30min:
	// alpha = (now - (t0-B)) / (2B) = (15min) / (60min) = 0.25.
	// before=day(default), after=night(nsfw) => default:0.75 nsfw:0.25.
	at1745 := time.Date(2025, 1, 15, 17, 45, 0, 0, loc)
	phase, probs, err := s.Phase(at1745)
	if err != nil {
		t.Fatalf("Phase() error = %v", err)
	}
	if phase != PhaseBlend {
		t.Fatalf("Phase() = %v, want blend", phase)
	}
	if diff := probs["default"] - 0.75; diff < -1e-9 || diff > 1e-9 {
		t.Errorf("probs[default] = %v, want 0.75", probs["default"])
	}
	if diff := probs["nsfw"] - 0.25; diff < -1e-9 || diff > 1e-9 {
		t.Errorf("probs[nsfw] = %v, want 0.25", probs["nsfw"])
	}

	counts := map[string]int{}
	const trials = 10000
	for i := 0; i < trials; i++ {
		rng := rand.New(rand.NewPCG(uint64(i), uint64(i)*2+1))
		name, err := s.Resolve(at1745, rng)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		counts[name]++
	}
	defaultFreq := float64(counts["default"]) / trials
	if defaultFreq < 0.74 || defaultFreq > 0.76 {
		t.Errorf("empirical default frequency = %v, want within [0.74, 0.76]", defaultFreq)
	}
}

func TestBlendContinuityAtMidpoint(t *testing.T) {
	loc := time.UTC
	cfg := Config{
		Location:             loc,
		SunriseOverride:      "06:00",
		SunsetOverride:       "18:00",
		DayThemes:            []Weight{{Name: "default", Weight: 1.0}},
		NightThemes:          []Weight{{Name: "nsfw", Weight: 1.0}},
		BlendDurationMinutes: 30,
	}
	s := New(cfg)

	midpoint := time.Date(2025, 1, 15, 18, 0, 0, 0, loc)
	_, probs, err := s.Phase(midpoint)
	if err != nil {
		t.Fatalf("Phase() error = %v", err)
	}
	if diff := probs["default"] - probs["nsfw"]; diff < -1e-9 || diff > 1e-9 {
		t.Errorf("at boundary midpoint, probs should be equal: %v vs %v", probs["default"], probs["nsfw"])
	}
}

func TestResolveFallsBackToDefaultWhenNoThemesConfigured(t *testing.T) {
	loc := time.UTC
	cfg := Config{
		Location:             loc,
		SunriseOverride:      "06:00",
		SunsetOverride:       "18:00",
		BlendDurationMinutes: 30,
	}
	s := New(cfg)

	rng := rand.New(rand.NewPCG(1, 2))
	name, err := s.Resolve(time.Date(2025, 1, 15, 12, 0, 0, 0, loc), rng)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if name != "default" {
		t.Errorf("Resolve() = %q, want default", name)
	}
}

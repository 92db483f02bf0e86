package seed

import (
	"testing"
	"time"

	darkwallerrors "github.com/veighnsche/darkwall-comfyui/internal/errors"
)

func at(y int, m time.Month, d, hh, mm, ss int) time.Time {
	return time.Date(y, m, d, hh, mm, ss, 0, time.Local)
}

func TestDeriveMatchesReferenceHash(t *testing.T) {
	now := at(2025, time.January, 15, 10, 15, 0)

	got, err := Derive(now, 30, "DP-1")
	if err != nil {
		t.Fatalf("Derive() error = %v", err)
	}
	if want := uint64(3675670325); got != want {
		t.Errorf("Derive() = %d, want %d", got, want)
	}

	gotOther, err := Derive(now, 30, "HDMI-A-1")
	if err != nil {
		t.Fatalf("Derive() error = %v", err)
	}
	if want := uint64(459041857); gotOther != want {
		t.Errorf("Derive(HDMI-A-1) = %d, want %d", gotOther, want)
	}
	if got == gotOther {
		t.Error("distinct monitor discriminators must yield distinct seeds")
	}
}

func TestDeriveIsDeterministic(t *testing.T) {
	now := at(2025, time.January, 15, 10, 15, 0)

	a, err := Derive(now, 30, "DP-1")
	if err != nil {
		t.Fatalf("Derive() error = %v", err)
	}
	b, err := Derive(now, 30, "DP-1")
	if err != nil {
		t.Fatalf("Derive() error = %v", err)
	}
	if a != b {
		t.Errorf("Derive() not deterministic: %d != %d", a, b)
	}
}

func TestDeriveSlotStability(t *testing.T) {
	t1 := at(2025, time.January, 15, 10, 0, 0)
	t2 := at(2025, time.January, 15, 10, 29, 59)

	s1, err := Derive(t1, 30, "DP-1")
	if err != nil {
		t.Fatalf("Derive() error = %v", err)
	}
	s2, err := Derive(t2, 30, "DP-1")
	if err != nil {
		t.Fatalf("Derive() error = %v", err)
	}
	if s1 != s2 {
		t.Errorf("seeds within the same slot must match: %d != %d", s1, s2)
	}
}

func TestDeriveSlotBoundary(t *testing.T) {
	before := at(2025, time.January, 15, 10, 29, 59)
	after := at(2025, time.January, 15, 10, 30, 0)

	s1, err := Derive(before, 30, "DP-1")
	if err != nil {
		t.Fatalf("Derive() error = %v", err)
	}
	s2, err := Derive(after, 30, "DP-1")
	if err != nil {
		t.Fatalf("Derive() error = %v", err)
	}
	if s1 == s2 {
		t.Error("seeds must differ across a slot boundary")
	}
}

func TestDeriveRejectsOutOfRangeSlotWidth(t *testing.T) {
	now := at(2025, time.January, 15, 10, 15, 0)

	for _, width := range []int{0, -1, 1441} {
		_, err := Derive(now, width, "DP-1")
		if err == nil {
			t.Fatalf("Derive() with width %d: expected error", width)
		}
		if _, ok := err.(*darkwallerrors.ConfigInvalid); !ok {
			t.Errorf("Derive() with width %d: expected *ConfigInvalid, got %T", width, err)
		}
	}
}

// Package schedule implements the solar/manual theme scheduler of
// spec.md §4.4: sunrise/sunset computation, blend-window sampling, and
// the day/night weighted theme lists.
package schedule

import (
	"math/rand/v2"
	"time"

	darkwallerrors "github.com/veighnsche/darkwall-comfyui/internal/errors"
)

// Phase names the scheduler's three observable states, surfaced to
// the `status` command.
type Phase string

const (
	PhaseDay   Phase = "day"
	PhaseNight Phase = "night"
	PhaseBlend Phase = "blend"
)

// Weight pairs a theme name with its relative sampling weight.
type Weight struct {
	Name   string
	Weight float64
}

// Config is the resolved input the Scheduler needs: manual overrides
// take priority over solar computation when both are present, per
// spec.md §4.4 step 1.
type Config struct {
	Latitude              *float64
	Longitude             *float64
	Location              *time.Location
	SunriseOverride       string // HH:MM, local to Location; empty disables
	SunsetOverride        string
	DayThemes             []Weight
	NightThemes           []Weight
	BlendDurationMinutes  int
}

// Scheduler samples the active theme for a given instant.
type Scheduler struct {
	cfg Config
}

// New constructs a Scheduler from a resolved Config.
func New(cfg Config) *Scheduler {
	return &Scheduler{cfg: cfg}
}

// boundaries computes today's sunrise and sunset instants, preferring
// manual overrides when configured.
func (s *Scheduler) boundaries(now time.Time) (sunrise, sunset time.Time, err error) {
	loc := s.cfg.Location
	if loc == nil {
		loc = time.Local
	}
	day := now.In(loc)

	if s.cfg.SunriseOverride != "" && s.cfg.SunsetOverride != "" {
		sunrise, err = parseLocalClock(day, s.cfg.SunriseOverride, loc)
		if err != nil {
			return time.Time{}, time.Time{}, &darkwallerrors.ScheduleError{Reason: "invalid sunrise_time: " + err.Error()}
		}
		sunset, err = parseLocalClock(day, s.cfg.SunsetOverride, loc)
		if err != nil {
			return time.Time{}, time.Time{}, &darkwallerrors.ScheduleError{Reason: "invalid sunset_time: " + err.Error()}
		}
		return sunrise, sunset, nil
	}

	if s.cfg.Latitude == nil || s.cfg.Longitude == nil {
		return time.Time{}, time.Time{}, &darkwallerrors.ScheduleError{
			Reason: "schedule requires either manual sunrise_time/sunset_time or latitude/longitude",
		}
	}

	return sunriseSunset(day, *s.cfg.Latitude, *s.cfg.Longitude, loc)
}

func parseLocalClock(day time.Time, hhmm string, loc *time.Location) (time.Time, error) {
	parsed, err := time.ParseInLocation("15:04", hhmm, loc)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := day.Date()
	return time.Date(y, m, d, parsed.Hour(), parsed.Minute(), 0, 0, loc), nil
}

// Phase returns the phase and, for blend windows, the mixture
// probability distribution over theme names at instant now.
func (s *Scheduler) Phase(now time.Time) (Phase, map[string]float64, error) {
	sunrise, sunset, err := s.boundaries(now)
	if err != nil {
		return "", nil, err
	}

	radius := time.Duration(s.cfg.BlendDurationMinutes) * time.Minute

	if within(now, sunrise, radius) {
		alpha := blendAlpha(now, sunrise, radius)
		return PhaseBlend, mix(s.cfg.NightThemes, s.cfg.DayThemes, alpha), nil
	}
	if within(now, sunset, radius) {
		alpha := blendAlpha(now, sunset, radius)
		return PhaseBlend, mix(s.cfg.DayThemes, s.cfg.NightThemes, alpha), nil
	}
	if now.After(sunrise) && now.Before(sunset) {
		return PhaseDay, normalize(s.cfg.DayThemes), nil
	}
	return PhaseNight, normalize(s.cfg.NightThemes), nil
}

// Resolve samples a concrete theme name for instant now, using rng for
// the random draw.
func (s *Scheduler) Resolve(now time.Time, rng *rand.Rand) (string, error) {
	_, probs, err := s.Phase(now)
	if err != nil {
		return "", err
	}
	if len(probs) == 0 {
		return "default", nil
	}
	return sampleTheme(probs, rng), nil
}

func within(now, boundary time.Time, radius time.Duration) bool {
	if radius <= 0 {
		return false
	}
	diff := now.Sub(boundary)
	if diff < 0 {
		diff = -diff
	}
	return diff <= radius
}

// blendAlpha computes the linear blend factor for a blend window of
// radius B centered at boundary t0, per spec.md §4.4 step 4:
// alpha = (now - (t0 - B)) / (2B), clamped to [0, 1].
func blendAlpha(now, boundary time.Time, radius time.Duration) float64 {
	windowStart := boundary.Add(-radius)
	elapsed := now.Sub(windowStart).Seconds()
	total := (2 * radius).Seconds()
	if total <= 0 {
		return 0
	}
	alpha := elapsed / total
	if alpha < 0 {
		alpha = 0
	}
	if alpha > 1 {
		alpha = 1
	}
	return alpha
}

// mix computes the mixture distribution (1-alpha)*before + alpha*after
// over the union of theme names appearing in either list.
func mix(before, after []Weight, alpha float64) map[string]float64 {
	beforeNorm := normalize(before)
	afterNorm := normalize(after)

	out := make(map[string]float64, len(beforeNorm)+len(afterNorm))
	for name, w := range beforeNorm {
		out[name] += (1 - alpha) * w
	}
	for name, w := range afterNorm {
		out[name] += alpha * w
	}
	return out
}

// normalize converts a weighted theme list into a probability
// distribution; non-positive weights are dropped; an empty or
// all-zero list normalizes to an empty map (callers fall back to
// "default").
func normalize(weights []Weight) map[string]float64 {
	total := 0.0
	for _, w := range weights {
		if w.Weight > 0 {
			total += w.Weight
		}
	}
	out := make(map[string]float64)
	if total <= 0 {
		return out
	}
	for _, w := range weights {
		if w.Weight > 0 {
			out[w.Name] += w.Weight / total
		}
	}
	return out
}

// sampleTheme draws one theme name from a normalized probability
// distribution using rng. Iteration order over a Go map is
// nondeterministic, so names are sorted before accumulating to keep
// the draw reproducible for a fixed rng stream.
func sampleTheme(probs map[string]float64, rng *rand.Rand) string {
	names := sortedKeys(probs)
	if len(names) == 0 {
		return "default"
	}
	r := rng.Float64()
	acc := 0.0
	for _, name := range names {
		acc += probs[name]
		if r < acc {
			return name
		}
	}
	return names[len(names)-1]
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// Simple insertion sort: theme lists are small (a handful of
	// entries), so this avoids pulling in sort for a few names.
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j] < keys[j-1]; j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
	return keys
}

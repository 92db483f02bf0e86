package schedule

import (
	"testing"
	"time"
)

func TestSunriseSunsetNewYorkPlausible(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.FixedZone("EST", -5*3600)
	}
	day := time.Date(2025, 6, 21, 12, 0, 0, 0, loc)

	sunrise, sunset, err := sunriseSunset(day, 40.7128, -74.0060, loc)
	if err != nil {
		t.Fatalf("sunriseSunset() error = %v", err)
	}
	if !sunrise.Before(sunset) {
		t.Errorf("sunrise %v should be before sunset %v", sunrise, sunset)
	}
	if sunrise.Hour() < 3 || sunrise.Hour() > 8 {
		t.Errorf("summer-solstice sunrise hour = %d, expected roughly 4-6am", sunrise.Hour())
	}
	if sunset.Hour() < 18 || sunset.Hour() > 22 {
		t.Errorf("summer-solstice sunset hour = %d, expected roughly 8-9pm", sunset.Hour())
	}
}

func TestSunriseSunsetPolarNightErrors(t *testing.T) {
	day := time.Date(2025, 12, 21, 12, 0, 0, 0, time.UTC)
	_, _, err := sunriseSunset(day, 78.0, 15.0, time.UTC)
	if err == nil {
		t.Error("expected error for polar night at high latitude on winter solstice")
	}
}

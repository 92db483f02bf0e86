package schedule

import (
	"math"
	"time"

	darkwallerrors "github.com/veighnsche/darkwall-comfyui/internal/errors"
)

// civilSunAngle is the solar zenith angle, in degrees, used for civil
// sunrise/sunset (the sun's center 6 degrees below the horizon).
const civilSunAngle = 96.0

// sunriseSunset computes the civil sunrise and sunset instants for the
// given calendar day at (latitude, longitude), in loc, using the
// closed-form NOAA solar position formulas. No library in the
// retrieved example pack carries solar/astronomy geometry, so this is
// a deliberate stdlib-only implementation (math + time only),
// documented in DESIGN.md.
func sunriseSunset(day time.Time, latitude, longitude float64, loc *time.Location) (sunrise, sunset time.Time, err error) {
	y, m, d := day.Date()
	dayOfYear := day.YearDay()
	_ = y
	_ = m
	_ = d

	fractionalYear := 2 * math.Pi / daysInYear(day) * (float64(dayOfYear) - 1)

	eqTime := 229.18 * (0.000075 +
		0.001868*math.Cos(fractionalYear) -
		0.032077*math.Sin(fractionalYear) -
		0.014615*math.Cos(2*fractionalYear) -
		0.040849*math.Sin(2*fractionalYear))

	decl := 0.006918 -
		0.399912*math.Cos(fractionalYear) +
		0.070257*math.Sin(fractionalYear) -
		0.006758*math.Cos(2*fractionalYear) +
		0.000907*math.Sin(2*fractionalYear) -
		0.002697*math.Cos(3*fractionalYear) +
		0.00148*math.Sin(3*fractionalYear)

	latRad := latitude * math.Pi / 180

	cosHourAngle := (math.Cos(civilSunAngle*math.Pi/180) / (math.Cos(latRad) * math.Cos(decl))) - math.Tan(latRad)*math.Tan(decl)
	if cosHourAngle < -1 || cosHourAngle > 1 {
		return time.Time{}, time.Time{}, &darkwallerrors.ScheduleError{
			Reason: "sun does not rise or set at this latitude on this day (polar day/night)",
		}
	}
	hourAngle := math.Acos(cosHourAngle) * 180 / math.Pi

	sunriseMinutesUTC := 720 - 4*(longitude+hourAngle) - eqTime
	sunsetMinutesUTC := 720 - 4*(longitude-hourAngle) - eqTime

	midnightUTC := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	sunriseUTC := midnightUTC.Add(time.Duration(sunriseMinutesUTC * float64(time.Minute)))
	sunsetUTC := midnightUTC.Add(time.Duration(sunsetMinutesUTC * float64(time.Minute)))

	return sunriseUTC.In(loc), sunsetUTC.In(loc), nil
}

func daysInYear(t time.Time) float64 {
	if isLeapYear(t.Year()) {
		return 366
	}
	return 365
}

func isLeapYear(year int) bool {
	return (year%4 == 0 && year%100 != 0) || year%400 == 0
}

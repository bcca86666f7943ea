// Package gpstime converts GPS week/seconds-of-week pairs into UTC.
//
// GPS time counts continuously from the GPS epoch (1980-01-06T00:00:00Z)
// and does not insert leap seconds, so it currently runs ahead of UTC by a
// fixed offset.
package gpstime

import "time"

// LeapSeconds is the GPS-UTC offset, 18 s since 2017-01-01. Logs predating
// the last leap second would be off by the difference; flight logs this
// tool handles are all newer.
const LeapSeconds = 18

var gpsEpoch = time.Date(1980, time.January, 6, 0, 0, 0, 0, time.UTC)

// ToUTC converts a GPS week number and seconds-of-week into a UTC instant.
func ToUTC(week int, seconds float64) time.Time {
	elapsed := time.Duration(week) * 7 * 24 * time.Hour
	elapsed += time.Duration(seconds * float64(time.Second))
	elapsed -= LeapSeconds * time.Second

	return gpsEpoch.Add(elapsed)
}

package display

import (
	"time"

	"github.com/nathan-osman/go-sunrise"
)

// Dimmer chooses between day and night brightness from the sun times
// at a fixed location.
type Dimmer struct {
	latitude  float64
	longitude float64
	day       byte
	night     byte
	date      time.Time
	days      [3]daylight
}

type daylight struct {
	rise, set time.Time
}

func NewDimmer(latitude, longitude float64, day, night byte) *Dimmer {
	return &Dimmer{
		latitude:  latitude,
		longitude: longitude,
		day:       day,
		night:     night,
	}
}

// Level returns the brightness to use at now.
func (d *Dimmer) Level(now time.Time) byte {
	// Away from Greenwich a local day spans two UTC dates, so the
	// neighbouring dates are checked as well.
	for _, dl := range d.sunTimes(now.UTC()) {
		if now.After(dl.rise) && now.Before(dl.set) {
			return d.day
		}
	}
	return d.night
}

// sunTimes caches sunrise and sunset for the UTC day of now and the days
// either side of it.
func (d *Dimmer) sunTimes(now time.Time) [3]daylight {
	y, m, day := now.Date()
	date := time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
	if !date.Equal(d.date) {
		for i := range d.days {
			dy, dm, dd := date.AddDate(0, 0, i-1).Date()
			d.days[i].rise, d.days[i].set = sunrise.SunriseSunset(d.latitude, d.longitude, dy, dm, dd)
		}
		d.date = date
	}
	return d.days
}

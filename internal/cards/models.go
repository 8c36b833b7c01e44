// Package cards manages the user's pinned city cards: an ordered,
// persisted list with at most one card per administrative code.
package cards

import (
	"errors"

	"github.com/skycastapp/skycast/internal/weather"
)

// Card errors.
var (
	ErrCardNotFound = errors.New("card not found")
)

// Entry is one pinned city card. ID is generated at creation and stable for
// the card's lifetime; two entries are equal iff their IDs match. Adcode is
// the unique business key: at most one card per administrative code.
type Entry struct {
	ID     string `json:"id"`
	Adcode string `json:"adcode"`
	City   string `json:"city"`

	// Last-known display values.
	Temperature string `json:"temperature"`
	Condition   string `json:"condition"`
	HighTemp    string `json:"high_temp"`
	LowTemp     string `json:"low_temp"`

	// Last fetched snapshots.
	Current  *weather.CurrentConditions `json:"current,omitempty"`
	Forecast []weather.DailyForecast    `json:"forecast,omitempty"`
}

// Equal reports whether two entries refer to the same card.
func (e *Entry) Equal(other *Entry) bool {
	return other != nil && e.ID == other.ID
}

// FromBundle builds a card entry from a fetched bundle. The entry carries
// no ID; the manager assigns one on insert.
func FromBundle(bundle *weather.CityWeatherBundle) *Entry {
	entry := &Entry{City: bundle.DisplayName()}

	if len(bundle.Current) > 0 {
		live := bundle.Current[0]
		entry.Adcode = live.Adcode
		entry.Temperature = live.Temperature
		entry.Condition = live.Weather
		entry.Current = &live
	}

	if len(bundle.Forecast) > 0 {
		today := bundle.Forecast[0]
		entry.HighTemp = today.DayTemperature
		entry.LowTemp = today.NightTemperature
		entry.Forecast = bundle.Forecast
	}

	return entry
}

// Package event describes the state a display publishes after a refresh.
package event

import (
	"encoding/json"
	"time"

	"github.com/kailas-cloud/invman/internal/domain/observer"
)

const dateLayout = "2006-01-02"

// Event is the refreshed state of one display of an item.
type Event struct {
	Item             string
	EntityID         string
	Slot             observer.Slot
	Available        bool
	Active           bool      // warning: depletion is imminent
	EmptyAt          time.Time // prediction: zero when not projectable
	Supply           float64
	DailyConsumption float64
	DaysRemaining    float64
	At               time.Time
}

type dto struct {
	Item             string  `json:"item"`
	EntityID         string  `json:"entity_id"`
	Slot             string  `json:"slot"`
	Available        bool    `json:"available"`
	Active           bool    `json:"active"`
	EmptyOn          string  `json:"empty_on,omitempty"`
	Supply           float64 `json:"supply"`
	DailyConsumption float64 `json:"daily_consumption"`
	DaysRemaining    float64 `json:"days_remaining"`
	At               int64   `json:"at"` // unix millis
}

// Encode serializes e to JSON for outbound sinks.
func Encode(e Event) ([]byte, error) {
	d := dto{
		Item:             e.Item,
		EntityID:         e.EntityID,
		Slot:             string(e.Slot),
		Available:        e.Available,
		Active:           e.Active,
		Supply:           e.Supply,
		DailyConsumption: e.DailyConsumption,
		DaysRemaining:    e.DaysRemaining,
		At:               e.At.UnixMilli(),
	}
	if !e.EmptyAt.IsZero() {
		d.EmptyOn = e.EmptyAt.Format(dateLayout)
	}
	return json.Marshal(d) //nolint:wrapcheck // dto has no unsupported types
}

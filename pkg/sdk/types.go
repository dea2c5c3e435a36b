package invman

import (
	"time"

	"github.com/kailas-cloud/invman/internal/domain/event"
	"github.com/kailas-cloud/invman/internal/domain/quantity"
	"github.com/kailas-cloud/invman/internal/domain/tracker"
	inventoryuc "github.com/kailas-cloud/invman/internal/usecase/inventory"
)

// Quantity names a stored value of an item.
type Quantity string

// Stored quantities.
const (
	Supply  Quantity = Quantity(quantity.Supply)
	Morning Quantity = Quantity(quantity.Morning)
	Noon    Quantity = Quantity(quantity.Noon)
	Evening Quantity = Quantity(quantity.Evening)
	Night   Quantity = Quantity(quantity.Night)
)

// Unbounded is the DaysRemaining value of an item without daily consumption.
const Unbounded = tracker.Unbounded

// Item describes an item to register.
type Item struct {
	Name            string
	Size            string // optional, e.g. "500mg"
	Vendor          string // optional
	WarnBeforeEmpty float64
	Quantities      map[Quantity]float64
}

// Warning is the problem indicator of an item.
type Warning struct {
	Available bool
	On        bool
}

// Prediction is the projected depletion of an item.
type Prediction struct {
	Available     bool
	DaysRemaining float64
	EmptyAt       time.Time
}

// Status is the state of a registered item.
type Status struct {
	ID               string
	Name             string
	DisplayName      string
	Size             string
	Vendor           string
	WarnBeforeEmpty  float64
	Quantities       map[Quantity]float64
	DailyConsumption float64
	DaysRemaining    float64
	Warning          Warning
	Prediction       Prediction
}

// Event is a display refresh delivered by Watch.
type Event struct {
	Item             string
	EntityID         string
	Slot             string // "warning" or "empty_prediction"
	Available        bool
	Active           bool
	EmptyAt          time.Time
	Supply           float64
	DailyConsumption float64
	DaysRemaining    float64
	At               time.Time
}

func statusFromDomain(st inventoryuc.Status) Status {
	quantities := make(map[Quantity]float64, len(quantity.All()))
	for _, q := range quantity.All() {
		quantities[Quantity(q)] = st.Snapshot.Values[q]
	}
	return Status{
		ID:               st.Item.ID(),
		Name:             st.Item.Name(),
		DisplayName:      st.Item.DisplayName(),
		Size:             st.Item.Size(),
		Vendor:           st.Item.Vendor(),
		WarnBeforeEmpty:  st.Item.WarnBeforeEmpty(),
		Quantities:       quantities,
		DailyConsumption: st.Snapshot.DailyConsumption,
		DaysRemaining:    st.Snapshot.DaysRemaining,
		Warning: Warning{
			Available: st.Warning.Available,
			On:        st.Warning.On,
		},
		Prediction: Prediction{
			Available:     st.Prediction.Available,
			DaysRemaining: st.Prediction.DaysRemaining,
			EmptyAt:       st.Prediction.EmptyAt,
		},
	}
}

func eventFromDomain(e event.Event) Event {
	return Event{
		Item:             e.Item,
		EntityID:         e.EntityID,
		Slot:             string(e.Slot),
		Available:        e.Available,
		Active:           e.Active,
		EmptyAt:          e.EmptyAt,
		Supply:           e.Supply,
		DailyConsumption: e.DailyConsumption,
		DaysRemaining:    e.DaysRemaining,
		At:               e.At,
	}
}

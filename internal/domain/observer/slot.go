// Package observer defines the virtual tags display consumers subscribe to.
package observer

import "github.com/kailas-cloud/invman/internal/domain"

// Slot identifies a derived display that is refreshed after mutations.
// Slots carry no stored value.
type Slot string

// Observer slot constants.
const (
	Warning         Slot = "warning"
	EmptyPrediction Slot = "empty_prediction"
)

// Slots returns every slot in notification order.
func Slots() []Slot {
	return []Slot{EmptyPrediction, Warning}
}

// IsValid reports whether s is a known slot.
func (s Slot) IsValid() bool {
	return s == Warning || s == EmptyPrediction
}

func (s Slot) String() string { return string(s) }

// Parse converts a tag into a Slot.
func Parse(s string) (Slot, error) {
	slot := Slot(s)
	if !slot.IsValid() {
		return "", domain.ErrInvalidSlot
	}
	return slot, nil
}

// Package quantity defines the storable consumption slots of an item.
package quantity

import (
	"strings"

	"github.com/kailas-cloud/invman/internal/domain"
)

// Quantity identifies a stored numeric slot of an item.
type Quantity string

// Storable quantity constants.
const (
	Supply  Quantity = "supply"
	Night   Quantity = "night"
	Morning Quantity = "morning"
	Noon    Quantity = "noon"
	Evening Quantity = "evening"
)

var all = []Quantity{Supply, Night, Morning, Noon, Evening}

// Doses are summed in this order.
var doses = []Quantity{Morning, Noon, Evening, Night}

// All returns every storable quantity.
func All() []Quantity {
	out := make([]Quantity, len(all))
	copy(out, all)
	return out
}

// Doses returns the time-of-day dose quantities.
func Doses() []Quantity {
	out := make([]Quantity, len(doses))
	copy(out, doses)
	return out
}

// IsValid reports whether q is one of the storable quantities.
func (q Quantity) IsValid() bool {
	switch q {
	case Supply, Night, Morning, Noon, Evening:
		return true
	}
	return false
}

// IsDose reports whether q is a time-of-day dose.
func (q Quantity) IsDose() bool {
	return q.IsValid() && q != Supply
}

func (q Quantity) String() string { return string(q) }

// Parse converts a case-insensitive tag into a Quantity.
func Parse(s string) (Quantity, error) {
	q := Quantity(strings.ToLower(strings.TrimSpace(s)))
	if !q.IsValid() {
		return "", domain.NewInvalidQuantity(s)
	}
	return q, nil
}

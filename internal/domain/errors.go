package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidQuantity signals a tag outside the storable quantity set.
	ErrInvalidQuantity = errors.New("invalid quantity")
	// ErrInvalidValue signals a non-finite quantity value or amount.
	ErrInvalidValue = errors.New("invalid value")
	// ErrInvalidSlot signals an observer slot outside the virtual tag set.
	ErrInvalidSlot = errors.New("invalid observer slot")
	// ErrConsumptionOverflow signals a daily consumption sum that is not finite.
	ErrConsumptionOverflow = errors.New("daily consumption overflow")

	// ErrItemNotFound signals a missing item.
	ErrItemNotFound = errors.New("item not found")
	// ErrItemAlreadyExists signals a duplicate item registration.
	ErrItemAlreadyExists = errors.New("item already exists")
	// ErrInvalidItem signals an invalid item configuration.
	ErrInvalidItem = errors.New("invalid item")
)

// QuantityError wraps ErrInvalidQuantity with the rejected tag.
type QuantityError struct {
	Tag string
}

func (e *QuantityError) Error() string {
	return fmt.Sprintf("%s: %q", ErrInvalidQuantity.Error(), e.Tag)
}

func (e *QuantityError) Unwrap() error { return ErrInvalidQuantity }

// NewInvalidQuantity creates an invalid quantity error for tag.
func NewInvalidQuantity(tag string) error {
	return &QuantityError{Tag: tag}
}

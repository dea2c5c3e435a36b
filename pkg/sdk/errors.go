package invman

import "github.com/kailas-cloud/invman/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidQuantity   = domain.ErrInvalidQuantity
	ErrInvalidValue      = domain.ErrInvalidValue
	ErrInvalidItem       = domain.ErrInvalidItem
	ErrItemNotFound      = domain.ErrItemNotFound
	ErrItemAlreadyExists = domain.ErrItemAlreadyExists
)

package chi

// ErrorCode is a machine-readable error code returned in ErrorResponse.
type ErrorCode string

// Error codes.
const (
	ErrorCodeBadRequest        ErrorCode = "bad_request"
	ErrorCodeValidationFailed  ErrorCode = "validation_failed"
	ErrorCodeUnauthorized      ErrorCode = "unauthorized"
	ErrorCodeItemNotFound      ErrorCode = "item_not_found"
	ErrorCodeItemAlreadyExists ErrorCode = "item_already_exists"
	ErrorCodeInvalidQuantity   ErrorCode = "invalid_quantity"
	ErrorCodeInvalidValue      ErrorCode = "invalid_value"
	ErrorCodeStreamUnavailable ErrorCode = "stream_unavailable"
	ErrorCodeInternalError     ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// CreateItemRequest is the body of POST /items.
type CreateItemRequest struct {
	Name            string             `json:"name"`
	Size            string             `json:"size,omitempty"`
	Vendor          string             `json:"vendor,omitempty"`
	WarnBeforeEmpty float64            `json:"warn_before_empty_days"`
	Quantities      map[string]float64 `json:"quantities,omitempty"`
}

// SetQuantityRequest is the body of PUT /items/{item}/quantities/{quantity}.
type SetQuantityRequest struct {
	Value *float64 `json:"value"`
}

// AmountRequest is the body of POST /items/{item}/consume and /restock.
type AmountRequest struct {
	Amount *float64 `json:"amount"`
}

// Warning is the problem indicator of an item.
type Warning struct {
	Available bool `json:"available"`
	On        bool `json:"on"`
}

// Prediction is the projected depletion of an item.
type Prediction struct {
	Available     bool    `json:"available"`
	DaysRemaining float64 `json:"days_remaining"`
	EmptyOn       *string `json:"empty_on,omitempty"`
}

// Entity is a host entity derived from an item.
type Entity struct {
	Kind     string `json:"kind"`
	Platform string `json:"platform"`
	UniqueID string `json:"unique_id"`
	EntityID string `json:"entity_id"`
}

// Item is the full state of an item.
type Item struct {
	ID               string             `json:"id"`
	Name             string             `json:"name"`
	DisplayName      string             `json:"display_name"`
	Size             *string            `json:"size,omitempty"`
	Vendor           *string            `json:"vendor,omitempty"`
	WarnBeforeEmpty  float64            `json:"warn_before_empty_days"`
	Quantities       map[string]float64 `json:"quantities"`
	DailyConsumption float64            `json:"daily_consumption"`
	DaysRemaining    float64            `json:"days_remaining"`
	Warning          Warning            `json:"warning"`
	Prediction       Prediction         `json:"prediction"`
	Entities         []Entity           `json:"entities"`
}

// ItemListResponse is a cursor-paginated list of items.
type ItemListResponse struct {
	Items      []Item  `json:"items"`
	HasMore    bool    `json:"has_more"`
	NextCursor *string `json:"next_cursor,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
	Items  int               `json:"items"`
}

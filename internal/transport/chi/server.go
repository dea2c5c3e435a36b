package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/invman/internal/domain"
	"github.com/kailas-cloud/invman/internal/domain/item"
	"github.com/kailas-cloud/invman/internal/domain/quantity"
	logpkg "github.com/kailas-cloud/invman/internal/logger"
	healthuc "github.com/kailas-cloud/invman/internal/usecase/health"
	inventoryuc "github.com/kailas-cloud/invman/internal/usecase/inventory"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	emptyOnLayout   = "2006-01-02"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// EventStreamer upgrades a request into a live event stream for one item.
type EventStreamer interface {
	Serve(w http.ResponseWriter, r *http.Request, item string)
	Disconnect(item string)
}

// Server serves the inventory HTTP API.
type Server struct {
	inventory       *inventoryuc.Service
	health          *healthuc.Service
	events          EventStreamer
	logger          *zap.Logger
	defaultPageSize int
	maxPageSize     int
	errorHandlers   []errorHandler
}

// NewServer creates an HTTP API server. events can be nil (streaming disabled).
func NewServer(
	inventory *inventoryuc.Service,
	health *healthuc.Service,
	events EventStreamer,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		inventory:       inventory,
		health:          health,
		events:          events,
		logger:          logger,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrItemNotFound, http.StatusNotFound, ErrorCodeItemNotFound),
		sentinelHandler(domain.ErrItemAlreadyExists, http.StatusConflict, ErrorCodeItemAlreadyExists),
		sentinelHandler(domain.ErrInvalidQuantity, http.StatusBadRequest, ErrorCodeInvalidQuantity),
		sentinelHandler(domain.ErrInvalidValue, http.StatusBadRequest, ErrorCodeInvalidValue),
		sentinelHandler(domain.ErrInvalidItem, http.StatusBadRequest, ErrorCodeValidationFailed),
	}
	return s
}

// WithPagination overrides the list page sizes. Non-positive values keep the defaults.
func (s *Server) WithPagination(defaultSize, maxSize int) *Server {
	if defaultSize > 0 {
		s.defaultPageSize = defaultSize
	}
	if maxSize > 0 {
		s.maxPageSize = maxSize
	}
	return s
}

// Routes mounts all API routes on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Route("/items", func(r chi.Router) {
		r.Get("/", s.ListItems)
		r.Post("/", s.CreateItem)
		r.Route("/{item}", func(r chi.Router) {
			r.Get("/", s.GetItem)
			r.Delete("/", s.DeleteItem)
			r.Put("/quantities/{quantity}", s.SetQuantity)
			r.Post("/doses/{dose}", s.TakeDose)
			r.Post("/consume", s.Consume)
			r.Post("/restock", s.Restock)
			r.Get("/events", s.StreamEvents)
		})
	})
}

// Handler returns a router serving the API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	s.Routes(r)
	return r
}

// ListItems handles GET /items.
func (s *Server) ListItems(w http.ResponseWriter, r *http.Request) {
	params, err := bindListParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, err.Error())
		return
	}
	if params.Limit != nil && (*params.Limit < 1 || *params.Limit > s.maxPageSize) {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed,
			fmt.Sprintf("limit must be between 1 and %d", s.maxPageSize))
		return
	}

	statuses := s.inventory.List(r.Context())
	items := make([]Item, len(statuses))
	for i, st := range statuses {
		items[i] = itemToResponse(st)
	}

	limit := s.defaultPageSize
	if params.Limit != nil {
		limit = *params.Limit
	}
	writeJSON(w, http.StatusOK, paginateItems(items, params.Cursor, limit))
}

// paginateItems expects items sorted by ID. A page starts at the first ID
// after the cursor, so a cursor whose item was removed still advances.
func paginateItems(items []Item, cursor *string, limit int) ItemListResponse {
	startIdx := 0
	if cursor != nil && *cursor != "" {
		startIdx = sort.Search(len(items), func(i int) bool { return items[i].ID > *cursor })
	}

	end := startIdx + limit
	if end > len(items) {
		end = len(items)
	}

	page := items[startIdx:end]
	hasMore := end < len(items)

	resp := ItemListResponse{
		Items:   page,
		HasMore: hasMore,
	}
	if hasMore && len(page) > 0 {
		c := page[len(page)-1].ID
		resp.NextCursor = &c
	}
	return resp
}

// CreateItem handles POST /items.
func (s *Server) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req CreateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	it, err := item.New(req.Name, req.Size, req.Vendor, req.WarnBeforeEmpty)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
		return
	}

	initial := make(map[quantity.Quantity]float64, len(req.Quantities))
	for k, v := range req.Quantities {
		q, err := quantity.Parse(k)
		if err != nil {
			writeError(w, http.StatusBadRequest, ErrorCodeInvalidQuantity, err.Error())
			return
		}
		initial[q] = v
	}

	st, err := s.inventory.Register(r.Context(), it, initial)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, itemToResponse(st))
}

// GetItem handles GET /items/{item}.
func (s *Server) GetItem(w http.ResponseWriter, r *http.Request) {
	id, r, ok := s.itemParam(w, r)
	if !ok {
		return
	}

	st, err := s.inventory.Get(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, itemToResponse(st))
}

// DeleteItem handles DELETE /items/{item}.
func (s *Server) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, r, ok := s.itemParam(w, r)
	if !ok {
		return
	}

	if err := s.inventory.Remove(r.Context(), id); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if s.events != nil {
		s.events.Disconnect(id)
	}

	w.WriteHeader(http.StatusNoContent)
}

// SetQuantity handles PUT /items/{item}/quantities/{quantity}.
func (s *Server) SetQuantity(w http.ResponseWriter, r *http.Request) {
	id, r, ok := s.itemParam(w, r)
	if !ok {
		return
	}
	raw, err := pathParam(r, "quantity")
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, err.Error())
		return
	}
	q, err := quantity.Parse(raw)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	var req SetQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Value == nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "value is required")
		return
	}

	st, err := s.inventory.Set(r.Context(), id, q, *req.Value)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, itemToResponse(st))
}

// TakeDose handles POST /items/{item}/doses/{dose}.
// Unknown dose tags are accepted and leave the item unchanged.
func (s *Server) TakeDose(w http.ResponseWriter, r *http.Request) {
	id, r, ok := s.itemParam(w, r)
	if !ok {
		return
	}
	raw, err := pathParam(r, "dose")
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, err.Error())
		return
	}

	// Parse failures fall through as an unknown tag, which the tracker ignores.
	dose, perr := quantity.Parse(raw)
	if perr != nil {
		dose = quantity.Quantity(raw)
	}

	st, err := s.inventory.TakeDose(r.Context(), id, dose)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, itemToResponse(st))
}

// Consume handles POST /items/{item}/consume.
func (s *Server) Consume(w http.ResponseWriter, r *http.Request) {
	s.applyAmount(w, r, s.inventory.TakeAmount)
}

// Restock handles POST /items/{item}/restock.
func (s *Server) Restock(w http.ResponseWriter, r *http.Request) {
	s.applyAmount(w, r, s.inventory.Restock)
}

type amountFunc func(ctx context.Context, id string, amount float64) (inventoryuc.Status, error)

func (s *Server) applyAmount(w http.ResponseWriter, r *http.Request, apply amountFunc) {
	id, r, ok := s.itemParam(w, r)
	if !ok {
		return
	}

	var req AmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Amount == nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "amount is required")
		return
	}

	st, err := apply(r.Context(), id, *req.Amount)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, itemToResponse(st))
}

// StreamEvents handles GET /items/{item}/events.
func (s *Server) StreamEvents(w http.ResponseWriter, r *http.Request) {
	id, r, ok := s.itemParam(w, r)
	if !ok {
		return
	}
	if s.events == nil {
		writeError(w, http.StatusServiceUnavailable, ErrorCodeStreamUnavailable, "event streaming is disabled")
		return
	}
	if _, err := s.inventory.Get(r.Context(), id); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	s.events.Serve(w, r, id)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
		Items:  report.Items,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// itemParam binds the item path parameter and scopes the request logger to it.
func (s *Server) itemParam(w http.ResponseWriter, r *http.Request) (string, *http.Request, bool) {
	id, err := pathParam(r, "item")
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, err.Error())
		return "", r, false
	}
	return id, r.WithContext(logpkg.With(r.Context(), zap.String("item", id))), true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns the error message for the client without exposing internals.
// Quantity errors keep their tag so the caller sees which one was rejected.
func safeDomainMessage(err error) string {
	var qe *domain.QuantityError
	if errors.As(err, &qe) {
		return qe.Error()
	}
	sentinels := []error{
		domain.ErrItemNotFound,
		domain.ErrItemAlreadyExists,
		domain.ErrInvalidQuantity,
		domain.ErrInvalidValue,
		domain.ErrInvalidItem,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContext(r.Context(), s.logger)
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			log.Warn("domain error", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}

func itemToResponse(st inventoryuc.Status) Item {
	it := st.Item

	quantities := make(map[string]float64, len(quantity.All()))
	for _, q := range quantity.All() {
		quantities[q.String()] = st.Snapshot.Values[q]
	}

	ents := it.Entities()
	entities := make([]Entity, 0, len(ents))
	for _, e := range ents {
		entities = append(entities, Entity{
			Kind:     e.Kind,
			Platform: string(e.Platform),
			UniqueID: e.UniqueID,
			EntityID: e.EntityID,
		})
	}

	resp := Item{
		ID:               it.ID(),
		Name:             it.Name(),
		DisplayName:      it.DisplayName(),
		WarnBeforeEmpty:  it.WarnBeforeEmpty(),
		Quantities:       quantities,
		DailyConsumption: st.Snapshot.DailyConsumption,
		DaysRemaining:    finite(st.Snapshot.DaysRemaining),
		Warning: Warning{
			Available: st.Warning.Available,
			On:        st.Warning.On,
		},
		Prediction: Prediction{
			Available:     st.Prediction.Available,
			DaysRemaining: finite(st.Prediction.DaysRemaining),
		},
		Entities: entities,
	}
	if v := it.Size(); v != "" {
		resp.Size = &v
	}
	if v := it.Vendor(); v != "" {
		resp.Vendor = &v
	}
	if st.Prediction.Available && !st.Prediction.EmptyAt.IsZero() {
		d := st.Prediction.EmptyAt.UTC().Format(emptyOnLayout)
		resp.Prediction.EmptyOn = &d
	}
	return resp
}

// finite maps values JSON cannot encode to 0.
func finite(v float64) float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0
	}
	return v
}

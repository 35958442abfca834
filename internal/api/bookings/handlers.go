// internal/api/bookings/handlers.go
package bookings

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Playfield/internal/api/apiutil"
	"github.com/codr1/Playfield/internal/models"
	"github.com/codr1/Playfield/internal/pricing"
	"github.com/codr1/Playfield/internal/ratelimit"
	"github.com/codr1/Playfield/internal/recurrence"
	"github.com/codr1/Playfield/internal/reservations"
)

const callbackTokenHeader = "X-Callback-Token"

// Manager is the reservation lifecycle the handlers drive.
type Manager interface {
	CreateSingle(ctx context.Context, req reservations.SingleRequest) (models.Booking, error)
	CreateRecurring(ctx context.Context, req reservations.RecurringRequest) (models.RecurringBooking, error)
	Confirm(ctx context.Context, bookingID string) (models.Booking, error)
	ConfirmRecurring(ctx context.Context, recurringBookingID string) (models.RecurringBooking, error)
	Cancel(ctx context.Context, bookingID string, actor models.Actor) (models.Booking, error)
	CancelRecurring(ctx context.Context, recurringBookingID string, actor models.Actor) (models.RecurringBooking, error)
	Get(ctx context.Context, bookingID string) (models.Booking, error)
	GetRecurring(ctx context.Context, recurringBookingID string) (models.RecurringBooking, error)
	ListForSubField(ctx context.Context, subFieldID string, from, to time.Time) ([]models.Booking, error)
	Quote(ctx context.Context, subFieldID string, window models.Window) (pricing.Quote, error)
}

// HoldLimiter throttles hold placement per player and client IP.
type HoldLimiter interface {
	CheckHold(playerID, ip string) ratelimit.LimitResult
	RecordHold(playerID, ip string)
}

type Handler struct {
	manager       Manager
	callbackToken string
	limiter       HoldLimiter
	trustProxy    bool
}

// NewHandler builds the booking handlers. An empty callbackToken leaves the
// payment callbacks unguarded.
func NewHandler(manager Manager, callbackToken string) *Handler {
	return &Handler{manager: manager, callbackToken: callbackToken}
}

// WithHoldLimiter throttles the create endpoints. trustProxy reads the client
// IP from X-Forwarded-For.
func (h *Handler) WithHoldLimiter(limiter HoldLimiter, trustProxy bool) *Handler {
	h.limiter = limiter
	h.trustProxy = trustProxy
	return h
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/bookings", h.HandleCreateBooking)
	mux.HandleFunc("GET /api/v1/bookings/{id}", h.HandleGetBooking)
	mux.HandleFunc("POST /api/v1/bookings/{id}/cancel", h.HandleCancelBooking)
	mux.HandleFunc("POST /api/v1/bookings/{id}/confirm", h.HandleConfirmBooking)

	mux.HandleFunc("POST /api/v1/recurring-bookings", h.HandleCreateRecurring)
	mux.HandleFunc("GET /api/v1/recurring-bookings/{id}", h.HandleGetRecurring)
	mux.HandleFunc("POST /api/v1/recurring-bookings/{id}/cancel", h.HandleCancelRecurring)
	mux.HandleFunc("POST /api/v1/recurring-bookings/{id}/confirm", h.HandleConfirmRecurring)

	mux.HandleFunc("GET /api/v1/sub-fields/{id}/bookings", h.HandleListSubFieldBookings)
	mux.HandleFunc("GET /api/v1/sub-fields/{id}/quote", h.HandleQuote)
}

type createBookingRequest struct {
	SubFieldID   string `json:"sub_field_id"`
	PlayerID     string `json:"player_id,omitempty"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	ContactPhone string `json:"contact_phone,omitempty"`
}

type createRecurringRequest struct {
	SubFieldID     string                `json:"sub_field_id"`
	PlayerID       string                `json:"player_id,omitempty"`
	RecurrenceType models.RecurrenceType `json:"recurrence_type"`
	DayOfWeek      *int                  `json:"day_of_week,omitempty"`
	StartTime      models.TimeOfDay      `json:"start_time"`
	EndTime        models.TimeOfDay      `json:"end_time"`
	StartDate      models.Date           `json:"start_date"`
	EndDate        models.Date           `json:"end_date"`
	ContactPhone   string                `json:"contact_phone,omitempty"`
}

// POST /api/v1/bookings
func (h *Handler) HandleCreateBooking(w http.ResponseWriter, r *http.Request) {
	actor, err := apiutil.RequireActor(r)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	var req createBookingRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, r, models.InvalidInputf("invalid JSON body: %v", err))
		return
	}
	start, err := apiutil.ParseTimestamp(req.StartTime, "start_time")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	end, err := apiutil.ParseTimestamp(req.EndTime, "end_time")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	playerID, err := bookingOwner(actor, req.PlayerID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	clientIP, ok := h.allowHold(w, r, playerID)
	if !ok {
		return
	}

	booking, err := h.manager.CreateSingle(r.Context(), reservations.SingleRequest{
		SubFieldID:   strings.TrimSpace(req.SubFieldID),
		PlayerID:     playerID,
		Window:       models.NewWindow(start, end),
		ContactPhone: req.ContactPhone,
	})
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	h.recordHold(playerID, clientIP)
	apiutil.WriteOK(w, r, http.StatusCreated, booking)
}

// POST /api/v1/recurring-bookings
func (h *Handler) HandleCreateRecurring(w http.ResponseWriter, r *http.Request) {
	actor, err := apiutil.RequireActor(r)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	var req createRecurringRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, r, models.InvalidInputf("invalid JSON body: %v", err))
		return
	}
	playerID, err := bookingOwner(actor, req.PlayerID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	pattern := recurrence.Recurrence{
		Type:      models.RecurrenceType(strings.ToUpper(string(req.RecurrenceType))),
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	}
	if pattern.Type == models.RecurrenceWeekly {
		if req.DayOfWeek == nil {
			apiutil.WriteError(w, r, apiutil.FieldError{Field: "day_of_week", Reason: "is required for WEEKLY recurrences"})
			return
		}
		pattern.DayOfWeek = time.Weekday(*req.DayOfWeek)
	}
	clientIP, ok := h.allowHold(w, r, playerID)
	if !ok {
		return
	}

	series, err := h.manager.CreateRecurring(r.Context(), reservations.RecurringRequest{
		SubFieldID:   strings.TrimSpace(req.SubFieldID),
		PlayerID:     playerID,
		Recurrence:   pattern,
		ContactPhone: req.ContactPhone,
	})
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	h.recordHold(playerID, clientIP)
	apiutil.WriteOK(w, r, http.StatusCreated, series)
}

// GET /api/v1/bookings/{id}
func (h *Handler) HandleGetBooking(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}
	booking, err := h.manager.Get(r.Context(), id)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	if !actor.CanActOn(booking.PlayerID) {
		apiutil.WriteError(w, r, models.ErrNotPermitted)
		return
	}
	apiutil.WriteOK(w, r, http.StatusOK, booking)
}

// GET /api/v1/recurring-bookings/{id}
func (h *Handler) HandleGetRecurring(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}
	series, err := h.manager.GetRecurring(r.Context(), id)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	if !actor.CanActOn(series.PlayerID) {
		apiutil.WriteError(w, r, models.ErrNotPermitted)
		return
	}
	apiutil.WriteOK(w, r, http.StatusOK, series)
}

// POST /api/v1/bookings/{id}/cancel
func (h *Handler) HandleCancelBooking(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}
	booking, err := h.manager.Cancel(r.Context(), id, actor)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.WriteOK(w, r, http.StatusOK, booking)
}

// POST /api/v1/recurring-bookings/{id}/cancel
func (h *Handler) HandleCancelRecurring(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}
	series, err := h.manager.CancelRecurring(r.Context(), id, actor)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.WriteOK(w, r, http.StatusOK, series)
}

// POST /api/v1/bookings/{id}/confirm
func (h *Handler) HandleConfirmBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := h.callbackID(w, r)
	if !ok {
		return
	}
	booking, err := h.manager.Confirm(r.Context(), id)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.WriteOK(w, r, http.StatusOK, booking)
}

// POST /api/v1/recurring-bookings/{id}/confirm
func (h *Handler) HandleConfirmRecurring(w http.ResponseWriter, r *http.Request) {
	id, ok := h.callbackID(w, r)
	if !ok {
		return
	}
	series, err := h.manager.ConfirmRecurring(r.Context(), id)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.WriteOK(w, r, http.StatusOK, series)
}

// GET /api/v1/sub-fields/{id}/bookings?from=...&to=...
// Players see occupancy only; owner and contact details are withheld unless
// the booking is theirs.
func (h *Handler) HandleListSubFieldBookings(w http.ResponseWriter, r *http.Request) {
	subFieldID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	span, err := apiutil.WindowFromQuery(r, "from", "to")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	bookings, err := h.manager.ListForSubField(r.Context(), subFieldID, span.Start, span.End)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	actor, _ := apiutil.ActorFromContext(r.Context())
	for i := range bookings {
		if !actor.CanActOn(bookings[i].PlayerID) {
			bookings[i].PlayerID = ""
			bookings[i].ContactPhone = ""
		}
	}
	apiutil.WriteOK(w, r, http.StatusOK, map[string]any{"bookings": bookings})
}

// GET /api/v1/sub-fields/{id}/quote?start=...&end=...
func (h *Handler) HandleQuote(w http.ResponseWriter, r *http.Request) {
	subFieldID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	window, err := apiutil.WindowFromQuery(r, "start", "end")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	quote, err := h.manager.Quote(r.Context(), subFieldID, window)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.WriteOK(w, r, http.StatusOK, quote)
}

func (h *Handler) actorAndID(w http.ResponseWriter, r *http.Request) (models.Actor, string, bool) {
	actor, err := apiutil.RequireActor(r)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return models.Actor{}, "", false
	}
	id, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return models.Actor{}, "", false
	}
	return actor, id, true
}

// callbackID authenticates a payment provider callback.
func (h *Handler) callbackID(w http.ResponseWriter, r *http.Request) (string, bool) {
	if h.callbackToken != "" {
		token := r.Header.Get(callbackTokenHeader)
		if subtle.ConstantTimeCompare([]byte(token), []byte(h.callbackToken)) != 1 {
			log.Ctx(r.Context()).Warn().Str("path", r.URL.Path).Msg("Payment callback rejected: bad token")
			apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusUnauthorized, Message: "invalid callback token"})
			return "", false
		}
	}
	id, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return "", false
	}
	return id, true
}

// allowHold applies the hold rate limit, if configured, and returns the
// client IP to record against.
func (h *Handler) allowHold(w http.ResponseWriter, r *http.Request, playerID string) (string, bool) {
	if h.limiter == nil {
		return "", true
	}
	clientIP := ratelimit.GetClientIP(r, h.trustProxy)
	result := h.limiter.CheckHold(playerID, clientIP)
	if result.Allowed {
		return clientIP, true
	}

	ratelimit.LogRateLimitExceeded(r.Context(), playerID, clientIP, result.Reason)
	retryAfter := int(result.RetryAfter.Round(time.Second) / time.Second)
	if retryAfter < 1 {
		retryAfter = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusTooManyRequests, Message: "too many holds, try again later"})
	return "", false
}

func (h *Handler) recordHold(playerID, clientIP string) {
	if h.limiter != nil {
		h.limiter.RecordHold(playerID, clientIP)
	}
}

// bookingOwner resolves whose booking is being created. Managers may book on
// behalf of a player; players always book for themselves.
func bookingOwner(actor models.Actor, requested string) (string, error) {
	requested = strings.TrimSpace(requested)
	switch {
	case actor.Role == models.ActorManager && requested != "":
		return requested, nil
	case actor.Role == models.ActorManager && actor.ID == "":
		return "", apiutil.FieldError{Field: "player_id", Reason: "is required when booking as a manager"}
	case requested != "" && requested != actor.ID:
		return "", models.ErrNotPermitted
	default:
		return actor.ID, nil
	}
}

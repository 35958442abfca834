// internal/api/catalog/handlers.go
package catalog

import (
	"context"
	"net/http"
	"time"

	"github.com/codr1/Playfield/internal/api/apiutil"
	"github.com/codr1/Playfield/internal/catalog"
	"github.com/codr1/Playfield/internal/models"
	"github.com/codr1/Playfield/internal/pricing"
)

// Service is the catalog administration the handlers drive.
type Service interface {
	CreateComplex(ctx context.Context, name, timezone string) (catalog.Complex, error)
	CreateSubField(ctx context.Context, complexID, name, sportType string, capacity int) (catalog.SubField, error)
	AddPricingRule(ctx context.Context, subFieldID string, rule pricing.Rule) (pricing.Rule, error)
	ListPricingRules(ctx context.Context, subFieldID string) ([]pricing.Rule, error)
	DeletePricingRule(ctx context.Context, ruleID string) error
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/complexes", h.HandleCreateComplex)
	mux.HandleFunc("POST /api/v1/complexes/{id}/sub-fields", h.HandleCreateSubField)
	mux.HandleFunc("GET /api/v1/sub-fields/{id}/pricing-rules", h.HandleListPricingRules)
	mux.HandleFunc("POST /api/v1/sub-fields/{id}/pricing-rules", h.HandleAddPricingRule)
	mux.HandleFunc("DELETE /api/v1/pricing-rules/{id}", h.HandleDeletePricingRule)
}

type createComplexRequest struct {
	Name     string `json:"name"`
	Timezone string `json:"timezone"`
}

type createSubFieldRequest struct {
	Name      string `json:"name"`
	SportType string `json:"sport_type"`
	Capacity  int    `json:"capacity"`
}

type pricingRuleRequest struct {
	DayOfWeek *int             `json:"day_of_week"`
	StartTime models.TimeOfDay `json:"start_time"`
	EndTime   models.TimeOfDay `json:"end_time"`
	BasePrice int64            `json:"base_price"`
}

// POST /api/v1/complexes
func (h *Handler) HandleCreateComplex(w http.ResponseWriter, r *http.Request) {
	if !requireManager(w, r) {
		return
	}
	var req createComplexRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, r, models.InvalidInputf("invalid JSON body: %v", err))
		return
	}
	venue, err := h.service.CreateComplex(r.Context(), req.Name, req.Timezone)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.WriteOK(w, r, http.StatusCreated, venue)
}

// POST /api/v1/complexes/{id}/sub-fields
func (h *Handler) HandleCreateSubField(w http.ResponseWriter, r *http.Request) {
	if !requireManager(w, r) {
		return
	}
	complexID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	var req createSubFieldRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, r, models.InvalidInputf("invalid JSON body: %v", err))
		return
	}
	subField, err := h.service.CreateSubField(r.Context(), complexID, req.Name, req.SportType, req.Capacity)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.WriteOK(w, r, http.StatusCreated, subField)
}

// GET /api/v1/sub-fields/{id}/pricing-rules
func (h *Handler) HandleListPricingRules(w http.ResponseWriter, r *http.Request) {
	subFieldID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	rules, err := h.service.ListPricingRules(r.Context(), subFieldID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.WriteOK(w, r, http.StatusOK, map[string]any{"pricing_rules": rules})
}

// POST /api/v1/sub-fields/{id}/pricing-rules
func (h *Handler) HandleAddPricingRule(w http.ResponseWriter, r *http.Request) {
	if !requireManager(w, r) {
		return
	}
	subFieldID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	var req pricingRuleRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, r, models.InvalidInputf("invalid JSON body: %v", err))
		return
	}
	if req.DayOfWeek == nil {
		apiutil.WriteError(w, r, apiutil.FieldError{Field: "day_of_week", Reason: "is required"})
		return
	}

	rule, err := h.service.AddPricingRule(r.Context(), subFieldID, pricing.Rule{
		DayOfWeek: time.Weekday(*req.DayOfWeek),
		Start:     req.StartTime,
		End:       req.EndTime,
		BasePrice: req.BasePrice,
	})
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.WriteOK(w, r, http.StatusCreated, rule)
}

// DELETE /api/v1/pricing-rules/{id}
func (h *Handler) HandleDeletePricingRule(w http.ResponseWriter, r *http.Request) {
	if !requireManager(w, r) {
		return
	}
	ruleID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	if err := h.service.DeletePricingRule(r.Context(), ruleID); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func requireManager(w http.ResponseWriter, r *http.Request) bool {
	actor, err := apiutil.RequireActor(r)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return false
	}
	if actor.Role != models.ActorManager {
		apiutil.WriteError(w, r, models.ErrNotPermitted)
		return false
	}
	return true
}

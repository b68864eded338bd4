package catalog

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/courseforge/billing-api/internal/pkg/response"
	"github.com/courseforge/billing-api/internal/pkg/validator"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Routes are public: the storefront shows tiers and costs before login.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/tiers", h.ListTiers)
	r.Get("/credit-costs", h.ListCreditCosts)
	return r
}

func (h *Handler) ListTiers(w http.ResponseWriter, r *http.Request) {
	tiers, err := h.svc.ListTiers(r.Context())
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, map[string]interface{}{"tiers": tiers})
}

type costsQuery struct {
	Category string `json:"category" validate:"omitempty,cost_category"`
}

func (h *Handler) ListCreditCosts(w http.ResponseWriter, r *http.Request) {
	q := costsQuery{Category: r.URL.Query().Get("category")}
	if fields := validator.Validate(q); fields != nil {
		response.ValidationError(w, fields)
		return
	}

	costs, err := h.svc.ListCreditCosts(r.Context())
	if err != nil {
		response.InternalError(w)
		return
	}

	if q.Category != "" {
		filtered := make([]CreditCost, 0, 1)
		for _, c := range costs {
			if c.Category == CostCategory(q.Category) {
				filtered = append(filtered, c)
			}
		}
		costs = filtered
	}

	response.OK(w, map[string]interface{}{"costs": costs})
}

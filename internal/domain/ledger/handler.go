package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/courseforge/billing-api/internal/domain/catalog"
	"github.com/courseforge/billing-api/internal/middleware"
	"github.com/courseforge/billing-api/internal/pkg/response"
	"github.com/courseforge/billing-api/internal/pkg/validator"
)

// CostResolver prices a generation action in credits.
type CostResolver interface {
	CostFor(ctx context.Context, category catalog.CostCategory) (int, error)
}

type Handler struct {
	svc   *Service
	costs CostResolver
}

func NewHandler(svc *Service, costs CostResolver) *Handler {
	return &Handler{svc: svc, costs: costs}
}

type spendRequest struct {
	Amount   int    `json:"amount" validate:"omitempty,gt=0"`
	Category string `json:"category" validate:"omitempty,cost_category"`
	CourseID string `json:"courseId" validate:"omitempty,uuid"`
}

type grantRequest struct {
	UserID      string `json:"userId" validate:"required,uuid"`
	Amount      int    `json:"amount" validate:"required,gt=0"`
	Description string `json:"description" validate:"required,max=255"`
}

func (h *Handler) Routes(authMiddleware, adminOnly func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)

	r.Get("/balance", h.GetBalance)
	r.Get("/transactions", h.ListTransactions)
	r.Post("/spend", h.Spend)

	r.Group(func(r chi.Router) {
		r.Use(adminOnly)
		r.Post("/grant", h.Grant)
	})

	return r
}

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	balance, err := h.svc.GetBalance(r.Context(), userID)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, map[string]interface{}{"balance": balance})
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	pagination := parsePagination(r)
	transactions, err := h.svc.ListTransactions(r.Context(), userID, pagination)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, map[string]interface{}{
		"transactions": transactions,
		"limit":        pagination.Limit,
		"offset":       pagination.Offset,
	})
}

func (h *Handler) Spend(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req spendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if fields := validator.Validate(req); fields != nil {
		response.ValidationError(w, fields)
		return
	}

	amount := req.Amount
	if req.Category != "" {
		// catalogued actions are priced server side; a client-supplied
		// amount is ignored for them
		var err error
		amount, err = h.costs.CostFor(r.Context(), catalog.CostCategory(req.Category))
		if err != nil {
			if errors.Is(err, catalog.ErrCostNotFound) {
				response.BadRequest(w, "no credit cost configured for this category")
				return
			}
			response.InternalError(w)
			return
		}
	}
	if amount <= 0 {
		response.BadRequest(w, "amount or category is required")
		return
	}

	courseID := uuid.Nil
	if req.CourseID != "" {
		courseID, _ = uuid.Parse(req.CourseID)
	}

	transaction, err := h.svc.Spend(r.Context(), userID, amount, courseID)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidAmount):
			response.BadRequest(w, "amount must be greater than zero")
		case errors.Is(err, ErrInsufficientCredits):
			response.PaymentRequired(w, "insufficient credits")
		default:
			response.InternalError(w)
		}
		return
	}

	response.OK(w, transaction)
}

func (h *Handler) Grant(w http.ResponseWriter, r *http.Request) {
	var req grantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if fields := validator.Validate(req); fields != nil {
		response.ValidationError(w, fields)
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		response.BadRequest(w, "invalid user id")
		return
	}

	transaction, err := h.svc.Grant(r.Context(), userID, req.Amount, req.Description)
	if err != nil {
		if errors.Is(err, ErrInvalidAmount) {
			response.BadRequest(w, "amount must be greater than zero")
			return
		}
		response.InternalError(w)
		return
	}

	response.Created(w, transaction)
}

func parsePagination(r *http.Request) Pagination {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return Pagination{Limit: limit, Offset: offset}
}

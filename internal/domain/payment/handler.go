package payment

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/courseforge/billing-api/internal/domain/catalog"
	"github.com/courseforge/billing-api/internal/middleware"
	"github.com/courseforge/billing-api/internal/pkg/razorpay"
	"github.com/courseforge/billing-api/internal/pkg/response"
	"github.com/courseforge/billing-api/internal/pkg/validator"
)

const maxWebhookBody = 1 << 20

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type createOrderRequest struct {
	TierID string `json:"tierId" validate:"required,max=64"`
}

type confirmRequest struct {
	GatewayOrderID   string `json:"razorpayOrderId" validate:"required,max=64"`
	GatewayPaymentID string `json:"razorpayPaymentId" validate:"required,max=64"`
	Signature        string `json:"razorpaySignature" validate:"required,max=128"`
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)

	r.Post("/orders", h.CreateOrder)
	r.Post("/confirm", h.Confirm)
	r.Get("/", h.ListOrders)

	return r
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if fields := validator.Validate(req); fields != nil {
		response.ValidationError(w, fields)
		return
	}

	order, err := h.svc.CreateOrder(r.Context(), userID, req.TierID)
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrTierNotFound):
			response.NotFound(w, "pricing tier not found")
		case errors.Is(err, razorpay.ErrGatewayUnavailable):
			response.BadGateway(w, "payment gateway unavailable, try again later")
		default:
			response.InternalError(w)
		}
		return
	}

	response.Created(w, order)
}

func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if fields := validator.Validate(req); fields != nil {
		response.ValidationError(w, fields)
		return
	}

	order, err := h.svc.ConfirmPayment(r.Context(), userID, req.GatewayOrderID, req.GatewayPaymentID, req.Signature)
	if err != nil {
		writeOrderError(w, err)
		return
	}

	response.OK(w, order)
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	orders, err := h.svc.ListOrders(r.Context(), userID, limit, offset)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, map[string]interface{}{"orders": orders})
}

// Webhook receives gateway notifications. It is mounted outside the auth
// middleware; the webhook signature is the only authentication.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		response.BadRequest(w, "unreadable body")
		return
	}

	signature := r.Header.Get("X-Razorpay-Signature")
	if err := h.svc.HandleWebhook(r.Context(), body, signature); err != nil {
		writeOrderError(w, err)
		return
	}

	response.OK(w, map[string]interface{}{"received": true})
}

func writeOrderError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidSignature):
		response.Unauthorized(w, "invalid signature")
	case errors.Is(err, ErrOrderNotFound):
		response.NotFound(w, "order not found")
	case errors.Is(err, ErrOrderConflict):
		response.Conflict(w, "conflicting payment for this order")
	case errors.Is(err, ErrOrderState):
		response.Conflict(w, "order is not in a state that allows this")
	default:
		response.InternalError(w)
	}
}

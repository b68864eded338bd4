package ledger_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/courseforge/billing-api/internal/domain/catalog"
	"github.com/courseforge/billing-api/internal/domain/ledger"
	"github.com/courseforge/billing-api/internal/middleware"
	"github.com/courseforge/billing-api/internal/pkg/jwt"
)

type creditsAPIResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Balance int `json:"balance"`
	} `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func TestCreditsEndpointsIntegration(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(db)

	userID := uuid.New()
	svc := newTestService(db)
	h := ledger.NewHandler(svc, catalog.NewService(catalog.NewRepository(db)))

	jwtSvc := jwt.NewService("credits-integration-secret", time.Hour)
	userToken, err := jwtSvc.GenerateAccessToken(userID, "user")
	if err != nil {
		t.Fatalf("generate token failed: %v", err)
	}
	adminToken, err := jwtSvc.GenerateAccessToken(uuid.New(), "admin")
	if err != nil {
		t.Fatalf("generate admin token failed: %v", err)
	}

	r := chi.NewRouter()
	r.Mount("/api/v1/credits", h.Routes(middleware.Auth(jwtSvc), middleware.RequireRole("admin")))

	t.Run("GET /balance initial", func(t *testing.T) {
		resp := performCreditsRequest(t, r, userToken, http.MethodGet, "/api/v1/credits/balance", nil)
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.Code)
		}
		body := decodeCreditsResponse(t, resp)
		if !body.Success || body.Data.Balance != 0 {
			t.Fatalf("expected success=true balance=0, got success=%v balance=%d", body.Success, body.Data.Balance)
		}
	})

	t.Run("POST /grant requires admin", func(t *testing.T) {
		resp := performCreditsRequest(t, r, userToken, http.MethodPost, "/api/v1/credits/grant", map[string]interface{}{
			"userId":      userID.String(),
			"amount":      50,
			"description": "support grant",
		})
		if resp.Code != http.StatusForbidden {
			t.Fatalf("expected 403 for non-admin, got %d", resp.Code)
		}
	})

	t.Run("POST /grant as admin", func(t *testing.T) {
		resp := performCreditsRequest(t, r, adminToken, http.MethodPost, "/api/v1/credits/grant", map[string]interface{}{
			"userId":      userID.String(),
			"amount":      50,
			"description": "support grant",
		})
		if resp.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
		}
	})

	t.Run("POST /spend", func(t *testing.T) {
		resp := performCreditsRequest(t, r, userToken, http.MethodPost, "/api/v1/credits/spend", map[string]interface{}{
			"amount": 20,
		})
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
		}
	})

	t.Run("POST /spend by category", func(t *testing.T) {
		if _, err := db.Exec(`
			INSERT INTO credit_costs (category, credits) VALUES ('quiz', 3)
			ON CONFLICT (category) DO UPDATE SET credits = EXCLUDED.credits
		`); err != nil {
			t.Fatalf("seed credit cost failed: %v", err)
		}

		resp := performCreditsRequest(t, r, userToken, http.MethodPost, "/api/v1/credits/spend", map[string]interface{}{
			"category": "quiz",
		})
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
		}
	})

	t.Run("POST /spend unknown category", func(t *testing.T) {
		resp := performCreditsRequest(t, r, userToken, http.MethodPost, "/api/v1/credits/spend", map[string]interface{}{
			"category": "hologram",
		})
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for category outside the closed set, got %d", resp.Code)
		}
	})

	t.Run("POST /spend without amount or category", func(t *testing.T) {
		resp := performCreditsRequest(t, r, userToken, http.MethodPost, "/api/v1/credits/spend", map[string]interface{}{})
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", resp.Code)
		}
	})

	t.Run("POST /spend over balance", func(t *testing.T) {
		resp := performCreditsRequest(t, r, userToken, http.MethodPost, "/api/v1/credits/spend", map[string]interface{}{
			"amount": 1000,
		})
		if resp.Code != http.StatusPaymentRequired {
			t.Fatalf("expected 402, got %d", resp.Code)
		}
		body := decodeCreditsResponse(t, resp)
		if body.Error == nil || body.Error.Code != "INSUFFICIENT_CREDITS" {
			t.Fatalf("expected INSUFFICIENT_CREDITS error, got %+v", body.Error)
		}
	})

	t.Run("GET /balance after activity", func(t *testing.T) {
		resp := performCreditsRequest(t, r, userToken, http.MethodGet, "/api/v1/credits/balance", nil)
		body := decodeCreditsResponse(t, resp)
		// 50 granted, 20 spent directly, 3 spent via the quiz category
		if body.Data.Balance != 27 {
			t.Fatalf("expected balance 27, got %d", body.Data.Balance)
		}
	})

	t.Run("GET /transactions", func(t *testing.T) {
		resp := performCreditsRequest(t, r, userToken, http.MethodGet, "/api/v1/credits/transactions", nil)
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.Code)
		}
	})

	t.Run("unauthenticated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/credits/balance", nil)
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", resp.Code)
		}
	})
}

func performCreditsRequest(t *testing.T, r chi.Router, token, method, path string, body map[string]interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body failed: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func decodeCreditsResponse(t *testing.T, resp *httptest.ResponseRecorder) creditsAPIResponse {
	t.Helper()

	var body creditsAPIResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
	return body
}

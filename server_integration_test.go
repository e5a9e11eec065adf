package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/francivaldo-alves/gestao-financeira/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// helper to perform requests with auth token
func performRequest(r http.Handler, method, path string, body io.Reader, token string, contentType string) *httptest.ResponseRecorder {
	// allow callers to pass nil for body safely
	req, _ := http.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func setupTestServer(t *testing.T) *gin.Engine {
	// integration tests are opt-in. Set DB_DSN_TEST=1 and DB_DSN to run them.
	if os.Getenv("DB_DSN_TEST") != "1" {
		t.Skip("integration tests are disabled; set DB_DSN_TEST=1 to enable")
	}
	gin.SetMode(gin.TestMode)
	initDB()
	tmp := t.TempDir()
	_ = os.Setenv("UPLOAD_BASE", tmp)
	seedDB()
	r := gin.Default()
	setupRoutes(r)
	return r
}

func loginAs(t *testing.T, r *gin.Engine, username, password string) (token, refresh string) {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	resp := performRequest(r, http.MethodPost, "/login", bytes.NewBuffer(body), "", "application/json")
	if resp.Code != 200 {
		t.Fatalf("login failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var lr map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &lr)
	token, _ = lr["token"].(string)
	refresh, _ = lr["refresh_token"].(string)
	if token == "" || refresh == "" {
		t.Fatalf("incomplete login response: %+v", lr)
	}
	return token, refresh
}

func TestFullFlow(t *testing.T) {
	r := setupTestServer(t)
	username := fmt.Sprintf("user%d", time.Now().UnixNano())

	// 1. Register user
	regBody, _ := json.Marshal(map[string]string{"username": username, "email": username + "@example.com", "password": "pass123"})
	resp := performRequest(r, http.MethodPost, "/register", bytes.NewBuffer(regBody), "", "application/json")
	if resp.Code != 200 {
		t.Fatalf("register failed status=%d body=%s", resp.Code, resp.Body.String())
	}

	// 2. Login
	token, _ := loginAs(t, r, username, "pass123")

	// 3. Create expense transaction
	txBody, _ := json.Marshal(map[string]string{
		"description":    "Mercado Central",
		"amount":         "45.90",
		"type":           "expense",
		"category":       "alimentacao",
		"payment_method": "pix",
		"date":           "2024-03-12",
	})
	resp = performRequest(r, http.MethodPost, "/transactions", bytes.NewBuffer(txBody), token, "application/json")
	if resp.Code != 200 {
		t.Fatalf("create transaction failed status=%d body=%s", resp.Code, resp.Body.String())
	}

	// 4. Create income transaction same month
	incBody, _ := json.Marshal(map[string]string{
		"description": "Salario",
		"amount":      "3000.00",
		"type":        "income",
		"date":        "2024-03-01",
	})
	resp = performRequest(r, http.MethodPost, "/transactions", bytes.NewBuffer(incBody), token, "application/json")
	if resp.Code != 200 {
		t.Fatalf("create income failed status=%d body=%s", resp.Code, resp.Body.String())
	}

	// 5. List filtered by month
	resp = performRequest(r, http.MethodGet, "/transactions?month=2024-03", nil, token, "")
	if resp.Code != 200 {
		t.Fatalf("list transactions failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var txs []map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &txs)
	if len(txs) < 2 {
		t.Fatalf("expected at least 2 transactions for 2024-03, got %d", len(txs))
	}

	// 6. Summary should report the month balance
	resp = performRequest(r, http.MethodGet, "/transactions/summary", nil, token, "")
	if resp.Code != 200 {
		t.Fatalf("summary failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var sums []map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &sums)
	found := false
	for _, s := range sums {
		if s["month"] == "2024-03" {
			found = true
			if s["income"] != "3000.00" || s["expense"] != "45.90" || s["balance"] != "2954.10" {
				t.Fatalf("unexpected summary row: %+v", s)
			}
		}
	}
	if !found {
		t.Fatalf("no summary row for 2024-03: %+v", sums)
	}

	// 7. Budget upsert + report
	budBody, _ := json.Marshal(map[string]string{"category": "alimentacao", "month": "2024-03", "limit": "40.00"})
	resp = performRequest(r, http.MethodPost, "/budgets", bytes.NewBuffer(budBody), token, "application/json")
	if resp.Code != 200 {
		t.Fatalf("upsert budget failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	resp = performRequest(r, http.MethodGet, "/budgets/report?month=2024-03", nil, token, "")
	if resp.Code != 200 {
		t.Fatalf("budget report failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var reports []map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &reports)
	if len(reports) != 1 {
		t.Fatalf("expected 1 budget report row, got %+v", reports)
	}
	if reports[0]["spent"] != "45.90" || reports[0]["exceeded"] != true {
		t.Fatalf("expected exceeded budget with spent 45.90: %+v", reports[0])
	}
}

func TestBuildRecurrenceSeries(t *testing.T) {
	base := models.Transaction{
		UserID:      7,
		Description: "Academia",
		Amount:      decimal.RequireFromString("89.90"),
		Type:        "expense",
		Date:        time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
	}
	series := buildRecurrenceSeries(base, 3, "rid-1")
	if len(series) != 3 {
		t.Fatalf("expected 3 installments, got %d", len(series))
	}
	for i, tx := range series {
		if !tx.IsRecurring || tx.RecurrenceID != "rid-1" {
			t.Fatalf("installment %d missing recurrence marks: %+v", i, tx)
		}
		want := base.Date.AddDate(0, i, 0)
		if !tx.Date.Equal(want) {
			t.Fatalf("installment %d: expected date %v, got %v", i, want, tx.Date)
		}
		if tx.UserID != base.UserID || !tx.Amount.Equal(base.Amount) || tx.Description != base.Description {
			t.Fatalf("installment %d lost base fields: %+v", i, tx)
		}
	}
}

func TestBuildRecurrenceSeriesDefaultsToTwelve(t *testing.T) {
	base := models.Transaction{Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	if got := len(buildRecurrenceSeries(base, 0, "rid-2")); got != 12 {
		t.Fatalf("expected 12 installments by default, got %d", got)
	}
}

func TestRecurringFlow(t *testing.T) {
	r := setupTestServer(t)
	username := fmt.Sprintf("rec%d", time.Now().UnixNano())
	regBody, _ := json.Marshal(map[string]string{"username": username, "password": "pass123"})
	resp := performRequest(r, http.MethodPost, "/register", bytes.NewBuffer(regBody), "", "application/json")
	if resp.Code != 200 {
		t.Fatalf("register failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	token, _ := loginAs(t, r, username, "pass123")

	// create a 3-installment recurring expense
	txBody, _ := json.Marshal(map[string]any{
		"description":       "Assinatura streaming",
		"amount":            "39.90",
		"type":              "expense",
		"category":          "lazer",
		"date":              "2024-01-10",
		"is_recurring":      true,
		"recurrence_months": 3,
	})
	resp = performRequest(r, http.MethodPost, "/transactions", bytes.NewBuffer(txBody), token, "application/json")
	if resp.Code != 200 {
		t.Fatalf("create recurring failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var created map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &created)
	rid, _ := created["recurrence_id"].(string)
	if rid == "" || created["count"] != float64(3) {
		t.Fatalf("unexpected create response: %+v", created)
	}

	// installment 3 lands in March
	resp = performRequest(r, http.MethodGet, "/transactions?month=2024-03", nil, token, "")
	if resp.Code != 200 {
		t.Fatalf("list failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var txs []map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &txs)
	if len(txs) != 1 {
		t.Fatalf("expected the March installment, got %d rows", len(txs))
	}

	// mark the whole series completed
	resp = performRequest(r, http.MethodPut, "/transactions/recurrence/"+rid+"/complete", nil, token, "")
	if resp.Code != 200 {
		t.Fatalf("complete failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var done map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &done)
	if done["updated"] != float64(3) || done["completed"] != true {
		t.Fatalf("unexpected complete response: %+v", done)
	}

	// explicit uncomplete
	unBody, _ := json.Marshal(map[string]bool{"completed": false})
	resp = performRequest(r, http.MethodPut, "/transactions/recurrence/"+rid+"/complete", bytes.NewBuffer(unBody), token, "application/json")
	if resp.Code != 200 {
		t.Fatalf("uncomplete failed status=%d body=%s", resp.Code, resp.Body.String())
	}

	// unknown recurrence id
	resp = performRequest(r, http.MethodPut, "/transactions/recurrence/nope/complete", nil, token, "")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown recurrence, got %d", resp.Code)
	}
}

func TestRefreshRotation(t *testing.T) {
	r := setupTestServer(t)
	username := fmt.Sprintf("rot%d", time.Now().UnixNano())
	regBody, _ := json.Marshal(map[string]string{"username": username, "password": "pass123"})
	resp := performRequest(r, http.MethodPost, "/register", bytes.NewBuffer(regBody), "", "application/json")
	if resp.Code != 200 {
		t.Fatalf("register failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	_, refresh := loginAs(t, r, username, "pass123")

	// exchange the refresh token; old one must stop working
	body, _ := json.Marshal(map[string]string{"refresh_token": refresh})
	resp = performRequest(r, http.MethodPost, "/refresh", bytes.NewReader(body), "", "application/json")
	if resp.Code != 200 {
		t.Fatalf("refresh failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	resp = performRequest(r, http.MethodPost, "/refresh", bytes.NewReader(body), "", "application/json")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("rotated token must be rejected, got status=%d", resp.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	r := setupTestServer(t)
	resp := performRequest(r, http.MethodGet, "/transactions", nil, "", "")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.Code)
	}
}

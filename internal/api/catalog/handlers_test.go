package catalog

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/codr1/Playfield/internal/api"
	"github.com/codr1/Playfield/internal/api/apiutil"
	"github.com/codr1/Playfield/internal/catalog"
	"github.com/codr1/Playfield/internal/models"
	"github.com/codr1/Playfield/internal/pricing"
	"github.com/codr1/Playfield/internal/testutil"
)

var managerHeaders = map[string]string{"X-Actor-Role": "manager"}

func setupCatalogTest(t *testing.T) http.Handler {
	t.Helper()

	database := testutil.NewTestDB(t)
	service := catalog.NewService(database, testutil.NewFakeClock(time.Time{}))

	mux := http.NewServeMux()
	NewHandler(service).Register(mux)
	return api.ChainMiddleware(mux, api.WithActor, api.WithRequestID)
}

func serve(t *testing.T, handler http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	return recorder
}

func TestCatalogSetupFlow(t *testing.T) {
	handler := setupCatalogTest(t)

	created := serve(t, handler, http.MethodPost, "/api/v1/complexes", `{"name":"Riverside","timezone":"America/New_York"}`, managerHeaders)
	if created.Code != http.StatusCreated {
		t.Fatalf("create complex status: %d body: %s", created.Code, created.Body.String())
	}
	var venue catalog.Complex
	if err := json.Unmarshal(created.Body.Bytes(), &venue); err != nil {
		t.Fatalf("decode complex: %v", err)
	}

	subFieldBody := `{"name":"Court 1","sport_type":"padel","capacity":4}`
	created = serve(t, handler, http.MethodPost, "/api/v1/complexes/"+venue.ID+"/sub-fields", subFieldBody, managerHeaders)
	if created.Code != http.StatusCreated {
		t.Fatalf("create sub-field status: %d body: %s", created.Code, created.Body.String())
	}
	var subField catalog.SubField
	if err := json.Unmarshal(created.Body.Bytes(), &subField); err != nil {
		t.Fatalf("decode sub-field: %v", err)
	}

	rulesPath := "/api/v1/sub-fields/" + subField.ID + "/pricing-rules"
	ruleBody := `{"day_of_week":2,"start_time":"08:00","end_time":"12:00","base_price":1000}`
	created = serve(t, handler, http.MethodPost, rulesPath, ruleBody, managerHeaders)
	if created.Code != http.StatusCreated {
		t.Fatalf("create rule status: %d body: %s", created.Code, created.Body.String())
	}
	var rule pricing.Rule
	if err := json.Unmarshal(created.Body.Bytes(), &rule); err != nil {
		t.Fatalf("decode rule: %v", err)
	}

	overlapping := `{"day_of_week":2,"start_time":"11:00","end_time":"13:00","base_price":1500}`
	if recorder := serve(t, handler, http.MethodPost, rulesPath, overlapping, managerHeaders); recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for overlapping rule, got %d", recorder.Code)
	}

	listed := serve(t, handler, http.MethodGet, rulesPath, "", nil)
	if listed.Code != http.StatusOK {
		t.Fatalf("list status: %d", listed.Code)
	}
	var body struct {
		PricingRules []pricing.Rule `json:"pricing_rules"`
	}
	if err := json.Unmarshal(listed.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode rules: %v", err)
	}
	if len(body.PricingRules) != 1 || body.PricingRules[0].ID != rule.ID {
		t.Fatalf("unexpected rules %+v", body.PricingRules)
	}

	if recorder := serve(t, handler, http.MethodDelete, "/api/v1/pricing-rules/"+rule.ID, "", managerHeaders); recorder.Code != http.StatusNoContent {
		t.Fatalf("delete status: %d", recorder.Code)
	}
	if recorder := serve(t, handler, http.MethodDelete, "/api/v1/pricing-rules/"+rule.ID, "", managerHeaders); recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", recorder.Code)
	}
}

func TestCatalogRequiresManager(t *testing.T) {
	handler := setupCatalogTest(t)

	cases := []struct {
		name       string
		headers    map[string]string
		wantStatus int
	}{
		{name: "anonymous", wantStatus: http.StatusUnauthorized},
		{name: "player", headers: map[string]string{"X-Player-ID": "player-1"}, wantStatus: http.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			recorder := serve(t, handler, http.MethodPost, "/api/v1/complexes", `{"name":"Riverside"}`, tc.headers)
			if recorder.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d", tc.wantStatus, recorder.Code)
			}
		})
	}
}

func TestCatalogValidation(t *testing.T) {
	handler := setupCatalogTest(t)

	cases := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantKind   models.ErrorKind
	}{
		{
			name:       "unknown timezone",
			method:     http.MethodPost,
			path:       "/api/v1/complexes",
			body:       `{"name":"Riverside","timezone":"Mars/Olympus"}`,
			wantStatus: http.StatusBadRequest,
			wantKind:   models.KindInvalidInput,
		},
		{
			name:       "sub-field of missing complex",
			method:     http.MethodPost,
			path:       "/api/v1/complexes/missing/sub-fields",
			body:       `{"name":"Court 1","sport_type":"padel","capacity":4}`,
			wantStatus: http.StatusNotFound,
			wantKind:   models.KindNotFound,
		},
		{
			name:       "rule without day",
			method:     http.MethodPost,
			path:       "/api/v1/sub-fields/missing/pricing-rules",
			body:       `{"start_time":"08:00","end_time":"12:00","base_price":1000}`,
			wantStatus: http.StatusBadRequest,
			wantKind:   models.KindInvalidInput,
		},
		{
			name:       "rule with bad time",
			method:     http.MethodPost,
			path:       "/api/v1/sub-fields/missing/pricing-rules",
			body:       `{"day_of_week":1,"start_time":"8am","end_time":"12:00","base_price":1000}`,
			wantStatus: http.StatusBadRequest,
			wantKind:   models.KindInvalidInput,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			recorder := serve(t, handler, tc.method, tc.path, tc.body, managerHeaders)
			if recorder.Code != tc.wantStatus {
				t.Fatalf("status: %d body: %s", recorder.Code, recorder.Body.String())
			}
			var body apiutil.ErrorBody
			if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if body.Kind != tc.wantKind {
				t.Fatalf("expected kind %q, got %q", tc.wantKind, body.Kind)
			}
		})
	}
}

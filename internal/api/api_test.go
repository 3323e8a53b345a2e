package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/atmx/aco-indexer/internal/api"
	"github.com/atmx/aco-indexer/internal/model"
	"github.com/atmx/aco-indexer/internal/store"
)

func newTestEnv(t *testing.T) (*store.MemoryStore, http.Handler) {
	t.Helper()
	ms := store.NewMemoryStore()
	return ms, api.NewService(ms, nil).Router()
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestGetEntity(t *testing.T) {
	ms, h := newTestEnv(t)
	pool := &model.ACOPool{
		ID:          "0x00000000000000000000000000000000000000aa",
		Symbol:      "ACO POOL",
		TotalSupply: decimal.RequireFromString("12.5"),
	}
	if err := store.Save(context.Background(), ms, pool); err != nil {
		t.Fatal(err)
	}

	w := get(t, h, "/api/v1/entities/ACOPool/0x00000000000000000000000000000000000000AA")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body)
	}
	var got model.ACOPool
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Symbol != "ACO POOL" || !got.TotalSupply.Equal(pool.TotalSupply) {
		t.Errorf("pool = %+v", got)
	}
}

func TestListEntities(t *testing.T) {
	ms, h := newTestEnv(t)
	ctx := context.Background()
	for _, id := range []string{"0x03", "0x01", "0x02"} {
		if err := store.Save(ctx, ms, &model.ACOToken{ID: id}); err != nil {
			t.Fatal(err)
		}
	}

	w := get(t, h, "/api/v1/entities/ACOToken?limit=2")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body)
	}
	var body struct {
		Kind string   `json:"kind"`
		IDs  []string `json:"ids"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Kind != model.KindACOToken || strings.Join(body.IDs, ",") != "0x01,0x02" {
		t.Errorf("body = %+v", body)
	}

	if w := get(t, h, "/api/v1/entities/ACOToken?limit=zero"); w.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d", w.Code)
	}
}

func TestGetEntityErrors(t *testing.T) {
	_, h := newTestEnv(t)

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"unknown kind", "/api/v1/entities/Market/1", http.StatusBadRequest},
		{"missing", "/api/v1/entities/ACOToken/0x01", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(t, h, tt.path)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d", w.Code, tt.status)
			}
			var body map[string]string
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body["error"] == "" {
				t.Errorf("body = %s", w.Body)
			}
		})
	}
}

func TestHealthAndMetrics(t *testing.T) {
	_, h := newTestEnv(t)

	if w := get(t, h, "/health"); w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("health = %d %s", w.Code, w.Body)
	}
	get(t, h, "/api/v1/entities/ACOToken/0x01")
	w := get(t, h, "/metrics")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "aco_indexer_http_requests_total") {
		t.Errorf("metrics = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `path="/api/v1/entities/{kind}/{id}"`) {
		t.Error("request not labelled by route pattern")
	}
}

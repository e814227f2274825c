package httpapi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fairyhunter13/gng-store/internal/config"
	"github.com/fairyhunter13/gng-store/internal/feed"
	"github.com/fairyhunter13/gng-store/internal/kv"
	"github.com/fairyhunter13/gng-store/internal/model"
	"github.com/fairyhunter13/gng-store/internal/obs"
	"github.com/fairyhunter13/gng-store/internal/report"
	"github.com/fairyhunter13/gng-store/internal/store"
)

func setupApp(t *testing.T) (*App, http.Handler) {
	t.Helper()
	cfg := config.Load()
	obs.InitLogger("error")
	m := obs.NewMetrics()
	st := store.Open(context.Background(), kv.NewMemory(), store.WithMetrics(m))
	hub := feed.New(8)
	unsubscribe := st.Subscribe(hub.OnChange)
	t.Cleanup(func() {
		unsubscribe()
		hub.Close()
	})
	app := NewApp(cfg, st, hub, m)
	return app, NewRouter(app)
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func TestOpenAPIServed(t *testing.T) {
	_, mux := setupApp(t)
	rr := do(mux, http.MethodGet, "/openapi.yaml", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct == "" {
		t.Fatalf("expected content-type set")
	}
	if !bytes.Contains(rr.Body.Bytes(), []byte("openapi:")) {
		t.Fatalf("expected openapi content")
	}
}

func TestDocsServed(t *testing.T) {
	_, mux := setupApp(t)
	rr := do(mux, http.MethodGet, "/docs", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "swagger-ui") {
		t.Fatalf("expected swagger-ui in docs body")
	}
}

func TestHealthzOK(t *testing.T) {
	_, mux := setupApp(t)
	if rr := do(mux, http.MethodGet, "/healthz", ""); rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestRequestIDEchoed(t *testing.T) {
	_, mux := setupApp(t)
	r := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	r.Header.Set("X-Request-Id", "test-req-1")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)
	if got := w.Header().Get("X-Request-Id"); got != "test-req-1" {
		t.Fatalf("expected echoed request id, got %q", got)
	}
	if rr := do(mux, http.MethodGet, "/healthz", ""); rr.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected generated request id")
	}
}

func TestCORSHeaders(t *testing.T) {
	_, mux := setupApp(t)
	r := httptest.NewRequest(http.MethodGet, "/api/summary", nil)
	r.Header.Set("Origin", "http://dashboard.test")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected wildcard CORS origin, got %q", got)
	}
}

func TestGetStateDefault(t *testing.T) {
	_, mux := setupApp(t)
	rr := do(mux, http.MethodGet, "/api/state", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	snap := decode[model.Snapshot](t, rr)
	if len(snap.Products) != 2 || len(snap.Sales) != 0 || snap.Target != 5000 {
		t.Fatalf("unexpected default snapshot: %+v", snap)
	}
}

func TestPostSale_HappyPath(t *testing.T) {
	_, mux := setupApp(t)
	rr := do(mux, http.MethodPost, "/api/sales", `{"items":[{"productId":"laddoo","quantity":5}]}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	sale := decode[model.Sale](t, rr)
	if sale.Revenue != 75 || sale.Cost != 30 || !strings.HasPrefix(sale.ID, "sale_") {
		t.Fatalf("unexpected sale: %+v", sale)
	}

	sum := decode[report.Summary](t, do(mux, http.MethodGet, "/api/summary", ""))
	if sum.Income != 75 || sum.Profit != 45 || sum.TargetRemaining != 4925 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	p := decode[model.Product](t, do(mux, http.MethodGet, "/api/products/laddoo", ""))
	if p.Inventory != 12 {
		t.Fatalf("expected inventory 12, got %d", p.Inventory)
	}
}

func TestPostSale_Errors(t *testing.T) {
	cases := []struct {
		name string
		body string
		code int
		err  string
	}{
		{"insufficient stock", `{"items":[{"productId":"laddoo","quantity":100}]}`, http.StatusConflict, "insufficient_stock"},
		{"unknown product", `{"items":[{"productId":"missing-id","quantity":1}]}`, http.StatusNotFound, "product_not_found"},
		{"zero quantity", `{"items":[{"productId":"laddoo","quantity":0}]}`, http.StatusBadRequest, "validation_error"},
		{"no items", `{"items":[]}`, http.StatusBadRequest, "validation_error"},
		{"fractional quantity", `{"items":[{"productId":"laddoo","quantity":1.5}]}`, http.StatusBadRequest, "invalid_json"},
		{"unknown field", `{"items":[],"discount":5}`, http.StatusBadRequest, "invalid_json"},
		{"overflowing duplicate lines", `{"items":[{"productId":"laddoo","quantity":9223372036854775807},{"productId":"laddoo","quantity":2}]}`, http.StatusConflict, "insufficient_stock"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, mux := setupApp(t)
			rr := do(mux, http.MethodPost, "/api/sales", tc.body)
			if rr.Code != tc.code {
				t.Fatalf("expected %d, got %d: %s", tc.code, rr.Code, rr.Body.String())
			}
			if e := decode[jsonError](t, rr); e.Error != tc.err {
				t.Fatalf("expected %s, got %+v", tc.err, e)
			}
			snap := decode[model.Snapshot](t, do(mux, http.MethodGet, "/api/state", ""))
			if len(snap.Sales) != 0 || snap.Products[0].Inventory != 17 {
				t.Fatalf("failed sale changed state: %+v", snap)
			}
		})
	}
}

func TestPostSale_UnsupportedMediaType(t *testing.T) {
	_, mux := setupApp(t)
	req := httptest.NewRequest(http.MethodPost, "/api/sales", bytes.NewBufferString("{}"))
	req.Header.Set("Content-Type", "text/plain")
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d", rr.Code)
	}
}

func TestCreateProduct_DerivesID(t *testing.T) {
	_, mux := setupApp(t)
	rr := do(mux, http.MethodPost, "/api/products", `{"name":"Rose Jar Candle","inventory":3,"unitPrice":22,"unitCost":8,"stockCapacity":40}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	p := decode[model.Product](t, rr)
	if p.ID != "rose-jar-candle" || p.Capacity() != 40 {
		t.Fatalf("unexpected product: %+v", p)
	}
	products := decode[[]model.Product](t, do(mux, http.MethodGet, "/api/products", ""))
	if len(products) != 3 || products[2].ID != "rose-jar-candle" {
		t.Fatalf("expected appended product, got %+v", products)
	}
}

func TestCreateProduct_MissingName(t *testing.T) {
	_, mux := setupApp(t)
	rr := do(mux, http.MethodPost, "/api/products", `{"unitPrice":1}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestPutProduct(t *testing.T) {
	_, mux := setupApp(t)
	rr := do(mux, http.MethodPut, "/api/products/modak", `{"name":"Modak Grande","inventory":9,"unitPrice":25,"unitCost":9}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	products := decode[[]model.Product](t, do(mux, http.MethodGet, "/api/products", ""))
	if len(products) != 2 || products[1].Name != "Modak Grande" || products[1].Inventory != 9 {
		t.Fatalf("expected in-place replace, got %+v", products)
	}

	rr = do(mux, http.MethodPut, "/api/products/modak", `{"id":"laddoo","name":"X"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on id mismatch, got %d", rr.Code)
	}
}

func TestAddInventory(t *testing.T) {
	_, mux := setupApp(t)
	rr := do(mux, http.MethodPost, "/api/products/laddoo/inventory", `{"quantity":3}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if p := decode[model.Product](t, rr); p.Inventory != 20 {
		t.Fatalf("expected 20, got %d", p.Inventory)
	}
	rr = do(mux, http.MethodPost, "/api/products/laddoo/inventory", `{"quantity":-500}`)
	if p := decode[model.Product](t, rr); p.Inventory != 0 {
		t.Fatalf("expected floor at 0, got %d", p.Inventory)
	}
	rr = do(mux, http.MethodPost, "/api/products/ghost/inventory", `{"quantity":1}`)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestPutTarget(t *testing.T) {
	_, mux := setupApp(t)
	rr := do(mux, http.MethodPut, "/api/target", `{"target":-500}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if sum := decode[report.Summary](t, rr); sum.Target != 0 || sum.TargetRemaining != 0 {
		t.Fatalf("expected clamped target, got %+v", sum)
	}
	if rr := do(mux, http.MethodPut, "/api/target", `{}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without target, got %d", rr.Code)
	}
}

func TestListSalesLimit(t *testing.T) {
	_, mux := setupApp(t)
	for i := 0; i < 3; i++ {
		if rr := do(mux, http.MethodPost, "/api/sales", `{"items":[{"productId":"modak","quantity":1}]}`); rr.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d", rr.Code)
		}
	}
	if sales := decode[[]model.Sale](t, do(mux, http.MethodGet, "/api/sales", "")); len(sales) != 3 {
		t.Fatalf("expected 3 sales, got %d", len(sales))
	}
	if sales := decode[[]model.Sale](t, do(mux, http.MethodGet, "/api/sales?limit=2", "")); len(sales) != 2 {
		t.Fatalf("expected 2 sales, got %d", len(sales))
	}
	if rr := do(mux, http.MethodGet, "/api/sales?limit=-1", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestLookupProduct(t *testing.T) {
	_, mux := setupApp(t)
	rr := do(mux, http.MethodGet, "/api/products/lookup?name=MODAK%20candle", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if p := decode[model.Product](t, rr); p.ID != "modak" {
		t.Fatalf("unexpected product %+v", p)
	}
	if rr := do(mux, http.MethodGet, "/api/products/lookup?name=nothing", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if rr := do(mux, http.MethodGet, "/api/products/lookup", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestGetProduct_NotFound(t *testing.T) {
	_, mux := setupApp(t)
	if rr := do(mux, http.MethodGet, "/api/products/unknown", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	_, mux := setupApp(t)
	for _, tc := range []struct{ method, path string }{
		{http.MethodDelete, "/api/products/laddoo"},
		{http.MethodPatch, "/api/target"},
		{http.MethodPut, "/api/sales"},
		{http.MethodPost, "/healthz"},
	} {
		rr := do(mux, tc.method, tc.path, "")
		if rr.Code != http.StatusMethodNotAllowed {
			t.Fatalf("%s %s: expected 405, got %d", tc.method, tc.path, rr.Code)
		}
		if e := decode[jsonError](t, rr); e.Error != "method_not_allowed" {
			t.Fatalf("%s %s: unexpected error %+v", tc.method, tc.path, e)
		}
	}
	if rr := do(mux, http.MethodGet, "/api/nothing-here", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestReports(t *testing.T) {
	_, mux := setupApp(t)
	do(mux, http.MethodPost, "/api/sales", `{"items":[{"productId":"laddoo","quantity":5}]}`)

	days := decode[[]report.DayTotals](t, do(mux, http.MethodGet, "/api/reports/daily?tz=Asia/Kolkata", ""))
	if len(days) != 1 || days[0].Revenue != 75 {
		t.Fatalf("unexpected daily report: %+v", days)
	}
	if rr := do(mux, http.MethodGet, "/api/reports/daily?tz=Mars/Base", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad tz, got %d", rr.Code)
	}
	mat := decode[report.Materials](t, do(mux, http.MethodGet, "/api/reports/materials", ""))
	if mat.Wax != 21 || mat.Perfume != 9 {
		t.Fatalf("unexpected materials: %+v", mat)
	}
	levels := decode[[]report.StockLevel](t, do(mux, http.MethodGet, "/api/reports/stock", ""))
	if len(levels) != 2 || levels[0].Inventory != 12 || levels[0].Capacity != 20 {
		t.Fatalf("unexpected stock: %+v", levels)
	}
}

func TestMetricsHandler(t *testing.T) {
	_, mux := setupApp(t)
	for i := 0; i < 2; i++ {
		do(mux, http.MethodPost, "/api/sales", `{"items":[{"productId":"modak","quantity":1}]}`)
	}
	rr := do(mux, http.MethodGet, "/debug/metrics", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	m := decode[map[string]any](t, rr)
	if m["sales"] != 2.0 {
		t.Fatalf("expected 2 sales, got %v", m["sales"])
	}
	if m["events_published"] != 2.0 {
		t.Fatalf("expected 2 events, got %v", m["events_published"])
	}
	if _, ok := m["uptime_sec"]; !ok {
		t.Fatalf("missing uptime_sec")
	}
}

func TestPrometheusMetricsServed(t *testing.T) {
	_, mux := setupApp(t)
	do(mux, http.MethodPost, "/api/sales", `{"items":[{"productId":"modak","quantity":1}]}`)
	do(mux, http.MethodGet, "/api/products/modak", "")
	rr := do(mux, http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{
		`gng_store_mutations_total{op="record_sale",result="ok"} 1`,
		`gng_sales_recorded_total 1`,
		`route="/api/products/{id}"`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in metrics output", want)
		}
	}
}

func TestShutdownBehavior(t *testing.T) {
	app, mux := setupApp(t)
	app.StartShutdown()
	rr := do(mux, http.MethodPost, "/api/sales", `{"items":[{"productId":"laddoo","quantity":1}]}`)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	if rr := do(mux, http.MethodGet, "/api/events", ""); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 for feed, got %d", rr.Code)
	}
	if rr := do(mux, http.MethodGet, "/api/state", ""); rr.Code != http.StatusOK {
		t.Fatalf("reads should still work, got %d", rr.Code)
	}
}

func TestEventsStream(t *testing.T) {
	_, h := setupApp(t)
	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}
	lines := bufio.NewScanner(resp.Body)
	next := func() string {
		for lines.Scan() {
			if l := lines.Text(); strings.HasPrefix(l, "event: ") {
				return strings.TrimPrefix(l, "event: ")
			}
		}
		t.Fatalf("stream ended: %v", lines.Err())
		return ""
	}
	if ev := next(); ev != "hello" {
		t.Fatalf("expected hello, got %q", ev)
	}

	post, err := http.Post(srv.URL+"/api/sales", "application/json", strings.NewReader(`{"items":[{"productId":"laddoo","quantity":1}]}`))
	if err != nil {
		t.Fatalf("post sale: %v", err)
	}
	post.Body.Close()
	if ev := next(); ev != "record_sale" {
		t.Fatalf("expected record_sale, got %q", ev)
	}
}

package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
	_ "time/tzdata" // tz query lookups must not depend on host zoneinfo

	"github.com/gorilla/mux"

	"github.com/fairyhunter13/gng-store/internal/config"
	"github.com/fairyhunter13/gng-store/internal/feed"
	httpopenapi "github.com/fairyhunter13/gng-store/internal/http/openapi"
	"github.com/fairyhunter13/gng-store/internal/model"
	"github.com/fairyhunter13/gng-store/internal/obs"
	"github.com/fairyhunter13/gng-store/internal/report"
	"github.com/fairyhunter13/gng-store/internal/store"
)

type App struct {
	Cfg     config.Config
	Store   *store.Store
	Feed    *feed.Hub
	Metrics *obs.Metrics
	closing atomic.Bool
	started time.Time
}

type inventoryRequest struct {
	Quantity int `json:"quantity"`
}

type targetRequest struct {
	Target *float64 `json:"target"`
}

type saleRequest struct {
	Items []model.SaleItem `json:"items"`
}

// NewApp wires the handlers' dependencies. Nil hub and metrics are
// replaced with fresh ones.
func NewApp(cfg config.Config, st *store.Store, hub *feed.Hub, m *obs.Metrics) *App {
	if hub == nil {
		hub = feed.New(cfg.FeedBuffer)
	}
	if m == nil {
		m = obs.NewMetrics()
	}
	return &App{Cfg: cfg, Store: st, Feed: hub, Metrics: m, started: time.Now()}
}

// StartShutdown rejects further writes and disconnects feed clients.
func (a *App) StartShutdown() {
	a.closing.Store(true)
	a.Feed.Close()
}

// decodeBody enforces a JSON content type and strict decoding. It writes
// the error response itself and reports whether the handler may proceed.
func (a *App) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if a.closing.Load() {
		WriteJSONError(w, http.StatusServiceUnavailable, "shutting_down", "")
		return false
	}
	ct := r.Header.Get("Content-Type")
	if !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		WriteJSONError(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "expected application/json")
		return false
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return false
	}
	return true
}

func (a *App) getStateHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.Store.Snapshot())
}

func (a *App) getSummaryHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.Store.Summary())
}

func (a *App) listProductsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.Store.Products())
}

func (a *App) getProductHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := a.Store.ProductByID(mux.Vars(r)["id"])
	if !ok {
		WriteJSONError(w, http.StatusNotFound, "not_found", "")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *App) lookupProductHandler(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		WriteJSONError(w, http.StatusBadRequest, "validation_error", "name is required")
		return
	}
	p, ok := a.Store.ProductByName(name)
	if !ok {
		WriteJSONError(w, http.StatusNotFound, "not_found", "")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// createProductHandler upserts a product; a missing id is derived from the
// name the same way the dashboard's new-product form does.
func (a *App) createProductHandler(w http.ResponseWriter, r *http.Request) {
	var p model.Product
	if !a.decodeBody(w, r, &p) {
		return
	}
	if p.ID == "" {
		p.ID = model.Slug(p.Name)
	}
	a.upsert(w, r, p)
}

func (a *App) putProductHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var p model.Product
	if !a.decodeBody(w, r, &p) {
		return
	}
	if p.ID != "" && p.ID != id {
		WriteJSONError(w, http.StatusBadRequest, "validation_error", "body id does not match path")
		return
	}
	p.ID = id
	a.upsert(w, r, p)
}

func (a *App) upsert(w http.ResponseWriter, r *http.Request, p model.Product) {
	if err := a.Store.UpsertProduct(r.Context(), p); err != nil {
		writeStoreError(w, err)
		return
	}
	saved, _ := a.Store.ProductByID(p.ID)
	writeJSON(w, http.StatusOK, saved)
}

func (a *App) addInventoryHandler(w http.ResponseWriter, r *http.Request) {
	var req inventoryRequest
	if !a.decodeBody(w, r, &req) {
		return
	}
	p, err := a.Store.AddInventory(r.Context(), mux.Vars(r)["id"], req.Quantity)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *App) putTargetHandler(w http.ResponseWriter, r *http.Request) {
	var req targetRequest
	if !a.decodeBody(w, r, &req) {
		return
	}
	if req.Target == nil {
		WriteJSONError(w, http.StatusBadRequest, "validation_error", "target is required")
		return
	}
	if err := a.Store.SetTarget(r.Context(), *req.Target); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a.Store.Summary())
}

func (a *App) listSalesHandler(w http.ResponseWriter, r *http.Request) {
	limit := -1
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			WriteJSONError(w, http.StatusBadRequest, "validation_error", "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, report.RecentSales(a.Store.Snapshot(), limit))
}

func (a *App) postSaleHandler(w http.ResponseWriter, r *http.Request) {
	var req saleRequest
	if !a.decodeBody(w, r, &req) {
		return
	}
	sale, err := a.Store.RecordSale(r.Context(), req.Items)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sale)
	obs.L().Info("sale_accepted",
		"request_id", RequestIDFromContext(r.Context()),
		"sale_id", sale.ID,
		"revenue", sale.Revenue,
	)
}

func (a *App) dailyReportHandler(w http.ResponseWriter, r *http.Request) {
	loc := time.UTC
	if tz := r.URL.Query().Get("tz"); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			WriteJSONError(w, http.StatusBadRequest, "validation_error", "unknown tz")
			return
		}
		loc = l
	}
	writeJSON(w, http.StatusOK, report.DailyTrend(a.Store.Snapshot(), loc))
}

func (a *App) materialsReportHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, report.RawMaterials(a.Store.Snapshot()))
}

func (a *App) stockReportHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, report.StockLevels(a.Store.Snapshot()))
}

func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *App) metricsHandler(w http.ResponseWriter, r *http.Request) {
	snap := a.Store.Snapshot()
	sum := report.Summarize(snap)
	published, dropped, subscribers := a.Feed.Metrics()
	m := map[string]any{
		"products":         len(snap.Products),
		"sales":            len(snap.Sales),
		"income":           sum.Income,
		"profit":           sum.Profit,
		"target_remaining": sum.TargetRemaining,
		"events_published": published,
		"events_dropped":   dropped,
		"feed_subscribers": subscribers,
		"uptime_sec":       time.Since(a.started).Seconds(),
	}
	writeJSON(w, http.StatusOK, m)
}

func (a *App) openapiHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(httpopenapi.YAML)
}

func (a *App) docsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	html := `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>GNG Store API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui'
      });
    </script>
  </body>
</html>`
	_, _ = w.Write([]byte(html))
}

package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

// NewRouter registers HTTP routes and returns the handler with middleware.
func NewRouter(app *App) http.Handler {
	notFound := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		WriteJSONError(w, http.StatusNotFound, "not_found", "")
	})
	methodNotAllowed := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		WriteJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
	})

	r := mux.NewRouter()
	r.Use(app.withMetrics)
	r.NotFoundHandler = notFound
	r.MethodNotAllowedHandler = methodNotAllowed

	r.HandleFunc("/healthz", app.healthHandler).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(app.Metrics.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/debug/metrics", app.metricsHandler).Methods(http.MethodGet)
	r.HandleFunc("/openapi.yaml", app.openapiHandler).Methods(http.MethodGet)
	r.HandleFunc("/docs", app.docsHandler).Methods(http.MethodGet)

	// Subrouters do not inherit these handlers.
	api := r.PathPrefix("/api").Subrouter()
	api.NotFoundHandler = notFound
	api.MethodNotAllowedHandler = methodNotAllowed
	api.HandleFunc("/state", app.getStateHandler).Methods(http.MethodGet)
	api.HandleFunc("/summary", app.getSummaryHandler).Methods(http.MethodGet)
	api.HandleFunc("/products", app.listProductsHandler).Methods(http.MethodGet)
	api.HandleFunc("/products", app.createProductHandler).Methods(http.MethodPost)
	api.HandleFunc("/products/lookup", app.lookupProductHandler).Methods(http.MethodGet)
	api.HandleFunc("/products/{id}", app.getProductHandler).Methods(http.MethodGet)
	api.HandleFunc("/products/{id}", app.putProductHandler).Methods(http.MethodPut)
	api.HandleFunc("/products/{id}/inventory", app.addInventoryHandler).Methods(http.MethodPost)
	api.HandleFunc("/target", app.putTargetHandler).Methods(http.MethodPut)
	api.HandleFunc("/sales", app.listSalesHandler).Methods(http.MethodGet)
	api.HandleFunc("/sales", app.postSaleHandler).Methods(http.MethodPost)
	api.HandleFunc("/reports/daily", app.dailyReportHandler).Methods(http.MethodGet)
	api.HandleFunc("/reports/materials", app.materialsReportHandler).Methods(http.MethodGet)
	api.HandleFunc("/reports/stock", app.stockReportHandler).Methods(http.MethodGet)
	api.HandleFunc("/events", app.eventsHandler).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins: app.Cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
	})
	return WithRequestID(WithLogging(c.Handler(r)))
}

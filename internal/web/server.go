package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/yieldsplit/internal/config"
	"github.com/elys-network/yieldsplit/internal/engine"
	"github.com/elys-network/yieldsplit/internal/logger"
	"github.com/elys-network/yieldsplit/internal/planner"
	"github.com/elys-network/yieldsplit/internal/quoter"
	"github.com/elys-network/yieldsplit/internal/simulations"
	"github.com/elys-network/yieldsplit/internal/types"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var webLogger = logger.GetForComponent("web_server")

// streamHeader names the input stream a calculation belongs to. Requests of
// the same stream supersede each other.
const streamHeader = "X-Input-Stream"

// PoolSource resolves configured pools.
type PoolSource interface {
	Get(id string) (types.PoolConfig, error)
	List() []types.PoolConfig
}

// MetricsSource computes pool metrics.
type MetricsSource interface {
	Metrics(ctx context.Context, pool types.PoolConfig, market types.MarketState) (types.PoolMetrics, error)
}

// RatioSource resolves every quote ratio of a pool.
type RatioSource interface {
	All(ctx context.Context, pool types.PoolConfig) (map[planner.QuoteKind]quoter.Ratio, error)
}

// Calculations runs the caller-facing flows.
type Calculations interface {
	AddLiquidity(ctx context.Context, req engine.LiquidityRequest) (*engine.LiquidityQuote, error)
	Plan(ctx context.Context, flow planner.Flow, req engine.PlanRequest) (*engine.PlanResult, error)
}

// Deps are the services the HTTP API exposes.
type Deps struct {
	Pools       PoolSource
	Markets     engine.MarketReader
	Metrics     MetricsSource
	Ratios      RatioSource
	Calculator  Calculations
	Generations *engine.Generations
}

// WebServer serves the quote and planning API.
type WebServer struct {
	router  *mux.Router
	port    string
	deps    Deps
	started time.Time
	server  *http.Server
}

// NewWebServer creates a new web server instance
func NewWebServer(port string, deps Deps) *WebServer {
	if port == "" {
		port = "8080"
	}
	if deps.Generations == nil {
		deps.Generations = engine.NewGenerations()
	}

	ws := &WebServer{
		router:  mux.NewRouter(),
		port:    port,
		deps:    deps,
		started: time.Now(),
	}

	ws.setupRoutes()
	return ws
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")
	ws.router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", ws.handleHealth).Methods("GET")
	api.HandleFunc("/pools", ws.handleListPools).Methods("GET")
	api.HandleFunc("/pools/{id}/metrics", ws.handleGetMetrics).Methods("GET")
	api.HandleFunc("/pools/{id}/ratios", ws.handleGetRatios).Methods("GET")
	api.HandleFunc("/pools/{id}/liquidity/quote", ws.handleLiquidityQuote).Methods("POST")
	api.HandleFunc("/pools/{id}/plans/{flow}", ws.handleBuildPlan).Methods("POST")

	ws.router.Use(ws.corsMiddleware)
	ws.router.Use(ws.loggingMiddleware)
}

// Handler exposes the router, mainly for tests.
func (ws *WebServer) Handler() http.Handler { return ws.router }

// Start starts the web server and blocks until it stops.
func (ws *WebServer) Start() error {
	webLogger.Info().Str("port", ws.port).Msg("Starting web server")

	ws.server = &http.Server{
		Addr:         ":" + ws.port,
		Handler:      ws.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if err := ws.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops a started server.
func (ws *WebServer) Shutdown(ctx context.Context) error {
	if ws.server == nil {
		return nil
	}
	return ws.server.Shutdown(ctx)
}

// handleHealth returns server health status
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	pools := 0
	if ws.deps.Pools != nil {
		pools = len(ws.deps.Pools.List())
	}
	status, code := "OK", http.StatusOK
	if pools == 0 {
		status, code = "DEGRADED", http.StatusServiceUnavailable
	}

	ws.writeJSONResponse(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"system": map[string]any{
			"version":          runtime.Version(),
			"goroutines_count": runtime.NumGoroutine(),
			"alloc_bytes":      memStats.Alloc,
			"sys_bytes":        memStats.Sys,
			"gc_cycles":        memStats.NumGC,
			"uptime_seconds":   int64(time.Since(ws.started).Seconds()),
		},
		"component": map[string]any{
			"name":    "yieldsplit",
			"version": "1.0.0",
		},
		"pools": pools,
	})
}

func (ws *WebServer) handleListPools(w http.ResponseWriter, r *http.Request) {
	pools := ws.deps.Pools.List()
	ws.writeJSONResponse(w, http.StatusOK, map[string]any{
		"pools": pools,
		"count": len(pools),
	})
}

func (ws *WebServer) pool(w http.ResponseWriter, r *http.Request) (types.PoolConfig, bool) {
	pool, err := ws.deps.Pools.Get(mux.Vars(r)["id"])
	if err != nil {
		ws.writeError(w, err)
		return types.PoolConfig{}, false
	}
	return pool, true
}

func (ws *WebServer) handleGetMetrics(w http.ResponseWriter, r *http.Request) {
	pool, ok := ws.pool(w, r)
	if !ok {
		return
	}
	market, err := ws.deps.Markets.MarketState(r.Context(), pool)
	if err != nil {
		webLogger.Error().Err(err).Str("pool", pool.ID).Msg("Failed to fetch market state")
		ws.writeError(w, err)
		return
	}
	metrics, err := ws.deps.Metrics.Metrics(r.Context(), pool, market)
	if err != nil {
		webLogger.Error().Err(err).Str("pool", pool.ID).Msg("Failed to compute pool metrics")
		ws.writeError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, metrics)
}

func (ws *WebServer) handleGetRatios(w http.ResponseWriter, r *http.Request) {
	pool, ok := ws.pool(w, r)
	if !ok {
		return
	}
	ratios, err := ws.deps.Ratios.All(r.Context(), pool)
	if err != nil {
		ws.writeError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, map[string]any{
		"pool":   pool.ID,
		"ratios": ratios,
	})
}

type liquidityBody struct {
	Sender          string      `json:"sender"`
	Amount          sdkmath.Int `json:"amount"`
	MinLpOut        sdkmath.Int `json:"min_lp_out"`
	SlippageBps     int64       `json:"slippage_bps"`
	DisableFallback bool        `json:"disable_fallback"`
}

func (ws *WebServer) handleLiquidityQuote(w http.ResponseWriter, r *http.Request) {
	pool, ok := ws.pool(w, r)
	if !ok {
		return
	}
	var body liquidityBody
	if !ws.decodeBody(w, r, &body) {
		return
	}

	req := engine.LiquidityRequest{
		Pool:            pool,
		Sender:          body.Sender,
		Amount:          body.Amount,
		MinLpOut:        body.MinLpOut,
		SlippageBps:     body.SlippageBps,
		DisableFallback: body.DisableFallback,
	}
	quote, err := latest(ws, r, func() (*engine.LiquidityQuote, error) {
		return ws.deps.Calculator.AddLiquidity(r.Context(), req)
	})
	if err != nil {
		ws.writeError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, quote)
}

type planBody struct {
	Sender   string      `json:"sender"`
	Amount   sdkmath.Int `json:"amount"`
	MinOut   sdkmath.Int `json:"min_out"`
	Simulate bool        `json:"simulate"`
}

func (ws *WebServer) handleBuildPlan(w http.ResponseWriter, r *http.Request) {
	pool, ok := ws.pool(w, r)
	if !ok {
		return
	}
	var body planBody
	if !ws.decodeBody(w, r, &body) {
		return
	}

	flow := planner.Flow(mux.Vars(r)["flow"])
	req := engine.PlanRequest{
		Pool:     pool,
		Sender:   body.Sender,
		Amount:   body.Amount,
		MinOut:   body.MinOut,
		Simulate: body.Simulate,
	}
	result, err := latest(ws, r, func() (*engine.PlanResult, error) {
		return ws.deps.Calculator.Plan(r.Context(), flow, req)
	})
	if err != nil {
		ws.writeError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, result)
}

// latest runs fn under the request's input stream, when it names one.
func latest[T any](ws *WebServer, r *http.Request, fn func() (T, error)) (T, error) {
	stream := r.Header.Get(streamHeader)
	if stream == "" {
		return fn()
	}
	return engine.Latest(ws.deps.Generations, stream, fn)
}

func (ws *WebServer) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error(), nil)
		return false
	}
	return true
}

// statusFor maps engine errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, config.ErrUnknownPool):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrStaleRequest):
		return http.StatusConflict
	case errors.Is(err, planner.ErrInvalidAmount),
		errors.Is(err, planner.ErrMissingSender),
		errors.Is(err, planner.ErrUnknownFlow),
		errors.Is(err, planner.ErrNothingToClaim),
		errors.Is(err, types.ErrBelowMinimumDeposit),
		errors.Is(err, types.ErrMarketCapExceeded),
		errors.Is(err, types.ErrInsufficientBalance),
		errors.Is(err, types.ErrInsufficientPosition):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrContractError),
		errors.Is(err, types.ErrConfiguration),
		errors.Is(err, types.ErrUnsupportedProtocol):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, simulations.ErrSimulationFailed),
		errors.Is(err, types.ErrMissingOutput):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (ws *WebServer) writeError(w http.ResponseWriter, err error) {
	details := map[string]any{}

	var below *types.BelowMinimumDepositError
	if errors.As(err, &below) {
		details["minimum"] = below.Minimum
		details["top_up"] = below.TopUp()
	}
	var capErr *types.MarketCapExceededError
	if errors.As(err, &capErr) {
		details["cap"] = capErr.Cap
		details["available"] = capErr.Available()
	}
	if debug := simulations.DebugOf(err); debug != nil {
		details["request_id"] = debug.RequestID
		details["debug"] = debug
	}
	var cfgErr *types.ConfigurationError
	if errors.As(err, &cfgErr) {
		details["pool"] = cfgErr.Pool
		details["field"] = cfgErr.Field
	}

	ws.writeErrorResponse(w, statusFor(err), err.Error(), details)
}

// writeJSONResponse writes a JSON response
func (ws *WebServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (ws *WebServer) writeErrorResponse(w http.ResponseWriter, statusCode int, message string, details map[string]any) {
	response := map[string]any{
		"error":     true,
		"message":   message,
		"timestamp": time.Now().UTC(),
	}
	for k, v := range details {
		response[k] = v
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// corsMiddleware adds CORS headers
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+streamHeader)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)

		webLogger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", wrapper.statusCode).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

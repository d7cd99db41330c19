package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/rawblock/solsecurity/internal/alerts"
	"github.com/rawblock/solsecurity/internal/analyzer"
	"github.com/rawblock/solsecurity/internal/config"
	"github.com/rawblock/solsecurity/internal/metrics"
	"github.com/rawblock/solsecurity/internal/shadow"
	"github.com/rawblock/solsecurity/pkg/models"
)

// WalletAnalyzer is the analysis surface served over HTTP
type WalletAnalyzer interface {
	AnalyzeWalletPoisoning(ctx context.Context, wallet string) (*models.AnalysisResult, error)
	AnalyzeWalletDusting(ctx context.Context, wallet string) (*models.AnalysisResult, error)
	ScoreWalletTransactions(ctx context.Context, wallet string) (*models.RiskReport, error)
	ShadowCompare(ctx context.Context, wallet string) (*shadow.Report, error)
	Strategy() string
}

// RouterOptions carries the optional collaborators of the router
type RouterOptions struct {
	Alerts   *alerts.Manager // defaults to a stream-only manager
	Metrics  *metrics.Recorder
	Gatherer prometheus.Gatherer // serves /metrics when set
	Limiter  *RateLimiter
	Logger   zerolog.Logger
}

type APIHandler struct {
	svc    WalletAnalyzer
	wsHub  *Hub
	alerts *alerts.Manager
	logger zerolog.Logger
}

func SetupRouter(svc WalletAnalyzer, wsHub *Hub, cfg config.APIConfig, opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(opts.Metrics.Middleware())
	r.Use(corsMiddleware(cfg.AllowedOrigins))

	am := opts.Alerts
	if am == nil {
		am = alerts.NewManager(func(a alerts.Alert) { wsHub.BroadcastJSON(a) }, 0, opts.Logger)
	}

	handler := &APIHandler{
		svc:    svc,
		wsHub:  wsHub,
		alerts: am,
		logger: opts.Logger.With().Str("component", "api").Logger(),
	}

	api := r.Group("/api/v1")
	{
		api.GET("/health", handler.handleHealth)
		api.GET("/stream", wsHub.Subscribe)

		protected := api.Group("")
		protected.Use(AuthMiddleware(cfg.AuthToken, opts.Logger))
		if opts.Limiter != nil {
			protected.Use(opts.Limiter.Middleware())
		}
		protected.GET("/poisoning/:wallet", handler.handlePoisoning)
		protected.GET("/dusting/:wallet", handler.handleDusting)
		protected.GET("/risk/:wallet", handler.handleRisk)
		protected.GET("/shadow/:wallet", handler.handleShadow)
		protected.GET("/alerts", handler.handleAlerts)
	}

	if opts.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	return r
}

// corsMiddleware allows every origin when the list is empty or "*"
func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowAll := len(allowedOrigins) == 0
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowAll {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else if _, ok := allowed[origin]; ok {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Vary", "Origin")
		}
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Accept, Origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (h *APIHandler) handlePoisoning(c *gin.Context) {
	result, err := h.svc.AnalyzeWalletPoisoning(c.Request.Context(), c.Param("wallet"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.alert(result)
	c.JSON(http.StatusOK, result)
}

func (h *APIHandler) handleDusting(c *gin.Context) {
	result, err := h.svc.AnalyzeWalletDusting(c.Request.Context(), c.Param("wallet"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.alert(result)
	c.JSON(http.StatusOK, result)
}

func (h *APIHandler) handleRisk(c *gin.Context) {
	report, err := h.svc.ScoreWalletTransactions(c.Request.Context(), c.Param("wallet"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// handleShadow compares both similarity strategies on the wallet
func (h *APIHandler) handleShadow(c *gin.Context) {
	report, err := h.svc.ShadowCompare(c.Request.Context(), c.Param("wallet"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// handleHealth returns engine status and capabilities for service discovery
func (h *APIHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "operational",
		"engine":   "SolSecurity Poisoning Engine",
		"strategy": h.svc.Strategy(),
		"capabilities": gin.H{
			"poisoning":    true,
			"dusting":      true,
			"risk_scoring": true,
			"shadow_mode":  true,
		},
		"streamClients": h.wsHub.ClientCount(),
	})
}

// handleAlerts returns recent alerts, newest first
func (h *APIHandler) handleAlerts(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}
	if severity := c.Query("severity"); severity != "" {
		list := h.alerts.RecentBySeverity(severity, limit)
		c.JSON(http.StatusOK, gin.H{"data": list, "count": len(list)})
		return
	}
	list := h.alerts.Recent(limit)
	c.JSON(http.StatusOK, gin.H{"data": list, "count": len(list)})
}

func (h *APIHandler) alert(result *models.AnalysisResult) {
	h.alerts.EmitAnalysis("api", result)
}

// writeError maps the analysis error taxonomy onto HTTP statuses
func (h *APIHandler) writeError(c *gin.Context, err error) {
	var (
		cfgErr   *models.ConfigurationError
		fetchErr *models.FetchError
	)

	status := http.StatusInternalServerError
	body := gin.H{"error": err.Error()}

	switch {
	case errors.Is(err, analyzer.ErrInvalidAddress):
		status = http.StatusBadRequest
	case errors.As(err, &cfgErr):
		status = http.StatusServiceUnavailable
		body["hint"] = "Set " + cfgErr.Key + " in the server environment"
	case errors.As(err, &fetchErr):
		status = http.StatusBadGateway
		body["source"] = fetchErr.Source
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error().Err(err).Str("path", c.FullPath()).Int("status", status).Msg("Analysis request failed")
	}
	c.JSON(status, body)
}

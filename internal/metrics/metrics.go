package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "solsecurity"

// Recorder collects analysis and API metrics. A nil *Recorder is valid and records nothing.
type Recorder struct {
	analyses        *prometheus.CounterVec
	analysisSeconds *prometheus.HistogramVec
	fetchErrors     *prometheus.CounterVec
	degradedTxs     prometheus.Counter
	dusterOrigin    *prometheus.CounterVec
	shadowDiverged  prometheus.Counter
	requestCounter  *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New registers all collectors on reg
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		analyses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "analyses_total",
			Help:      "Completed wallet analyses by kind and outcome",
		}, []string{"kind", "outcome"}),
		analysisSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "analysis_duration_seconds",
			Help:      "Wall time of a wallet analysis including upstream fetches",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"kind"}),
		fetchErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "fetch_errors_total",
			Help:      "Failed upstream fetches by source",
		}, []string{"source"}),
		degradedTxs: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "degraded_transactions_total",
			Help:      "Transactions scored Clean because a scoring input was unavailable",
		}),
		dusterOrigin: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dusters",
			Name:      "lists_served_total",
			Help:      "Known-duster lists served by origin",
		}, []string{"origin"}),
		shadowDiverged: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "shadow",
			Name:      "divergences_total",
			Help:      "Shadow comparisons where the similarity strategies disagreed",
		}),
		requestCounter: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of API requests",
		}, []string{"method", "path", "status"}),
		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "API request duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		}, []string{"method", "path"}),
	}
}

func (r *Recorder) ObserveAnalysis(kind, outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.analyses.WithLabelValues(kind, outcome).Inc()
	r.analysisSeconds.WithLabelValues(kind).Observe(d.Seconds())
}

func (r *Recorder) FetchError(source string) {
	if r == nil {
		return
	}
	r.fetchErrors.WithLabelValues(source).Inc()
}

func (r *Recorder) DegradedTransactions(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.degradedTxs.Add(float64(n))
}

func (r *Recorder) DusterList(origin string) {
	if r == nil {
		return
	}
	r.dusterOrigin.WithLabelValues(origin).Inc()
}

func (r *Recorder) ShadowDivergence() {
	if r == nil {
		return
	}
	r.shadowDiverged.Inc()
}

// Middleware records request count and latency by route template
func (r *Recorder) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if r == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method
		r.requestCounter.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		r.requestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

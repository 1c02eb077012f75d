package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Resultados de guestbook_messages_submitted_total.
const (
	OutcomeCreated     = "created"
	OutcomeInvalid     = "invalid"
	OutcomeUnavailable = "unavailable"
	OutcomeError       = "error"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "HTTP requests by path, method and status."},
		[]string{"path", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request latency in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"path", "method"},
	)
	MessagesSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "guestbook_messages_submitted_total", Help: "Message submissions by outcome."},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequests, HTTPLatency, MessagesSubmitted)
}

// Handler registra conteo y latencia de cada request.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		HTTPLatency.WithLabelValues(path, c.Request.Method).Observe(time.Since(start).Seconds())
		HTTPRequests.WithLabelValues(path, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// Exposer sirve el formato de exposicion de Prometheus.
func Exposer() gin.HandlerFunc { return gin.WrapH(promhttp.Handler()) }

// PoolStats es la vista del pool que exportan las metricas.
type PoolStats struct {
	MaxConns  int
	OpenConns int
	InUse     int
	Idle      int
	Ready     bool
}

// PoolSource entrega el estado del pool en cada scrape.
type PoolSource func() PoolStats

// RegisterPool publica gauges del pool. Registrar dos veces no es error.
func RegisterPool(reg prometheus.Registerer, source PoolSource) error {
	gauges := []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: "guestbook_db_pool_max_conns", Help: "Configured pool size."},
			func() float64 { return float64(source().MaxConns) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: "guestbook_db_pool_open_conns", Help: "Connections currently open, idle or in use."},
			func() float64 { return float64(source().OpenConns) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: "guestbook_db_pool_in_use_conns", Help: "Connections checked out of the pool."},
			func() float64 { return float64(source().InUse) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: "guestbook_db_pool_idle_conns", Help: "Idle pooled connections."},
			func() float64 { return float64(source().Idle) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: "guestbook_db_ready", Help: "1 when the database pool is ready."},
			func() float64 {
				if source().Ready {
					return 1
				}
				return 0
			}),
	}
	for _, g := range gauges {
		if err := reg.Register(g); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return err
		}
	}
	return nil
}

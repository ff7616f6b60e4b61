// Package metrics expõe métricas Prometheus do store, do HTTP e dos envios.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fernandoldf/representa/internal/repo"
)

// Collector registra as métricas da aplicação.
type Collector struct {
	storeOps      *prometheus.CounterVec
	storeLatency  *prometheus.HistogramVec
	httpRequests  *prometheus.CounterVec
	httpLatency   prometheus.Histogram
	emailsSent    *prometheus.CounterVec
	alunosImports prometheus.Counter
}

// NewCollector cria o coletor e registra as métricas em reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		storeOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "representa_store_operations_total",
			Help: "Operações do store por tipo e resultado",
		}, []string{"op", "result"}),
		storeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "representa_store_operation_seconds",
			Help:    "Duração das operações do store (inclui espera pelo lock)",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "representa_http_requests_total",
			Help: "Requisições HTTP por status",
		}, []string{"status_code"}),
		httpLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "representa_http_request_seconds",
			Help:    "Latência das requisições HTTP",
			Buckets: prometheus.DefBuckets,
		}),
		emailsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "representa_announcements_total",
			Help: "Envios de comunicados por resultado",
		}, []string{"result"}),
		alunosImports: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "representa_alunos_imported_total",
			Help: "Alunos importados da planilha",
		}),
	}

	reg.MustRegister(
		c.storeOps,
		c.storeLatency,
		c.httpRequests,
		c.httpLatency,
		c.emailsSent,
		c.alunosImports,
	)

	return c
}

// ObserveStoreOperation implementa repo.Observer.
func (c *Collector) ObserveStoreOperation(op string, duration time.Duration, err error) {
	c.storeOps.WithLabelValues(op, storeResult(err)).Inc()
	c.storeLatency.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordHTTPRequest registra status e latência de uma requisição.
func (c *Collector) RecordHTTPRequest(statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(strconv.Itoa(statusCode)).Inc()
	c.httpLatency.Observe(duration.Seconds())
}

// RecordAnnouncement registra o resultado de um envio de comunicado.
func (c *Collector) RecordAnnouncement(ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	c.emailsSent.WithLabelValues(result).Inc()
}

// RecordAlunosImported soma alunos importados pela sincronização.
func (c *Collector) RecordAlunosImported(count int) {
	c.alunosImports.Add(float64(count))
}

func storeResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, repo.ErrNotFound):
		return "not_found"
	case errors.Is(err, repo.ErrDuplicate):
		return "duplicate"
	case errors.Is(err, repo.ErrLockTimeout):
		return "lock_timeout"
	case errors.Is(err, repo.ErrStorage):
		return "storage_error"
	default:
		return "error"
	}
}

// Handler devolve o handler de scrape do Prometheus.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/appcatalog/backend/internal/services"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes the catalog Prometheus registry.
func Metrics() gin.HandlerFunc {
	h := promhttp.HandlerFor(services.MetricsRegistry, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}

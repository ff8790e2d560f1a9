package httpapi

import (
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// NewRouter собирает маршруты. При gatherer == nil используется prometheus.DefaultGatherer.
func NewRouter(h *Handlers, gatherer prometheus.Gatherer) *gin.Engine {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	// CORS
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.GET("/health", h.HealthCheck)
	router.POST("/detect", h.Detect)
	router.GET("/images/:ref", h.GetImage)
	router.GET("/ws", h.Listen)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	// JSON, HTML и PDF отдаются сжатыми
	compressed := router.Group("/", gzip.Gzip(gzip.DefaultCompression))
	{
		compressed.GET("/reports", h.ListReports)
		compressed.GET("/reports/:id", h.GetReport)
		compressed.GET("/reports/:id/export", h.ExportReport)
		compressed.GET("/map", h.Map)
		compressed.GET("/map/geojson", h.MapGeoJSON)

		// старые адреса
		compressed.GET("/potholes", h.ListReports)
		compressed.GET("/export/:id", h.ExportReport)
	}
	router.GET("/image/:ref", h.GetImage)

	return router
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		log.WithFields(log.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(started),
		}).Debug("HTTP request")
	}
}

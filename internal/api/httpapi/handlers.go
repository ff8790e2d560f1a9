// Package httpapi HTTP-интерфейс сервиса на gin.
package httpapi

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	app "pothole-watch/internal/application"
	"pothole-watch/internal/domain/entity"
)

// DefaultMaxUploadBytes предел размера multipart-запроса на детекцию
const DefaultMaxUploadBytes int64 = 16 << 20

const msgNoPothole = "no pothole found"

// Observers канал реального времени: подключение по WebSocket и число наблюдателей
type Observers interface {
	ConnectedClients() int
	ServeWS(w http.ResponseWriter, r *http.Request)
}

// Handlers обработчики HTTP API
type Handlers struct {
	detection *app.DetectionService
	reports   *app.ReportService
	observers Observers
	maxUpload int64
}

// NewHandlers создаёт обработчики. maxUpload <= 0 означает DefaultMaxUploadBytes.
func NewHandlers(detection *app.DetectionService, reports *app.ReportService, observers Observers, maxUpload int64) *Handlers {
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadBytes
	}
	return &Handlers{
		detection: detection,
		reports:   reports,
		observers: observers,
		maxUpload: maxUpload,
	}
}

// DetectResponse ответ на успешную детекцию
type DetectResponse struct {
	Success    bool            `json:"success"`
	ID         int64           `json:"id"`
	Severity   entity.Severity `json:"severity"`
	AreaM2     float64         `json:"area_m2"`
	DepthM     float64         `json:"depth_m"`
	Confidence float64         `json:"confidence"`
	ImageURL   string          `json:"image_url"`
}

// ErrorResponse тело ответа с ошибкой
type ErrorResponse struct {
	Success bool             `json:"success"`
	Error   string           `json:"error"`
	Kind    entity.ErrorKind `json:"kind"`
}

// HealthCheck GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"model_ready": h.detection.Ready(),
		"clients":     h.observers.ConnectedClients(),
	})
}

// Detect POST /detect
func (h *Handlers) Detect(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)

	file, err := c.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
				Error: fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit),
				Kind:  entity.KindInvalidInput,
			})
			return
		}
		h.fail(c, fmt.Errorf("%w: image file is required", entity.ErrInvalidInput))
		return
	}

	data, err := readUpload(file)
	if err != nil {
		h.fail(c, err)
		return
	}

	loc, err := parseLocation(c.PostForm("latitude"), c.PostForm("longitude"))
	if err != nil {
		h.fail(c, err)
		return
	}

	res, err := h.detection.Detect(c.Request.Context(), app.DetectionRequest{Image: data, Location: loc})
	if err != nil {
		h.fail(c, err)
		return
	}

	if !res.Detected {
		c.JSON(http.StatusOK, gin.H{
			"success":  false,
			"detected": false,
			"message":  msgNoPothole,
		})
		return
	}

	r := res.Report
	c.JSON(http.StatusOK, DetectResponse{
		Success:    true,
		ID:         r.ID,
		Severity:   r.Severity,
		AreaM2:     r.AreaM2,
		DepthM:     r.DepthM,
		Confidence: r.Confidence,
		ImageURL:   res.ImageURL,
	})
}

// ListReports GET /reports
func (h *Handlers) ListReports(c *gin.Context) {
	reports, err := h.reports.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, reports)
}

// GetReport GET /reports/:id
func (h *Handlers) GetReport(c *gin.Context) {
	id, err := reportID(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	report, err := h.reports.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetImage GET /images/:ref
func (h *Handlers) GetImage(c *gin.Context) {
	data, err := h.reports.Image(c.Request.Context(), c.Param("ref"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "image/jpeg", data)
}

// ExportReport GET /reports/:id/export
func (h *Handlers) ExportReport(c *gin.Context) {
	id, err := reportID(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	doc, err := h.reports.Export(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="pothole_report_%d.pdf"`, id))
	c.Data(http.StatusOK, "application/pdf", doc)
}

// Map GET /map
func (h *Handlers) Map(c *gin.Context) {
	page, err := h.reports.MapHTML(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

// MapGeoJSON GET /map/geojson
func (h *Handlers) MapGeoJSON(c *gin.Context) {
	doc, err := h.reports.GeoJSON(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "application/geo+json", doc)
}

// Listen GET /ws
func (h *Handlers) Listen(c *gin.Context) {
	h.observers.ServeWS(c.Writer, c.Request)
}

func (h *Handlers) fail(c *gin.Context, err error) {
	kind := entity.KindOf(err)
	status := StatusFor(kind)
	if status >= http.StatusInternalServerError {
		log.WithError(err).WithField("path", c.FullPath()).Error("Request failed")
	}
	c.JSON(status, ErrorResponse{Error: err.Error(), Kind: kind})
}

// StatusFor HTTP-код для типа ошибки
func StatusFor(kind entity.ErrorKind) int {
	switch kind {
	case entity.KindInvalidInput:
		return http.StatusBadRequest
	case entity.KindNotFound:
		return http.StatusNotFound
	case entity.KindModelNotReady:
		return http.StatusServiceUnavailable
	case entity.KindAdapterFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func readUpload(file *multipart.FileHeader) ([]byte, error) {
	f, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open upload: %w", entity.ErrInvalidInput, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("%w: read upload: %w", entity.ErrInvalidInput, err)
	}
	return data, nil
}

// parseLocation пустые оба поля означают отсутствие координат,
// иначе недостающее поле равно 0
func parseLocation(lat, lon string) (*entity.Location, error) {
	lat, lon = strings.TrimSpace(lat), strings.TrimSpace(lon)
	if lat == "" && lon == "" {
		return nil, nil
	}

	latitude, err := parseCoordinate("latitude", lat)
	if err != nil {
		return nil, err
	}
	longitude, err := parseCoordinate("longitude", lon)
	if err != nil {
		return nil, err
	}

	loc := entity.Location{Latitude: latitude, Longitude: longitude}
	if err := loc.Validate(); err != nil {
		return nil, err
	}
	return &loc, nil
}

func parseCoordinate(name, value string) (float64, error) {
	if value == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", entity.ErrInvalidInput, name, err)
	}
	return f, nil
}

func reportID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: report id %q", entity.ErrInvalidInput, c.Param("id"))
	}
	return id, nil
}

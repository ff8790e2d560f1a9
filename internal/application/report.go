package app

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"pothole-watch/internal/domain/entity"
	"pothole-watch/internal/domain/port"
)

// ReportService чтение отчётов: список, экспорт, карта
type ReportService struct {
	reports  port.ReportRepository
	images   port.ImageStore
	exporter port.ReportExporter
	maps     port.MapRenderer
}

func NewReportService(reports port.ReportRepository, images port.ImageStore, exporter port.ReportExporter, maps port.MapRenderer) *ReportService {
	return &ReportService{
		reports:  reports,
		images:   images,
		exporter: exporter,
		maps:     maps,
	}
}

// List все отчёты, новые первыми
func (s *ReportService) List(ctx context.Context) ([]entity.Report, error) {
	return s.reports.ListAll(ctx)
}

func (s *ReportService) Get(ctx context.Context, id int64) (*entity.Report, error) {
	return s.reports.Get(ctx, id)
}

// Image байты оверлея по ссылке из отчёта
func (s *ReportService) Image(ctx context.Context, ref string) ([]byte, error) {
	return s.images.Open(ctx, ref)
}

// Export PDF по отчёту. Пропавший оверлей не ошибка, документ помечает его отсутствие.
func (s *ReportService) Export(ctx context.Context, id int64) ([]byte, error) {
	report, err := s.reports.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	img, err := s.images.Open(ctx, report.ImagePath)
	if err != nil {
		entry := log.WithField("report_id", report.ID).WithError(err)
		if errors.Is(err, entity.ErrNotFound) {
			entry.Warn("Overlay image is missing, exporting without it")
		} else {
			entry.Error("Failed to read overlay image, exporting without it")
		}
		img = nil
	}

	doc, err := s.exporter.Export(report, img)
	if err != nil {
		return nil, fmt.Errorf("export report %d: %w", id, err)
	}
	return doc, nil
}

// MapHTML страница карты со всеми отчётами
func (s *ReportService) MapHTML(ctx context.Context) ([]byte, error) {
	reports, err := s.reports.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return s.maps.RenderMap(reports)
}

// GeoJSON отчёты как FeatureCollection
func (s *ReportService) GeoJSON(ctx context.Context) ([]byte, error) {
	reports, err := s.reports.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return s.maps.GeoJSON(reports)
}

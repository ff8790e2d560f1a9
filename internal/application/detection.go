package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"pothole-watch/internal/domain/calibration"
	"pothole-watch/internal/domain/entity"
	"pothole-watch/internal/domain/port"
	"pothole-watch/internal/infrastructure/imageio"
	"pothole-watch/internal/infrastructure/segmentation"
	"pothole-watch/internal/metrics"
)

// Stage этап обработки запроса на детекцию
type Stage string

const (
	StageReceived    Stage = "received"
	StageSegmenting  Stage = "segmenting"
	StageMeasuring   Stage = "measuring"
	StagePersisting  Stage = "persisting"
	StageNotified    Stage = "notified"
	StageRejected    Stage = "rejected"
	StageFailed      Stage = "failed"
	StageNoDetection Stage = "no_detection"
)

// DetectionRequest фото и, возможно, координаты от отправителя
type DetectionRequest struct {
	Image    []byte
	Location *entity.Location // nil: взять из EXIF, иначе 0,0
}

// DetectionResult итог запроса. Detected == false означает, что яма не найдена.
type DetectionResult struct {
	Detected bool
	Report   *entity.Report
	ImageURL string
}

// DetectionService конвейер фото -> маска -> замеры -> отчёт -> уведомление
type DetectionService struct {
	segmenter   port.Segmenter
	calibration calibration.Calibration
	images      port.ImageStore
	reports     port.ReportRepository
	notifier    port.Notifier
	metrics     *metrics.Metrics
}

// NewDetectionService собирает конвейер. notifier и m могут быть nil.
func NewDetectionService(
	segmenter port.Segmenter,
	cal calibration.Calibration,
	images port.ImageStore,
	reports port.ReportRepository,
	notifier port.Notifier,
	m *metrics.Metrics,
) *DetectionService {
	return &DetectionService{
		segmenter:   segmenter,
		calibration: cal,
		images:      images,
		reports:     reports,
		notifier:    notifier,
		metrics:     m,
	}
}

// Ready готова ли модель сегментации
func (s *DetectionService) Ready() bool {
	return s.segmenter.Ready()
}

// Detect обрабатывает одно фото. Отчёт сохраняется только при найденной яме.
func (s *DetectionService) Detect(ctx context.Context, req DetectionRequest) (*DetectionResult, error) {
	logger := log.WithField("request_id", uuid.NewString())
	logger.WithField("stage", StageReceived).WithField("bytes", len(req.Image)).Debug("Detection request received")

	photo, loc, err := s.receive(req)
	if err != nil {
		return nil, s.finish(logger, StageRejected, err)
	}

	logger.WithField("stage", StageSegmenting).Debug("Segmenting image")
	started := time.Now()
	seg, err := s.segmenter.Segment(ctx, photo.Image, segmentation.Center(photo.Image))
	s.metrics.ObserveSegmentation(time.Since(started).Seconds())
	if errors.Is(err, entity.ErrNoDetection) || (err == nil && seg.Mask.Empty()) {
		s.finish(logger, StageNoDetection, nil)
		return &DetectionResult{Detected: false}, nil
	}
	if errors.Is(err, entity.ErrModelNotReady) {
		return nil, s.finish(logger, StageRejected, err)
	}
	if err != nil {
		return nil, s.finish(logger, StageFailed, withKind(fmt.Errorf("segment: %w", err), entity.ErrAdapterFailure))
	}

	logger.WithField("stage", StageMeasuring).Debug("Measuring mask")
	m := s.calibration.Measure(seg.Mask)
	ref, err := s.images.Save(ctx, calibration.Overlay(photo.Image, seg.Mask))
	if err != nil {
		return nil, s.finish(logger, StageFailed, withKind(fmt.Errorf("save overlay: %w", err), entity.ErrStorageFailure))
	}

	logger.WithField("stage", StagePersisting).WithField("image", ref).Debug("Persisting report")
	report, err := s.reports.Create(ctx, entity.NewReport(loc, m.AreaM2, m.DepthM, seg.Confidence, ref))
	if err != nil {
		// оверлей остаётся на диске без отчёта
		return nil, s.finish(logger, StageFailed, withKind(fmt.Errorf("create report: %w", err), entity.ErrStorageFailure))
	}
	s.metrics.IncReportsCreated()
	logger = logger.WithField("report_id", report.ID)

	imageURL := entity.ImageURL(report.ImagePath)
	if s.notifier != nil {
		if err := s.notifier.Publish(ctx, report.Event(imageURL)); err != nil {
			s.metrics.IncNotifyErrors()
			logger.WithError(err).Warn("Failed to notify subscribers")
		}
	}

	logger.WithFields(log.Fields{
		"severity": report.Severity,
		"area_m2":  report.AreaM2,
	}).Info("Pothole reported")
	s.finish(logger, StageNotified, nil)

	return &DetectionResult{Detected: true, Report: report, ImageURL: imageURL}, nil
}

// receive проверяет вход без побочных эффектов
func (s *DetectionService) receive(req DetectionRequest) (*imageio.Photo, entity.Location, error) {
	if len(req.Image) == 0 {
		return nil, entity.Location{}, fmt.Errorf("%w: image is required", entity.ErrInvalidInput)
	}
	if req.Location != nil {
		if err := req.Location.Validate(); err != nil {
			return nil, entity.Location{}, err
		}
	}
	if !s.segmenter.Ready() {
		return nil, entity.Location{}, entity.ErrModelNotReady
	}

	photo, err := imageio.Decode(req.Image)
	if err != nil {
		return nil, entity.Location{}, err
	}

	switch {
	case req.Location != nil:
		return photo, *req.Location, nil
	case photo.Location != nil:
		return photo, *photo.Location, nil
	default:
		return photo, entity.Location{}, nil
	}
}

func (s *DetectionService) finish(logger *log.Entry, stage Stage, err error) error {
	s.metrics.ObserveOutcome(string(stage))
	entry := logger.WithField("stage", stage)
	switch stage {
	case StageRejected:
		entry.WithError(err).Info("Detection request rejected")
	case StageFailed:
		entry.WithError(err).Error("Detection request failed")
	case StageNoDetection:
		entry.Info("No pothole found")
	default:
		entry.Debug("Detection request finished")
	}
	return err
}

// withKind добавляет sentinel, если ошибка пришла без типа
func withKind(err, sentinel error) error {
	if entity.KindOf(err) != entity.KindInternal {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}

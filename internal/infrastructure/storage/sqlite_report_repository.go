package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"pothole-watch/internal/domain/entity"
	"pothole-watch/internal/domain/port"
)

const reportColumns = `id, latitude, longitude, severity, area_m2, depth_m, image_path, confidence, created_at_ns, status`

// ReportRepository хранилище отчётов в SQLite
type ReportRepository struct {
	db  *sql.DB
	mu  sync.Mutex // CreatedAt и ID выдаются в одном порядке
	now func() time.Time
}

// NewReportRepository создаёт хранилище поверх открытой базы
func NewReportRepository(db *sql.DB) *ReportRepository {
	return &ReportRepository{db: db, now: time.Now}
}

// Create назначает ID и CreatedAt и сохраняет отчёт одним INSERT
func (r *ReportRepository) Create(ctx context.Context, report *entity.Report) (*entity.Report, error) {
	if err := validateReport(report); err != nil {
		return nil, err
	}

	saved := *report
	if saved.Status == "" {
		saved.Status = entity.StatusReported
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	saved.CreatedAt = r.now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO reports (latitude, longitude, severity, area_m2, depth_m, image_path, confidence, created_at_ns, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		saved.Latitude, saved.Longitude, string(saved.Severity), saved.AreaM2, saved.DepthM,
		saved.ImagePath, saved.Confidence, saved.CreatedAt.UnixNano(), string(saved.Status),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: insert report: %w", entity.ErrStorageFailure, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("%w: last insert id: %w", entity.ErrStorageFailure, err)
	}
	saved.ID = id

	return &saved, nil
}

// ListAll возвращает все отчёты, новые первыми
func (r *ReportRepository) ListAll(ctx context.Context) ([]entity.Report, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+reportColumns+` FROM reports ORDER BY created_at_ns DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("%w: list reports: %w", entity.ErrStorageFailure, err)
	}
	defer rows.Close()

	reports := make([]entity.Report, 0)
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan report: %w", entity.ErrStorageFailure, err)
		}
		reports = append(reports, *report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list reports: %w", entity.ErrStorageFailure, err)
	}
	return reports, nil
}

// Get возвращает отчёт по ID
func (r *ReportRepository) Get(ctx context.Context, id int64) (*entity.Report, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = ?`, id)
	report, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("report %d: %w", id, entity.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get report %d: %w", entity.ErrStorageFailure, id, err)
	}
	return report, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReport(s scanner) (*entity.Report, error) {
	var (
		report    entity.Report
		severity  string
		status    string
		createdNs int64
	)
	if err := s.Scan(&report.ID, &report.Latitude, &report.Longitude, &severity, &report.AreaM2,
		&report.DepthM, &report.ImagePath, &report.Confidence, &createdNs, &status); err != nil {
		return nil, err
	}
	report.Severity = entity.Severity(severity)
	report.Status = entity.ReportStatus(status)
	report.CreatedAt = time.Unix(0, createdNs).UTC()
	return &report, nil
}

func validateReport(report *entity.Report) error {
	switch {
	case report == nil:
		return fmt.Errorf("%w: nil report", entity.ErrInvalidInput)
	case !report.Severity.Valid():
		return fmt.Errorf("%w: severity %q", entity.ErrInvalidInput, report.Severity)
	case report.Severity != entity.SeverityForArea(report.AreaM2):
		return fmt.Errorf("%w: severity %q does not match area %v m²", entity.ErrInvalidInput, report.Severity, report.AreaM2)
	case report.AreaM2 < 0 || report.DepthM < 0:
		return fmt.Errorf("%w: negative measurement", entity.ErrInvalidInput)
	case report.Confidence < 0 || report.Confidence > 1:
		return fmt.Errorf("%w: confidence %v", entity.ErrInvalidInput, report.Confidence)
	case report.ImagePath == "":
		return fmt.Errorf("%w: missing image path", entity.ErrInvalidInput)
	}
	return nil
}

// Проверка реализации интерфейса
var _ port.ReportRepository = (*ReportRepository)(nil)

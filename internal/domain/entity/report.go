package entity

import "time"

// Severity уровень опасности ямы
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Valid проверяет, что значение из допустимого набора
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	}
	return false
}

const (
	SeverityMediumFromM2 = 0.1 // нижняя граница medium
	SeverityHighFromM2   = 0.3 // нижняя граница high
)

// SeverityForArea ступенчатая классификация по площади в м²
func SeverityForArea(areaM2 float64) Severity {
	switch {
	case !(areaM2 >= SeverityMediumFromM2): // NaN тоже сюда
		return SeverityLow
	case areaM2 < SeverityHighFromM2:
		return SeverityMedium
	default:
		return SeverityHigh
	}
}

// ReportStatus состояние жизненного цикла отчёта
type ReportStatus string

const StatusReported ReportStatus = "reported"

// Report зафиксированная яма
type Report struct {
	ID         int64        `json:"id"`
	Latitude   float64      `json:"latitude"`
	Longitude  float64      `json:"longitude"`
	Severity   Severity     `json:"severity"`
	AreaM2     float64      `json:"area_m2"`
	DepthM     float64      `json:"depth_m"`
	Confidence float64      `json:"confidence"`
	ImagePath  string       `json:"image_path"` // имя файла оверлея в хранилище изображений
	CreatedAt  time.Time    `json:"created_at"`
	Status     ReportStatus `json:"status"`
}

// NewReport создаёт ещё не сохранённый отчёт, опасность выводится из площади.
// ID и CreatedAt назначает хранилище.
func NewReport(loc Location, areaM2, depthM, confidence float64, imagePath string) *Report {
	return &Report{
		Latitude:   loc.Latitude,
		Longitude:  loc.Longitude,
		Severity:   SeverityForArea(areaM2),
		AreaM2:     areaM2,
		DepthM:     depthM,
		Confidence: confidence,
		ImagePath:  imagePath,
		Status:     StatusReported,
	}
}

// ReportEvent сообщение о новом отчёте для подписчиков
type ReportEvent struct {
	ID         int64     `json:"id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Severity   Severity  `json:"severity"`
	AreaM2     float64   `json:"area_m2"`
	DepthM     float64   `json:"depth_m"`
	Confidence float64   `json:"confidence"`
	ImageURL   string    `json:"image_url"`
	CreatedAt  time.Time `json:"created_at"`
}

// Event собирает событие из сохранённого отчёта
func (r *Report) Event(imageURL string) ReportEvent {
	return ReportEvent{
		ID:         r.ID,
		Latitude:   r.Latitude,
		Longitude:  r.Longitude,
		Severity:   r.Severity,
		AreaM2:     r.AreaM2,
		DepthM:     r.DepthM,
		Confidence: r.Confidence,
		ImageURL:   imageURL,
		CreatedAt:  r.CreatedAt,
	}
}

// ImageURL путь, по которому HTTP API отдаёт оверлей
func ImageURL(ref string) string {
	return "/images/" + ref
}

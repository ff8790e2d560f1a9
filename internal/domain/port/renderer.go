package port

import "pothole-watch/internal/domain/entity"

// ReportExporter формирует документ по отчёту. image == nil, если оверлей недоступен.
type ReportExporter interface {
	Export(report *entity.Report, image []byte) ([]byte, error)
}

// MapRenderer строит карту с маркерами отчётов
type MapRenderer interface {
	RenderMap(reports []entity.Report) ([]byte, error)
	GeoJSON(reports []entity.Report) ([]byte, error)
}

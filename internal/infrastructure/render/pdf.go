// Package render формирует документы и карты по готовым отчётам.
package render

import (
	"bytes"
	"fmt"
	"time"

	"codeberg.org/go-pdf/fpdf"

	"pothole-watch/internal/domain/entity"
	"pothole-watch/internal/domain/port"
)

// MissingImageNote текст вместо недоступного оверлея
const MissingImageNote = "Overlay image unavailable"

// PDFExporter отчёт в PDF фиксированной вёрстки
type PDFExporter struct {
	Compress bool
}

// NewPDFExporter создаёт экспортёр со сжатием потоков
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{Compress: true}
}

// Export рисует поля отчёта и, если есть, встраивает оверлей
func (e *PDFExporter) Export(report *entity.Report, image []byte) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(e.Compress)
	pdf.SetTitle(fmt.Sprintf("Pothole Report #%d", report.ID), true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, fmt.Sprintf("Pothole Report #%d", report.ID), "", 1, "", false, 0, "")

	pdf.SetFont("Helvetica", "", 12)
	pdf.Ln(5)
	lines := []string{
		fmt.Sprintf("Latitude: %.6f", report.Latitude),
		fmt.Sprintf("Longitude: %.6f", report.Longitude),
		fmt.Sprintf("Severity: %s", report.Severity),
		fmt.Sprintf("Area: %.2f m²", report.AreaM2),
		fmt.Sprintf("Depth (estimated): %.2f m", report.DepthM),
		fmt.Sprintf("Confidence: %.1f%%", report.Confidence*100),
		fmt.Sprintf("Timestamp: %s", report.CreatedAt.UTC().Format(time.RFC3339)),
		fmt.Sprintf("Status: %s", report.Status),
	}
	for _, line := range lines {
		pdf.CellFormat(0, 8, tr(line), "", 1, "", false, 0, "")
	}

	pdf.SetFont("Helvetica", "I", 9)
	pdf.CellFormat(0, 6, "Depth is a heuristic estimate derived from area, not a measurement.", "", 1, "", false, 0, "")
	pdf.Ln(5)

	if len(image) > 0 {
		name := fmt.Sprintf("overlay-%d", report.ID)
		opts := fpdf.ImageOptions{ImageType: "JPG", ReadDpi: true}
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(image))
		if pdf.Ok() {
			pdf.ImageOptions(name, pdf.GetX(), pdf.GetY(), 150, 0, false, opts, 0, "")
		}
		if !pdf.Ok() {
			// битый файл: документ без картинки, но с пометкой
			pdf.ClearError()
			image = nil
		}
	}
	if len(image) == 0 {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 8, MissingImageNote, "", 1, "", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

var _ port.ReportExporter = (*PDFExporter)(nil)

package reporter

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-pdf/fpdf"
)

const (
	pageMargin   = 15.0
	contentWidth = 180.0
	lineHeight   = 6.0
)

var (
	colorSuccess = [3]int{46, 125, 50}
	colorFailure = [3]int{198, 40, 40}
	colorHeader  = [3]int{230, 230, 230}
)

type pdfWriter struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func newPDFWriter(doc Document) *pdfWriter {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.AliasNbPages("")
	w := &pdfWriter{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}

	pdf.SetHeaderFunc(func() {
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(0, 5, w.tr(doc.Suite), "", 1, "R", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-pageMargin)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	return w
}

// writePDF lays doc out on A4 pages and writes it to path.
func writePDF(path string, doc Document) error {
	w := newPDFWriter(doc)
	pdf := w.pdf
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.MultiCell(0, 9, w.tr(doc.Title), "", "C", false)
	pdf.Ln(4)

	w.section("Run information")
	w.table(doc.Metadata)

	if len(doc.Inputs) > 0 {
		w.section("Test data")
		w.table(doc.Inputs)
	}

	if len(doc.Steps) > 0 {
		w.section("Steps")
		w.steps(doc.Steps)
	}

	if len(doc.Checks) > 0 {
		w.section("Results")
		w.checks(doc.Checks)
	}

	if len(doc.Successes) > 0 {
		w.section("Successful actions")
		w.list(doc.Successes, colorSuccess)
	}

	if len(doc.Errors) > 0 {
		w.section("Errors")
		w.list(doc.Errors, colorFailure)
	}

	w.section("Summary")
	w.summary(doc)

	if doc.Chart && doc.Summary.Total > 0 {
		w.section("Successful vs failed")
		w.chart(doc.Summary)
	}

	if doc.Screenshot != "" {
		w.section("Screenshot")
		w.screenshot(doc.Screenshot)
	}

	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("write pdf %q: %w", path, err)
	}
	return nil
}

func (w *pdfWriter) section(title string) {
	w.pdf.Ln(3)
	w.pdf.SetFont("Helvetica", "B", 12)
	w.pdf.CellFormat(0, 8, w.tr(title), "B", 1, "L", false, 0, "")
	w.pdf.Ln(1)
}

func (w *pdfWriter) table(rows []Row) {
	for _, r := range rows {
		w.pdf.SetFont("Helvetica", "B", 9)
		w.pdf.SetFillColor(colorHeader[0], colorHeader[1], colorHeader[2])
		w.pdf.CellFormat(50, lineHeight, w.tr(r.Label), "1", 0, "L", true, 0, "")
		w.pdf.SetFont("Helvetica", "", 9)
		w.pdf.CellFormat(contentWidth-50, lineHeight, w.fit(r.Value, contentWidth-50), "1", 1, "L", false, 0, "")
	}
}

func (w *pdfWriter) steps(rows []StepRow) {
	widths := []float64{10, 55, 20, 75, 20}
	headers := []string{"#", "Step", "Status", "Details", "Time"}
	w.pdf.SetFont("Helvetica", "B", 9)
	w.pdf.SetFillColor(colorHeader[0], colorHeader[1], colorHeader[2])
	for i, h := range headers {
		w.pdf.CellFormat(widths[i], lineHeight, h, "1", 0, "C", true, 0, "")
	}
	w.pdf.Ln(-1)

	w.pdf.SetFont("Helvetica", "", 8)
	for _, r := range rows {
		w.pdf.CellFormat(widths[0], lineHeight, fmt.Sprintf("%d", r.Index), "1", 0, "C", false, 0, "")
		w.pdf.CellFormat(widths[1], lineHeight, w.fit(r.Name, widths[1]), "1", 0, "L", false, 0, "")
		w.setStatusColor(r.Status == StatusSuccess, r.Status == StatusFailed)
		w.pdf.CellFormat(widths[2], lineHeight, r.Glyph, "1", 0, "C", false, 0, "")
		w.pdf.SetTextColor(0, 0, 0)
		w.pdf.CellFormat(widths[3], lineHeight, w.fit(r.Details, widths[3]), "1", 0, "L", false, 0, "")
		w.pdf.CellFormat(widths[4], lineHeight, r.Time, "1", 1, "C", false, 0, "")
	}
}

func (w *pdfWriter) checks(rows []CheckRow) {
	for _, r := range rows {
		passed := r.Status == "PASSED"
		w.pdf.SetFont("Helvetica", "B", 9)
		w.setStatusColor(passed, !passed)
		line := fmt.Sprintf("[%s] %s (Code: %d, Time: %ss)", r.Status, r.Name, r.Code, r.Seconds)
		w.pdf.MultiCell(0, lineHeight, w.tr(line), "", "L", false)
		w.pdf.SetTextColor(0, 0, 0)
		w.pdf.SetFont("Courier", "", 8)
		w.pdf.MultiCell(0, 5, w.tr("Response: "+r.Preview), "", "L", false)
		if r.Why != "" {
			w.pdf.SetFont("Helvetica", "I", 8)
			w.pdf.MultiCell(0, 5, w.tr("Reason: "+r.Why), "", "L", false)
		}
		w.pdf.Ln(1)
	}
}

func (w *pdfWriter) list(items []string, color [3]int) {
	w.pdf.SetFont("Helvetica", "", 9)
	w.pdf.SetTextColor(color[0], color[1], color[2])
	for _, it := range items {
		w.pdf.MultiCell(0, 5, w.tr("- "+it), "", "L", false)
	}
	w.pdf.SetTextColor(0, 0, 0)
}

func (w *pdfWriter) summary(doc Document) {
	s := doc.Summary
	rows := []Row{
		{Label: "Total", Value: fmt.Sprintf("%d", s.Total)},
		{Label: "Passed", Value: fmt.Sprintf("%d", s.Passed)},
		{Label: "Failed", Value: fmt.Sprintf("%d", s.Failed)},
	}
	if s.Pending > 0 {
		rows = append(rows, Row{Label: "Pending", Value: fmt.Sprintf("%d", s.Pending)})
	}
	rows = append(rows,
		Row{Label: "Success rate", Value: s.RateText()},
		Row{Label: "Final status", Value: doc.FinalStatus},
	)
	w.table(rows)
}

func (w *pdfWriter) chart(s Summary) {
	const (
		chartHeight = 50.0
		barWidth    = 30.0
	)
	pdf := w.pdf
	pdf.Ln(2)
	if pdf.GetY()+chartHeight+15 > 297-pageMargin {
		pdf.AddPage()
	}
	x0, y0 := pageMargin+20, pdf.GetY()+chartHeight
	maxCount := s.Passed
	if s.Failed > maxCount {
		maxCount = s.Failed
	}

	pdf.SetDrawColor(0, 0, 0)
	pdf.Line(x0, y0, x0+110, y0)
	pdf.Line(x0, y0, x0, y0-chartHeight)

	bars := []struct {
		label string
		count int
		color [3]int
	}{
		{"Successful", s.Passed, colorSuccess},
		{"Failed", s.Failed, colorFailure},
	}
	pdf.SetFont("Helvetica", "", 9)
	for i, b := range bars {
		h := 0.0
		if maxCount > 0 {
			h = float64(b.count) / float64(maxCount) * (chartHeight - 8)
		}
		x := x0 + 15 + float64(i)*(barWidth+25)
		pdf.SetFillColor(b.color[0], b.color[1], b.color[2])
		if h > 0 {
			pdf.Rect(x, y0-h, barWidth, h, "F")
		}
		pdf.SetXY(x, y0-h-6)
		pdf.CellFormat(barWidth, 5, fmt.Sprintf("%d", b.count), "", 0, "C", false, 0, "")
		pdf.SetXY(x, y0+1)
		pdf.CellFormat(barWidth, 5, b.label, "", 0, "C", false, 0, "")
	}
	pdf.SetXY(pageMargin, y0+8)
}

// screenshot embeds a PNG or JPEG. Anything else is referenced by path.
func (w *pdfWriter) screenshot(path string) {
	if !embeddableImage(path) {
		w.pdf.SetFont("Helvetica", "I", 9)
		w.pdf.MultiCell(0, 5, w.tr("Screenshot: "+path), "", "L", false)
		return
	}
	w.pdf.SetFont("Helvetica", "", 8)
	w.pdf.MultiCell(0, 5, w.tr(filepath.Base(path)), "", "L", false)
	w.pdf.ImageOptions(path, pageMargin, w.pdf.GetY()+2, contentWidth, 0, true,
		fpdf.ImageOptions{ReadDpi: true}, 0, "")
}

func embeddableImage(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".png" && ext != ".jpg" && ext != ".jpeg" {
		return false
	}
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	_, format, err := image.DecodeConfig(f)
	if err != nil {
		return false
	}
	return format == "png" || format == "jpeg"
}

func (w *pdfWriter) setStatusColor(ok, failed bool) {
	switch {
	case ok:
		w.pdf.SetTextColor(colorSuccess[0], colorSuccess[1], colorSuccess[2])
	case failed:
		w.pdf.SetTextColor(colorFailure[0], colorFailure[1], colorFailure[2])
	default:
		w.pdf.SetTextColor(0, 0, 0)
	}
}

// fit translates s and shortens it with an ellipsis until it fits a cell of
// the given width in the current font.
func (w *pdfWriter) fit(s string, width float64) string {
	limit := width - 2*w.pdf.GetCellMargin()
	text := w.tr(s)
	if w.pdf.GetStringWidth(text) <= limit {
		return text
	}
	r := []rune(s)
	for len(r) > 0 {
		r = r[:len(r)-1]
		text = w.tr(strings.TrimRight(string(r), " ") + "...")
		if w.pdf.GetStringWidth(text) <= limit {
			return text
		}
	}
	return "..."
}

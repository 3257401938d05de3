package statement

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
)

var (
	colorPrimary     = [3]int{17, 24, 39}
	colorAccent      = [3]int{124, 58, 237}
	colorPositive    = [3]int{22, 163, 74}
	colorNegative    = [3]int{220, 38, 38}
	colorTextMuted   = [3]int{107, 114, 128}
	colorTableHeader = [3]int{17, 24, 39}
	colorTableAlt    = [3]int{243, 244, 246}
	colorGridLine    = [3]int{220, 220, 220}
)

// Row one ledger entry
type Row struct {
	Date        time.Time
	Kind        string
	Description string
	Credits     int
}

// Data everything rendered on a statement
type Data struct {
	Email       string
	Plan        string
	Balance     int
	Acquired    int64
	Consumed    int64
	GeneratedAt time.Time
	Rows        []Row
}

var kindLabels = map[string]string{
	"purchase":     "Compra",
	"consumption":  "Consumo",
	"bonus":        "Bonus",
	"refund":       "Reembolso",
	"subscription": "Suscripción",
}

// Generate renders the credit statement as a PDF document
func Generate(data *Data) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 25)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	writeHeader(pdf, tr, data)
	writeSummary(pdf, tr, data)
	writeTable(pdf, tr, data)
	addPageNumbers(pdf, tr)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("PDF output error: %w", err)
	}
	return buf.Bytes(), nil
}

func writeHeader(pdf *fpdf.Fpdf, tr func(string) string, data *Data) {
	pageWidth, _ := pdf.GetPageSize()

	pdf.SetFillColor(colorAccent[0], colorAccent[1], colorAccent[2])
	pdf.Rect(0, 0, pageWidth, 6, "F")

	pdf.SetY(18)
	pdf.SetFont("Arial", "B", 22)
	pdf.SetTextColor(colorPrimary[0], colorPrimary[1], colorPrimary[2])
	pdf.CellFormat(0, 10, "Agent Pilot", "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "", 12)
	pdf.SetTextColor(colorTextMuted[0], colorTextMuted[1], colorTextMuted[2])
	pdf.CellFormat(0, 7, tr("Extracto de créditos"), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, tr(data.Email), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, tr("Generado: "+data.GeneratedAt.UTC().Format("2006-01-02 15:04 UTC")), "", 1, "L", false, 0, "")
	pdf.Ln(6)
}

func writeSummary(pdf *fpdf.Fpdf, tr func(string) string, data *Data) {
	boxes := []struct {
		label string
		value string
	}{
		{"Saldo actual", fmt.Sprintf("%d", data.Balance)},
		{"Plan", data.Plan},
		{"Adquiridos", fmt.Sprintf("%d", data.Acquired)},
		{"Consumidos", fmt.Sprintf("%d", data.Consumed)},
	}

	width := 170.0 / float64(len(boxes))
	y := pdf.GetY()
	for i, b := range boxes {
		x := 20 + float64(i)*width
		pdf.SetFillColor(colorTableAlt[0], colorTableAlt[1], colorTableAlt[2])
		pdf.Rect(x, y, width-3, 20, "F")

		pdf.SetXY(x, y+3)
		pdf.SetFont("Arial", "", 8)
		pdf.SetTextColor(colorTextMuted[0], colorTextMuted[1], colorTextMuted[2])
		pdf.CellFormat(width-3, 5, tr(b.label), "", 2, "C", false, 0, "")

		pdf.SetFont("Arial", "B", 14)
		pdf.SetTextColor(colorPrimary[0], colorPrimary[1], colorPrimary[2])
		pdf.CellFormat(width-3, 8, tr(b.value), "", 0, "C", false, 0, "")
	}
	pdf.SetXY(20, y+26)
}

func writeTable(pdf *fpdf.Fpdf, tr func(string) string, data *Data) {
	widths := []float64{32, 28, 85, 25}
	headers := []string{"Fecha", "Tipo", "Descripción", "Créditos"}

	header := func() {
		pdf.SetFillColor(colorTableHeader[0], colorTableHeader[1], colorTableHeader[2])
		pdf.SetTextColor(255, 255, 255)
		pdf.SetFont("Arial", "B", 9)
		for i, h := range headers {
			align := "L"
			if i == len(headers)-1 {
				align = "R"
			}
			pdf.CellFormat(widths[i], 8, tr(h), "", 0, align, true, 0, "")
		}
		pdf.Ln(-1)
	}
	header()

	if len(data.Rows) == 0 {
		pdf.SetFont("Arial", "I", 9)
		pdf.SetTextColor(colorTextMuted[0], colorTextMuted[1], colorTextMuted[2])
		pdf.CellFormat(0, 10, "Sin movimientos", "", 1, "C", false, 0, "")
		return
	}

	_, pageHeight := pdf.GetPageSize()
	for i, row := range data.Rows {
		if pdf.GetY() > pageHeight-35 {
			pdf.AddPage()
			header()
		}

		fill := i%2 == 1
		pdf.SetFillColor(colorTableAlt[0], colorTableAlt[1], colorTableAlt[2])
		pdf.SetFont("Arial", "", 9)
		pdf.SetTextColor(colorPrimary[0], colorPrimary[1], colorPrimary[2])

		pdf.CellFormat(widths[0], 7, row.Date.UTC().Format("2006-01-02 15:04"), "", 0, "L", fill, 0, "")
		label, ok := kindLabels[row.Kind]
		if !ok {
			label = row.Kind
		}
		pdf.CellFormat(widths[1], 7, tr(label), "", 0, "L", fill, 0, "")
		pdf.CellFormat(widths[2], 7, tr(truncate(row.Description, 55)), "", 0, "L", fill, 0, "")

		if row.Credits >= 0 {
			pdf.SetTextColor(colorPositive[0], colorPositive[1], colorPositive[2])
		} else {
			pdf.SetTextColor(colorNegative[0], colorNegative[1], colorNegative[2])
		}
		pdf.CellFormat(widths[3], 7, fmt.Sprintf("%+d", row.Credits), "", 1, "R", fill, 0, "")
	}
}

func addPageNumbers(pdf *fpdf.Fpdf, tr func(string) string) {
	pdf.SetAutoPageBreak(false, 0)

	total := pdf.PageCount()
	for i := 1; i <= total; i++ {
		pdf.SetPage(i)
		pageWidth, pageHeight := pdf.GetPageSize()

		pdf.SetY(pageHeight - 15)
		pdf.SetFont("Arial", "", 8)
		pdf.SetTextColor(colorTextMuted[0], colorTextMuted[1], colorTextMuted[2])
		pdf.CellFormat(0, 5, tr(fmt.Sprintf("Página %d de %d", i, total)), "", 0, "C", false, 0, "")

		pdf.SetDrawColor(colorGridLine[0], colorGridLine[1], colorGridLine[2])
		pdf.SetLineWidth(0.3)
		pdf.Line(20, pageHeight-20, pageWidth-20, pageHeight-20)
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}

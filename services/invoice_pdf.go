package services

import (
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"

	"marketplace-service/models"
)

const dateLayout = "2006-01-02"

// RenderInvoice writes an A4 revenue invoice for one provider.
func RenderInvoice(w io.Writer, summary *models.RevenueSummary, lines []models.RevenueLine, issuedAt time.Time) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Revenue invoice", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Revenue invoice")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 10)
	provider := summary.ProviderName
	if summary.StoreName != "" {
		provider = fmt.Sprintf("%s (%s)", summary.StoreName, summary.ProviderName)
	}
	pdf.Cell(0, 6, "Provider: "+provider)
	pdf.Ln(6)
	pdf.Cell(0, 6, "Period: "+period(summary.From, summary.To))
	pdf.Ln(6)
	pdf.Cell(0, 6, "Issued: "+issuedAt.UTC().Format(dateLayout))
	pdf.Ln(10)

	widths := []float64{30, 70, 20, 30, 30}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range []string{"Date", "Product", "Qty", "Unit price", "Amount"} {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, line := range lines {
		name := line.ProductName
		if line.Group {
			name += " (group)"
		}
		amount := line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
		pdf.CellFormat(widths[0], 6, line.SoldAt.UTC().Format(dateLayout), "1", 0, "", false, 0, "")
		pdf.CellFormat(widths[1], 6, truncate(name, 40), "1", 0, "", false, 0, "")
		pdf.CellFormat(widths[2], 6, fmt.Sprintf("%d", line.Quantity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 6, line.UnitPrice.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[4], 6, amount.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 10)
	totals := [][2]string{
		{"Gross revenue", summary.GrossRevenue.StringFixed(2)},
		{fmt.Sprintf("Platform commission (%d%%)", summary.CommissionPercent), summary.Commission.StringFixed(2)},
		{"Net payout", summary.NetPayout.StringFixed(2)},
	}
	for _, t := range totals {
		pdf.CellFormat(150, 7, t[0], "", 0, "R", false, 0, "")
		pdf.CellFormat(30, 7, t[1], "", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	return pdf.Output(w)
}

func period(from, to *time.Time) string {
	switch {
	case from == nil && to == nil:
		return "all time"
	case from == nil:
		return "until " + to.UTC().Format(dateLayout)
	case to == nil:
		return "since " + from.UTC().Format(dateLayout)
	}
	return from.UTC().Format(dateLayout) + " to " + to.UTC().Format(dateLayout)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

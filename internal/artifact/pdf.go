package artifact

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"github.com/carehub-health/billing-core/internal/billing"
)

const (
	pageMargin = 15.0
	lineHeight = 8.0
	// A4 is 297mm tall; break before an item would land in the footer zone.
	pageBreakY = 260.0

	footerText = "Thank you for your business. For any questions regarding this bill, " +
		"please contact our billing department."
)

// renderBill lays out a billing record as a PDF byte stream. The layout is
// deterministic for a given record: identification block, itemized lines
// with running position, subtotal and settlement summary, constant footer.
// An item that would overflow the current page starts a new page; items are
// never split.
func renderBill(b *billing.Billing) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetTitle("Medical Bill", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 12, "MEDICAL BILL", "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 12)
	identification := []string{
		fmt.Sprintf("Bill ID: %s", b.BillingID),
		fmt.Sprintf("Date: %s", b.Date.Format("January 2, 2006")),
		fmt.Sprintf("Patient ID: %s", b.PatientID),
		fmt.Sprintf("Doctor ID: %s", b.DoctorID),
	}
	for _, line := range identification {
		pdf.CellFormat(0, 6, line, "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)
	rule(pdf)

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, "SERVICES", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(140, lineHeight, "Description", "B", 0, "L", false, 0, "")
	pdf.CellFormat(40, lineHeight, "Price", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 12)
	for i, item := range b.Items {
		if pdf.GetY() > pageBreakY {
			pdf.AddPage()
		}
		pdf.CellFormat(140, lineHeight, fmt.Sprintf("%d. %s", i+1, item.Name), "", 0, "L", false, 0, "")
		pdf.CellFormat(40, lineHeight, fmt.Sprintf("$%.2f", item.Fee), "", 1, "R", false, 0, "")
	}
	rule(pdf)
	pdf.Ln(2)

	summary := []string{
		fmt.Sprintf("Subtotal: $%.2f", b.Total()),
		fmt.Sprintf("Insurance Coverage: $%.2f", b.InsuranceAmt),
		fmt.Sprintf("Amount Paid: $%.2f", b.PaidAmt),
		fmt.Sprintf("Payment Method: %s", b.PaymentMode),
		fmt.Sprintf("Status: %s", b.BillingStatus),
	}
	for _, line := range summary {
		pdf.CellFormat(0, 6, line, "", 1, "R", false, 0, "")
	}

	// A summary block that ran into the footer zone pushes the footer to its
	// own page instead of overprinting.
	if pdf.GetY() > pageBreakY {
		pdf.AddPage()
	}
	pdf.SetY(-30)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 5, footerText, "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func rule(pdf *gofpdf.Fpdf) {
	pdf.SetDrawColor(128, 128, 128)
	pdf.SetLineWidth(0.2)
	y := pdf.GetY()
	pageW, _ := pdf.GetPageSize()
	pdf.Line(pageMargin, y, pageW-pageMargin, y)
	pdf.Ln(3)
}

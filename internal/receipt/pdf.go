// Package receipt renders booking receipts as PDF documents.
package receipt

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/jung-kurt/gofpdf"
)

// RenderPDF lays out the booking, flight, passenger and payment details of r
// on a single A4 page.
func RenderPDF(r domain.Receipt) ([]byte, error) {
	return render(r, true)
}

func render(r domain.Receipt, compress bool) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(compress)
	pdf.SetMargins(20, 20, 20)
	pdf.SetTitle("Booking receipt "+r.Booking.PNR, true)
	pdf.AddPage()

	// core fonts are cp1252; names and emails arrive as UTF-8
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	// header bar
	pdf.SetFillColor(13, 24, 37)
	pdf.Rect(0, 0, 210, 28, "F")
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetXY(20, 8)
	pdf.CellFormat(110, 10, "Flight Booking Receipt", "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(60, 10, "PNR "+r.Booking.PNR, "", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetXY(20, 18)
	pdf.CellFormat(170, 6, "Issued "+issued(r).Format("02 Jan 2006, 15:04 UTC"), "", 1, "L", false, 0, "")

	pdf.SetY(36)
	pdf.SetTextColor(0, 0, 0)

	if r.Booking.Status == domain.BookingStatusCancelled {
		pdf.SetFillColor(253, 236, 234)
		pdf.SetTextColor(160, 30, 30)
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(170, 9, "CANCELLED", "", 1, "C", true, 0, "")
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(3)
	}

	section := func(title string) {
		pdf.SetFillColor(13, 24, 37)
		pdf.SetTextColor(255, 255, 255)
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(170, 8, "  "+title, "", 1, "L", true, 0, "")
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(2)
	}

	row := func(label, value string) {
		pdf.SetFont("Helvetica", "", 10)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(55, 7, tr(label), "", 0, "L", false, 0, "")
		pdf.SetTextColor(20, 20, 20)
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(115, 7, tr(value), "", 1, "L", false, 0, "")
	}

	b := r.Booking
	f := r.Flight

	section("Booking")
	row("PNR", b.PNR)
	row("Status", strings.ToUpper(string(b.Status)))
	row("Booked", b.CreatedAt.UTC().Format("02 Jan 2006, 15:04 UTC"))
	if b.CancelledAt != nil {
		row("Cancelled", b.CancelledAt.UTC().Format("02 Jan 2006, 15:04 UTC"))
	}
	if b.Email != "" {
		row("Contact", b.Email)
	}
	row("Seats", fmt.Sprintf("%d", b.Seats))
	pdf.Ln(4)

	section("Flight")
	row("Flight", strings.TrimSpace(f.FlightNumber+" "+f.Airline.Name))
	row("From", airportLine(f.Origin))
	row("To", airportLine(f.Destination))
	row("Departure", f.DepartureTime.UTC().Format("Mon 02 Jan 2006 15:04 UTC"))
	row("Arrival", f.ArrivalTime.UTC().Format("Mon 02 Jan 2006 15:04 UTC"))
	row("Duration", formatDuration(f.Duration()))
	pdf.Ln(4)

	section("Passengers")
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(235, 238, 242)
	pdf.CellFormat(10, 7, "#", "1", 0, "C", true, 0, "")
	pdf.CellFormat(110, 7, "Name", "1", 0, "L", true, 0, "")
	pdf.CellFormat(25, 7, "Age", "1", 0, "C", true, 0, "")
	pdf.CellFormat(25, 7, "Type", "1", 1, "C", true, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for i, p := range r.Passengers {
		pdf.CellFormat(10, 7, fmt.Sprintf("%d", i+1), "1", 0, "C", false, 0, "")
		pdf.CellFormat(110, 7, tr(p.Name), "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 7, fmt.Sprintf("%d", p.Age), "1", 0, "C", false, 0, "")
		pdf.CellFormat(25, 7, string(p.Type), "1", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	section("Payment")
	if r.Payment != nil {
		row("Method", r.Payment.Method)
		row("Reference", r.Payment.TransactionReference)
		row("Status", string(r.Payment.Status))
	}
	pdf.SetFillColor(212, 168, 67)
	pdf.SetTextColor(13, 24, 37)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(55, 9, "TOTAL", "", 0, "L", true, 0, "")
	pdf.CellFormat(115, 9, FormatMoney(b.TotalPriceCents, b.Currency), "", 1, "L", true, 0, "")
	pdf.SetTextColor(0, 0, 0)

	pdf.SetY(-22)
	pdf.SetDrawColor(200, 200, 200)
	pdf.SetLineWidth(0.3)
	pdf.Line(20, pdf.GetY(), 190, pdf.GetY())
	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(150, 150, 150)
	pdf.CellFormat(0, 8, "Simulated booking. Not valid for travel.", "", 0, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("PDF output failed: %w", err)
	}
	return buf.Bytes(), nil
}

// FormatMoney renders cents as "INR 4,500.00".
func FormatMoney(cents int64, currency string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	whole := fmt.Sprintf("%d", cents/100)
	var grouped strings.Builder
	for i, c := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			grouped.WriteByte(',')
		}
		grouped.WriteRune(c)
	}
	return strings.TrimSpace(fmt.Sprintf("%s %s%s.%02d", currency, sign, grouped.String(), cents%100))
}

func airportLine(a domain.Airport) string {
	if a.City == "" {
		return a.IATA
	}
	return fmt.Sprintf("%s - %s (%s)", a.IATA, a.Name, a.City)
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh %02dm", h, m)
}

func issued(r domain.Receipt) time.Time {
	if r.IssuedAt.IsZero() {
		return time.Now().UTC()
	}
	return r.IssuedAt.UTC()
}

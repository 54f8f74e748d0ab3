package pdf

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"

	"github.com/utleieskade/backend/internal/models"
)

// CaseReport renders the inspector's assessment for a case.
func CaseReport(w io.Writer, c *models.Case, report *models.Report, currency string) error {
	d := newDocument("Skaderapport " + c.CaseNumber)

	d.heading("Sak")
	d.field("Saksnummer", c.CaseNumber)
	d.field("Status", string(c.Status))
	d.field("Hastegrad", string(c.Urgency))
	if c.Property != nil {
		d.field("Adresse", fmt.Sprintf("%s, %s %s", c.Property.Address, c.Property.PostalCode, c.Property.City))
	}
	if c.Tenant != nil {
		d.field("Leietaker", c.Tenant.FullName())
	}
	if c.Inspector != nil {
		d.field("Inspektør", c.Inspector.FullName())
	}
	d.field("Beskrivelse", c.Description)

	if len(c.Damages) > 0 {
		d.heading("Registrerte skader")
		rows := make([][]string, 0, len(c.Damages))
		for _, dmg := range c.Damages {
			rows = append(rows, []string{dmg.Location, dmg.DamageType, date(dmg.DamageDate), dmg.Description})
		}
		d.table([]string{"Sted", "Type", "Dato", "Beskrivelse"}, []float64{40, 35, 25, 80}, rows)
	}

	d.heading("Vurdering")
	if report.Notes != "" {
		d.paragraph(report.Notes)
		d.pdf.Ln(2)
	}
	rows := make([][]string, 0, len(report.Items))
	for _, item := range report.Items {
		rows = append(rows, []string{
			item.Description,
			item.Quantity.String() + " " + item.Unit,
			item.UnitPrice.StringFixed(2),
			item.Hours.String(),
			item.HourlyRate.StringFixed(2),
			item.Total.StringFixed(2),
		})
	}
	d.table(
		[]string{"Post", "Antall", "Enhetspris", "Timer", "Timepris", "Sum"},
		[]float64{60, 22, 25, 18, 25, 30},
		rows,
	)

	if s := report.Summary; s != nil {
		d.heading("Sammendrag")
		d.field("Timer totalt", s.TotalHours.String())
		d.field("Materialer", money(s.MaterialSum, currency))
		d.field("Arbeid", money(s.LaborSum, currency))
		d.field("Sum eks. mva", money(s.Subtotal, currency))
		d.field("Mva", money(s.VAT, currency))
		d.field("Totalt", money(s.Total, currency))
	}

	if len(report.Photos) > 0 {
		d.heading("Bilder")
		for _, photo := range report.Photos {
			line := photo.URL
			if photo.Caption != "" {
				line = photo.Caption + ": " + photo.URL
			}
			d.paragraph(line)
		}
	}

	return d.write(w)
}

// PaymentReceipt renders a tenant receipt.
func PaymentReceipt(w io.Writer, payment *models.Payment, tenant *models.User, c *models.Case) error {
	d := newDocument("Kvittering")

	d.heading("Betaling")
	d.field("Kvitteringsnr.", payment.ID)
	d.field("Dato", date(&payment.CreatedAt))
	d.field("Beløp", money(payment.Amount, payment.Currency))
	d.field("Status", string(payment.Status))
	if payment.Description != "" {
		d.field("Beskrivelse", payment.Description)
	}
	if tenant != nil {
		d.heading("Kunde")
		d.field("Navn", tenant.FullName())
		d.field("E-post", tenant.Email)
	}
	if c != nil {
		d.heading("Sak")
		d.field("Saksnummer", c.CaseNumber)
		if c.Property != nil {
			d.field("Adresse", c.Property.Address+", "+c.Property.City)
		}
	}
	return d.write(w)
}

// EarningsStatement is the input to InspectorEarnings.
type EarningsStatement struct {
	Inspector      *models.User
	CompletedCases int64
	Gross          decimal.Decimal
	PaidOut        decimal.Decimal
	Pending        decimal.Decimal
	Available      decimal.Decimal
	Currency       string
	Payouts        []models.InspectorPayment
}

// InspectorEarnings renders an inspector's earnings and payout history.
func InspectorEarnings(w io.Writer, s EarningsStatement) error {
	d := newDocument("Inntektsoversikt")

	d.heading("Inspektør")
	d.field("Navn", s.Inspector.FullName())
	d.field("E-post", s.Inspector.Email)

	d.heading("Oversikt")
	d.field("Fullførte saker", fmt.Sprintf("%d", s.CompletedCases))
	d.field("Opptjent", money(s.Gross, s.Currency))
	d.field("Utbetalt", money(s.PaidOut, s.Currency))
	d.field("Under behandling", money(s.Pending, s.Currency))
	d.field("Tilgjengelig", money(s.Available, s.Currency))

	d.heading("Utbetalinger")
	rows := make([][]string, 0, len(s.Payouts))
	for _, p := range s.Payouts {
		reason := ""
		if p.RejectionReason != nil {
			reason = *p.RejectionReason
		}
		rows = append(rows, []string{date(&p.CreatedAt), p.Amount.StringFixed(2), string(p.Status), reason})
	}
	d.table([]string{"Dato", "Beløp", "Status", "Begrunnelse"}, []float64{30, 35, 30, 85}, rows)

	return d.write(w)
}

// UserList renders a tabular export of users.
func UserList(w io.Writer, title string, users []models.User) error {
	d := newDocument(title)

	rows := make([][]string, 0, len(users))
	for _, u := range users {
		phone := ""
		if u.Phone != nil {
			phone = *u.Phone
		}
		rows = append(rows, []string{u.FullName(), u.Email, phone, string(u.Status), date(&u.CreatedAt)})
	}
	d.table([]string{"Navn", "E-post", "Telefon", "Status", "Registrert"}, []float64{45, 60, 30, 20, 25}, rows)
	d.pdf.Ln(3)
	d.paragraph(fmt.Sprintf("Totalt %d", len(users)))

	return d.write(w)
}

package email

import "fmt"

// OTPMessage carries a one-time code.
func OTPMessage(to, name, code string, validMinutes int) Message {
	return Message{
		To:      to,
		Subject: "Din engangskode fra Utleieskade",
		PlainBody: fmt.Sprintf(`Hei %s,

Din engangskode er: %s

Koden er gyldig i %d minutter. Hvis du ikke ba om denne koden kan du se bort fra denne e-posten.
`, name, code, validMinutes),
		HTMLBody: fmt.Sprintf(`<html><body>
<p>Hei %s,</p>
<p>Din engangskode er: <strong>%s</strong></p>
<p>Koden er gyldig i %d minutter.</p>
</body></html>`, name, code, validMinutes),
	}
}

// InspectorInviteMessage invites a new inspector to set a password.
func InspectorInviteMessage(to, name, code, baseURL string, validMinutes int) Message {
	link := fmt.Sprintf("%s/set-password?email=%s", baseURL, to)
	return Message{
		To:      to,
		Subject: "Velkommen som inspektør hos Utleieskade",
		PlainBody: fmt.Sprintf(`Hei %s,

Du er registrert som inspektør hos Utleieskade. Sett passordet ditt her:
%s

Bruk koden %s (gyldig i %d minutter).
`, name, link, code, validMinutes),
		HTMLBody: fmt.Sprintf(`<html><body>
<p>Hei %s,</p>
<p>Du er registrert som inspektør hos Utleieskade.</p>
<p><a href="%s">Sett passord</a> med koden <strong>%s</strong> (gyldig i %d minutter).</p>
</body></html>`, name, link, code, validMinutes),
	}
}

// CaseAssignedMessage tells an inspector about a new case.
func CaseAssignedMessage(to, name, caseNumber string) Message {
	return Message{
		To:      to,
		Subject: "Ny sak tildelt: " + caseNumber,
		PlainBody: fmt.Sprintf(`Hei %s,

Sak %s er tildelt deg. Logg inn for å se detaljene.
`, name, caseNumber),
	}
}

// PayoutDecisionMessage reports the result of a payout request.
func PayoutDecisionMessage(to, name, amount string, approved bool, reason string) Message {
	if approved {
		return Message{
			To:        to,
			Subject:   "Utbetaling godkjent",
			PlainBody: fmt.Sprintf("Hei %s,\n\nUtbetalingen på %s er godkjent.\n", name, amount),
		}
	}
	return Message{
		To:        to,
		Subject:   "Utbetaling avvist",
		PlainBody: fmt.Sprintf("Hei %s,\n\nUtbetalingen på %s ble avvist.\nBegrunnelse: %s\n", name, amount, reason),
	}
}

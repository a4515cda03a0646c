package email

import (
	"fmt"
	"html"
	"strings"
)

// UrgentTicketData is the operator alert for an urgent ticket.
type UrgentTicketData struct {
	TicketID    string
	Title       string
	Description string
	Location    string
	Customer    string
	Phone       string
}

func BuildUrgentTicketEmail(to []string, d UrgentTicketData) Message {
	subject := fmt.Sprintf("[ACİL] Yeni talep: %s", d.Title)

	text := fmt.Sprintf(`Acil öncelikli yeni bir talep açıldı.

Talep: %s
Konum: %s
Müşteri: %s %s

%s

Talep no: %s`,
		d.Title, d.Location, d.Customer, d.Phone, d.Description, d.TicketID)

	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2 style="color: #dc2626;">Acil talep: %s</h2>
    <p><strong>Konum:</strong> %s<br><strong>Müşteri:</strong> %s %s</p>
    <p style="background-color: #f3f4f6; padding: 10px 15px; border-radius: 4px;">%s</p>
    <p style="color: #6b7280; font-size: 13px;">Talep no: %s</p>
</body>
</html>`,
		html.EscapeString(d.Title), html.EscapeString(d.Location),
		html.EscapeString(d.Customer), html.EscapeString(d.Phone),
		strings.ReplaceAll(html.EscapeString(d.Description), "\n", "<br>"),
		html.EscapeString(d.TicketID))

	return Message{To: to, Subject: subject, TextBody: text, HTMLBody: htmlBody}
}

// WelcomeData is sent to accounts an administrator provisions.
type WelcomeData struct {
	AppName   string
	FirstName string
	Email     string
	Password  string
	Role      string
}

func BuildWelcomeEmail(d WelcomeData) Message {
	appName := d.AppName
	if appName == "" {
		appName = "DNA DESTEK"
	}
	name := d.FirstName
	if name == "" {
		name = d.Email
	}

	text := fmt.Sprintf(`Merhaba %s,

%s hesabınız oluşturuldu (%s).

E-posta: %s
Geçici şifre: %s

İlk girişten sonra şifrenizi değiştirin.`,
		name, appName, d.Role, d.Email, d.Password)

	return Message{
		To:       []string{d.Email},
		Subject:  fmt.Sprintf("%s hesabınız hazır", appName),
		TextBody: text,
	}
}

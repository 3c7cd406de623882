package notifications

import (
	"bytes"
	"html/template"
	"time"
)

const notificationTemplate = `<!DOCTYPE html>
<html>
<body>
  <p>Hi {{.Name}},</p>
  <h3>{{.Title}}</h3>
  <p>{{.Message}}</p>
  {{if .BookingID}}<p>Booking reference: {{.BookingID}}</p>{{end}}
  <p>Open your AyudaBesh dashboard for details.</p>
</body>
</html>`

const passwordResetTemplate = `<!DOCTYPE html>
<html>
<body>
  <p>Hi {{.Name}},</p>
  <p>Your password reset code is:</p>
  <h2>{{.Code}}</h2>
  <p>The code expires in {{.Minutes}} minutes. If you did not ask for it, ignore this email.</p>
</body>
</html>`

var (
	notificationTmpl  = template.Must(template.New("notification").Parse(notificationTemplate))
	passwordResetTmpl = template.Must(template.New("password_reset").Parse(passwordResetTemplate))
)

func displayName(to Recipient) string {
	if to.Name != "" {
		return to.Name
	}
	return "there"
}

func buildNotificationHTML(to Recipient, n Notification) (string, error) {
	data := struct {
		Name      string
		Title     string
		Message   string
		BookingID string
	}{displayName(to), n.Title, n.Message, n.BookingID}

	var buf bytes.Buffer
	if err := notificationTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func buildPasswordResetHTML(to Recipient, code string, ttl time.Duration) (string, error) {
	data := struct {
		Name    string
		Code    string
		Minutes int
	}{displayName(to), code, int(ttl.Minutes())}

	var buf bytes.Buffer
	if err := passwordResetTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

package service

import (
	"bytes"
	"html/template"
	"net/url"
)

var resetEmailTemplate = template.Must(template.New("reset").Parse(
	`<p>Click here to reset your password:</p>
<a href="{{.Link}}">Reset Password</a>
`))

// ResetLink returns base with the token and email query parameters set.
// Existing query parameters on base are preserved.
func ResetLink(base *url.URL, token, email string) string {
	u := *base
	q := u.Query()
	q.Set("token", token)
	q.Set("email", email)
	u.RawQuery = q.Encode()
	return u.String()
}

// RenderResetEmail renders the HTML body of the password reset email.
func RenderResetEmail(link string) (string, error) {
	var buf bytes.Buffer
	if err := resetEmailTemplate.Execute(&buf, struct{ Link string }{link}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

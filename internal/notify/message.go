package notify

import (
	"bytes"
	"fmt"
	"mime"
	"net/url"
	"time"
)

const resetSubject = "Reset your E-Learning password"

// ResetLink appends the token as the "token" query parameter of base,
// preserving any query base already carries.
func ResetLink(base, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse reset url base: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func resetBody(link string, validity time.Duration) string {
	return fmt.Sprintf(`Hello,

You asked to reset the password of your E-Learning account.

Open the following link to choose a new password:
%s

The link expires in %d minutes.

If you did not ask for this, you can ignore this email.

E-Learning Team
`, link, int(validity.Minutes()))
}

func buildMessage(from, to, subject, body string, now time.Time) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&b, "Date: %s\r\n", now.UTC().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	b.WriteString("\r\n")
	for _, line := range bytes.Split([]byte(body), []byte("\n")) {
		b.Write(line)
		b.WriteString("\r\n")
	}
	return b.Bytes()
}

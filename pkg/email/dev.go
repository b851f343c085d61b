package email

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// DevSender writes every message to dir as an .eml file that any mail
// client can open.
type DevSender struct {
	dir string
	now func() time.Time
}

// NewDevSender creates the directory lazily on the first send.
func NewDevSender(dir string) *DevSender {
	return &DevSender{dir: dir, now: time.Now}
}

func (d *DevSender) SendEmail(ctx context.Context, params SendEmailParams) error {
	if err := params.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrFailedToSendEmail, err)
	}

	now := d.now().UTC()
	label := params.Tag
	if label == "" {
		label = params.Subject
	}
	name := now.Format("20060102_150405.000000") + "_" + fileLabel(label) + ".eml"

	var b strings.Builder
	fmt.Fprintf(&b, "Date: %s\r\n", now.Format(time.RFC1123Z))
	fmt.Fprintf(&b, "To: %s\r\n", params.SendTo)
	fmt.Fprintf(&b, "Subject: %s\r\n", params.Subject)
	if params.Tag != "" {
		fmt.Fprintf(&b, "X-Tag: %s\r\n", params.Tag)
	}
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/html; charset=utf-8\r\n\r\n")
	b.WriteString(params.BodyHTML)

	if err := os.WriteFile(filepath.Join(d.dir, name), []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrFailedToSendEmail, err)
	}
	return nil
}

var unsafeLabel = regexp.MustCompile(`[^a-z0-9_.-]+`)

func fileLabel(s string) string {
	s = unsafeLabel.ReplaceAllString(strings.ToLower(strings.ReplaceAll(s, " ", "_")), "")
	if len(s) > 64 {
		s = s[:64]
	}
	if s == "" {
		return "email"
	}
	return s
}

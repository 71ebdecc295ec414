package email

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
)

const TemplateSubscriptionCancelFailed = "subscription_cancel_failed"

var ErrRecipientRequired = errors.New("email_recipient_required")

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Render executes the named template and resolves its subject line.
func Render(templateName string, data map[string]any) (string, string, error) {
	var body bytes.Buffer
	if err := templates.ExecuteTemplate(&body, templateName+".html", data); err != nil {
		return "", "", fmt.Errorf("render %s: %w", templateName, err)
	}
	return subjectFor(templateName, data), body.String(), nil
}

func subjectFor(templateName string, data map[string]any) string {
	if subj, ok := data["subject"].(string); ok && subj != "" {
		return subj
	}
	site, _ := data["site_name"].(string)
	if site == "" {
		site = "Membership"
	}
	switch templateName {
	case TemplateSubscriptionCancelFailed:
		return fmt.Sprintf("[%s] Subscription cancellation failed", site)
	default:
		return fmt.Sprintf("Notification from %s", site)
	}
}

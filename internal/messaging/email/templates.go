package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

const subjectCheckInReceipt = "Thanks for stopping by"

type baseEmailData struct {
	Title    string
	Heading  string
	CTALabel string
	CTAURL   string
}

type checkInReceiptEmailData struct {
	baseEmailData
	VisitorName  string
	SessionTitle string
	Address      string
}

// FollowUpData is the context available to follow-up touchpoint templates.
type FollowUpData struct {
	baseEmailData
	VisitorName   string
	AgentName     string
	SessionTitle  string
	Address       string
	Body          template.HTML
	TrackingPixel template.URL
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}

// RenderFollowUp renders the follow-up wrapper around a touchpoint body,
// injecting the open-tracking pixel and the click-wrapped CTA link.
func RenderFollowUp(visitorName, agentName, sessionTitle, address, body, ctaURL, pixelURL string) (string, error) {
	return renderEmailTemplate("followup.html", FollowUpData{
		baseEmailData: baseEmailData{
			Title:    sessionTitle,
			Heading:  sessionTitle,
			CTALabel: "View the listing",
			CTAURL:   ctaURL,
		},
		VisitorName:   visitorName,
		AgentName:     agentName,
		SessionTitle:  sessionTitle,
		Address:       address,
		Body:          template.HTML(body), //nolint:gosec // body is rendered from trusted templates
		TrackingPixel: template.URL(pixelURL),
	})
}

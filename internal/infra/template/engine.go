package template

import (
	"bytes"
	"fmt"
	"text/template"

	"pushfan/internal/domain/dispatch"
)

var _ dispatch.TemplateRenderer = (*Engine)(nil)

// pushTemplate holds the title and body templates for one notification type.
// Push payloads are short plain text, so both are inline rather than files.
type pushTemplate struct {
	Title string
	Body  string
}

// registry maps notification types to their templates.
var registry = map[string]pushTemplate{
	"order_shipped":      {Title: "Your order is on its way", Body: "Order {{.OrderID}} shipped{{if .Carrier}} via {{.Carrier}}{{end}}."},
	"order_delivered":    {Title: "Your order has arrived", Body: "Order {{.OrderID}} was delivered."},
	"new_message":        {Title: "New message{{if .Sender}} from {{.Sender}}{{end}}", Body: "{{.Preview}}"},
	"friend_request":     {Title: "New friend request", Body: "{{.Sender}} wants to connect with you."},
	"payment_received":   {Title: "Payment received", Body: "We received your payment of {{.Amount}}."},
	"security_alert":     {Title: "Security alert", Body: "A new sign-in to your account{{if .Location}} from {{.Location}}{{end}} was detected."},
	"reminder":           {Title: "Reminder", Body: "{{.Text}}"},
	"promo_announcement": {Title: "{{.Headline}}", Body: "{{.Text}}"},
}

// Engine renders push notification titles and bodies using Go's
// text/template package.
type Engine struct {
	templates map[string]*renderedPair
}

type renderedPair struct {
	title *template.Template
	body  *template.Template
}

// NewEngine parses all registered templates up front so a bad template is a
// startup failure, not a per-request one.
func NewEngine() (*Engine, error) {
	parsed := make(map[string]*renderedPair, len(registry))
	for name, tmpl := range registry {
		title, err := template.New(name + ":title").Option("missingkey=zero").Parse(tmpl.Title)
		if err != nil {
			return nil, fmt.Errorf("parsing title template %s: %w", name, err)
		}
		body, err := template.New(name + ":body").Option("missingkey=zero").Parse(tmpl.Body)
		if err != nil {
			return nil, fmt.Errorf("parsing body template %s: %w", name, err)
		}
		parsed[name] = &renderedPair{title: title, body: body}
	}
	return &Engine{templates: parsed}, nil
}

// Render produces a title and body for the given notification type.
func (e *Engine) Render(notifType string, data map[string]any) (string, string, error) {
	pair, ok := e.templates[notifType]
	if !ok {
		return "", "", fmt.Errorf("no template registered for type: %s", notifType)
	}

	var titleBuf bytes.Buffer
	if err := pair.title.Execute(&titleBuf, data); err != nil {
		return "", "", fmt.Errorf("executing title template %s: %w", notifType, err)
	}

	var bodyBuf bytes.Buffer
	if err := pair.body.Execute(&bodyBuf, data); err != nil {
		return "", "", fmt.Errorf("executing body template %s: %w", notifType, err)
	}

	return titleBuf.String(), bodyBuf.String(), nil
}

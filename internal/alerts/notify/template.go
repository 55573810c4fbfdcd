package notify

import (
	"bytes"
	"errors"
	"text/template"
)

const DefaultTemplate = `[Fire Alert {{.EventLabel}}]
Alert: {{.AlertID}}
Site: {{.Tenant}}
Address: {{.Address}}
Station: {{.Station}}
Danger Level: {{.DangerLevel}}
Current Status: {{.Status}}
Response Window: {{.ResponseWindow}}
Suggestion: {{.Suggestion}}`

// TemplateData provides fields for rendering notification content.
type TemplateData struct {
	Event          string
	EventLabel     string
	AlertID        string
	DeviceID       string
	Tenant         string
	Address        string
	Station        string
	StationID      string
	DangerLevel    string
	Status         string
	StatusCode     string
	ResponseWindow string
	Suggestion     string
}

// Template renders notification content.
type Template struct {
	tpl *template.Template
}

// NewTemplate parses a notification template, falling back to DefaultTemplate.
func NewTemplate(tpl string) (*Template, error) {
	if tpl == "" {
		tpl = DefaultTemplate
	}
	parsed, err := template.New("alert-notification").Parse(tpl)
	if err != nil {
		return nil, err
	}
	return &Template{tpl: parsed}, nil
}

// Render applies the template to data.
func (t *Template) Render(data TemplateData) (string, error) {
	if t == nil || t.tpl == nil {
		return "", errors.New("alert template: nil")
	}
	var buf bytes.Buffer
	if err := t.tpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

package notify

import (
	"bytes"
	"errors"
	"text/template"
)

const DefaultDiscrepancyTemplate = `[Tank Reconciliation {{.Verdict}}]
Shift: {{.ShiftID}}
Tank: {{.TankID}}
Variance: {{.VarianceLiters}} L ({{.VariancePercent}}%)
Source: {{.DataSource}}
{{ if not .Complete }}Note: one or more nozzles were excluded from the total
{{ end }}`

const DefaultShortageTemplate = `[Cash Shortage]
Shift: {{.ShiftID}}
Attendant: {{.AttendantID}}
Difference: {{.Difference}}`

// TemplateData provides fields for rendering alert content. Reconciliation
// alerts and shortage alerts share the type; unused fields render empty.
type TemplateData struct {
	ShiftID         string
	TankID          string
	Verdict         string
	VarianceLiters  string
	VariancePercent string
	DataSource      string
	Complete        bool
	AttendantID     string
	Difference      string
}

// Template renders alert content.
type Template struct {
	tpl *template.Template
}

// NewTemplate parses an alert template.
func NewTemplate(name, tpl string) (*Template, error) {
	parsed, err := template.New(name).Parse(tpl)
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

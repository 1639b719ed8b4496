// Package tmpl provides template rendering utilities for chat messages.
package tmpl

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"
)

var funcs = template.FuncMap{
	"trim":  strings.TrimSpace,
	"upper": strings.ToUpper,
	"lower": strings.ToLower,
	"date":  formatDate,
	"default": func(def, s string) string {
		if strings.TrimSpace(s) == "" {
			return def
		}
		return s
	},
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04 MST")
}

// Template is a parsed message template.
type Template struct {
	t *template.Template
}

// Parse compiles a template string. Templates reject references to
// undefined map keys at execution time.
//
// Available template functions:
//   - trim, upper, lower: string helpers
//   - date: format a time.Time as "2006-01-02 15:04 UTC"
//   - default: return the first argument when the second is blank
func Parse(name, text string) (*Template, error) {
	t, err := template.New(name).Funcs(funcs).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	return &Template{t: t}, nil
}

// Execute renders the template with data.
func (t *Template) Execute(data any) (string, error) {
	var buf bytes.Buffer
	if err := t.t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}
	return buf.String(), nil
}

// Render parses and executes a template string in one step.
func Render(text string, data any) (string, error) {
	t, err := Parse("", text)
	if err != nil {
		return "", err
	}
	return t.Execute(data)
}

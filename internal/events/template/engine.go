// Package template renders invitation messages. Template identifiers are
// derived from the guest's salutation and contact identity; the bodies
// themselves are embedded in the binary.
package template

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	texttemplate "text/template"

	"github.com/opentdc/events/internal/events/domain"
)

// DefaultIdentity is used when a record names no contact.
const DefaultIdentity = "default"

// Renderer turns a named template and a data context into message text.
type Renderer interface {
	Render(name string, data any) (string, error)
}

// Name returns the template identifier for a salutation/contact pair:
// <salutation-prefix>_<identity>, with an empty contact mapping to the
// default identity. The switch is exhaustive over the salutation enum; an
// unknown value is a programming error, not a runtime condition.
func Name(salutation domain.Salutation, contact string) string {
	identity := strings.ToLower(strings.TrimSpace(contact))
	if identity == "" {
		identity = DefaultIdentity
	}

	var prefix string
	switch salutation {
	case domain.SalutationFormalMale:
		prefix = "formal_male"
	case domain.SalutationFormalFemale:
		prefix = "formal_female"
	case domain.SalutationInformalFemale:
		prefix = "informal_female"
	case domain.SalutationInformalMale:
		prefix = "informal_male"
	default:
		panic(fmt.Sprintf("template: unknown salutation %q", salutation))
	}
	return prefix + "_" + identity
}

//go:embed templates/*.tmpl
var templatesFS embed.FS

// Engine renders messages from the embedded template set.
type Engine struct {
	templates *texttemplate.Template
}

// NewEngine parses the embedded templates and verifies that every
// salutation has at least its default-identity variant, so a record
// without a contact can always be rendered.
func NewEngine() (*Engine, error) {
	t, err := texttemplate.ParseFS(templatesFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("template: parse embedded templates: %w", err)
	}

	for _, s := range []domain.Salutation{
		domain.SalutationFormalMale,
		domain.SalutationFormalFemale,
		domain.SalutationInformalFemale,
		domain.SalutationInformalMale,
	} {
		name := Name(s, "")
		if t.Lookup(name+".tmpl") == nil {
			return nil, fmt.Errorf("template: missing default template %s", name)
		}
	}

	return &Engine{templates: t}, nil
}

// Render executes the named template against data.
func (e *Engine) Render(name string, data any) (string, error) {
	tmpl := e.templates.Lookup(name + ".tmpl")
	if tmpl == nil {
		return "", fmt.Errorf("template: unknown template %s", name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("template: render %s: %w", name, err)
	}
	return buf.String(), nil
}

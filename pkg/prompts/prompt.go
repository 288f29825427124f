package prompts

import (
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/cockroachdb/errors"
)

// Template is a named text/template with sprig functions.
// Missing keys are reported as errors.
type Template struct {
	name string
	tmpl *template.Template
}

// New parses a prompt template
func New(name, text string) (*Template, error) {
	tmpl, err := template.New(name).
		Funcs(sprig.TxtFuncMap()).
		Option("missingkey=error").
		Parse(text)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse prompt %q", name)
	}
	return &Template{name: name, tmpl: tmpl}, nil
}

// Must panics if the template failed to parse,
// use it for package level templates.
func Must(t *Template, err error) *Template {
	if err != nil {
		panic(err)
	}
	return t
}

// Name returns the template name
func (t *Template) Name() string {
	return t.name
}

// Format renders the template with the data
func (t *Template) Format(data any) (string, error) {
	var buf strings.Builder
	if err := t.tmpl.Execute(&buf, data); err != nil {
		return "", errors.Wrapf(err, "failed to render prompt %q", t.name)
	}
	return buf.String(), nil
}

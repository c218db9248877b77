package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"

	"github.com/kjstillabower/contact-form-service/internal/contact"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*.js
var staticFS embed.FS

// ScriptPath is where the page expects the keystroke validation script to be served.
const ScriptPath = "/static/form.js"

// fieldSpec describes how one contact field is rendered.
type fieldSpec struct {
	Field       contact.Field
	Label       string
	Placeholder string
	Type        string
	Required    bool
	Multiline   bool
}

// fieldSpecs lists the inputs in display order. Placeholders are part of the markup contract.
var fieldSpecs = []fieldSpec{
	{Field: contact.FieldFirstName, Label: "First Name", Placeholder: "Edd", Type: "text", Required: true},
	{Field: contact.FieldLastName, Label: "Last Name", Placeholder: "Burke", Type: "text", Required: true},
	{Field: contact.FieldEmail, Label: "Email", Placeholder: "bluebill1049@hotmail.com", Type: "email", Required: true},
	{Field: contact.FieldMessage, Label: "Message", Multiline: true},
}

type fieldData struct {
	Name        string
	Label       string
	Placeholder string
	Type        string
	Value       string
	Error       string
	Required    bool
	Multiline   bool
}

type summaryData struct {
	FirstName string
	LastName  string
	Email     string
	Message   string
}

type pageData struct {
	Submitted bool
	Script    string
	Fields    []fieldData
	Summary   summaryData
}

// Renderer renders contact forms to HTML. Safe for concurrent use.
type Renderer struct {
	tmpl *template.Template
}

// New parses the embedded templates.
func New() (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// StaticHandler serves the embedded browser assets. Mount it under /static/
// with the prefix stripped.
func StaticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(fmt.Sprintf("static assets: %v", err))
	}
	return http.FileServer(http.FS(sub))
}

// Page renders the full document: the field set while editing, the summary once submitted.
func (r *Renderer) Page(w io.Writer, form *contact.Form) error {
	data := pageData{Submitted: form.Submitted, Script: ScriptPath}
	if form.Submitted {
		data.Summary = summaryData(form.Summary())
	} else {
		data.Fields = make([]fieldData, 0, len(fieldSpecs))
		for _, spec := range fieldSpecs {
			data.Fields = append(data.Fields, newFieldData(spec, form))
		}
	}
	return r.tmpl.ExecuteTemplate(w, "page", data)
}

// FieldError renders only the error slot of field, for partial updates after a keystroke.
func (r *Renderer) FieldError(w io.Writer, form *contact.Form, field contact.Field) error {
	for _, spec := range fieldSpecs {
		if spec.Field == field {
			return r.tmpl.ExecuteTemplate(w, "field-error", newFieldData(spec, form))
		}
	}
	return contact.ErrUnknownField
}

func newFieldData(spec fieldSpec, form *contact.Form) fieldData {
	return fieldData{
		Name:        string(spec.Field),
		Label:       spec.Label,
		Placeholder: spec.Placeholder,
		Type:        spec.Type,
		Value:       form.State.Value(spec.Field),
		Error:       form.Error(spec.Field),
		Required:    spec.Required,
		Multiline:   spec.Multiline,
	}
}

package contact

import (
	"errors"
	"time"
)

// Field names a ContactForm input. Values match the input names in the rendered markup.
type Field string

const (
	FieldFirstName Field = "firstName"
	FieldLastName  Field = "lastName"
	FieldEmail     Field = "email"
	FieldMessage   Field = "message"
)

// validatedFields lists the fields with a rule, in display order.
var validatedFields = []Field{FieldFirstName, FieldLastName, FieldEmail}

// ParseField maps a raw field name to a Field.
func ParseField(s string) (Field, error) {
	switch f := Field(s); f {
	case FieldFirstName, FieldLastName, FieldEmail, FieldMessage:
		return f, nil
	}
	return "", ErrUnknownField
}

// ErrAlreadySubmitted is returned by Change once the form has been submitted.
var ErrAlreadySubmitted = errors.New("form already submitted")

// FormState holds the current value of every field.
type FormState struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Message   string `json:"message"`
}

// Value returns the current value for field.
func (s FormState) Value(field Field) string {
	switch field {
	case FieldFirstName:
		return s.FirstName
	case FieldLastName:
		return s.LastName
	case FieldEmail:
		return s.Email
	case FieldMessage:
		return s.Message
	}
	return ""
}

func (s *FormState) set(field Field, value string) {
	switch field {
	case FieldFirstName:
		s.FirstName = value
	case FieldLastName:
		s.LastName = value
	case FieldEmail:
		s.Email = value
	case FieldMessage:
		s.Message = value
	}
}

// Errors maps a field to its current validation message. A field is present only while it fails.
type Errors map[Field]string

// FieldError pairs a failing field with its message.
type FieldError struct {
	Field   Field
	Message string
}

// Form is one contact form: field values, current errors and the submitted flag.
// Zero value is not usable; call New.
type Form struct {
	State       FormState `json:"state"`
	Errors      Errors    `json:"errors,omitempty"`
	Submitted   bool      `json:"submitted"`
	SubmittedAt time.Time `json:"submittedAt,omitempty"`
}

// New returns an empty, unsubmitted form with no errors.
func New() *Form {
	return &Form{Errors: make(Errors)}
}

// Change records a new value for field and re-runs that field's rule only.
func (f *Form) Change(field Field, value string) error {
	if f.Submitted {
		return ErrAlreadySubmitted
	}
	err := ValidateField(field, value)
	if errors.Is(err, ErrUnknownField) {
		return err
	}
	f.State.set(field, value)
	f.setError(field, err)
	return nil
}

func (f *Form) setError(field Field, err error) {
	if f.Errors == nil {
		f.Errors = make(Errors)
	}
	if err == nil {
		delete(f.Errors, field)
		return
	}
	f.Errors[field] = err.Error()
}

// Submit re-validates every field. When all pass the form becomes submitted and
// Submit returns true; otherwise Errors holds every failing field and the flag stays false.
// Submitting an already submitted form is a no-op that returns true.
func (f *Form) Submit(now time.Time) bool {
	if f.Submitted {
		return true
	}
	for _, field := range validatedFields {
		f.setError(field, ValidateField(field, f.State.Value(field)))
	}
	if len(f.Errors) > 0 {
		return false
	}
	f.Submitted = true
	f.SubmittedAt = now
	return true
}

// ErrorList returns the failing fields in display order: firstName, lastName, email.
func (f *Form) ErrorList() []FieldError {
	var out []FieldError
	for _, field := range validatedFields {
		if msg, ok := f.Errors[field]; ok {
			out = append(out, FieldError{Field: field, Message: msg})
		}
	}
	return out
}

// Error returns the current message for field, or "" when it passes.
func (f *Form) Error(field Field) string {
	return f.Errors[field]
}

// Summary returns the submitted values. Only meaningful when Submitted is true.
func (f *Form) Summary() FormState {
	return f.State
}

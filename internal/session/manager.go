package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kjstillabower/contact-form-service/internal/contact"
	"github.com/kjstillabower/contact-form-service/internal/observability"
)

// Manager loads, mutates and saves the contact form of a session. Events for one
// session id run one at a time, to completion, in arrival order.
type Manager struct {
	store Store
	ttl   time.Duration
	locks *sessionLocks
	now   func() time.Time
}

// NewManager returns a Manager backed by store. ttl is how long an idle session's form is kept.
func NewManager(store Store, ttl time.Duration) *Manager {
	return &Manager{
		store: store,
		ttl:   ttl,
		locks: newSessionLocks(),
		now:   time.Now,
	}
}

// NewID returns a fresh random session id.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id looks like a session id issued by NewID.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// loggerFromContext extracts the request-scoped zap.Logger if present.
func loggerFromContext(ctx context.Context) *zap.Logger {
	if v := ctx.Value("logger"); v != nil {
		if l, ok := v.(*zap.Logger); ok && l != nil {
			return l
		}
	}
	return zap.NewNop()
}

// Load returns the form for id, or a new empty form if the session has none.
func (m *Manager) Load(ctx context.Context, id string) (*contact.Form, error) {
	form, ok, err := m.store.Get(ctx, id)
	if err != nil {
		observability.SessionStoreErrorsTotal.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !ok {
		return contact.New(), nil
	}
	return &form, nil
}

// Change applies one field-change event to the session's form and saves it.
// The returned form reflects the state after the event, or the unchanged state
// when the event was rejected (contact.ErrUnknownField, contact.ErrAlreadySubmitted).
func (m *Manager) Change(ctx context.Context, id string, field contact.Field, value string) (*contact.Form, error) {
	logger := loggerFromContext(ctx)
	form, err := m.update(ctx, id, func(f *contact.Form) error {
		return f.Change(field, value)
	})
	if err != nil {
		return form, err
	}
	observability.FieldChangesTotal.WithLabelValues(string(field)).Inc()
	if msg := form.Error(field); msg != "" {
		observability.ValidationFailuresTotal.WithLabelValues(string(field)).Inc()
	}
	logger.Debug("field changed", zap.String("field", string(field)), zap.Bool("valid", form.Error(field) == ""))
	return form, nil
}

// Submit applies a submit event. values, when non-empty, are applied as field
// changes first (a plain form post carries every input). ok reports whether
// the form is now submitted.
func (m *Manager) Submit(ctx context.Context, id string, values map[contact.Field]string) (form *contact.Form, ok bool, err error) {
	logger := loggerFromContext(ctx)
	form, err = m.update(ctx, id, func(f *contact.Form) error {
		if !f.Submitted {
			for _, field := range []contact.Field{contact.FieldFirstName, contact.FieldLastName, contact.FieldEmail, contact.FieldMessage} {
				if v, present := values[field]; present {
					if err := f.Change(field, v); err != nil {
						return err
					}
				}
			}
		}
		ok = f.Submit(m.now())
		return nil
	})
	if err != nil {
		return form, false, err
	}
	if ok {
		observability.SubmissionsTotal.WithLabelValues("accepted").Inc()
		logger.Info("contact form submitted", zap.Time("submitted_at", form.SubmittedAt))
		return form, true, nil
	}
	observability.SubmissionsTotal.WithLabelValues("rejected").Inc()
	failing := form.ErrorList()
	for _, fe := range failing {
		observability.ValidationFailuresTotal.WithLabelValues(string(fe.Field)).Inc()
	}
	logger.Info("contact form submit rejected", zap.Int("failing_fields", len(failing)))
	return form, false, nil
}

// update runs fn against the session's form under the session lock and saves
// the result when fn succeeds.
func (m *Manager) update(ctx context.Context, id string, fn func(*contact.Form) error) (*contact.Form, error) {
	release, err := m.locks.Acquire(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("acquire session: %w", err)
	}
	defer release()

	form, err := m.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(form); err != nil {
		return form, err
	}
	if err := m.store.Set(ctx, id, *form, m.ttl); err != nil {
		observability.SessionStoreErrorsTotal.WithLabelValues("set").Inc()
		loggerFromContext(ctx).Warn("session save failed", zap.Error(err))
		return nil, fmt.Errorf("save session: %w", err)
	}
	return form, nil
}

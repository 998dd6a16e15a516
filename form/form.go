package form

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tbxark/hrdesk/patch"
	"github.com/tbxark/hrdesk/types"
)

// Completion receives the validated values of a submission.
type Completion func(ctx context.Context, values types.Values) error

type options struct {
	initial    types.Values
	locked     bool
	validators map[string]types.Validator
	logger     *slog.Logger
}

type Option func(*options)

// WithInitialValues seeds the form. Supplied values win over defaults field by field.
func WithInitialValues(values types.Values) Option {
	return func(o *options) {
		o.initial = values
	}
}

// WithLocked creates the form read-only. Callers use it to freeze a submitted form.
func WithLocked() Option {
	return func(o *options) {
		o.locked = true
	}
}

// WithValidators attaches extra rules by field name. They take precedence over
// validators carried on the field descriptions.
func WithValidators(validators map[string]types.Validator) Option {
	return func(o *options) {
		o.validators = validators
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Form holds the live state of one rendered form.
type Form struct {
	mu         sync.Mutex
	spec       types.FormSpec
	values     types.Values
	errors     types.FieldErrors
	phase      types.Phase
	validators map[string]types.Validator
	logger     *slog.Logger
}

func New(spec types.FormSpec, opts ...Option) *Form {
	o := options{}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	spec, _ = normalize(spec)

	f := &Form{
		spec:       spec,
		values:     InitialValues(spec, o.initial),
		errors:     types.FieldErrors{},
		phase:      types.PhaseEditable,
		validators: make(map[string]types.Validator),
		logger:     o.logger.With("form", spec.Title),
	}
	for _, field := range spec.Fields {
		if field.Validation != nil {
			f.validators[field.Name] = field.Validation
		}
	}
	for name, v := range o.validators {
		if v != nil {
			f.validators[name] = v
		}
	}

	if len(o.initial) == 0 && len(spec.Prefill) > 0 {
		if err := f.prefill(spec.Prefill); err != nil {
			f.logger.Warn("prefill rejected", "error", err)
		}
	}
	if o.locked {
		f.phase = types.PhaseLocked
	}
	return f
}

func (f *Form) prefill(suggested map[string]any) error {
	target := f.Values()
	for _, field := range f.spec.Fields {
		if v, ok := suggested[field.Name]; ok {
			target[field.Name] = coerce(field.Type, v)
		}
	}
	ops := patch.Diff(f.Values(), target)
	if len(ops) == 0 {
		return nil
	}
	return f.ApplyPatch(ops)
}

func (f *Form) Spec() types.FormSpec {
	return f.spec
}

func (f *Form) Values() types.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values.Clone()
}

func (f *Form) Errors() types.FieldErrors {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(types.FieldErrors, len(f.errors))
	for k, v := range f.errors {
		out[k] = v
	}
	return out
}

func (f *Form) Phase() types.Phase {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.phase
}

func (f *Form) Locked() bool {
	return f.Phase() == types.PhaseLocked
}

func (f *Form) Submitting() bool {
	return f.Phase() == types.PhaseSubmitting
}

// SetField records an edit. Checkbox fields toggle and ignore raw; every other
// type stores raw as text. The field's error is cleared.
func (f *Form) SetField(name string, raw any) error {
	field, ok := f.spec.Field(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.phase == types.PhaseLocked {
		return ErrLocked
	}
	if field.Type == types.FieldCheckbox {
		current, _ := f.values[name].(bool)
		f.values[name] = !current
	} else {
		f.values[name] = coerce(field.Type, raw)
	}
	delete(f.errors, name)
	return nil
}

// Validate checks every field and stores the resulting errors. A locked form
// is reported invalid without checking anything.
func (f *Form) Validate() (types.FieldErrors, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.phase == types.PhaseLocked {
		return nil, false
	}
	errs := f.validateLocked()
	f.errors = errs
	out := make(types.FieldErrors, len(errs))
	for k, v := range errs {
		out[k] = v
	}
	return out, len(errs) == 0
}

func (f *Form) validateLocked() types.FieldErrors {
	errs := types.FieldErrors{}
	for _, field := range f.spec.Fields {
		if msg := checkField(field, f.values[field.Name], f.validators[field.Name]); msg != "" {
			errs[field.Name] = msg
		}
	}
	return errs
}

// Submit validates the form and, when every field passes, hands a copy of the
// values to complete. The form is back to editable once complete returns,
// whatever its outcome. Locking a submitted form is left to the caller.
func (f *Form) Submit(ctx context.Context, complete Completion) error {
	f.mu.Lock()
	switch f.phase {
	case types.PhaseLocked:
		f.mu.Unlock()
		return ErrLocked
	case types.PhaseSubmitting:
		f.mu.Unlock()
		return ErrSubmitting
	}
	errs := f.validateLocked()
	f.errors = errs
	if len(errs) > 0 {
		out := make(types.FieldErrors, len(errs))
		for k, v := range errs {
			out[k] = v
		}
		f.mu.Unlock()
		f.logger.Debug("submission rejected", "errors", len(out))
		return &ValidationError{Errors: out}
	}
	f.phase = types.PhaseSubmitting
	values := f.values.Clone()
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		if f.phase == types.PhaseSubmitting {
			f.phase = types.PhaseEditable
		}
		f.mu.Unlock()
	}()

	f.logger.Debug("submitting form", "fields", len(values))
	if complete == nil {
		return nil
	}
	if err := complete(ctx, values); err != nil {
		return fmt.Errorf("complete submission: %w", err)
	}
	return nil
}

// ApplyPatch applies RFC 6902 operations to the values as one batch. Paths
// must name a field. A checkbox only changes when the patched value differs
// from the current one. Nothing is applied when any operation is rejected.
func (f *Form) ApplyPatch(ops []patch.Operation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.phase == types.PhaseLocked {
		return ErrLocked
	}
	if len(ops) == 0 {
		return nil
	}
	names := make([]string, 0, len(f.spec.Fields))
	for _, field := range f.spec.Fields {
		names = append(names, field.Name)
	}
	patched, err := patch.Apply(f.values, ops, patch.FieldPaths(names...))
	if err != nil {
		return fmt.Errorf("apply patch: %w", err)
	}
	for _, field := range f.spec.Fields {
		next := zeroValue(field.Type)
		if v, ok := patched[field.Name]; ok {
			next = coerce(field.Type, v)
		}
		if next == f.values[field.Name] {
			continue
		}
		f.values[field.Name] = next
		delete(f.errors, field.Name)
	}
	return nil
}

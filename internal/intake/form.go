package intake

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"precisionworks/internal/domain"
	"precisionworks/internal/metrics"
	"precisionworks/internal/notify"
	"precisionworks/internal/records"
)

// FormContainerID is the element the view scrolls to after moving to step two
const FormContainerID = "contact-form-container"

// DefaultResetDelay is how long a submitted form shows its confirmation
const DefaultResetDelay = 5 * time.Second

// Notice texts
const (
	msgFixErrors      = "Please fix the errors in the form"
	msgSubmitted      = "Your request has been submitted successfully!"
	msgSubmitFailed   = "There was an error submitting your request. Please try again."
	msgSubmitInFlight = "Your request is already being submitted"
)

// Timer is a pending callback
type Timer interface {
	Stop() bool
}

// State is a snapshot of a form
type State struct {
	Data         FormData `json:"form_data"`
	Errors       Errors   `json:"errors"`
	Step         Step     `json:"current_step"`
	Submitting   bool     `json:"is_submitting"`
	Submitted    bool     `json:"submitted"`
	SubmissionID uint     `json:"submission_id,omitempty"`
}

// Option configures a Form
type Option func(*Form)

// WithResetDelay sets how long after a successful submit the form re-arms
func WithResetDelay(d time.Duration) Option {
	return func(f *Form) { f.resetDelay = d }
}

// WithNotifier sets where notices go
func WithNotifier(n notify.Notifier) Option {
	return func(f *Form) { f.notifier = n }
}

// WithAfterFunc replaces time.AfterFunc for scheduling the reset
func WithAfterFunc(after func(time.Duration, func()) Timer) Option {
	return func(f *Form) { f.afterFunc = after }
}

// WithOnCreated registers fn to run with each request the form creates
func WithOnCreated(fn func(domain.ContactRequest)) Option {
	return func(f *Form) { f.onCreated = fn }
}

// Form drives the two step contact request form for one visitor
type Form struct {
	store      records.Store[domain.ContactRequest]
	notifier   notify.Notifier
	resetDelay time.Duration
	afterFunc  func(time.Duration, func()) Timer
	onCreated  func(domain.ContactRequest)

	mu    sync.Mutex
	state State
	reset Timer
}

// NewForm creates an empty form that submits to store
func NewForm(store records.Store[domain.ContactRequest], opts ...Option) *Form {
	f := &Form{
		store:      store,
		notifier:   notify.Discard,
		resetDelay: DefaultResetDelay,
		afterFunc: func(d time.Duration, fn func()) Timer {
			return time.AfterFunc(d, fn)
		},
	}
	for _, opt := range opts {
		opt(f)
	}
	f.state = initialState()
	return f
}

func initialState() State {
	return State{
		Data:   DefaultFormData(),
		Errors: Errors{},
		Step:   StepContact,
	}
}

// State returns a snapshot of the form
func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()

	s := f.state
	s.Data.ProductInterest = append(domain.ProductInterest{}, f.state.Data.ProductInterest...)
	s.Errors = make(Errors, len(f.state.Errors))
	for k, v := range f.state.Errors {
		s.Errors[k] = v
	}
	return s
}

// SetField sets a text field and clears any error shown for it. Product
// interest is changed with ToggleProductInterest.
func (f *Form) SetField(field Field, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	d := &f.state.Data
	switch field {
	case FieldName:
		d.Name = value
	case FieldEmail:
		d.Email = value
	case FieldCompany:
		d.Company = value
	case FieldPhone:
		d.Phone = value
	case FieldRequestType:
		d.RequestType = domain.RequestType(value)
	case FieldMessage:
		d.Message = value
	case FieldDeadline:
		d.Deadline = value
	default:
		return fmt.Errorf("field %q cannot be set directly", field)
	}

	delete(f.state.Errors, field)
	return nil
}

// ToggleProductInterest adds tag when included is true and removes it otherwise
func (f *Form) ToggleProductInterest(tag string, included bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if included {
		f.state.Data.ProductInterest = f.state.Data.ProductInterest.With(tag)
	} else {
		f.state.Data.ProductInterest = f.state.Data.ProductInterest.Without(tag)
	}
}

// Advance moves to the details step if the contact step is valid. It reports
// whether the step changed; the view then scrolls to FormContainerID.
func (f *Form) Advance() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	errs := ValidateStep(f.state.Data, StepContact)
	f.state.Errors = errs
	if len(errs) > 0 {
		metrics.RecordValidationFailure(int(StepContact))
		return false
	}

	f.state.Step = StepDetails
	return true
}

// Retreat goes back to the contact step
func (f *Form) Retreat() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.Step = StepContact
}

// Submit validates the details step and creates the contact request. The
// returned notice is also sent to the form's notifier.
func (f *Form) Submit(ctx context.Context) notify.Notice {
	n := f.submit(ctx)
	if !n.IsZero() {
		f.notifier.Notify(n)
	}
	return n
}

func (f *Form) submit(ctx context.Context) notify.Notice {
	f.mu.Lock()
	if f.state.Submitting {
		f.mu.Unlock()
		return notify.Failure(msgSubmitInFlight)
	}

	// Clients can reach submit without advancing, or edit contact fields
	// after advancing; nothing is created unless both steps hold.
	if errs := ValidateStep(f.state.Data, StepContact); len(errs) > 0 {
		f.state.Errors = errs
		f.state.Step = StepContact
		f.mu.Unlock()
		metrics.RecordValidationFailure(int(StepContact))
		return notify.Failure(msgFixErrors)
	}
	if errs := ValidateStep(f.state.Data, StepDetails); len(errs) > 0 {
		f.state.Errors = errs
		f.mu.Unlock()
		metrics.RecordValidationFailure(int(StepDetails))
		return notify.Failure(msgFixErrors)
	}

	f.state.Errors = Errors{}
	f.state.Submitting = true
	rec := Normalize(f.state.Data)
	f.mu.Unlock()

	log.Printf("[INTAKE] Submit request: email=%s, type=%s, products=%s", rec.Email, rec.RequestType, rec.ProductInterest)
	res, err := f.store.Create(ctx, domain.ContactRequestTable, []domain.ContactRequest{rec})

	f.mu.Lock()
	f.state.Submitting = false

	if err != nil || res == nil || !res.Success || len(res.Results) == 0 {
		f.mu.Unlock()
		if err == nil {
			err = fmt.Errorf("store reported no created record")
		}
		log.Printf("[INTAKE] Submit failed: %v", err)
		return notify.Failure(msgSubmitFailed)
	}

	created := res.Results[0]
	f.state.Submitted = true
	f.state.SubmissionID = created.ID
	if f.reset != nil {
		f.reset.Stop()
	}
	f.reset = f.afterFunc(f.resetDelay, f.rearm)
	f.mu.Unlock()

	log.Printf("[INTAKE] Submit successful: id=%d, email=%s", created.ID, created.Email)
	metrics.RecordContactRequestCreated("form", string(created.RequestType))
	if f.onCreated != nil {
		f.onCreated(created)
	}

	return notify.Success(msgSubmitted)
}

// rearm clears the form for a new request after a successful submit
func (f *Form) rearm() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.state = initialState()
	f.reset = nil
}

// Close cancels a pending reset
func (f *Form) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.reset != nil {
		f.reset.Stop()
		f.reset = nil
	}
}

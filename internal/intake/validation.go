package intake

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"precisionworks/internal/domain"
)

// Field names a form input
type Field string

const (
	FieldName            Field = "name"
	FieldEmail           Field = "email"
	FieldCompany         Field = "company"
	FieldPhone           Field = "phone"
	FieldRequestType     Field = "request_type"
	FieldProductInterest Field = "product_interest"
	FieldMessage         Field = "message"
	FieldDeadline        Field = "deadline"
)

// Step is a page of the form
type Step int

const (
	StepContact Step = 1
	StepDetails Step = 2
)

// Errors maps a field to the message shown next to it
type Errors map[Field]string

// DeadlineLayout is the accepted deadline format
const DeadlineLayout = "2006-01-02"

// MinMessageLength is the shortest accepted message, counted after trimming
const MinMessageLength = 10

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^[0-9+\-() ]{10,15}$`)
)

// FormData is what a visitor has entered so far
type FormData struct {
	Name            string                 `json:"name"`
	Email           string                 `json:"email"`
	Company         string                 `json:"company"`
	Phone           string                 `json:"phone"`
	RequestType     domain.RequestType     `json:"request_type"`
	ProductInterest domain.ProductInterest `json:"product_interest"`
	Message         string                 `json:"message"`
	Deadline        string                 `json:"deadline"`
}

// DefaultFormData returns an empty form
func DefaultFormData() FormData {
	return FormData{
		RequestType:     domain.RequestQuote,
		ProductInterest: domain.ProductInterest{},
	}
}

// ValidateStep checks the fields that belong to step and returns an error per
// invalid field. The result is empty when the step is valid.
func ValidateStep(data FormData, step Step) Errors {
	errs := Errors{}

	switch step {
	case StepContact:
		if strings.TrimSpace(data.Name) == "" {
			errs[FieldName] = "Name is required"
		}

		if strings.TrimSpace(data.Email) == "" {
			errs[FieldEmail] = "Email is required"
		} else if !emailPattern.MatchString(data.Email) {
			errs[FieldEmail] = "Invalid email format"
		}

		if strings.TrimSpace(data.Company) == "" {
			errs[FieldCompany] = "Company name is required"
		}

		if data.Phone != "" && !phonePattern.MatchString(data.Phone) {
			errs[FieldPhone] = "Invalid phone number"
		}

		if !data.RequestType.Valid() {
			errs[FieldRequestType] = "Please choose a request type"
		}

	case StepDetails:
		if len(data.ProductInterest) == 0 {
			errs[FieldProductInterest] = "Please select at least one product interest"
		}

		message := strings.TrimSpace(data.Message)
		if message == "" {
			errs[FieldMessage] = "Please provide details about your request"
		} else if utf8.RuneCountInString(message) < MinMessageLength {
			errs[FieldMessage] = "Message is too short. Please provide more details."
		}

		if d := strings.TrimSpace(data.Deadline); d != "" {
			if _, err := time.Parse(DeadlineLayout, d); err != nil {
				errs[FieldDeadline] = "Deadline must be a date (YYYY-MM-DD)"
			}
		}
	}

	return errs
}

// Validate checks both steps
func Validate(data FormData) Errors {
	errs := ValidateStep(data, StepContact)
	for f, msg := range ValidateStep(data, StepDetails) {
		errs[f] = msg
	}
	return errs
}

// Normalize turns validated form data into a record ready to be created. Text
// is trimmed but otherwise stored as typed, so the email keeps its case. An
// empty phone or deadline is dropped and the status set to new. Data that fails
// Validate yields an undefined record.
func Normalize(data FormData) domain.ContactRequest {
	rec := domain.ContactRequest{
		Name:            strings.TrimSpace(data.Name),
		Email:           strings.TrimSpace(data.Email),
		Company:         strings.TrimSpace(data.Company),
		RequestType:     data.RequestType,
		ProductInterest: append(domain.ProductInterest(nil), data.ProductInterest...),
		Message:         strings.TrimSpace(data.Message),
		Status:          domain.StatusNew,
	}

	if phone := strings.TrimSpace(data.Phone); phone != "" {
		rec.Phone = &phone
	}
	if d, err := time.Parse(DeadlineLayout, strings.TrimSpace(data.Deadline)); err == nil {
		rec.Deadline = &d
	}

	return rec
}

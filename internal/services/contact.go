package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"precisionworks/internal/domain"
	"precisionworks/internal/intake"
	"precisionworks/internal/metrics"
	"precisionworks/internal/records"
)

// SubmitPayload is a complete contact request sent in one call
type SubmitPayload struct {
	Name            string   `json:"name"`
	Email           string   `json:"email"`
	Company         string   `json:"company"`
	Phone           string   `json:"phone"`
	RequestType     string   `json:"request_type"`
	ProductInterest []string `json:"product_interest"`
	Message         string   `json:"message"`
	Deadline        string   `json:"deadline"`
}

// SubmitResult is returned for an accepted contact request
type SubmitResult struct {
	ID      uint   `json:"id"`
	Message string `json:"message"`
}

// ContactService implements the contact service
type ContactService struct {
	store      records.Store[domain.ContactRequest]
	email      *EmailService
	adminEmail string

	pending sync.WaitGroup
}

// NewContactService creates a new contact service. When adminEmail is empty no
// notification is sent.
func NewContactService(store records.Store[domain.ContactRequest], email *EmailService, adminEmail string) *ContactService {
	return &ContactService{
		store:      store,
		email:      email,
		adminEmail: adminEmail,
	}
}

// Submit validates and stores a contact request sent in one call
func (s *ContactService) Submit(ctx context.Context, p *SubmitPayload) (*SubmitResult, error) {
	log.Printf("[CONTACT] Submit request: name=%s, email=%s", strings.TrimSpace(p.Name), strings.TrimSpace(p.Email))

	data := intake.FormData{
		Name:            p.Name,
		Email:           p.Email,
		Company:         p.Company,
		Phone:           p.Phone,
		RequestType:     domain.RequestType(p.RequestType),
		ProductInterest: domain.ProductInterest{},
		Message:         p.Message,
		Deadline:        p.Deadline,
	}
	if data.RequestType == "" {
		data.RequestType = domain.RequestQuote
	}
	for _, tag := range p.ProductInterest {
		if !domain.IsCatalogProduct(tag) {
			log.Printf("[CONTACT] Submit failed: unknown product %q", tag)
			return nil, BadRequest("unknown product interest %q", tag)
		}
		data.ProductInterest = data.ProductInterest.With(tag)
	}

	if errs := intake.ValidateStep(data, intake.StepContact); len(errs) > 0 {
		metrics.RecordValidationFailure(int(intake.StepContact))
		log.Printf("[CONTACT] Submit failed: validation error: %v", errs)
		return nil, BadRequest("%s", describe(errs))
	}
	if errs := intake.ValidateStep(data, intake.StepDetails); len(errs) > 0 {
		metrics.RecordValidationFailure(int(intake.StepDetails))
		log.Printf("[CONTACT] Submit failed: validation error: %v", errs)
		return nil, BadRequest("%s", describe(errs))
	}

	rec := intake.Normalize(data)
	res, err := s.store.Create(ctx, domain.ContactRequestTable, []domain.ContactRequest{rec})
	if err != nil {
		log.Printf("[CONTACT] Submit failed: store error: %v", err)
		return nil, FromAppError(err, "failed to save contact request")
	}
	if !res.Success || len(res.Results) == 0 {
		log.Printf("[CONTACT] Submit failed: store created nothing")
		return nil, Internal("failed to save contact request")
	}

	created := res.Results[0]
	log.Printf("[CONTACT] Submit successful: id=%d, name=%s, email=%s", created.ID, created.Name, created.Email)
	metrics.RecordContactRequestCreated("api", string(created.RequestType))
	s.Notify(created)

	return &SubmitResult{
		ID:      created.ID,
		Message: "Your request has been submitted successfully!",
	}, nil
}

// describe joins field errors in a stable order
func describe(errs intake.Errors) string {
	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, string(f))
	}
	sort.Strings(fields)

	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = fmt.Sprintf("%s: %s", f, errs[intake.Field(f)])
	}
	return strings.Join(parts, "; ")
}

// Get returns one contact request by id (Staff/Admin only)
func (s *ContactService) Get(ctx context.Context, id uint) (*domain.ContactRequest, error) {
	log.Printf("[CONTACT] Get request: id=%d", id)

	res, err := s.store.Fetch(ctx, domain.ContactRequestTable, records.Query{
		Where:      []records.Condition{{Field: domain.FieldID, Operator: records.OpEquals, Value: id}},
		PagingInfo: records.PagingInfo{Limit: 1},
	})
	if err != nil {
		log.Printf("[CONTACT] Get failed: store error: %v", err)
		return nil, FromAppError(err, "failed to fetch contact request")
	}
	if len(res.Data) == 0 {
		log.Printf("[CONTACT] Get failed: id=%d not found", id)
		return nil, NotFound("contact request not found")
	}

	return &res.Data[0], nil
}

// Notify emails staff about a new request in the background. It does nothing
// when no admin address is configured.
func (s *ContactService) Notify(req domain.ContactRequest) {
	if s.adminEmail == "" || s.email == nil {
		log.Printf("[CONTACT] New contact request from %s (%s)", req.Name, req.Email)
		return
	}

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := s.email.SendContactNotification(s.adminEmail, &req); err != nil {
			log.Printf("[CONTACT] Warning: failed to send notification email: %v", err)
			return
		}
		log.Printf("[CONTACT] Notification email sent for request id=%d", req.ID)
	}()
}

// Wait blocks until every notification started so far has finished
func (s *ContactService) Wait() {
	s.pending.Wait()
}

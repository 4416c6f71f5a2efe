// Package recordstest provides an in-memory contact request store for tests.
package recordstest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"precisionworks/internal/domain"
	"precisionworks/internal/records"
)

// ContactStore is an in-memory records.Store for contact requests. It
// understands equality filters on status, ordering by created_at and paging.
// Setting one of the Err fields makes the matching operation fail.
type ContactStore struct {
	mu      sync.Mutex
	rows    []domain.ContactRequest
	nextID  uint
	now     time.Time
	calls   map[string]int
	created []domain.ContactRequest

	CreateErr error
	FetchErr  error
	UpdateErr error
	DeleteErr error

	// Unsuccessful makes every operation return a result with Success false
	Unsuccessful bool
	// OmitTotal leaves FetchResult.Total nil
	OmitTotal bool
	// FetchGate, when set, is called before each fetch returns. Tests use it to
	// hold a fetch open while another one completes.
	FetchGate func(q records.Query)
}

var _ records.Store[domain.ContactRequest] = (*ContactStore)(nil)

// NewContactStore creates an empty store
func NewContactStore() *ContactStore {
	return &ContactStore{
		nextID: 1,
		now:    time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC),
		calls:  make(map[string]int),
	}
}

// Seed stores a request with the given status and returns it. Each seeded
// request is one minute newer than the previous one.
func (s *ContactStore) Seed(status domain.Status) domain.ContactRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := domain.ContactRequest{
		Name:            fmt.Sprintf("Customer %d", s.nextID),
		Email:           fmt.Sprintf("customer%d@example.com", s.nextID),
		Company:         "Acme",
		RequestType:     domain.RequestQuote,
		ProductInterest: domain.ProductInterest{"cnc-components"},
		Message:         "Please quote this part",
		Status:          status,
	}
	return s.insert(r)
}

// Calls returns how many times an operation ("create", "fetch", "update",
// "delete") was invoked
func (s *ContactStore) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// Created returns the records passed to Create, as received
func (s *ContactStore) Created() []domain.ContactRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ContactRequest(nil), s.created...)
}

// Get returns the stored request with id
func (s *ContactStore) Get(id uint) (domain.ContactRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if r.ID == id {
			return r, true
		}
	}
	return domain.ContactRequest{}, false
}

func (s *ContactStore) insert(r domain.ContactRequest) domain.ContactRequest {
	r.ID = s.nextID
	s.nextID++
	s.now = s.now.Add(time.Minute)
	r.CreatedAt = s.now
	r.UpdatedAt = s.now
	s.rows = append(s.rows, r)
	return r
}

func (s *ContactStore) Create(ctx context.Context, table string, recs []domain.ContactRequest) (*records.CreateResult[domain.ContactRequest], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["create"]++
	s.created = append(s.created, recs...)

	if s.CreateErr != nil {
		return nil, s.CreateErr
	}
	if s.Unsuccessful {
		return &records.CreateResult[domain.ContactRequest]{}, nil
	}

	out := make([]domain.ContactRequest, len(recs))
	for i, r := range recs {
		out[i] = s.insert(r)
	}
	return &records.CreateResult[domain.ContactRequest]{Success: len(out) > 0, Results: out}, nil
}

func (s *ContactStore) Fetch(ctx context.Context, table string, q records.Query) (*records.FetchResult[domain.ContactRequest], error) {
	s.mu.Lock()
	s.calls["fetch"]++
	res, err := s.fetch(q)
	gate := s.FetchGate
	s.mu.Unlock()

	if gate != nil {
		gate(q)
	}
	return res, err
}

func (s *ContactStore) fetch(q records.Query) (*records.FetchResult[domain.ContactRequest], error) {
	if s.FetchErr != nil {
		return nil, s.FetchErr
	}

	var matched []domain.ContactRequest
	for _, r := range s.rows {
		if matches(r, q.Where) {
			matched = append(matched, r)
		}
	}
	for _, o := range q.OrderBy {
		if o.Field == domain.FieldCreatedOn {
			desc := o.Direction == records.Descending
			sort.SliceStable(matched, func(i, j int) bool {
				if desc {
					return matched[i].CreatedAt.After(matched[j].CreatedAt)
				}
				return matched[i].CreatedAt.Before(matched[j].CreatedAt)
			})
		}
	}

	total := int64(len(matched))
	start := min(q.PagingInfo.Offset, len(matched))
	end := len(matched)
	if q.PagingInfo.Limit > 0 {
		end = min(start+q.PagingInfo.Limit, len(matched))
	}

	res := &records.FetchResult[domain.ContactRequest]{Data: append([]domain.ContactRequest(nil), matched[start:end]...)}
	if !s.OmitTotal {
		res.Total = &total
	}
	return res, nil
}

func matches(r domain.ContactRequest, where []records.Condition) bool {
	for _, c := range where {
		var field string
		switch c.Field {
		case domain.FieldStatus:
			field = string(r.Status)
		case domain.FieldID:
			field = fmt.Sprint(r.ID)
		default:
			return false
		}
		if c.Operator != records.OpEquals || field != fmt.Sprint(c.Value) {
			return false
		}
	}
	return true
}

func (s *ContactStore) Update(ctx context.Context, table string, changes []records.Change) (*records.UpdateResult[domain.ContactRequest], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["update"]++

	if s.UpdateErr != nil {
		return nil, s.UpdateErr
	}
	if s.Unsuccessful {
		return &records.UpdateResult[domain.ContactRequest]{}, nil
	}

	var out []domain.ContactRequest
	for _, c := range changes {
		i := s.index(c.ID)
		if i < 0 {
			return &records.UpdateResult[domain.ContactRequest]{}, nil
		}
		if status, ok := c.Fields[domain.FieldStatus]; ok {
			s.rows[i].Status = domain.Status(fmt.Sprint(status))
		}
		s.rows[i].UpdatedAt = s.now
		out = append(out, s.rows[i])
	}
	return &records.UpdateResult[domain.ContactRequest]{Success: true, Results: out}, nil
}

func (s *ContactStore) Delete(ctx context.Context, table string, ids []uint) (*records.DeleteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["delete"]++

	if s.DeleteErr != nil {
		return nil, s.DeleteErr
	}
	if s.Unsuccessful {
		return &records.DeleteResult{}, nil
	}

	deleted := false
	for _, id := range ids {
		if i := s.index(id); i >= 0 {
			s.rows = append(s.rows[:i], s.rows[i+1:]...)
			deleted = true
		}
	}
	return &records.DeleteResult{Success: deleted}, nil
}

func (s *ContactStore) index(id uint) int {
	for i, r := range s.rows {
		if r.ID == id {
			return i
		}
	}
	return -1
}

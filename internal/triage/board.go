// Package triage holds the staff view of incoming contact requests: a paged,
// filterable list with status changes and confirmed deletes.
package triage

import (
	"context"
	"fmt"
	"log"
	"sync"

	"precisionworks/internal/domain"
	"precisionworks/internal/metrics"
	"precisionworks/internal/notify"
	"precisionworks/internal/records"
)

// DefaultPageSize is the number of requests per page
const DefaultPageSize = 10

// DeletePrompt is the question put to the Confirmer before a delete
const DeletePrompt = "Are you sure you want to delete this contact request?"

const (
	msgLoadFailed   = "Failed to load contact requests"
	msgUpdateFailed = "Failed to update request status"
	msgDeleted      = "Contact request deleted successfully"
	msgDeleteFailed = "Failed to delete contact request"
)

// Filter selects requests by status. FilterAll selects everything.
type Filter string

const FilterAll Filter = "all"

// ParseFilter accepts "all" or a request status
func ParseFilter(s string) (Filter, error) {
	if s == "" || Filter(s) == FilterAll {
		return FilterAll, nil
	}
	st, err := domain.ParseStatus(s)
	if err != nil {
		return "", err
	}
	return Filter(st), nil
}

func (f Filter) where() []records.Condition {
	if f == FilterAll || f == "" {
		return nil
	}
	return []records.Condition{{Field: domain.FieldStatus, Operator: records.OpEquals, Value: string(f)}}
}

// Confirmer asks the user to confirm a destructive action
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer
type ConfirmFunc func(ctx context.Context, prompt string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool { return f(ctx, prompt) }

var (
	// Confirmed answers yes to everything
	Confirmed Confirmer = ConfirmFunc(func(context.Context, string) bool { return true })
	// Declined answers no to everything
	Declined Confirmer = ConfirmFunc(func(context.Context, string) bool { return false })
)

// View is a snapshot of a board
type View struct {
	Requests     []domain.ContactRequest `json:"requests"`
	Loading      bool                    `json:"loading"`
	CurrentPage  int                     `json:"current_page"`
	PageSize     int                     `json:"page_size"`
	StatusFilter Filter                  `json:"status_filter"`
	TotalPages   int                     `json:"total_pages"`
	HasPrevious  bool                    `json:"has_previous"`
	HasNext      bool                    `json:"has_next"`
}

// Option configures a Board
type Option func(*Board)

// WithPageSize sets the initial page size
func WithPageSize(n int) Option {
	return func(b *Board) {
		if n > 0 {
			b.pageSize = n
		}
	}
}

// WithNotifier sets where notices go
func WithNotifier(n notify.Notifier) Option {
	return func(b *Board) { b.notifier = n }
}

// WithStrictTransitions only allows status moves along domain.CanTransition
func WithStrictTransitions(strict bool) Option {
	return func(b *Board) { b.strict = strict }
}

// Board is one staff member's view of the contact request list
type Board struct {
	store    records.Store[domain.ContactRequest]
	notifier notify.Notifier
	strict   bool

	mu         sync.Mutex
	requests   []domain.ContactRequest
	loading    bool
	page       int
	pageSize   int
	filter     Filter
	totalPages int
	// generation of the latest load; older loads drop their results
	generation uint64
}

// NewBoard creates an empty board on page 1 showing every status. Nothing is
// fetched until Load is called.
func NewBoard(store records.Store[domain.ContactRequest], opts ...Option) *Board {
	b := &Board{
		store:      store,
		notifier:   notify.Discard,
		page:       1,
		pageSize:   DefaultPageSize,
		filter:     FilterAll,
		totalPages: 1,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Snapshot returns the current state of the board
func (b *Board) Snapshot() View {
	b.mu.Lock()
	defer b.mu.Unlock()

	return View{
		Requests:     append([]domain.ContactRequest{}, b.requests...),
		Loading:      b.loading,
		CurrentPage:  b.page,
		PageSize:     b.pageSize,
		StatusFilter: b.filter,
		TotalPages:   b.totalPages,
		HasPrevious:  b.page > 1,
		HasNext:      b.page < b.totalPages,
	}
}

func (b *Board) emit(n notify.Notice) notify.Notice {
	if !n.IsZero() {
		b.notifier.Notify(n)
	}
	return n
}

// Load fetches page of the requests matching filter, newest first. When a
// later load starts before this one returns, this one's result is dropped.
func (b *Board) Load(ctx context.Context, page int, filter Filter) notify.Notice {
	return b.emit(b.load(ctx, page, filter))
}

func (b *Board) load(ctx context.Context, page int, filter Filter) notify.Notice {
	if page < 1 {
		page = 1
	}
	if filter == "" {
		filter = FilterAll
	}

	b.mu.Lock()
	b.generation++
	gen := b.generation
	b.loading = true
	b.page = page
	b.filter = filter
	size := b.pageSize
	b.mu.Unlock()

	q := records.Query{
		OrderBy:    []records.OrderBy{{Field: domain.FieldCreatedOn, Direction: records.Descending}},
		Where:      filter.where(),
		PagingInfo: records.PagingInfo{Limit: size, Offset: (page - 1) * size},
	}
	res, err := b.store.Fetch(ctx, domain.ContactRequestTable, q)

	b.mu.Lock()
	defer b.mu.Unlock()

	if gen != b.generation {
		log.Printf("[TRIAGE] Dropping stale load: page=%d, filter=%s", page, filter)
		metrics.RecordTriageLoad("stale")
		return notify.Notice{}
	}
	b.loading = false

	if err != nil {
		log.Printf("[TRIAGE] Load failed: page=%d, filter=%s, error=%v", page, filter, err)
		metrics.RecordTriageLoad("failure")
		b.requests = nil
		b.totalPages = 1
		return notify.Failure(msgLoadFailed)
	}

	metrics.RecordTriageLoad("success")
	if res == nil || res.Data == nil {
		b.requests = nil
		b.totalPages = 1
		return notify.Notice{}
	}

	b.requests = res.Data
	total := int64(len(res.Data))
	if res.Total != nil {
		total = *res.Total
	}
	b.totalPages = pageCount(total, size)
	return notify.Notice{}
}

func pageCount(total int64, size int) int {
	n := int((total + int64(size) - 1) / int64(size))
	return max(n, 1)
}

// Reload fetches the current page again
func (b *Board) Reload(ctx context.Context) notify.Notice {
	b.mu.Lock()
	page, filter := b.page, b.filter
	b.mu.Unlock()
	return b.Load(ctx, page, filter)
}

// SetFilter switches the status filter and goes back to page 1
func (b *Board) SetFilter(ctx context.Context, filter Filter) notify.Notice {
	return b.Load(ctx, 1, filter)
}

// SetPage moves to page
func (b *Board) SetPage(ctx context.Context, page int) notify.Notice {
	b.mu.Lock()
	filter := b.filter
	b.mu.Unlock()
	return b.Load(ctx, page, filter)
}

// SetPageSize changes how many requests a page holds and goes back to page 1
func (b *Board) SetPageSize(ctx context.Context, size int) notify.Notice {
	if size < 1 {
		return b.emit(notify.Failure(fmt.Sprintf("Invalid page size: %d", size)))
	}

	b.mu.Lock()
	b.pageSize = size
	filter := b.filter
	b.mu.Unlock()
	return b.Load(ctx, 1, filter)
}

// ChangeStatus sets the status of request id. The list entry is only changed
// once the store has accepted the update.
func (b *Board) ChangeStatus(ctx context.Context, id uint, status domain.Status) notify.Notice {
	return b.emit(b.changeStatus(ctx, id, status))
}

func (b *Board) changeStatus(ctx context.Context, id uint, status domain.Status) notify.Notice {
	if !status.Valid() {
		return notify.Failure(fmt.Sprintf("Invalid status: %s", status))
	}

	if b.strict {
		b.mu.Lock()
		i := b.index(id)
		var from domain.Status
		if i >= 0 {
			from = b.requests[i].Status
		}
		b.mu.Unlock()

		if i >= 0 && !domain.CanTransition(from, status) {
			metrics.RecordStatusChange(string(status), false)
			return notify.Failure(fmt.Sprintf("Cannot move a %s request to %s", from, status))
		}
	}

	change := records.Change{ID: id, Fields: map[string]any{domain.FieldStatus: string(status)}}
	res, err := b.store.Update(ctx, domain.ContactRequestTable, []records.Change{change})
	if err != nil || res == nil || !res.Success {
		log.Printf("[TRIAGE] Status update failed: id=%d, status=%s, error=%v", id, status, err)
		metrics.RecordStatusChange(string(status), false)
		return notify.Failure(msgUpdateFailed)
	}

	b.mu.Lock()
	if i := b.index(id); i >= 0 {
		b.requests[i].Status = status
		if len(res.Results) > 0 {
			b.requests[i].UpdatedAt = res.Results[0].UpdatedAt
		}
	}
	b.mu.Unlock()

	log.Printf("[TRIAGE] Status updated: id=%d, status=%s", id, status)
	metrics.RecordStatusChange(string(status), true)
	return notify.Success(fmt.Sprintf("Request status updated to %s", status))
}

// DeleteRequest deletes request id once c confirms. A declined confirmation
// does nothing and returns the zero Notice.
func (b *Board) DeleteRequest(ctx context.Context, id uint, c Confirmer) notify.Notice {
	return b.emit(b.deleteRequest(ctx, id, c))
}

func (b *Board) deleteRequest(ctx context.Context, id uint, c Confirmer) notify.Notice {
	if c == nil || !c.Confirm(ctx, DeletePrompt) {
		metrics.RecordDeletion("declined")
		return notify.Notice{}
	}

	res, err := b.store.Delete(ctx, domain.ContactRequestTable, []uint{id})
	if err != nil || res == nil || !res.Success {
		log.Printf("[TRIAGE] Delete failed: id=%d, error=%v", id, err)
		metrics.RecordDeletion("failure")
		return notify.Failure(msgDeleteFailed)
	}

	b.mu.Lock()
	if i := b.index(id); i >= 0 {
		b.requests = append(b.requests[:i:i], b.requests[i+1:]...)
	}
	b.mu.Unlock()

	log.Printf("[TRIAGE] Deleted request: id=%d", id)
	metrics.RecordDeletion("success")
	return notify.Success(msgDeleted)
}

// index returns the position of id in the loaded page, or -1. Callers hold mu.
func (b *Board) index(id uint) int {
	for i, r := range b.requests {
		if r.ID == id {
			return i
		}
	}
	return -1
}

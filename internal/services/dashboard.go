package services

import (
	"context"
	"fmt"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"

	"precisionworks/internal/domain"
	"precisionworks/internal/records"
)

// RecentLimit is how many of the newest requests the dashboard lists
const RecentLimit = 5

// StatusCounts holds request counts per status
type StatusCounts struct {
	Total      int64 `json:"total"`
	New        int64 `json:"new"`
	InProgress int64 `json:"in_progress"`
	Completed  int64 `json:"completed"`
	Cancelled  int64 `json:"cancelled"`
}

func (c *StatusCounts) set(status domain.Status, n int64) {
	switch status {
	case domain.StatusNew:
		c.New = n
	case domain.StatusInProgress:
		c.InProgress = n
	case domain.StatusCompleted:
		c.Completed = n
	case domain.StatusCancelled:
		c.Cancelled = n
	}
}

// DashboardResult is the staff overview
type DashboardResult struct {
	Stats  StatusCounts            `json:"stats"`
	Recent []domain.ContactRequest `json:"recent_requests"`
}

// DashboardService summarises contact requests for staff
type DashboardService struct {
	store records.Store[domain.ContactRequest]
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(store records.Store[domain.ContactRequest]) *DashboardService {
	return &DashboardService{store: store}
}

// Get counts requests per status and lists the newest ones. The queries run
// concurrently; the first failure cancels the rest.
func (s *DashboardService) Get(ctx context.Context) (*DashboardResult, error) {
	g, ctx := errgroup.WithContext(ctx)

	var (
		mu     sync.Mutex
		res    DashboardResult
		counts = make(map[domain.Status]int64, len(domain.Statuses))
	)

	g.Go(func() error {
		n, err := s.count(ctx, nil)
		if err != nil {
			return err
		}
		mu.Lock()
		res.Stats.Total = n
		mu.Unlock()
		return nil
	})

	for _, status := range domain.Statuses {
		g.Go(func() error {
			where := []records.Condition{{Field: domain.FieldStatus, Operator: records.OpEquals, Value: string(status)}}
			n, err := s.count(ctx, where)
			if err != nil {
				return err
			}
			mu.Lock()
			counts[status] = n
			mu.Unlock()
			return nil
		})
	}

	g.Go(func() error {
		recent, err := s.store.Fetch(ctx, domain.ContactRequestTable, records.Query{
			OrderBy:    []records.OrderBy{{Field: domain.FieldCreatedOn, Direction: records.Descending}},
			PagingInfo: records.PagingInfo{Limit: RecentLimit},
		})
		if err != nil {
			return err
		}
		mu.Lock()
		res.Recent = append([]domain.ContactRequest{}, recent.Data...)
		mu.Unlock()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Printf("[DASHBOARD] Load failed: %v", err)
		return nil, FromAppError(err, "Failed to load dashboard data")
	}

	for status, n := range counts {
		res.Stats.set(status, n)
	}
	return &res, nil
}

// count returns how many requests match where
func (s *DashboardService) count(ctx context.Context, where []records.Condition) (int64, error) {
	res, err := s.store.Fetch(ctx, domain.ContactRequestTable, records.Query{
		Fields:     []string{domain.FieldID},
		Where:      where,
		PagingInfo: records.PagingInfo{Limit: 1},
	})
	if err != nil {
		return 0, err
	}
	if res.Total == nil {
		return 0, fmt.Errorf("store did not report a total")
	}
	return *res.Total, nil
}

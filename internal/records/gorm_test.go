package records_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"precisionworks/internal/config"
	"precisionworks/internal/database"
	"precisionworks/internal/domain"
	"precisionworks/internal/records"
	apperrors "precisionworks/pkg/errors"
)

func newTestStore(t *testing.T) *records.GormStore[domain.ContactRequest] {
	t.Helper()

	db, err := database.Open(config.DatabaseConfig{URL: "sqlite:///:memory:"})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	store, err := records.NewGormStore[domain.ContactRequest](db)
	require.NoError(t, err)
	return store
}

func seed(t *testing.T, store records.Store[domain.ContactRequest], statuses ...domain.Status) []domain.ContactRequest {
	t.Helper()

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	recs := make([]domain.ContactRequest, len(statuses))
	for i, status := range statuses {
		recs[i] = domain.ContactRequest{
			Name:            fmt.Sprintf("Customer %d", i+1),
			Email:           fmt.Sprintf("customer%d@example.com", i+1),
			Company:         "Acme",
			RequestType:     domain.RequestQuote,
			ProductInterest: domain.ProductInterest{"cnc-components"},
			Message:         "Please quote this part",
			Status:          status,
			CreatedAt:       base.Add(time.Duration(i) * time.Minute),
		}
	}

	res, err := store.Create(context.Background(), domain.ContactRequestTable, recs)
	require.NoError(t, err)
	require.True(t, res.Success)
	return res.Results
}

func TestCreateAssignsIDs(t *testing.T) {
	store := newTestStore(t)

	created := seed(t, store, domain.StatusNew, domain.StatusNew)

	require.Len(t, created, 2)
	assert.NotZero(t, created[0].ID)
	assert.NotEqual(t, created[0].ID, created[1].ID)
	assert.False(t, created[0].CreatedAt.IsZero())
}

func TestCreateEmptyIsUnsuccessful(t *testing.T) {
	store := newTestStore(t)

	res, err := store.Create(context.Background(), domain.ContactRequestTable, nil)
	require.NoError(t, err)
	assert.False(t, res.Success)
}

func TestFetchFiltersOrdersAndPages(t *testing.T) {
	store := newTestStore(t)

	statuses := make([]domain.Status, 0, 15)
	for i := 0; i < 12; i++ {
		statuses = append(statuses, domain.StatusNew)
	}
	statuses = append(statuses, domain.StatusCompleted, domain.StatusCompleted, domain.StatusCompleted)
	seed(t, store, statuses...)

	q := records.Query{
		OrderBy:    []records.OrderBy{{Field: domain.FieldCreatedOn, Direction: records.Descending}},
		Where:      []records.Condition{{Field: domain.FieldStatus, Operator: records.OpEquals, Value: domain.StatusNew}},
		PagingInfo: records.PagingInfo{Limit: 10},
	}
	res, err := store.Fetch(context.Background(), domain.ContactRequestTable, q)
	require.NoError(t, err)

	require.Len(t, res.Data, 10)
	require.NotNil(t, res.Total)
	assert.Equal(t, int64(12), *res.Total)
	for _, r := range res.Data {
		assert.Equal(t, domain.StatusNew, r.Status)
	}
	assert.Equal(t, "Customer 12", res.Data[0].Name)
	assert.True(t, res.Data[0].CreatedAt.After(res.Data[9].CreatedAt))
	assert.Equal(t, domain.ProductInterest{"cnc-components"}, res.Data[0].ProductInterest)

	q.PagingInfo.Offset = 10
	res, err = store.Fetch(context.Background(), domain.ContactRequestTable, q)
	require.NoError(t, err)
	assert.Len(t, res.Data, 2)
}

func TestFetchOperators(t *testing.T) {
	store := newTestStore(t)
	seed(t, store, domain.StatusNew, domain.StatusInProgress, domain.StatusCancelled)

	tests := []struct {
		name string
		cond records.Condition
		want int
	}{
		{"not equals", records.Condition{Field: "Status", Operator: records.OpNotEquals, Value: domain.StatusNew}, 2},
		{"in", records.Condition{Field: domain.FieldStatus, Operator: records.OpIn, Value: []domain.Status{domain.StatusNew, domain.StatusCancelled}}, 2},
		{"contains", records.Condition{Field: "name", Operator: records.OpContains, Value: "omer 2"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := store.Fetch(context.Background(), domain.ContactRequestTable, records.Query{Where: []records.Condition{tt.cond}})
			require.NoError(t, err)
			assert.Len(t, res.Data, tt.want)
		})
	}
}

func TestFetchRejectsUnknownFields(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Fetch(context.Background(), domain.ContactRequestTable, records.Query{
		OrderBy: []records.OrderBy{{Field: "created_at; DROP TABLE contact_requests", Direction: records.Descending}},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	_, err = store.Fetch(context.Background(), domain.ContactRequestTable, records.Query{
		Where: []records.Condition{{Field: domain.FieldStatus, Operator: "matches", Value: "new"}},
	})
	assert.True(t, apperrors.IsValidation(err))
}

func TestUpdateChangesStatus(t *testing.T) {
	store := newTestStore(t)
	created := seed(t, store, domain.StatusNew)

	res, err := store.Update(context.Background(), domain.ContactRequestTable, []records.Change{
		{ID: created[0].ID, Fields: map[string]any{domain.FieldStatus: domain.StatusCompleted}},
	})
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Len(t, res.Results, 1)
	assert.Equal(t, domain.StatusCompleted, res.Results[0].Status)
	assert.Equal(t, created[0].Name, res.Results[0].Name)
}

func TestUpdateMissingRecordIsUnsuccessful(t *testing.T) {
	store := newTestStore(t)
	created := seed(t, store, domain.StatusNew)

	res, err := store.Update(context.Background(), domain.ContactRequestTable, []records.Change{
		{ID: created[0].ID, Fields: map[string]any{domain.FieldStatus: domain.StatusCompleted}},
		{ID: 9999, Fields: map[string]any{domain.FieldStatus: domain.StatusCompleted}},
	})
	require.NoError(t, err)
	assert.False(t, res.Success)

	// The first change was rolled back with the second
	page, err := store.Fetch(context.Background(), domain.ContactRequestTable, records.Query{})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNew, page.Data[0].Status)
}

func TestUpdateRejectsPrimaryKey(t *testing.T) {
	store := newTestStore(t)
	created := seed(t, store, domain.StatusNew)

	_, err := store.Update(context.Background(), domain.ContactRequestTable, []records.Change{
		{ID: created[0].ID, Fields: map[string]any{"id": 42}},
	})
	assert.True(t, apperrors.IsValidation(err))
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)
	created := seed(t, store, domain.StatusNew, domain.StatusNew)

	res, err := store.Delete(context.Background(), domain.ContactRequestTable, []uint{created[0].ID})
	require.NoError(t, err)
	assert.True(t, res.Success)

	res, err = store.Delete(context.Background(), domain.ContactRequestTable, []uint{created[0].ID})
	require.NoError(t, err)
	assert.False(t, res.Success)

	page, err := store.Fetch(context.Background(), domain.ContactRequestTable, records.Query{})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, created[1].ID, page.Data[0].ID)
}

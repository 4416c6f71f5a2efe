package records

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"

	"precisionworks/internal/metrics"
	apperrors "precisionworks/pkg/errors"
)

// GormStore is a Store backed by a gorm connection. Field names in queries and
// changes are resolved against the gorm schema of T, so callers may use either
// column names ("created_at") or Go field names ("CreatedAt").
type GormStore[T any] struct {
	db     *gorm.DB
	schema *schema.Schema
	pk     string
}

// NewGormStore creates a store for records of type T
func NewGormStore[T any](db *gorm.DB) (*GormStore[T], error) {
	s, err := schema.Parse(new(T), &sync.Map{}, db.NamingStrategy)
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema of %T: %w", *new(T), err)
	}
	if s.PrioritizedPrimaryField == nil {
		return nil, fmt.Errorf("%s has no primary key", s.Name)
	}
	return &GormStore[T]{db: db, schema: s, pk: s.PrioritizedPrimaryField.DBName}, nil
}

// Create inserts records and returns them with their assigned ids and timestamps
func (s *GormStore[T]) Create(ctx context.Context, table string, records []T) (*CreateResult[T], error) {
	if len(records) == 0 {
		return &CreateResult[T]{}, nil
	}

	start := time.Now()
	err := s.db.WithContext(ctx).Table(table).Create(&records).Error
	metrics.RecordDBQuery("create", time.Since(start), err)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternalError, "failed to create records", err)
	}

	return &CreateResult[T]{Success: true, Results: records}, nil
}

// Fetch returns one page of records matching q along with the size of the
// whole filtered set
func (s *GormStore[T]) Fetch(ctx context.Context, table string, q Query) (*FetchResult[T], error) {
	tx := s.db.WithContext(ctx).Model(new(T)).Table(table)
	for _, cond := range q.Where {
		expr, err := s.condition(cond)
		if err != nil {
			return nil, err
		}
		tx = tx.Where(expr)
	}
	filtered := tx.Session(&gorm.Session{})

	start := time.Now()
	var total int64
	err := filtered.Count(&total).Error
	metrics.RecordDBQuery("count", time.Since(start), err)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternalError, "failed to count records", err)
	}

	page := filtered
	if len(q.Fields) > 0 {
		cols := make([]string, 0, len(q.Fields))
		for _, f := range q.Fields {
			col, err := s.column(f)
			if err != nil {
				return nil, err
			}
			cols = append(cols, col)
		}
		page = page.Select(cols)
	}
	for _, o := range q.OrderBy {
		col, err := s.column(o.Field)
		if err != nil {
			return nil, err
		}
		switch o.Direction {
		case Ascending, Descending, "":
		default:
			return nil, apperrors.Newf(apperrors.ErrCodeValidation, "unknown sort direction %q", o.Direction)
		}
		page = page.Order(clause.OrderByColumn{Column: clause.Column{Name: col}, Desc: o.Direction == Descending})
	}
	if q.PagingInfo.Limit > 0 {
		page = page.Limit(q.PagingInfo.Limit)
	}
	if q.PagingInfo.Offset > 0 {
		page = page.Offset(q.PagingInfo.Offset)
	}

	start = time.Now()
	var data []T
	err = page.Find(&data).Error
	metrics.RecordDBQuery("fetch", time.Since(start), err)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternalError, "failed to fetch records", err)
	}

	return &FetchResult[T]{Data: data, Total: &total}, nil
}

// Update applies every change in one transaction. If any record does not
// exist nothing is written and the result is unsuccessful.
func (s *GormStore[T]) Update(ctx context.Context, table string, changes []Change) (*UpdateResult[T], error) {
	if len(changes) == 0 {
		return &UpdateResult[T]{}, nil
	}

	assignments := make([]map[string]any, len(changes))
	for i, c := range changes {
		fields := make(map[string]any, len(c.Fields))
		for name, value := range c.Fields {
			col, err := s.column(name)
			if err != nil {
				return nil, err
			}
			if col == s.pk {
				return nil, apperrors.Newf(apperrors.ErrCodeValidation, "field %q cannot be changed", name)
			}
			fields[col] = value
		}
		if len(fields) == 0 {
			return nil, apperrors.Newf(apperrors.ErrCodeValidation, "no fields to update for record %d", c.ID)
		}
		assignments[i] = fields
	}

	var results []T
	missing := false
	start := time.Now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, c := range changes {
			res := tx.Model(new(T)).Table(table).
				Where(clause.Eq{Column: clause.Column{Name: s.pk}, Value: c.ID}).
				Updates(assignments[i])
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				missing = true
				return errRollback
			}

			var rec T
			if err := tx.Table(table).Where(clause.Eq{Column: clause.Column{Name: s.pk}, Value: c.ID}).Take(&rec).Error; err != nil {
				return err
			}
			results = append(results, rec)
		}
		return nil
	})
	if missing {
		metrics.RecordDBQuery("update", time.Since(start), nil)
		return &UpdateResult[T]{}, nil
	}
	metrics.RecordDBQuery("update", time.Since(start), err)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternalError, "failed to update records", err)
	}

	return &UpdateResult[T]{Success: true, Results: results}, nil
}

// Delete removes the records with the given ids. It is unsuccessful when none
// of them exist.
func (s *GormStore[T]) Delete(ctx context.Context, table string, ids []uint) (*DeleteResult, error) {
	if len(ids) == 0 {
		return &DeleteResult{}, nil
	}

	values := make([]any, len(ids))
	for i, id := range ids {
		values[i] = id
	}

	start := time.Now()
	res := s.db.WithContext(ctx).Table(table).
		Where(clause.IN{Column: clause.Column{Name: s.pk}, Values: values}).
		Delete(new(T))
	metrics.RecordDBQuery("delete", time.Since(start), res.Error)
	if res.Error != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternalError, "failed to delete records", res.Error)
	}

	return &DeleteResult{Success: res.RowsAffected > 0}, nil
}

var errRollback = fmt.Errorf("rollback")

func (s *GormStore[T]) column(name string) (string, error) {
	f := s.schema.LookUpField(name)
	if f == nil || f.DBName == "" {
		return "", apperrors.Newf(apperrors.ErrCodeValidation, "unknown field %q", name)
	}
	return f.DBName, nil
}

func (s *GormStore[T]) condition(c Condition) (clause.Expression, error) {
	col, err := s.column(c.Field)
	if err != nil {
		return nil, err
	}
	column := clause.Column{Name: col}

	switch c.Operator {
	case OpEquals:
		return clause.Eq{Column: column, Value: c.Value}, nil
	case OpNotEquals:
		return clause.Neq{Column: column, Value: c.Value}, nil
	case OpContains:
		return clause.Like{Column: column, Value: fmt.Sprintf("%%%v%%", c.Value)}, nil
	case OpGreaterThan:
		return clause.Gt{Column: column, Value: c.Value}, nil
	case OpLessThan:
		return clause.Lt{Column: column, Value: c.Value}, nil
	case OpIn:
		v := reflect.ValueOf(c.Value)
		if v.Kind() != reflect.Slice {
			return nil, apperrors.Newf(apperrors.ErrCodeValidation, "operator %q on %q needs a list value", c.Operator, c.Field)
		}
		values := make([]any, v.Len())
		for i := range values {
			values[i] = v.Index(i).Interface()
		}
		return clause.IN{Column: column, Values: values}, nil
	}
	return nil, apperrors.Newf(apperrors.ErrCodeValidation, "unknown operator %q", c.Operator)
}

package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"supplyline-sync/internal/model"
)

var (
	// ErrNotFound is returned by operations that require an existing row.
	ErrNotFound = errors.New("store: record not found")
	// ErrToolAlreadyCheckedOut is returned when a tool already has an active checkout.
	ErrToolAlreadyCheckedOut = errors.New("store: tool already has an active checkout")
)

// Store defines the interface for all local database operations.
type Store interface {
	UserStore
	ToolStore
	CheckoutStore
	ChemicalStore
	IssuanceStore
	Subscriber

	// Now returns the store's notion of the current time.
	Now() time.Time
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db  *gorm.DB
	now func() time.Time
	hub *hub
}

// Option configures a gormStore.
type Option func(*gormStore)

// WithClock overrides the time source used for date filters and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *gormStore) {
		s.now = now
	}
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB, opts ...Option) Store {
	s := &gormStore{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
		hub: newHub(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *gormStore) Now() time.Time {
	return s.now().UTC()
}

func (s *gormStore) Subscribe(tables ...Table) (<-chan struct{}, func()) {
	return s.hub.subscribe(tables...)
}

// --- generic helpers ---

// first returns the first row matched by q, or nil when nothing matches.
func first[T any](q *gorm.DB) (*T, error) {
	var rows []T
	if err := q.Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func find[T any](q *gorm.DB) ([]T, error) {
	rows := make([]T, 0)
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func count(q *gorm.DB) (int, error) {
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, err
	}
	return int(n), nil
}

// naturalKey returns the unique-index condition that identifies row apart
// from its primary key. Tables without one report ok false.
func naturalKey(row any) (cond string, args []any, id int64, ok bool) {
	switch r := row.(type) {
	case *model.User:
		return "employee_number = ?", []any{r.EmployeeNumber}, r.ID, true
	case *model.Tool:
		return "(tool_number = ? OR serial_number = ?)", []any{r.ToolNumber, r.SerialNumber}, r.ID, true
	case *model.Chemical:
		return "part_number = ? AND lot_number = ?", []any{r.PartNumber, r.LotNumber}, r.ID, true
	}
	return "", nil, 0, false
}

// upsertOne inserts row, replacing the row with the same primary key and any
// other row that holds the same natural key.
func upsertOne[T any](tx *gorm.DB, row *T) error {
	cond, args, id, ok := naturalKey(row)
	if !ok {
		return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(row).Error
	}
	return tx.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(cond, args...).Where("id <> ?", id).Delete(new(T)).Error; err != nil {
			return err
		}
		return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(row).Error
	})
}

// upsertAll upserts rows one by one inside a single transaction so that rows
// without an id receive a generated one.
func upsertAll[T any](ctx context.Context, db *gorm.DB, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range rows {
			if err := upsertOne(tx, &rows[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// update writes every column of row where its primary key matches. It reports
// whether a row was changed; a missing row is not an error.
func update[T any](ctx context.Context, db *gorm.DB, row *T) (bool, error) {
	res := db.WithContext(ctx).Model(row).Select("*").Updates(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// replaceAll deletes every row of T and inserts rows in one transaction.
func replaceAll[T any](ctx context.Context, db *gorm.DB, rows []T) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(new(T)).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, 200).Error
	})
}

func deleteAll[T any](ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Where("1 = 1").Delete(new(T)).Error
}

func likePattern(q string) string {
	return "%" + q + "%"
}

func forUpdate() clause.Locking {
	return clause.Locking{Strength: "UPDATE"}
}

package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormLogger "gorm.io/gorm/logger"

	"github.com/roach88/rotation/internal/record"
)

// Dialect selects the database behind the store.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// Config describes how to open a Store.
type Config struct {
	Dialect Dialect
	DSN     string

	// LogLevel controls gorm's own SQL logging. Default: silent.
	LogLevel gormLogger.LogLevel
}

// assignmentRow maps the round_robin_assignments table.
type assignmentRow struct {
	ID              uint      `gorm:"primaryKey"`
	Group           string    `gorm:"column:assignment_group;type:varchar(255);not null;uniqueIndex"`
	LastAssignedID  int64     `gorm:"column:last_assigned_id;not null;index"`
	LastAssignedAt  time.Time `gorm:"column:last_assigned_at;not null"`
	AssignmentCount int64     `gorm:"column:assignment_count;not null;default:0;check:assignment_count >= 0"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (assignmentRow) TableName() string { return "round_robin_assignments" }

func (r assignmentRow) toRecord() record.Record {
	return record.Record{
		Group:           r.Group,
		LastAssignedID:  r.LastAssignedID,
		LastAssignedAt:  r.LastAssignedAt.UTC(),
		AssignmentCount: r.AssignmentCount,
	}
}

// Store is a gorm-backed Assignment Store.
type Store struct {
	db *gorm.DB
}

// Open connects to the database described by cfg.
func Open(cfg Config) (*Store, error) {
	var dialector gorm.Dialector
	switch cfg.Dialect {
	case DialectPostgres:
		dialector = postgres.Open(cfg.DSN)
	case DialectSQLite:
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported dialect %q", cfg.Dialect)
	}

	level := cfg.LogLevel
	if level == 0 {
		level = gormLogger.Silent
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormLogger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.Dialect == DialectSQLite {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sql.DB: %w", err)
		}
		// No row locks in SQLite; serialize writers on one connection
		sqlDB.SetMaxOpenConns(1)
		if err := db.Exec("PRAGMA busy_timeout = 5000").Error; err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("failed to set busy_timeout: %w", err)
		}
	}

	return &Store{db: db}, nil
}

// New wraps an existing gorm connection.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// AutoMigrate creates or updates the round_robin_assignments table.
func (s *Store) AutoMigrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&assignmentRow{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Find returns the record for group. found is false if no record exists.
func (s *Store) Find(ctx context.Context, group string) (record.Record, bool, error) {
	group, err := record.NormalizeGroup(group)
	if err != nil {
		return record.Record{}, false, err
	}

	rec, found, err := s.take(ctx, group)
	if err != nil {
		return record.Record{}, false, classify("find", group, err)
	}
	return rec, found, nil
}

// StatsOf returns the observable stats for group.
func (s *Store) StatsOf(ctx context.Context, group string) (record.Stats, bool, error) {
	group, err := record.NormalizeGroup(group)
	if err != nil {
		return record.Stats{}, false, err
	}

	rec, found, err := s.take(ctx, group)
	if err != nil {
		return record.Stats{}, false, classify("stats", group, err)
	}
	if !found {
		return record.Stats{}, false, nil
	}
	return rec.Stats(), true, nil
}

func (s *Store) take(ctx context.Context, group string) (record.Record, bool, error) {
	var row assignmentRow
	err := s.db.WithContext(ctx).Where("assignment_group = ?", group).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return record.Record{}, false, nil
	}
	if err != nil {
		return record.Record{}, false, err
	}
	return row.toRecord(), true, nil
}

// UpsertAtomic reads the group's row under a row lock, applies fn, and
// writes the result in the same transaction.
func (s *Store) UpsertAtomic(ctx context.Context, group string, fn record.UpdateFunc) (record.Record, error) {
	group, err := record.NormalizeGroup(group)
	if err != nil {
		return record.Record{}, err
	}

	var (
		out   record.Record
		fnErr error
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row assignmentRow
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("assignment_group = ?", group).
			Take(&row).Error

		var current *record.Record
		switch {
		case err == nil:
			cur := row.toRecord()
			current = &cur
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return fmt.Errorf("select: %w", err)
		}

		next, err := fn(current)
		if err != nil {
			fnErr = err
			return err
		}
		next.Group = group
		if err := next.Validate(); err != nil {
			fnErr = err
			return err
		}

		if current == nil {
			newRow := assignmentRow{
				Group:           group,
				LastAssignedID:  next.LastAssignedID,
				LastAssignedAt:  next.LastAssignedAt.UTC(),
				AssignmentCount: next.AssignmentCount,
			}
			if err := tx.Create(&newRow).Error; err != nil {
				return fmt.Errorf("insert: %w", err)
			}
		} else {
			res := tx.Model(&assignmentRow{}).
				Where("id = ? AND assignment_count = ?", row.ID, row.AssignmentCount).
				Updates(map[string]any{
					"last_assigned_id": next.LastAssignedID,
					"last_assigned_at": next.LastAssignedAt.UTC(),
					"assignment_count": next.AssignmentCount,
					"updated_at":       time.Now().UTC(),
				})
			if res.Error != nil {
				return fmt.Errorf("update: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				return record.ErrConflict
			}
		}

		out = next
		return nil
	})
	if fnErr != nil {
		return record.Record{}, fnErr
	}
	if err != nil {
		return record.Record{}, classify("upsert", group, err)
	}
	return out, nil
}

// Delete removes the record for group. Returns whether a record existed.
func (s *Store) Delete(ctx context.Context, group string) (bool, error) {
	group, err := record.NormalizeGroup(group)
	if err != nil {
		return false, err
	}

	res := s.db.WithContext(ctx).Where("assignment_group = ?", group).Delete(&assignmentRow{})
	if res.Error != nil {
		return false, classify("delete", group, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// groupOrder sorts group keys bytewise. SQLite compares TEXT with BINARY
// by default; Postgres follows the database collation unless told otherwise.
func (s *Store) groupOrder() string {
	if s.db.Dialector.Name() == string(DialectPostgres) {
		return `assignment_group COLLATE "C" ASC`
	}
	return "assignment_group ASC"
}

// ListGroups returns every record ordered by group key.
func (s *Store) ListGroups(ctx context.Context) ([]record.Record, error) {
	var rows []assignmentRow
	if err := s.db.WithContext(ctx).Order(s.groupOrder()).Find(&rows).Error; err != nil {
		return nil, classify("list", "", err)
	}
	return toRecords(rows), nil
}

// FindByAssignee returns every group whose most recent selection was id.
func (s *Store) FindByAssignee(ctx context.Context, id int64) ([]record.Record, error) {
	var rows []assignmentRow
	err := s.db.WithContext(ctx).
		Where("last_assigned_id = ?", id).
		Order(s.groupOrder()).
		Find(&rows).Error
	if err != nil {
		return nil, classify("find by assignee", "", err)
	}
	return toRecords(rows), nil
}

func toRecords(rows []assignmentRow) []record.Record {
	out := make([]record.Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toRecord())
	}
	return out
}

// Postgres SQLSTATEs that mean "retry the transaction".
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// classify maps races to record.ErrConflict and everything else to a
// StoreError.
func classify(op, group string, err error) error {
	if err == record.ErrConflict {
		return record.Conflict(op, group, nil)
	}
	if errors.Is(err, record.ErrConflict) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return record.Conflict(op, group, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected:
			return record.Conflict(op, group, err)
		}
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		if sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked {
			return record.Conflict(op, group, err)
		}
	}

	return record.NewStoreError(op, group, err)
}

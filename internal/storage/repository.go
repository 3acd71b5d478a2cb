package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"brokemate/internal/core"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Repository persists users and transactions. Each method is a single
// statement, so a returned write is committed and visible to other readers.
type Repository struct {
	db *sqlx.DB
}

// Open connects to the database, applies migrations and returns a ready repository.
func Open(ctx context.Context, driver, dsn string) (*Repository, error) {
	switch driver {
	case DriverSQLite:
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
		dsn = sqliteDSN(dsn)
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	if err := RunMigrations(driver, dsn); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}
	if driver == DriverSQLite {
		// SQLite serialises writers; one connection avoids SQLITE_BUSY under load.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(20)
		db.SetConnMaxLifetime(time.Hour)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	slog.InfoContext(ctx, "Database ready", "driver", driver)
	return NewRepository(db), nil
}

// NewRepository wraps an already opened database.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// sqliteDSN enables foreign keys and a busy timeout unless the caller set pragmas.
func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// CreateUser inserts a user. A duplicate email yields core.ErrConflict.
func (r *Repository) CreateUser(ctx context.Context, email, hashedPassword string, budget decimal.Decimal) (*core.User, error) {
	q := r.db.Rebind(`INSERT INTO users (email, hashed_password, budget) VALUES (?, ?, ?) RETURNING id`)

	u := &core.User{Email: email, HashedPassword: hashedPassword, Budget: budget}
	if err := r.db.QueryRowxContext(ctx, q, email, hashedPassword, budget).Scan(&u.ID); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("create user %s: %w", email, core.ErrConflict)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// GetUserByEmail returns nil, nil when no user has that email.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*core.User, error) {
	q := r.db.Rebind(`SELECT id, email, hashed_password, budget FROM users WHERE email = ?`)

	var u core.User
	if err := r.db.GetContext(ctx, &u, q, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return &u, nil
}

// GetUserByID returns nil, nil when the user does not exist.
func (r *Repository) GetUserByID(ctx context.Context, id int64) (*core.User, error) {
	q := r.db.Rebind(`SELECT id, email, hashed_password, budget FROM users WHERE id = ?`)

	var u core.User
	if err := r.db.GetContext(ctx, &u, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return &u, nil
}

// UpdateBudget sets the user's budget.
func (r *Repository) UpdateBudget(ctx context.Context, userID int64, budget decimal.Decimal) error {
	q := r.db.Rebind(`UPDATE users SET budget = ? WHERE id = ?`)

	res, err := r.db.ExecContext(ctx, q, budget, userID)
	if err != nil {
		return fmt.Errorf("update budget: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update budget: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("user %d: %w", userID, core.ErrNotFound)
	}
	return nil
}

// CreateTransaction inserts t and fills in its ID.
func (r *Repository) CreateTransaction(ctx context.Context, t *core.Transaction) error {
	q := r.db.Rebind(`INSERT INTO transactions (description, amount, category, user_id) VALUES (?, ?, ?, ?) RETURNING id`)

	if err := r.db.QueryRowxContext(ctx, q, t.Description, t.Amount, t.Category, t.UserID).Scan(&t.ID); err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}

	slog.DebugContext(ctx, "Transaction saved",
		"id", t.ID,
		"user_id", t.UserID,
		"amount", t.Amount.String(),
		"category", t.Category)
	return nil
}

// ListTransactionsByUser returns every transaction owned by userID in insertion order.
func (r *Repository) ListTransactionsByUser(ctx context.Context, userID int64) ([]core.Transaction, error) {
	q := r.db.Rebind(`SELECT id, description, amount, category, user_id FROM transactions WHERE user_id = ? ORDER BY id`)

	txs := []core.Transaction{}
	if err := r.db.SelectContext(ctx, &txs, q, userID); err != nil {
		return nil, fmt.Errorf("list transactions for user %d: %w", userID, err)
	}
	return txs, nil
}

// DeleteTransaction removes a transaction only if it is owned by userID.
// Missing and foreign transactions both yield core.ErrNotFound.
func (r *Repository) DeleteTransaction(ctx context.Context, id, userID int64) error {
	q := r.db.Rebind(`DELETE FROM transactions WHERE id = ? AND user_id = ?`)

	res, err := r.db.ExecContext(ctx, q, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"studioledger/internal/core"
	"studioledger/internal/store"

	_ "modernc.org/sqlite"
)

const dateLayout = "2006-01-02"

// SQLiteRepository persists projects across four tables: projects,
// project_categories, payments and expenses. Child rows carry a position so
// ledger order survives round trips.
type SQLiteRepository struct {
	db  *sql.DB
	dsn string
	now func() time.Time
}

var _ store.Store = (*SQLiteRepository)(nil)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DSN turns a file path into a modernc.org/sqlite connection string with
// foreign keys enforced on every pooled connection.
func DSN(dbPath string) string {
	return "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	dsn := DSN(dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// One writer at a time; SQLite cannot upgrade concurrent read transactions.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, dsn: dsn, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// SchemaVersion returns the applied migration version.
func (r *SQLiteRepository) SchemaVersion() (uint, bool, error) {
	return SchemaVersion(r.dsn)
}

func (r *SQLiteRepository) ListProjects(ctx context.Context) ([]core.Project, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, customer_name, location, square_feet, quoted_cents, created_at, updated_at
		FROM projects ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	var projects []core.Project
	index := make(map[string]int)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		index[p.ID] = len(projects)
		projects = append(projects, p)
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	if err := r.loadChildren(ctx, r.db, "", func(id string) *core.Project {
		if i, ok := index[id]; ok {
			return &projects[i]
		}
		return nil
	}); err != nil {
		return nil, err
	}
	if projects == nil {
		projects = []core.Project{}
	}
	return projects, nil
}

func (r *SQLiteRepository) GetProject(ctx context.Context, id string) (core.Project, error) {
	return r.getProject(ctx, r.db, id)
}

func (r *SQLiteRepository) getProject(ctx context.Context, q queryer, id string) (core.Project, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, customer_name, location, square_feet, quoted_cents, created_at, updated_at
		FROM projects WHERE id = ?`, id)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Project{}, fmt.Errorf("get %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return core.Project{}, err
	}
	if err := r.loadChildren(ctx, q, id, func(string) *core.Project { return &p }); err != nil {
		return core.Project{}, err
	}
	return p, nil
}

func (r *SQLiteRepository) CreateProject(ctx context.Context, p core.Project) (core.Project, error) {
	p = store.PrepareNew(p, r.now())
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO projects (id, customer_name, location, square_feet, quoted_cents, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.CustomerName, p.Location, p.SquareFeet, p.QuotedPrice.Cents,
			p.CreatedAt.UnixNano(), p.UpdatedAt.UnixNano())
		if err != nil {
			return fmt.Errorf("insert project: %w", err)
		}
		if err := insertCategories(ctx, tx, p.ID, p.Categories, 0); err != nil {
			return err
		}
		for i, pay := range p.Payments {
			if err := insertPayment(ctx, tx, p.ID, i, pay); err != nil {
				return err
			}
		}
		for i, e := range p.Expenses {
			if err := insertExpense(ctx, tx, p.ID, i, e); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return core.Project{}, err
	}

	slog.InfoContext(ctx, "Project saved to SQLite",
		"id", p.ID,
		"customer", p.CustomerName,
		"quoted_cents", p.QuotedPrice.Cents,
		"categories", len(p.Categories))
	return p, nil
}

func (r *SQLiteRepository) UpdateProject(ctx context.Context, id string, patch core.ProjectPatch) (core.Project, error) {
	var out core.Project
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		cur, err := r.getProject(ctx, tx, id)
		if err != nil {
			return err
		}
		next := patch.Apply(cur)
		next.UpdatedAt = r.now().UTC()
		_, err = tx.ExecContext(ctx, `
			UPDATE projects SET customer_name = ?, location = ?, square_feet = ?, quoted_cents = ?, updated_at = ?
			WHERE id = ?`,
			next.CustomerName, next.Location, next.SquareFeet, next.QuotedPrice.Cents, next.UpdatedAt.UnixNano(), id)
		if err != nil {
			return fmt.Errorf("update project: %w", err)
		}
		if patch.Categories != nil {
			if _, err := tx.ExecContext(ctx, `DELETE FROM project_categories WHERE project_id = ?`, id); err != nil {
				return fmt.Errorf("reset categories: %w", err)
			}
			if err := insertCategories(ctx, tx, id, next.Categories, 0); err != nil {
				return err
			}
		}
		out = next
		return nil
	})
	return out, err
}

func (r *SQLiteRepository) DeleteProject(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete %s: %w", id, store.ErrNotFound)
	}
	slog.InfoContext(ctx, "Project deleted from SQLite", "id", id)
	return nil
}

func (r *SQLiteRepository) AppendPayment(ctx context.Context, id string, pay core.Payment) (core.Project, error) {
	pay = store.PreparePayment(pay)
	return r.appendChild(ctx, id, "payments", func(tx *sql.Tx, pos int) error {
		return insertPayment(ctx, tx, id, pos, pay)
	})
}

func (r *SQLiteRepository) AppendExpense(ctx context.Context, id string, e core.Expense) (core.Project, error) {
	e = store.PrepareExpense(e)
	return r.appendChild(ctx, id, "expenses", func(tx *sql.Tx, pos int) error {
		return insertExpense(ctx, tx, id, pos, e)
	})
}

func (r *SQLiteRepository) AppendCategory(ctx context.Context, id string, name string) (core.Project, bool, error) {
	var out core.Project
	added := false
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		cur, err := r.getProject(ctx, tx, id)
		if err != nil {
			return err
		}
		if cur.HasCategory(name) {
			out = cur
			return nil
		}
		added = true
		if err := insertCategories(ctx, tx, id, []string{name}, len(cur.Categories)); err != nil {
			return err
		}
		if err := r.touch(ctx, tx, id); err != nil {
			return err
		}
		out, err = r.getProject(ctx, tx, id)
		return err
	})
	if err != nil {
		return core.Project{}, false, err
	}
	return out, added, nil
}

func (r *SQLiteRepository) appendChild(ctx context.Context, id, table string, insert func(*sql.Tx, int) error) (core.Project, error) {
	var out core.Project
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM projects WHERE id = ?`, id).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("append to %s: %w", id, store.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("lookup project: %w", err)
		}
		var pos int
		// table is one of two constants chosen by the caller.
		q := `SELECT COALESCE(MAX(position) + 1, 0) FROM ` + table + ` WHERE project_id = ?`
		if err := tx.QueryRowContext(ctx, q, id).Scan(&pos); err != nil {
			return fmt.Errorf("next %s position: %w", table, err)
		}
		if err := insert(tx, pos); err != nil {
			return err
		}
		if err := r.touch(ctx, tx, id); err != nil {
			return err
		}
		out, err = r.getProject(ctx, tx, id)
		return err
	})
	return out, err
}

func (r *SQLiteRepository) touch(ctx context.Context, tx *sql.Tx, id string) error {
	_, err := tx.ExecContext(ctx, `UPDATE projects SET updated_at = ? WHERE id = ?`, r.now().UTC().UnixNano(), id)
	if err != nil {
		return fmt.Errorf("touch project: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(s scanner) (core.Project, error) {
	var (
		p                core.Project
		quoted           int64
		created, updated int64
	)
	if err := s.Scan(&p.ID, &p.CustomerName, &p.Location, &p.SquareFeet, &quoted, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return p, err
		}
		return p, fmt.Errorf("scan project: %w", err)
	}
	p.QuotedPrice = core.Money{Cents: quoted}
	p.CreatedAt = time.Unix(0, created).UTC()
	p.UpdatedAt = time.Unix(0, updated).UTC()
	p.Categories = []string{}
	p.Payments = []core.Payment{}
	p.Expenses = []core.Expense{}
	return p, nil
}

// loadChildren fills categories, payments and expenses. An empty projectID
// loads rows for every project and routes them through lookup.
func (r *SQLiteRepository) loadChildren(ctx context.Context, q queryer, projectID string, lookup func(string) *core.Project) error {
	where, args := "", []any{}
	if projectID != "" {
		where, args = " WHERE project_id = ?", []any{projectID}
	}

	rows, err := q.QueryContext(ctx, `SELECT project_id, name FROM project_categories`+where+` ORDER BY project_id, position`, args...)
	if err != nil {
		return fmt.Errorf("load categories: %w", err)
	}
	err = eachRow(rows, func() error {
		var pid, name string
		if err := rows.Scan(&pid, &name); err != nil {
			return err
		}
		if p := lookup(pid); p != nil {
			p.Categories = append(p.Categories, name)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("load categories: %w", err)
	}

	rows, err = q.QueryContext(ctx, `SELECT project_id, id, amount_cents, paid_on, note FROM payments`+where+` ORDER BY project_id, position`, args...)
	if err != nil {
		return fmt.Errorf("load payments: %w", err)
	}
	err = eachRow(rows, func() error {
		var (
			pid, day string
			pay      core.Payment
		)
		if err := rows.Scan(&pid, &pay.ID, &pay.Amount.Cents, &day, &pay.Note); err != nil {
			return err
		}
		d, err := core.ParseDate(day)
		if err != nil {
			return fmt.Errorf("payment %s: %w", pay.ID, err)
		}
		pay.Date = d
		if p := lookup(pid); p != nil {
			p.Payments = append(p.Payments, pay)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("load payments: %w", err)
	}

	rows, err = q.QueryContext(ctx, `SELECT project_id, id, category, amount_cents, spent_on, note FROM expenses`+where+` ORDER BY project_id, position`, args...)
	if err != nil {
		return fmt.Errorf("load expenses: %w", err)
	}
	err = eachRow(rows, func() error {
		var (
			pid, day string
			e        core.Expense
		)
		if err := rows.Scan(&pid, &e.ID, &e.Category, &e.Amount.Cents, &day, &e.Note); err != nil {
			return err
		}
		d, err := core.ParseDate(day)
		if err != nil {
			return fmt.Errorf("expense %s: %w", e.ID, err)
		}
		e.Date = d
		if p := lookup(pid); p != nil {
			p.Expenses = append(p.Expenses, e)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("load expenses: %w", err)
	}
	return nil
}

func eachRow(rows *sql.Rows, fn func() error) error {
	defer rows.Close()
	for rows.Next() {
		if err := fn(); err != nil {
			return err
		}
	}
	return rows.Err()
}

func insertCategories(ctx context.Context, tx *sql.Tx, projectID string, names []string, start int) error {
	for i, name := range names {
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO project_categories (project_id, position, name) VALUES (?, ?, ?)`,
			projectID, start+i, name)
		if err != nil {
			return fmt.Errorf("insert category %q: %w", name, err)
		}
	}
	return nil
}

func insertPayment(ctx context.Context, tx *sql.Tx, projectID string, pos int, p core.Payment) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO payments (id, project_id, position, amount_cents, paid_on, note)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, projectID, pos, p.Amount.Cents, p.Date.Format(dateLayout), p.Note)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func insertExpense(ctx context.Context, tx *sql.Tx, projectID string, pos int, e core.Expense) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO expenses (id, project_id, position, category, amount_cents, spent_on, note)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, projectID, pos, e.Category, e.Amount.Cents, e.Date.Format(dateLayout), e.Note)
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}
	return nil
}

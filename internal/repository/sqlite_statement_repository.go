package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"lrs-tracker/internal/dashboard"
	"lrs-tracker/internal/models"
)

// dayColumn renders a millisecond timestamp as its UTC calendar day.
const dayColumn = "date(ts_ms / 1000, 'unixepoch')"

// SQLStatementRepository aggregates statements kept in SQLite with native
// GROUP BY queries.
type SQLStatementRepository struct {
	db *sql.DB
}

var (
	_ dashboard.Aggregator = (*SQLStatementRepository)(nil)
	_ dashboard.Scanner    = (*SQLStatementRepository)(nil)
)

func NewSQLStatementRepository(db *sql.DB) *SQLStatementRepository {
	return &SQLStatementRepository{db: db}
}

// Insert stores statements in one transaction.
func (r *SQLStatementRepository) Insert(ctx context.Context, statements ...models.Statement) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin insert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO statements (
			lrs_id, ts_ms, actor_mbox, actor_openid, actor_mbox_sha1sum,
			actor_account_name, actor_account_homepage, statement
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, st := range statements {
		body, err := json.Marshal(st.Statement)
		if err != nil {
			return fmt.Errorf("failed to encode statement: %w", err)
		}

		actor := st.Statement.Actor
		var accountName, accountHomePage string
		if actor.Account != nil {
			accountName, accountHomePage = actor.Account.Name, actor.Account.HomePage
		}

		_, err = stmt.ExecContext(ctx,
			st.StoreID, st.Timestamp.UnixMilli(),
			actor.Mbox, actor.OpenID, actor.MboxSha1Sum,
			accountName, accountHomePage, string(body),
		)
		if err != nil {
			return fmt.Errorf("failed to insert statement: %w", err)
		}
	}

	return tx.Commit()
}

func (r *SQLStatementRepository) CountStatements(ctx context.Context, f dashboard.Filter) (int64, error) {
	where, args := sqlWhere(f)

	var n int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM statements"+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count statements: %w", err)
	}
	return n, nil
}

func (r *SQLStatementRepository) EarliestTimestamp(ctx context.Context, f dashboard.Filter) (time.Time, bool, error) {
	where, args := sqlWhere(f)

	var ms sql.NullInt64
	if err := r.db.QueryRowContext(ctx, "SELECT MIN(ts_ms) FROM statements"+where, args...).Scan(&ms); err != nil {
		return time.Time{}, false, fmt.Errorf("failed to query earliest statement: %w", err)
	}
	if !ms.Valid {
		return time.Time{}, false, nil
	}
	return time.UnixMilli(ms.Int64).UTC(), true, nil
}

func (r *SQLStatementRepository) CountByDay(ctx context.Context, f dashboard.Filter) ([]dashboard.DayCount, error) {
	where, args := sqlWhere(f)
	query := "SELECT " + dayColumn + " AS day, COUNT(*) FROM statements" + where +
		" GROUP BY day ORDER BY day"
	return r.dayCounts(ctx, query, args)
}

func (r *SQLStatementRepository) CountDistinctActors(ctx context.Context, f dashboard.Filter) (int64, error) {
	cols, err := sqlDedupColumns(f.Kind)
	if err != nil {
		return 0, err
	}
	where, args := sqlWhere(f)
	query := "SELECT COUNT(*) FROM (SELECT DISTINCT " + cols + " FROM statements" + where + ")"

	var n int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count distinct actors: %w", err)
	}
	return n, nil
}

func (r *SQLStatementRepository) CountDistinctActorsByDay(ctx context.Context, f dashboard.Filter) ([]dashboard.DayCount, error) {
	cols, err := sqlDedupColumns(f.Kind)
	if err != nil {
		return nil, err
	}
	where, args := sqlWhere(f)
	query := "SELECT day, COUNT(*) FROM (SELECT DISTINCT " + dayColumn + " AS day, " + cols +
		" FROM statements" + where + ") GROUP BY day ORDER BY day"
	return r.dayCounts(ctx, query, args)
}

// Scan streams statements matching the store and timestamp bounds of f.
func (r *SQLStatementRepository) Scan(ctx context.Context, f dashboard.Filter, fn func(models.Statement) error) error {
	where, args := sqlWhere(f.WithKind(0))
	rows, err := r.db.QueryContext(ctx, "SELECT lrs_id, ts_ms, statement FROM statements"+where+" ORDER BY ts_ms", args...)
	if err != nil {
		return fmt.Errorf("failed to scan statements: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			st   models.Statement
			ms   int64
			body string
		)
		if err := rows.Scan(&st.StoreID, &ms, &body); err != nil {
			return fmt.Errorf("failed to read statement: %w", err)
		}
		if err := json.Unmarshal([]byte(body), &st.Statement); err != nil {
			return fmt.Errorf("failed to decode statement: %w", err)
		}
		st.Timestamp = time.UnixMilli(ms).UTC()

		if err := fn(st); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (r *SQLStatementRepository) dayCounts(ctx context.Context, query string, args []any) ([]dashboard.DayCount, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily counts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []dayCountRow
	for rows.Next() {
		var row dayCountRow
		if err := rows.Scan(&row.Day, &row.Count); err != nil {
			return nil, fmt.Errorf("failed to scan daily count: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read daily counts: %w", err)
	}

	return toDayCounts(out)
}

func sqlWhere(f dashboard.Filter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if f.StoreID != "" {
		clauses = append(clauses, "lrs_id = ?")
		args = append(args, f.StoreID)
	}
	if !f.Since.IsZero() {
		clauses = append(clauses, "ts_ms >= ?")
		args = append(args, f.Since.UnixMilli())
	}
	if !f.Before.IsZero() {
		clauses = append(clauses, "ts_ms < ?")
		args = append(args, f.Before.UnixMilli())
	}
	if c := sqlIdentityClause(f.Kind); c != "" {
		clauses = append(clauses, c)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// sqlIdentityClause mirrors identityMatch: higher priority identifiers
// must be empty.
func sqlIdentityClause(kind dashboard.IdentityKind) string {
	switch kind {
	case dashboard.KindMbox:
		return "actor_mbox <> ''"
	case dashboard.KindOpenID:
		return "actor_mbox = '' AND actor_openid <> ''"
	case dashboard.KindMboxSha1Sum:
		return "actor_mbox = '' AND actor_openid = '' AND actor_mbox_sha1sum <> ''"
	case dashboard.KindAccount:
		return "actor_mbox = '' AND actor_openid = '' AND actor_mbox_sha1sum = ''" +
			" AND actor_account_name <> '' AND actor_account_homepage <> ''"
	}
	return ""
}

func sqlDedupColumns(kind dashboard.IdentityKind) (string, error) {
	switch kind {
	case dashboard.KindMbox:
		return "actor_mbox", nil
	case dashboard.KindOpenID:
		return "actor_openid", nil
	case dashboard.KindMboxSha1Sum:
		return "actor_mbox_sha1sum", nil
	case dashboard.KindAccount:
		return "actor_account_name, actor_account_homepage", nil
	}
	return "", fmt.Errorf("identity kind %d: %w", kind, dashboard.ErrUnresolvableIdentity)
}

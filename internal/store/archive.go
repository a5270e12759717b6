package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/verte-zerg/ctrlq/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Archive wraps SQLite access for session history.
type Archive struct {
	db *sql.DB
}

// OpenArchive opens or creates the SQLite database and applies migrations.
func OpenArchive(path string) (*Archive, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create archive dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	db.SetMaxOpenConns(1)
	a := &Archive{db: db}
	if err := a.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, fmt.Errorf("failed to migrate archive: %w", err)
	}
	return a, nil
}

// Close closes the underlying database.
func (a *Archive) Close() error {
	return a.db.Close()
}

func (a *Archive) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			keystrokes INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS days (
			date TEXT PRIMARY KEY,
			keystrokes INTEGER NOT NULL,
			sessions INTEGER NOT NULL,
			hours TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at);`,
	}
	for _, stmt := range stmts {
		if _, err := a.db.Exec(stmt); err != nil {
			return err
		}
	}
	return a.ensureColumn("days", "keys", `ALTER TABLE days ADD COLUMN keys TEXT NOT NULL DEFAULT ''`)
}

func (a *Archive) ensureColumn(table, column, ddl string) (err error) {
	rows, err := a.db.Query(`SELECT name FROM pragma_table_info(?)`, table)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		if name == column {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	_, err = a.db.Exec(ddl)
	return err
}

// RecordSessions stores closed sessions. Sessions already archived are left untouched.
func (a *Archive) RecordSessions(ctx context.Context, sessions []model.Session) (err error) {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO sessions (id, started_at, ended_at, keystrokes, duration_ms)
		 VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := stmt.Close(); cerr != nil {
			// Best-effort statement close.
			_ = cerr
		}
	}()
	for _, s := range sessions {
		if s.Open || s.ID == "" {
			continue
		}
		if _, err = stmt.ExecContext(ctx,
			s.ID,
			formatTime(s.Start),
			formatTime(s.End),
			int64(s.Keystrokes),
			s.Duration().Milliseconds(),
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// RecordDays upserts cumulative day totals.
func (a *Archive) RecordDays(ctx context.Context, days map[string]model.DayStats) (err error) {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO days (date, keystrokes, sessions, hours, keys) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(date) DO UPDATE SET
			keystrokes = excluded.keystrokes,
			sessions = excluded.sessions,
			hours = excluded.hours,
			keys = excluded.keys`)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := stmt.Close(); cerr != nil {
			// Best-effort statement close.
			_ = cerr
		}
	}()
	for date, st := range days {
		if _, err = stmt.ExecContext(ctx, date, int64(st.Keystrokes), int64(st.Sessions), formatHours(st.Hours), formatKeys(st.Keys)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListSessions returns archived sessions ordered by start time.
func (a *Archive) ListSessions(ctx context.Context, filter model.HistoryFilter) ([]model.Session, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.Since != nil {
		clauses = append(clauses, "ended_at >= ?")
		args = append(args, formatTime(*filter.Since))
	}
	query := fmt.Sprintf(`SELECT id, started_at, ended_at, keystrokes
		FROM sessions
		WHERE %s
		ORDER BY started_at ASC, id ASC`, strings.Join(clauses, " AND "))
	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var sessions []model.Session
	for rows.Next() {
		var s model.Session
		var startedAt, endedAt string
		var keystrokes int64
		if err := rows.Scan(&s.ID, &startedAt, &endedAt, &keystrokes); err != nil {
			return nil, err
		}
		if s.Start, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, err
		}
		if s.End, err = time.Parse(time.RFC3339Nano, endedAt); err != nil {
			return nil, err
		}
		s.Keystrokes = uint64(keystrokes)
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if filter.Last > 0 && len(sessions) > filter.Last {
		sessions = sessions[len(sessions)-filter.Last:]
	}
	return sessions, nil
}

// ListDays returns archived day totals ordered by date, starting at since when set.
func (a *Archive) ListDays(ctx context.Context, since *time.Time) ([]model.DayAggregate, error) {
	from := ""
	if since != nil {
		from = model.DayKey(*since)
	}
	rows, err := a.db.QueryContext(ctx,
		`SELECT date, keystrokes, sessions, hours, keys FROM days WHERE date >= ? ORDER BY date ASC`, from)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var days []model.DayAggregate
	for rows.Next() {
		var agg model.DayAggregate
		var keystrokes, sessions int64
		var hours, keys string
		if err := rows.Scan(&agg.Date, &keystrokes, &sessions, &hours, &keys); err != nil {
			return nil, err
		}
		agg.Stats.Keystrokes = uint64(keystrokes)
		agg.Stats.Sessions = uint64(sessions)
		if agg.Stats.Hours, err = parseHours(hours); err != nil {
			return nil, fmt.Errorf("day %s: %w", agg.Date, err)
		}
		if agg.Stats.Keys, err = parseKeys(keys); err != nil {
			return nil, fmt.Errorf("day %s: %w", agg.Date, err)
		}
		days = append(days, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return days, nil
}

// Reset drops all archived rows.
func (a *Archive) Reset(ctx context.Context) error {
	for _, stmt := range []string{`DELETE FROM sessions`, `DELETE FROM days`} {
		if _, err := a.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// archiveTimeLayout keeps every stored timestamp the same width so text
// comparison in SQL matches time order.
const archiveTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(archiveTimeLayout)
}

func formatHours(hours [24]uint64) string {
	parts := make([]string, len(hours))
	for i, v := range hours {
		parts[i] = strconv.FormatUint(v, 10)
	}
	return strings.Join(parts, ",")
}

func parseHours(s string) ([24]uint64, error) {
	var hours [24]uint64
	if s == "" {
		return hours, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) > len(hours) {
		return hours, fmt.Errorf("too many hour buckets: %d", len(parts))
	}
	for i, p := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return hours, fmt.Errorf("invalid hour bucket %q: %w", p, err)
		}
		hours[i] = v
	}
	return hours, nil
}

// formatKeys encodes a key distribution as "code:count" pairs ordered by code.
func formatKeys(keys map[uint16]uint64) string {
	codes := make([]int, 0, len(keys))
	for code := range keys {
		codes = append(codes, int(code))
	}
	sort.Ints(codes)
	parts := make([]string, len(codes))
	for i, code := range codes {
		parts[i] = strconv.Itoa(code) + ":" + strconv.FormatUint(keys[uint16(code)], 10)
	}
	return strings.Join(parts, ",")
}

func parseKeys(s string) (map[uint16]uint64, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	keys := make(map[uint16]uint64, len(parts))
	for _, p := range parts {
		codeText, countText, ok := strings.Cut(p, ":")
		if !ok {
			return nil, fmt.Errorf("invalid key entry %q", p)
		}
		code, err := strconv.ParseUint(codeText, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid key code %q: %w", codeText, err)
		}
		count, err := strconv.ParseUint(countText, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid key count %q: %w", countText, err)
		}
		keys[uint16(code)] += count
	}
	return keys, nil
}

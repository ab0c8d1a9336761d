package diagnose

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// DBHealth is the outcome of an integrity probe.
type DBHealth int

const (
	DBOK DBHealth = iota
	DBCorrupt
	DBLocked
)

func (h DBHealth) String() string {
	switch h {
	case DBOK:
		return "ok"
	case DBCorrupt:
		return "corrupt"
	case DBLocked:
		return "locked"
	default:
		return "unknown"
	}
}

// IntegrityProber checks one database file.
type IntegrityProber interface {
	Probe(ctx context.Context, path string) (DBHealth, error)
}

// SQLiteProber opens databases read-only in-process and runs
// PRAGMA quick_check under a short deadline.
type SQLiteProber struct {
	Timeout time.Duration
}

// readOnlyDSN builds a file: URI that SQLite opens read-only. Spaces and
// other reserved characters in the path are escaped.
func readOnlyDSN(path string) string {
	u := url.URL{Scheme: "file", Path: path, RawQuery: "mode=ro&_pragma=busy_timeout(500)"}
	return u.String()
}

// Probe implements IntegrityProber. A database that cannot be read because
// another process holds it reports DBLocked; one SQLite rejects, or whose
// quick_check is not "ok", reports DBCorrupt.
func (p SQLiteProber) Probe(parent context.Context, path string) (DBHealth, error) {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	db, err := sql.Open("sqlite", readOnlyDSN(path))
	if err != nil {
		return DBCorrupt, fmt.Errorf("open %s: %w", path, err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	var result string
	err = db.QueryRowContext(ctx, "PRAGMA quick_check").Scan(&result)
	if err != nil && parent.Err() != nil {
		return DBOK, parent.Err()
	}
	switch {
	case err == nil && result == "ok":
		return DBOK, nil
	case err == nil:
		return DBCorrupt, nil
	case errors.Is(err, context.DeadlineExceeded) || isBusy(err):
		return DBLocked, nil
	default:
		return DBCorrupt, nil
	}
}

func isBusy(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "sqlite_busy") ||
		strings.Contains(msg, "interrupted")
}

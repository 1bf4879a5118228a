package browserhistory

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/TGBox/stat-tracker/pkg/errmodel"
)

// Visit is one page visit from the browser history.
type Visit struct {
	URL   string
	Title string
	Time  time.Time
}

// History lists visits whose URL matches a SQL LIKE pattern after since.
type History interface {
	Visits(ctx context.Context, pattern string, since time.Time) ([]Visit, error)
}

// Firefox reads a places.sqlite file. The file is opened read-only and
// immutable so a running browser holding its lock does not block the read.
type Firefox struct {
	Path string
}

const visitsQuery = `
SELECT p.url, p.title, h.visit_date
FROM moz_historyvisits AS h
JOIN moz_places AS p ON h.place_id = p.id
WHERE p.url LIKE ? AND h.visit_date > ?
ORDER BY h.visit_date ASC`

func (f Firefox) Visits(ctx context.Context, pattern string, since time.Time) ([]Visit, error) {
	if _, err := os.Stat(f.Path); err != nil {
		return nil, errmodel.NotFound("history_not_found", "browser history file not found", map[string]any{"path": f.Path})
	}
	dsn := (&url.URL{Scheme: "file", OmitHost: true, Path: filepath.ToSlash(f.Path), RawQuery: "mode=ro&immutable=1"}).String()
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errmodel.System("history_open_failed", "cannot open browser history", map[string]any{"path": f.Path}, err)
	}
	defer func() { _ = db.Close() }()

	rows, err := db.QueryContext(ctx, visitsQuery, pattern, since.UnixMicro())
	if err != nil {
		return nil, errmodel.System("history_query_failed", "querying browser history failed", map[string]any{"path": f.Path}, err)
	}
	defer func() { _ = rows.Close() }()

	var out []Visit
	for rows.Next() {
		var (
			v     Visit
			title sql.NullString
			micro int64
		)
		if err := rows.Scan(&v.URL, &title, &micro); err != nil {
			return nil, errmodel.System("history_query_failed", "scanning browser history failed", nil, err)
		}
		v.Title = title.String
		v.Time = time.UnixMicro(micro).UTC()
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, errmodel.System("history_query_failed", "iterating browser history failed", nil, err)
	}
	return out, nil
}

// DefaultPlacesPath returns the places.sqlite of the first Firefox profile
// whose directory name contains "default" under the platform's profile root.
func DefaultPlacesPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return findPlaces(profileRoot(runtime.GOOS, home, os.Getenv("APPDATA")))
}

func profileRoot(goos, home, appData string) string {
	switch goos {
	case "windows":
		if appData == "" {
			return ""
		}
		return filepath.Join(appData, "Mozilla", "Firefox", "Profiles")
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Firefox", "Profiles")
	default:
		return filepath.Join(home, ".mozilla", "firefox")
	}
}

var errNoProfile = errmodel.NotFound("profile_not_found", "no Firefox profile with a places.sqlite found", nil)

func findPlaces(root string) (string, error) {
	if root == "" {
		return "", errNoProfile
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return "", errors.Join(errNoProfile, err)
	}
	for _, e := range entries {
		if !e.IsDir() || !strings.Contains(e.Name(), "default") {
			continue
		}
		p := filepath.Join(root, e.Name(), "places.sqlite")
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", errNoProfile
}

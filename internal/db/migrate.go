package db

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
)

// ApplyMigrations executes every *.sql file under dir of fsys in lexical
// order, one statement at a time (the driver runs without multiStatements).
func ApplyMigrations(ctx context.Context, db *sqlx.DB, fsys fs.FS, dir string) ([]string, error) {
	names, err := fs.Glob(fsys, dir+"/*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	for _, name := range names {
		b, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		for i, stmt := range SplitStatements(string(b)) {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return nil, fmt.Errorf("migration %s statement %d: %w", name, i+1, err)
			}
		}
	}
	return names, nil
}

// SplitStatements splits a migration on ';' line endings, dropping
// comment-only and blank statements.
func SplitStatements(script string) []string {
	var out []string
	for _, raw := range strings.Split(script, ";\n") {
		var lines []string
		for _, l := range strings.Split(raw, "\n") {
			if t := strings.TrimSpace(l); t == "" || strings.HasPrefix(t, "--") {
				continue
			}
			lines = append(lines, l)
		}
		stmt := strings.TrimSuffix(strings.TrimSpace(strings.Join(lines, "\n")), ";")
		if stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

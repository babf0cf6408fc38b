package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/multierr"
)

const (
	upMarker   = "-- +goose Up"
	downMarker = "-- +goose Down"
)

var (
	sqlFileRe     = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)
	createTableRe = regexp.MustCompile(`(?i)CREATE\s+TABLE\s+(?:IF\s+NOT\s+EXISTS\s+)?([a-z_][a-z0-9_]*)`)
	dropTableRe   = regexp.MustCompile(`(?i)DROP\s+TABLE\s+(?:IF\s+EXISTS\s+)?([a-z_][a-z0-9_]*)`)
)

// ValidateDir checks every migration in dir and reports all problems at once:
// filenames must be YYYYMMDDHHMMSS_name.sql with unique versions, each file
// needs an Up section followed by a Down section, and every table the Up
// creates must be dropped by the Down so a rollback leaves no stock or site
// tables behind.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read dir %q: %w", dir, err)
	}

	seen := map[string]string{} // version -> filename
	var errs error

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".sql") {
			continue
		}

		m := sqlFileRe.FindStringSubmatch(name)
		if m == nil {
			errs = multierr.Append(errs, fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name))
			continue
		}

		version := m[1]
		if prev, ok := seen[version]; ok {
			errs = multierr.Append(errs, fmt.Errorf("duplicate migration version %s in %q and %q", version, prev, name))
			continue
		}
		seen[version] = name

		full := filepath.Join(dir, name)
		b, err := os.ReadFile(full)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("read file %q: %w", full, err))
			continue
		}
		errs = multierr.Append(errs, validateMigration(name, string(b)))
	}

	return errs
}

func validateMigration(name, txt string) error {
	up := strings.Index(txt, upMarker)
	down := strings.Index(txt, downMarker)
	switch {
	case up < 0:
		return fmt.Errorf("migration %q missing %q", name, upMarker)
	case down < 0:
		return fmt.Errorf("migration %q missing %q", name, downMarker)
	case down < up:
		return fmt.Errorf("migration %q has its Down section before Up", name)
	}

	upSQL, downSQL := txt[up:down], txt[down:]
	dropped := map[string]bool{}
	for _, m := range dropTableRe.FindAllStringSubmatch(downSQL, -1) {
		dropped[strings.ToLower(m[1])] = true
	}
	var errs error
	for _, m := range createTableRe.FindAllStringSubmatch(upSQL, -1) {
		table := strings.ToLower(m[1])
		if !dropped[table] {
			errs = multierr.Append(errs, fmt.Errorf("migration %q creates table %s but its Down never drops it", name, table))
		}
	}
	return errs
}

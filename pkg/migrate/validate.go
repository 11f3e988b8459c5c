package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pressly/goose/v3"
)

var migrationFileName = regexp.MustCompile(`^\d{14}_[a-z0-9_]+\.sql$`)

// ValidateDir checks every .sql file in dir: timestamped snake_case names,
// both goose sections present and statement blocks balanced. Duplicate
// versions are reported by goose itself.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	paths, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	for _, path := range paths {
		if err := validateFile(path); err != nil {
			return err
		}
	}
	if len(paths) == 0 {
		return nil
	}
	if _, err := goose.CollectMigrations(dir, 0, goose.MaxVersion); err != nil {
		return fmt.Errorf("collect migrations: %w", err)
	}
	return nil
}

func validateFile(path string) error {
	name := filepath.Base(path)
	if !migrationFileName.MatchString(name) {
		return fmt.Errorf("migration %q: expected <YYYYMMDDHHMMSS>_<snake_name>.sql", name)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read migration %q: %w", name, err)
	}
	body := string(raw)
	for _, marker := range []string{"-- +goose Up", "-- +goose Down"} {
		if !strings.Contains(body, marker) {
			return fmt.Errorf("migration %q: missing %q", name, marker)
		}
	}
	if begins, ends := strings.Count(body, "-- +goose StatementBegin"), strings.Count(body, "-- +goose StatementEnd"); begins != ends {
		return fmt.Errorf("migration %q: %d StatementBegin vs %d StatementEnd", name, begins, ends)
	}
	return nil
}

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
)

// Migration filename format: 001_migration_name.up.sql / 001_migration_name.down.sql
var migrationFilenameRegex = regexp.MustCompile(`^(\d{3})_([a-zA-Z0-9_]+)\.(up|down)\.sql$`)

// validateMigrations performs a preflight check on the migrations directory
// before handing it to the migration engine: every file must match the
// naming standard, every up migration needs a down counterpart, and the
// sequence must start at 001 with no gaps.
func validateMigrations(migrationsPath string) error {
	entries, err := os.ReadDir(migrationsPath)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var files []string

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		filename := entry.Name()
		if filepath.Ext(filename) != ".sql" {
			continue
		}

		if !migrationFilenameRegex.MatchString(filename) {
			return fmt.Errorf("invalid migration filename: %s (expected: 001_name.up.sql or 001_name.down.sql)", filename)
		}

		files = append(files, filename)
	}

	if len(files) == 0 {
		return fmt.Errorf("no migration files found in directory: %s", migrationsPath)
	}

	directions := make(map[string]map[string]bool)
	sequences := make(map[int]bool)

	for _, file := range files {
		matches := migrationFilenameRegex.FindStringSubmatch(file)
		sequence, _ := strconv.Atoi(matches[1])

		key := matches[1] + "_" + matches[2]
		if directions[key] == nil {
			directions[key] = make(map[string]bool)
		}

		directions[key][matches[3]] = true
		sequences[sequence] = true
	}

	for key, dirs := range directions {
		if !dirs["up"] {
			return fmt.Errorf("orphaned down migration: missing up migration for %s", key)
		}

		if !dirs["down"] {
			return fmt.Errorf("orphaned up migration: missing down migration for %s", key)
		}
	}

	ordered := make([]int, 0, len(sequences))
	for seq := range sequences {
		ordered = append(ordered, seq)
	}

	sort.Ints(ordered)

	if ordered[0] != 1 {
		return fmt.Errorf("migration sequence should start with 001, but found %03d", ordered[0])
	}

	for i := 1; i < len(ordered); i++ {
		if ordered[i] != ordered[i-1]+1 {
			return fmt.Errorf("gap in migration sequence: expected %03d, found %03d", ordered[i-1]+1, ordered[i])
		}
	}

	return nil
}

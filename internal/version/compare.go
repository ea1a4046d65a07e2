package version

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// CheckSchemaCompatibility checks whether a portfolio state document written
// with storedSchema can be read by a binary that writes currentSchema.
// Returns nil if compatible, error with details if not.
//
// Compatibility Rules:
//   - If either version is "main" (development build), compatibility check is skipped
//   - Major versions must match exactly
//   - The stored minor version must not be newer than the current one
//   - Patch versions can differ
//
// Examples:
//   - Current 2.0.0, Stored 2.0.0 -> OK (exact match)
//   - Current 2.1.0, Stored 2.0.3 -> OK (older minor is read as-is)
//   - Current 2.0.0, Stored 2.1.0 -> ERROR (written by a newer scanner)
//   - Current 2.0.0, Stored 1.0.0 -> ERROR (needs migration)
func CheckSchemaCompatibility(currentSchema, storedSchema string) error {
	currentSchema = strings.TrimPrefix(currentSchema, "v")
	storedSchema = strings.TrimPrefix(storedSchema, "v")

	if currentSchema == "main" || storedSchema == "main" {
		return nil
	}

	current, err := semver.NewVersion(currentSchema)
	if err != nil {
		return fmt.Errorf("invalid current schema version '%s': %w", currentSchema, err)
	}

	stored, err := semver.NewVersion(storedSchema)
	if err != nil {
		return fmt.Errorf("invalid stored schema version '%s': %w", storedSchema, err)
	}

	if current.Major() != stored.Major() {
		return fmt.Errorf("major version mismatch: scanner writes %d.x.x but state is %d.x.x",
			current.Major(), stored.Major())
	}

	if stored.Minor() > current.Minor() {
		return fmt.Errorf("minor version mismatch: state %d.%d.x is newer than scanner %d.%d.x",
			stored.Major(), stored.Minor(), current.Major(), current.Minor())
	}

	return nil
}

// IsOlderMajor reports whether storedSchema predates the major version of
// currentSchema. An empty or unparsable stored version counts as older.
func IsOlderMajor(currentSchema, storedSchema string) bool {
	current, err := semver.NewVersion(strings.TrimPrefix(currentSchema, "v"))
	if err != nil {
		return false
	}

	stored, err := semver.NewVersion(strings.TrimPrefix(storedSchema, "v"))
	if err != nil {
		return true
	}

	return stored.Major() < current.Major()
}

package storage

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

var pathComponentPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

// DatasetSnapshotKey is where the Parquet snapshot of a dataset lives:
// datasets/<name>/<name>.parquet.
func DatasetSnapshotKey(name string) (string, error) {
	if err := validatePathComponent(name, "dataset name"); err != nil {
		return "", err
	}
	return path.Join("datasets", name, name+".parquet"), nil
}

// NormalizeKey cleans an object key, rejects traversal and applies prefix.
func NormalizeKey(prefix, key string) (string, error) {
	key = strings.TrimSpace(strings.TrimPrefix(key, "/"))
	if key == "" {
		return "", fmt.Errorf("object key is required")
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") || strings.Contains(cleaned, "/../") {
		return "", fmt.Errorf("invalid object key: %q", key)
	}
	prefix = CleanPrefix(prefix)
	if prefix == "" {
		return cleaned, nil
	}
	return path.Join(prefix, cleaned), nil
}

func CleanPrefix(prefix string) string {
	prefix = strings.TrimSpace(strings.TrimPrefix(prefix, "/"))
	if prefix == "" {
		return ""
	}
	prefix = path.Clean(prefix)
	if prefix == "." {
		return ""
	}
	return prefix
}

func validatePathComponent(value, field string) error {
	if !pathComponentPattern.MatchString(value) {
		return fmt.Errorf("invalid %s: %q", field, value)
	}
	return nil
}

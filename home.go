package krrs

import (
	"os"
	"path/filepath"
)

// Home returns the KRRS home directory. It defaults to ~/.krrs but can be
// overridden with the KRRS_HOME environment variable.
func Home() string {
	if v := os.Getenv("KRRS_HOME"); v != "" {
		return v
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".krrs")
}

// DefaultDBPath returns the default SQLite database path (~/.krrs/krrs.db).
func DefaultDBPath() string {
	return filepath.Join(Home(), "krrs.db")
}

// DefaultIndexPath returns the default bleve index directory
// (~/.krrs/index.bleve).
func DefaultIndexPath() string {
	return filepath.Join(Home(), "index.bleve")
}

// EnsureHome creates the KRRS home directory if it doesn't exist.
func EnsureHome() error {
	return os.MkdirAll(Home(), 0o755)
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/subosito/gotenv"
)

// DefaultDotEnvPath is read when no explicit path is given.
const DefaultDotEnvPath = ".env"

// LoadDotEnv primes the process environment from a .env file. Variables that
// are already set are left alone, and a missing file is not an error.
func LoadDotEnv(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		path = DefaultDotEnvPath
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := gotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

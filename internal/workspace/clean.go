package workspace

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/neg-0/orion/internal/logging"
)

// Clean removes shadow copies produced by Mirror for cfg.Extensions,
// including stale shadows whose source file has since been deleted.
// It returns how many files were removed.
func Clean(ctx context.Context, cfg Config) (int, error) {
	logger := logging.OrNop(cfg.Logger)
	if strings.TrimSpace(cfg.Root) == "" {
		return 0, errors.New("workspace root is empty")
	}

	removed := 0
	stale := 0
	for _, ext := range cfg.Extensions {
		ext = strings.TrimLeft(strings.TrimSpace(ext), ".")
		if ext == "" {
			continue
		}
		shadows, err := collect(ctx, cfg.Root, "."+ext+ShadowSuffix)
		if err != nil {
			return removed, fmt.Errorf("scan %s: %w", cfg.Root, err)
		}
		for _, shadow := range shadows {
			src := strings.TrimSuffix(shadow, ShadowSuffix)
			if _, err := os.Stat(src); errors.Is(err, fs.ErrNotExist) {
				stale++
			}
			if err := os.Remove(shadow); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return removed, fmt.Errorf("remove %s: %w", shadow, err)
			}
			removed++
		}
	}

	logger.Info("removed %d shadow files (%d stale) under %s", removed, stale, cfg.Root)
	return removed, nil
}

// Package workspace maintains text-extension shadow copies of source files so
// text-only ingestion (the retrieval corpus) can read them.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/neg-0/orion/internal/logging"
)

// ShadowSuffix is appended to every mirrored file name.
const ShadowSuffix = ".txt"

// Config selects what gets mirrored.
type Config struct {
	Root       string
	Extensions []string // without leading dot, applied in order
	Logger     logging.Logger
}

// MirrorStats reports what a mirroring pass wrote.
type MirrorStats struct {
	Shadows []string
	Bytes   int64
}

// ShadowPath returns the shadow file name for src: foo.js -> foo.js.txt.
func ShadowPath(src string) string {
	return src + ShadowSuffix
}

// Mirror writes a shadow copy for every file under cfg.Root whose name ends in
// one of cfg.Extensions. Extensions are processed in order and files are copied
// one at a time; existing shadows are overwritten with the current content.
// The first read or write error stops the pass.
func Mirror(ctx context.Context, cfg Config) (*MirrorStats, error) {
	logger := logging.OrNop(cfg.Logger)
	if strings.TrimSpace(cfg.Root) == "" {
		return nil, errors.New("workspace root is empty")
	}

	stats := &MirrorStats{}
	for _, ext := range cfg.Extensions {
		ext = strings.TrimLeft(strings.TrimSpace(ext), ".")
		if ext == "" {
			continue
		}
		matches, err := collect(ctx, cfg.Root, "."+ext)
		if err != nil {
			return stats, fmt.Errorf("scan %s for *.%s: %w", cfg.Root, ext, err)
		}
		for _, src := range matches {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
			n, err := copyFile(src, ShadowPath(src))
			if err != nil {
				return stats, err
			}
			stats.Shadows = append(stats.Shadows, ShadowPath(src))
			stats.Bytes += n
		}
		logger.Debug("mirrored %d *.%s files", len(matches), ext)
	}

	logger.Info("mirrored %d files (%d bytes) under %s", len(stats.Shadows), stats.Bytes, cfg.Root)
	return stats, nil
}

// collect walks root and returns regular files ending in suffix. Hidden files
// and directories are skipped, like a recursive glob.
func collect(ctx context.Context, root, suffix string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !isRegularFile(path, d) {
			return nil
		}
		if strings.HasSuffix(d.Name(), suffix) && len(d.Name()) > len(suffix) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// isRegularFile accepts regular files and symlinks that resolve to one.
// Dangling links are skipped.
func isRegularFile(path string, d fs.DirEntry) bool {
	if d.Type().IsRegular() {
		return true
	}
	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func copyFile(src, dst string) (int64, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", src, err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return 0, fmt.Errorf("write %s: %w", dst, err)
	}
	return int64(len(data)), nil
}

package workspace

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var defaultExts = []string{"jsx", "js", "ts", "tsx", "json", "md", "html", "css", "scss"}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestMirrorCopiesOnlyAllowListedExtensions(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a", "b.js"), "console.log('b')\n")
	writeFile(t, filepath.Join(root, "a", "c.txt"), "plain text")

	stats, err := Mirror(context.Background(), Config{Root: root, Extensions: defaultExts})
	require.NoError(t, err)

	assert.Equal(t, "console.log('b')\n", readFile(t, filepath.Join(root, "a", "b.js.txt")))
	assert.NoFileExists(t, filepath.Join(root, "a", "c.txt.txt"))
	assert.Equal(t, []string{filepath.Join(root, "a", "b.js.txt")}, stats.Shadows)
	assert.EqualValues(t, len("console.log('b')\n"), stats.Bytes)
}

func TestMirrorOverwritesOnRerun(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "a", "b.js")
	writeFile(t, src, "first version, quite long")

	_, err := Mirror(context.Background(), Config{Root: root, Extensions: defaultExts})
	require.NoError(t, err)

	writeFile(t, src, "second")
	_, err = Mirror(context.Background(), Config{Root: root, Extensions: defaultExts})
	require.NoError(t, err)

	assert.Equal(t, "second", readFile(t, ShadowPath(src)))
}

func TestMirrorFollowsExtensionOrderAndSkipsHidden(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "z.md"), "# z")
	writeFile(t, filepath.Join(root, "deep", "nested", "app.tsx"), "export {}")
	writeFile(t, filepath.Join(root, ".git", "hooks.js"), "hidden dir")
	writeFile(t, filepath.Join(root, ".eslintrc.json"), "{}")

	stats, err := Mirror(context.Background(), Config{Root: root, Extensions: []string{"tsx", ".md"}})
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(root, "deep", "nested", "app.tsx.txt"),
		filepath.Join(root, "z.md.txt"),
	}, stats.Shadows)
	assert.NoFileExists(t, filepath.Join(root, ".git", "hooks.js.txt"))
	assert.NoFileExists(t, filepath.Join(root, ".eslintrc.json.txt"))
}

func TestMirrorDoesNotMirrorShadows(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b.js"), "x")

	for i := 0; i < 2; i++ {
		_, err := Mirror(context.Background(), Config{Root: root, Extensions: defaultExts})
		require.NoError(t, err)
	}
	assert.NoFileExists(t, filepath.Join(root, "b.js.txt.txt"))
}

func TestMirrorFollowsSymlinkedFiles(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(t.TempDir(), "real.js")
	writeFile(t, target, "export const real = 1;")
	link := filepath.Join(root, "src", "link.js")
	require.NoError(t, os.MkdirAll(filepath.Dir(link), 0o755))
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	require.NoError(t, os.Symlink(filepath.Join(root, "missing.js"), filepath.Join(root, "dangling.js")))

	stats, err := Mirror(context.Background(), Config{Root: root, Extensions: []string{"js"}})
	require.NoError(t, err)

	assert.Equal(t, []string{ShadowPath(link)}, stats.Shadows)
	assert.Equal(t, "export const real = 1;", readFile(t, ShadowPath(link)))
	assert.NoFileExists(t, filepath.Join(root, "dangling.js.txt"))
}

func TestMirrorMissingRootFails(t *testing.T) {
	_, err := Mirror(context.Background(), Config{Root: filepath.Join(t.TempDir(), "absent"), Extensions: defaultExts})
	require.Error(t, err)

	_, err = Mirror(context.Background(), Config{Root: " "})
	require.Error(t, err)
}

func TestMirrorHonoursCancellation(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b.js"), "x")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Mirror(ctx, Config{Root: root, Extensions: defaultExts})
	require.ErrorIs(t, err, context.Canceled)
}

func TestCleanRemovesShadowsIncludingStale(t *testing.T) {
	root := t.TempDir()
	kept := filepath.Join(root, "a", "b.js")
	gone := filepath.Join(root, "a", "old.css")
	writeFile(t, kept, "b")
	writeFile(t, gone, "old")
	writeFile(t, filepath.Join(root, "notes.txt"), "not a shadow")

	_, err := Mirror(context.Background(), Config{Root: root, Extensions: defaultExts})
	require.NoError(t, err)
	require.NoError(t, os.Remove(gone))

	removed, err := Clean(context.Background(), Config{Root: root, Extensions: defaultExts})
	require.NoError(t, err)

	assert.Equal(t, 2, removed)
	assert.NoFileExists(t, ShadowPath(kept))
	assert.NoFileExists(t, ShadowPath(gone))
	assert.FileExists(t, kept)
	assert.FileExists(t, filepath.Join(root, "notes.txt"))
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigListFromEnv(t *testing.T) {
	t.Setenv("ORION_TEST_CONFIG_LIST", `[{"model":"gpt-4","api_key":"k1"},{"model":"gpt-3.5-turbo","api_key":"k2"}]`)

	entries, err := LoadConfigList("ORION_TEST_CONFIG_LIST", "gpt-4")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "k1", entries[0].APIKey)
}

func TestLoadConfigListFromYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
- model: gpt-4
  base_url: http://localhost:8080/v1
- model: ""
`), 0o644))

	entries, err := LoadConfigList(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	resolved := entries[0].Resolve(Config{APIKey: "global", BaseURL: DefaultBaseURL})
	require.Equal(t, "global", resolved.APIKey)
	require.Equal(t, "http://localhost:8080/v1", resolved.BaseURL)
}

func TestLoadConfigListFromJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "OAI_CONFIG_LIST")
	require.NoError(t, os.WriteFile(path, []byte(`[{"model":"gpt-4"}]`), 0o644))

	entries, err := LoadConfigList(path)
	require.NoError(t, err)
	require.Equal(t, "gpt-4", entries[0].Model)
}

func TestLoadConfigListErrors(t *testing.T) {
	_, err := LoadConfigList("")
	require.Error(t, err)

	_, err = LoadConfigList(filepath.Join(t.TempDir(), "absent"))
	require.ErrorContains(t, err, "read config list")

	t.Setenv("ORION_TEST_BAD_LIST", `{not json`)
	_, err = LoadConfigList("ORION_TEST_BAD_LIST")
	require.ErrorContains(t, err, "parse env")

	t.Setenv("ORION_TEST_OTHER_LIST", `[{"model":"gpt-3.5-turbo"}]`)
	_, err = LoadConfigList("ORION_TEST_OTHER_LIST", "gpt-4")
	require.ErrorContains(t, err, "no entry")
}

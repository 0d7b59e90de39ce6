package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ModelEndpoint is one entry of a chat model configuration list.
type ModelEndpoint struct {
	Model   string `json:"model" yaml:"model"`
	APIKey  string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	APIType string `json:"api_type,omitempty" yaml:"api_type,omitempty"`
}

// LoadConfigList resolves a model configuration list. When an environment
// variable named envOrFile is set its value is parsed as JSON; otherwise
// envOrFile is read as a JSON or YAML file. Entries are kept when their
// model is in models (all entries when models is empty).
func LoadConfigList(envOrFile string, models ...string) ([]ModelEndpoint, error) {
	envOrFile = strings.TrimSpace(envOrFile)
	if envOrFile == "" {
		return nil, fmt.Errorf("config list name is empty")
	}

	var (
		entries []ModelEndpoint
		source  string
	)
	if raw, ok := os.LookupEnv(envOrFile); ok && strings.TrimSpace(raw) != "" {
		source = "env " + envOrFile
		if err := json.Unmarshal([]byte(raw), &entries); err != nil {
			return nil, fmt.Errorf("parse %s: %w", source, err)
		}
	} else {
		source = envOrFile
		data, err := os.ReadFile(envOrFile)
		if err != nil {
			return nil, fmt.Errorf("read config list: %w", err)
		}
		switch strings.ToLower(filepath.Ext(envOrFile)) {
		case ".yaml", ".yml":
			err = yaml.Unmarshal(data, &entries)
		default:
			err = json.Unmarshal(data, &entries)
		}
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", source, err)
		}
	}

	filtered := filterByModel(entries, models)
	if len(filtered) == 0 {
		if len(models) > 0 {
			return nil, fmt.Errorf("config list %s has no entry for models %v", source, models)
		}
		return nil, fmt.Errorf("config list %s is empty", source)
	}
	return filtered, nil
}

func filterByModel(entries []ModelEndpoint, models []string) []ModelEndpoint {
	wanted := make(map[string]struct{}, len(models))
	for _, m := range models {
		if m = strings.TrimSpace(m); m != "" {
			wanted[m] = struct{}{}
		}
	}
	out := make([]ModelEndpoint, 0, len(entries))
	for _, entry := range entries {
		entry.Model = strings.TrimSpace(entry.Model)
		if entry.Model == "" {
			continue
		}
		if len(wanted) > 0 {
			if _, ok := wanted[entry.Model]; !ok {
				continue
			}
		}
		out = append(out, entry)
	}
	return out
}

// Resolve fills missing credentials from the global configuration.
func (e ModelEndpoint) Resolve(cfg Config) ModelEndpoint {
	if strings.TrimSpace(e.APIKey) == "" {
		e.APIKey = cfg.APIKey
	}
	if strings.TrimSpace(e.BaseURL) == "" {
		e.BaseURL = cfg.BaseURL
	}
	return e
}

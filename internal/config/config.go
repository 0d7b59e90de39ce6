package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Defaults for every recognised option.
const (
	DefaultBaseURL         = "https://api.openai.com/v1"
	DefaultCompletionModel = "text-davinci-004"
	DefaultMaxTokens       = 150
	DefaultWorkspaceRoot   = "workspace"
	DefaultTicketPath      = "ticket.json"
	DefaultConfigList      = "OAI_CONFIG_LIST"
	DefaultChatModel       = "gpt-4"
	DefaultSystemPrompt    = "You are a helpful assistant."
	DefaultEmbeddingModel  = "text-embedding-3-small"
)

// DefaultExtensions is the ordered allow-list of mirrored source extensions.
var DefaultExtensions = []string{"jsx", "js", "ts", "tsx", "json", "md", "html", "css", "scss"}

// Config is the resolved runtime configuration.
type Config struct {
	APIKey         string           `mapstructure:"api_key"`
	BaseURL        string           `mapstructure:"base_url"`
	TimeoutSeconds int              `mapstructure:"timeout_seconds"`
	Completion     CompletionConfig `mapstructure:"completion"`
	Workspace      WorkspaceConfig  `mapstructure:"workspace"`
	Ticket         TicketConfig     `mapstructure:"ticket"`
	Chat           ChatConfig       `mapstructure:"chat"`
	Retrieval      RetrievalConfig  `mapstructure:"retrieval"`
	Log            LogConfig        `mapstructure:"log"`
	Metrics        MetricsConfig    `mapstructure:"metrics"`

	// ConfigFile is the file viper read, empty when only defaults/env were used.
	ConfigFile string `mapstructure:"-"`
}

type CompletionConfig struct {
	Model     string `mapstructure:"model"`
	MaxTokens int    `mapstructure:"max_tokens"`
}

type WorkspaceConfig struct {
	Root         string   `mapstructure:"root"`
	Extensions   []string `mapstructure:"extensions"`
	CleanShadows bool     `mapstructure:"clean_shadows"`
}

type TicketConfig struct {
	Path string `mapstructure:"path"`
}

type ChatConfig struct {
	ConfigList              string `mapstructure:"config_list"`
	Model                   string `mapstructure:"model"`
	Task                    string `mapstructure:"task"`
	SystemPrompt            string `mapstructure:"system_prompt"`
	MaxConsecutiveAutoReply int    `mapstructure:"max_consecutive_auto_reply"`
}

type RetrievalConfig struct {
	EmbeddingModel string  `mapstructure:"embedding_model"`
	Collection     string  `mapstructure:"collection"`
	PersistPath    string  `mapstructure:"persist_path"`
	TopK           int     `mapstructure:"top_k"`
	ChunkSize      int     `mapstructure:"chunk_size"`
	ChunkOverlap   int     `mapstructure:"chunk_overlap"`
	MinSimilarity  float32 `mapstructure:"min_similarity"`
	UpdateContext  bool    `mapstructure:"update_context"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

type loadOptions struct {
	configFile string
	flags      map[string]*pflag.Flag
	overrides  map[string]any
}

// Option customises Load.
type Option func(*loadOptions)

// WithConfigFile reads exactly this file instead of searching the default paths.
func WithConfigFile(path string) Option {
	return func(o *loadOptions) {
		o.configFile = strings.TrimSpace(path)
	}
}

// WithFlag binds a command-line flag to a config key; it wins over file and env when set.
func WithFlag(key string, flag *pflag.Flag) Option {
	return func(o *loadOptions) {
		if flag == nil {
			return
		}
		if o.flags == nil {
			o.flags = map[string]*pflag.Flag{}
		}
		o.flags[key] = flag
	}
}

// WithOverrides sets keys unconditionally after every other source.
func WithOverrides(values map[string]any) Option {
	return func(o *loadOptions) {
		if o.overrides == nil {
			o.overrides = map[string]any{}
		}
		for k, v := range values {
			o.overrides[k] = v
		}
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_key", "")
	v.SetDefault("base_url", DefaultBaseURL)
	v.SetDefault("timeout_seconds", 120)

	v.SetDefault("completion.model", DefaultCompletionModel)
	v.SetDefault("completion.max_tokens", DefaultMaxTokens)

	v.SetDefault("workspace.root", DefaultWorkspaceRoot)
	v.SetDefault("workspace.extensions", DefaultExtensions)
	v.SetDefault("workspace.clean_shadows", false)

	v.SetDefault("ticket.path", DefaultTicketPath)

	v.SetDefault("chat.config_list", DefaultConfigList)
	v.SetDefault("chat.model", DefaultChatModel)
	v.SetDefault("chat.task", "code")
	v.SetDefault("chat.system_prompt", DefaultSystemPrompt)
	v.SetDefault("chat.max_consecutive_auto_reply", 10)

	v.SetDefault("retrieval.embedding_model", DefaultEmbeddingModel)
	v.SetDefault("retrieval.collection", "orion-workspace")
	v.SetDefault("retrieval.persist_path", "")
	v.SetDefault("retrieval.top_k", 5)
	v.SetDefault("retrieval.chunk_size", 512)
	v.SetDefault("retrieval.chunk_overlap", 50)
	v.SetDefault("retrieval.min_similarity", 0.0)
	v.SetDefault("retrieval.update_context", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("metrics.textfile", "")
}

// Load resolves configuration from defaults, the config file, ORION_* environment
// variables, bound flags, and explicit overrides, in increasing precedence.
func Load(opts ...Option) (Config, error) {
	options := loadOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	v := viper.New()
	setDefaults(v)

	if options.configFile != "" {
		v.SetConfigFile(options.configFile)
	} else {
		v.SetConfigName("orion")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".orion"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix("ORION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The OpenAI conventions are honoured alongside the prefixed names.
	_ = v.BindEnv("api_key", "ORION_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("base_url", "ORION_BASE_URL", "OPENAI_BASE_URL")

	for key, flag := range options.flags {
		if err := v.BindPFlag(key, flag); err != nil {
			return Config{}, fmt.Errorf("bind flag %s: %w", key, err)
		}
	}
	for key, value := range options.overrides {
		v.Set(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.ConfigFile = v.ConfigFileUsed()

	normalize(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func normalize(cfg *Config) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	cfg.Completion.Model = strings.TrimSpace(cfg.Completion.Model)
	cfg.Workspace.Root = strings.TrimSpace(cfg.Workspace.Root)
	cfg.Workspace.Extensions = NormalizeExtensions(cfg.Workspace.Extensions)
	cfg.Ticket.Path = strings.TrimSpace(cfg.Ticket.Path)
	cfg.Chat.Model = strings.TrimSpace(cfg.Chat.Model)
	cfg.Chat.Task = strings.ToLower(strings.TrimSpace(cfg.Chat.Task))
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
}

// NormalizeExtensions strips dots and whitespace, lower-cases, and drops
// duplicates while keeping the first occurrence's position.
func NormalizeExtensions(exts []string) []string {
	seen := make(map[string]struct{}, len(exts))
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimLeft(strings.TrimSpace(ext), "."))
		if ext == "" {
			continue
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		out = append(out, ext)
	}
	return out
}

// Validate checks the options the flows cannot run without.
func (c Config) Validate() error {
	var problems []string
	if c.Workspace.Root == "" {
		problems = append(problems, "workspace.root must not be empty")
	}
	if len(c.Workspace.Extensions) == 0 {
		problems = append(problems, "workspace.extensions must list at least one extension")
	}
	if c.Completion.Model == "" {
		problems = append(problems, "completion.model must not be empty")
	}
	if c.Completion.MaxTokens <= 0 {
		problems = append(problems, "completion.max_tokens must be positive")
	}
	switch c.Chat.Task {
	case "code", "qa", "default":
	default:
		problems = append(problems, fmt.Sprintf("chat.task %q must be one of code, qa, default", c.Chat.Task))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

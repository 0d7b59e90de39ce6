package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/neg-0/orion/internal/config"
	"github.com/neg-0/orion/internal/llm"
	"github.com/neg-0/orion/internal/logging"
	"github.com/neg-0/orion/internal/metrics"
	"github.com/neg-0/orion/internal/rag"
)

const skipSetupAnnotation = "orion/skip-setup"

// newChunker is replaced in tests so they do not fetch tokenizer data.
var newChunker = rag.NewChunker

// app is the state shared by every subcommand once setup has run.
type app struct {
	out    io.Writer
	errOut io.Writer

	configFile string
	envFile    string

	cfg     config.Config
	logger  logging.Logger
	metrics *metrics.Metrics
}

// flagBindings maps a command's flag names to config keys.
type flagBindings map[string]string

var rootBindings = flagBindings{
	"log-level":        "log.level",
	"log-format":       "log.format",
	"metrics-textfile": "metrics.textfile",
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	a := &app{out: stdout, errOut: stderr}

	root := &cobra.Command{
		Use:   "orion",
		Short: "Prompt completion and ticket-driven retrieval chat against OpenAI-compatible APIs",
		Long: fmt.Sprintf(`%s

%s
  orion ask                          # translate the sample Python snippet
  orion ask "Summarise RFC 2119"     # any prompt
  orion mirror --root ./workspace    # write .txt shadows of source files
  orion ticket --ticket ticket.json  # chat about a ticket with workspace context`,
			bold("orion "+version),
			bold("EXAMPLES:")),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[skipSetupAnnotation] == "true" {
				return nil
			}
			return a.setup(cmd)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default ./orion.yaml or ~/.orion/orion.yaml)")
	flags.StringVar(&a.envFile, "env-file", config.DefaultDotEnvPath, "dotenv file loaded before configuration")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: text or json")
	flags.String("metrics-textfile", "", "write Prometheus metrics to this file on exit")

	root.AddCommand(newAskCommand(a))
	root.AddCommand(newMirrorCommand(a))
	root.AddCommand(newTicketCommand(a))
	root.AddCommand(newVersionCommand(a))
	return root
}

// setup primes the environment from .env, resolves configuration with the
// command's flags bound, and configures logging and metrics.
func (a *app) setup(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(a.envFile); err != nil {
		return err
	}

	opts := []config.Option{config.WithConfigFile(a.configFile)}
	bindings := []flagBindings{rootBindings}
	if extra, ok := commandBindings[cmd.Name()]; ok {
		bindings = append(bindings, extra)
	}
	for _, set := range bindings {
		for name, key := range set {
			if flag := cmd.Flags().Lookup(name); flag != nil {
				opts = append(opts, config.WithFlag(key, flag))
			}
		}
	}

	cfg, err := config.Load(opts...)
	if err != nil {
		return err
	}
	a.cfg = cfg

	logging.Setup(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: a.errOut})
	a.logger = logging.NewComponentLogger("cli")
	if cfg.ConfigFile != "" {
		a.logger.Debug("using config file %s", cfg.ConfigFile)
	}
	a.metrics = metrics.New()
	return nil
}

// llmConfig builds client settings for an endpoint, wiring token usage into metrics.
func (a *app) llmConfig(apiKey, baseURL string) llm.Config {
	return llm.Config{
		APIKey:  apiKey,
		BaseURL: baseURL,
		Timeout: a.cfg.TimeoutSeconds,
		OnUsage: func(usage llm.TokenUsage, model, endpoint string) {
			a.metrics.AddTokens(endpoint, model, usage.PromptTokens, usage.CompletionTokens)
		},
	}
}

func (a *app) flushMetrics() {
	if err := a.metrics.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
		a.logger.Warn("%v", err)
	}
}

var commandBindings = map[string]flagBindings{
	"ask":    askBindings,
	"mirror": mirrorBindings,
	"ticket": ticketBindings,
}

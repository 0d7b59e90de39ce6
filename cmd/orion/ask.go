package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/neg-0/orion/internal/completion"
	"github.com/neg-0/orion/internal/config"
	orionerrors "github.com/neg-0/orion/internal/errors"
	"github.com/neg-0/orion/internal/llm"
	"github.com/neg-0/orion/internal/logging"
)

var askBindings = flagBindings{
	"model":      "completion.model",
	"max-tokens": "completion.max_tokens",
}

func newAskCommand(a *app) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "ask [prompt...]",
		Short: "Send one prompt to the text-completion endpoint and print the answer",
		Long: `Send one prompt to the text-completion endpoint and print the trimmed answer.
On failure the error description is printed in place of the answer and the
exit status stays 0 unless --strict is set.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := completion.DefaultPrompt
			if len(args) > 0 {
				prompt = strings.Join(args, " ")
			}
			return a.runAsk(cmd, prompt, strict)
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "exit 1 when the completion fails")
	cmd.Flags().StringP("model", "m", "", "completion model (default "+config.DefaultCompletionModel+")")
	cmd.Flags().Int("max-tokens", 0, fmt.Sprintf("maximum tokens to generate (default %d)", config.DefaultMaxTokens))
	return cmd
}

func (a *app) runAsk(cmd *cobra.Command, prompt string, strict bool) error {
	defer a.flushMetrics()

	if a.cfg.APIKey == "" {
		a.logger.Warn("no API key configured; set OPENAI_API_KEY or api_key")
	}
	a.logger.Debug("asking %s with key %s", a.cfg.Completion.Model, logging.SanitizeAPIKey(a.cfg.APIKey))

	client, err := llm.NewOpenAIClient(a.cfg.Completion.Model, a.llmConfig(a.cfg.APIKey, a.cfg.BaseURL))
	if err != nil {
		return err
	}
	requester := completion.NewRequester(client, a.cfg.Completion.MaxTokens, logging.NewComponentLogger("completion"))

	start := time.Now()
	result := requester.Ask(cmd.Context(), prompt)
	a.metrics.ObserveCompletion(result.OK(), time.Since(start))

	fmt.Fprintln(a.out, result.String())
	if strict && !result.OK() {
		return &ExitCodeError{Code: 1, Err: fmt.Errorf("completion failed: %s", orionerrors.FormatForUser(result.Err))}
	}
	return nil
}

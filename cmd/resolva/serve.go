package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/m-mizutani/resolva"
	"github.com/m-mizutani/resolva/llm"
	"github.com/m-mizutani/resolva/llm/claude"
	"github.com/m-mizutani/resolva/llm/openai"
	"github.com/m-mizutani/resolva/record"
	"github.com/m-mizutani/resolva/retrieval"
	"github.com/m-mizutani/resolva/strategy/react"
	"github.com/m-mizutani/resolva/strategy/rules"
	"github.com/m-mizutani/resolva/tools"
	"github.com/urfave/cli/v3"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the resolution API server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Value:   ":8080",
				Sources: cli.EnvVars("RESOLVA_ADDR"),
				Usage:   "Server listen address",
			},
			&cli.StringFlag{
				Name:    "weaviate-host",
				Value:   "localhost:8090",
				Sources: cli.EnvVars("RESOLVA_WEAVIATE_HOST"),
				Usage:   "Weaviate host",
			},
			&cli.StringFlag{
				Name:    "weaviate-scheme",
				Value:   "http",
				Sources: cli.EnvVars("RESOLVA_WEAVIATE_SCHEME"),
				Usage:   "Weaviate connection scheme",
			},
			&cli.StringFlag{
				Name:    "llm-provider",
				Value:   "openai",
				Sources: cli.EnvVars("RESOLVA_LLM_PROVIDER"),
				Usage:   "LLM provider (openai or claude)",
			},
			&cli.StringFlag{
				Name:    "llm-model",
				Sources: cli.EnvVars("RESOLVA_LLM_MODEL"),
				Usage:   "Override the provider's default model",
			},
			&cli.StringFlag{
				Name:    "openai-api-key",
				Sources: cli.EnvVars("OPENAI_API_KEY"),
				Usage:   "OpenAI API key",
			},
			&cli.StringFlag{
				Name:    "anthropic-api-key",
				Sources: cli.EnvVars("ANTHROPIC_API_KEY"),
				Usage:   "Anthropic API key",
			},
			&cli.StringFlag{
				Name:    "record-dir",
				Sources: cli.EnvVars("RESOLVA_RECORD_DIR"),
				Usage:   "Directory for session record JSON files (disabled when empty)",
			},
			&cli.IntFlag{
				Name:    "step-budget",
				Value:   resolva.DefaultStepBudget,
				Sources: cli.EnvVars("RESOLVA_STEP_BUDGET"),
				Usage:   "Maximum act steps per session",
			},
			&cli.FloatFlag{
				Name:    "score-threshold",
				Value:   resolva.DefaultScoreThreshold,
				Sources: cli.EnvVars("RESOLVA_SCORE_THRESHOLD"),
				Usage:   "Evidence sufficiency threshold",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Sources: cli.EnvVars("RESOLVA_LOG_LEVEL"),
				Usage:   "Log level (debug, info, warn, error)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			logger := newLogger(cmd.String("log-level"))

			llmClient, err := newLLMClient(cmd)
			if err != nil {
				return err
			}

			store, err := retrieval.New(cmd.String("weaviate-host"),
				retrieval.WithScheme(cmd.String("weaviate-scheme")),
			)
			if err != nil {
				return err
			}

			registry, err := resolva.NewRegistry(tools.All(store, store, store)...)
			if err != nil {
				return err
			}

			recorderOpts := []record.Option{record.WithLogger(logger)}
			if dir := cmd.String("record-dir"); dir != "" {
				recorderOpts = append(recorderOpts,
					record.WithRepository(record.NewFileRepository(dir)))
			}

			engine, err := resolva.New(llmClient, registry,
				resolva.WithLogger(logger),
				resolva.WithRecorder(record.New(recorderOpts...)),
				resolva.WithStepBudget(int(cmd.Int("step-budget"))),
				resolva.WithScoreThreshold(cmd.Float("score-threshold")),
				resolva.WithStrategy(rules.New()),
				resolva.WithStrategy(react.New(llmClient)),
				resolva.WithDefaultStrategy("rules"),
			)
			if err != nil {
				return err
			}

			s := newServer(engine, withAddr(cmd.String("addr")), withLogger(logger))
			return s.start(ctx)
		},
	}
}

func newLLMClient(cmd *cli.Command) (llm.Client, error) {
	provider := cmd.String("llm-provider")
	model := cmd.String("llm-model")

	switch provider {
	case "openai":
		key := cmd.String("openai-api-key")
		if key == "" {
			return nil, fmt.Errorf("--openai-api-key is required for the openai provider")
		}
		var opts []openai.Option
		if model != "" {
			opts = append(opts, openai.WithModel(model))
		}
		client, err := openai.New(key, opts...)
		if err != nil {
			return nil, err
		}
		return client, nil

	case "claude":
		key := cmd.String("anthropic-api-key")
		if key == "" {
			return nil, fmt.Errorf("--anthropic-api-key is required for the claude provider")
		}
		var opts []claude.Option
		if model != "" {
			opts = append(opts, claude.WithModel(model))
		}
		client, err := claude.New(key, opts...)
		if err != nil {
			return nil, err
		}
		return client, nil

	default:
		return nil, fmt.Errorf("unknown llm provider: %s", provider)
	}
}

func newLogger(level string) *slog.Logger {
	var lv slog.Level
	switch level {
	case "debug":
		lv = slog.LevelDebug
	case "warn":
		lv = slog.LevelWarn
	case "error":
		lv = slog.LevelError
	default:
		lv = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lv}))
}

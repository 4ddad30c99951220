// Command assistant talks to an OpenAI assistant from the command line.
//
//	assistant ask [-config file] [question...]   ask a question (stdin when no args)
//	assistant export-schemas [-config file] [-dir dir]
//	assistant definitions [-config file]         print tool definitions as JSON
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sashabaranov/go-openai"

	"github.com/skosovsky/agentrun"
	"github.com/skosovsky/agentrun/internal/config"
)

const usage = `usage:
  assistant ask [-config file] [question...]
  assistant export-schemas [-config file] [-dir dir]
  assistant definitions [-config file]`

var errUsage = errors.New(usage)

// newAssistantClient builds the remote client; replaced in tests.
var newAssistantClient = func(apiKey string) agentrun.AssistantClient {
	return openai.NewClient(apiKey)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout)
	stop()
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "assistant:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "ask":
		return ask(ctx, args[1:], stdin, stdout)
	case "export-schemas":
		return exportSchemas(ctx, args[1:])
	case "definitions":
		return definitions(args[1:], stdout)
	default:
		return fmt.Errorf("unknown command %q\n%w", args[0], errUsage)
	}
}

func ask(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("ask", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to the YAML configuration")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if err := errors.Join(cfg.Validate(), cfg.RequireAPIKey()); err != nil {
		return err
	}
	question, err := readQuestion(fs.Args(), stdin)
	if err != nil {
		return err
	}

	logger := newLogger(cfg)
	fns, err := buildFunctions(cfg, agentrun.NewRegistry(), logger, agentrun.WithArgumentValidation())
	if err != nil {
		return err
	}
	store, closeStore, err := openThreadStore(ctx, cfg.ThreadStore)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("closing thread store", "error", err)
		}
	}()

	opts := []agentrun.Option{
		agentrun.WithFunctions(fns...),
		agentrun.WithPollingInterval(cfg.PollingInterval),
		agentrun.WithThreadStore(store),
	}
	if cfg.Log {
		opts = append(opts, agentrun.WithLogger(logger))
	}
	ctrl, err := agentrun.New(newAssistantClient(cfg.OpenAIAPIKey), cfg.AgentID, opts...)
	if err != nil {
		return err
	}

	answer, ok, err := ctrl.Complete(ctx, question)
	if err != nil {
		return err
	}
	if !ok {
		answer = "(no answer)"
	}
	_, err = fmt.Fprintln(stdout, answer)
	return err
}

func exportSchemas(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export-schemas", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to the YAML configuration")
	dir := fs.String("dir", "", "Output directory (defaults to schema_dir)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if err := cfg.ValidateFunctions(); err != nil {
		return err
	}
	if *dir == "" {
		*dir = cfg.SchemaDir
	}

	logger := newLogger(cfg)
	reg := agentrun.NewRegistry()
	if _, err := buildFunctions(cfg, reg, logger); err != nil {
		return err
	}
	return reg.ExportSchemas(ctx, *dir, logger)
}

// definitions prints the configured functions in the remote tool format, ready
// to paste into the assistant definition.
func definitions(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("definitions", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to the YAML configuration")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if err := cfg.ValidateFunctions(); err != nil {
		return err
	}
	fns, err := buildFunctions(cfg, agentrun.NewRegistry(), newLogger(cfg))
	if err != nil {
		return err
	}
	tools := make([]openai.Tool, 0, len(fns))
	for _, fn := range fns {
		def := fn.Schema().Definition()
		tools = append(tools, openai.Tool{Type: openai.ToolTypeFunction, Function: &def})
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(tools)
}

// readQuestion joins the positional arguments, or reads stdin when there are none.
func readQuestion(args []string, stdin io.Reader) (string, error) {
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" && stdin != nil {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read question: %w", err)
		}
		question = strings.TrimSpace(string(data))
	}
	if question == "" {
		return "", errors.New("question is required")
	}
	return question, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelWarn
	if cfg.Log {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

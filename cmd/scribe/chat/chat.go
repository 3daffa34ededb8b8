package chatcmder

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/scribe/pkg/config"
	"github.com/papercomputeco/scribe/pkg/history"
	"github.com/papercomputeco/scribe/pkg/logger"
	"github.com/papercomputeco/scribe/pkg/tool"
	"github.com/papercomputeco/scribe/session"
)

const chatLongDesc string = `Start an interactive conversation in the terminal.

With --document, the conversation is tied to that file: its history is
saved next to it, and the model gets tools to read and modify it.

Examples:
  scribe chat
  scribe chat --document model.scad
  scribe chat --config ~/.scribe/scribe.toml --model claude-opus-4-20250514`

const chatShortDesc string = "Start an interactive conversation"

type chatCommander struct {
	configPath string
	document   string
	model      string
	debug      bool
}

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.configPath, "config", "c", "", "Path to TOML config file")
	cmd.Flags().StringVarP(&cmder.document, "document", "d", "", "Document to tie the conversation to")
	cmd.Flags().StringVarP(&cmder.model, "model", "m", "", "Model identifier (overrides config)")
	cmd.Flags().BoolVar(&cmder.debug, "debug", false, "Enable debug logging")

	return cmd
}

func (c *chatCommander) run(ctx context.Context, cmd *cobra.Command) error {
	log := logger.NewLogger(c.debug)
	defer log.Sync()

	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.model != "" {
		cfg.Model = c.model
	}
	if cfg.APIKey == "" {
		key, err := promptAPIKey(cmd)
		if err != nil {
			return err
		}
		cfg.APIKey = key
	}

	hist := history.New(log)
	if c.document != "" {
		hist.SetDocument(c.document)
	}

	var tools tool.Executor
	if c.document != "" {
		tools = tool.EditorTools(newFileHost(c.document))
	}

	printer := newPrinter(cmd.OutOrStdout())
	sess := session.New(sessionConfig(cfg), hist, tools, printer, log)

	// Config edits (a new key, a different model) take effect mid-session.
	if c.configPath != "" {
		watcher, err := config.NewWatcher(c.configPath, func(cfg config.Config) {
			sess.UpdateConfig(sessionConfig(cfg))
		}, log)
		if err != nil {
			return err
		}
		defer watcher.Close()
		go watcher.Run(ctx)
	}

	return c.repl(ctx, cmd, sess, printer)
}

// repl reads lines from stdin and runs one conversation cycle per line.
func (c *chatCommander) repl(ctx context.Context, cmd *cobra.Command, sess *session.Session, printer *printer) error {
	out := cmd.OutOrStdout()
	scanner := bufio.NewScanner(cmd.InOrStdin())

	fmt.Fprintln(out, "Type a message, /clear to reset the conversation, or /quit to exit.")

	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
			continue
		case line == "/quit" || line == "/exit":
			return nil
		case line == "/clear":
			sess.History().Clear()
			fmt.Fprintln(out, "Conversation cleared.")
			continue
		}

		if err := sess.Send(line); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}

		select {
		case <-printer.cycleDone:
		case <-ctx.Done():
			sess.Cancel()
			return nil
		}
	}
}

// promptAPIKey reads the API key without echoing when stdin is a
// terminal.
func promptAPIKey(cmd *cobra.Command) (string, error) {
	fmt.Fprint(cmd.OutOrStdout(), "API key: ")

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(cmd.OutOrStdout())
		if err != nil {
			return "", fmt.Errorf("failed to read API key: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read API key: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func sessionConfig(cfg config.Config) session.Config {
	return session.Config{
		APIKey:       cfg.APIKey,
		Model:        cfg.Model,
		MaxTokens:    cfg.MaxTokens,
		SystemPrompt: cfg.SystemPrompt,
		Endpoint:     cfg.Endpoint,
		RetryDelay:   retryDelay(cfg),
	}
}

func retryDelay(cfg config.Config) time.Duration {
	return time.Duration(cfg.RetryDelaySeconds) * time.Second
}

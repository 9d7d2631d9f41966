// Package main provides the chatfmt CLI for formatting assistant replies and
// browsing chat transcripts.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"chatfmt/internal/config"
	"chatfmt/internal/document"
	"chatfmt/internal/format"
	"chatfmt/internal/logger"
	"chatfmt/internal/model"
	"chatfmt/internal/store"
	_ "chatfmt/internal/transcript" // registers the chat and bank dialects

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var version = "dev"

var (
	dialectFlag string
	logLevel    string
	logJSON     bool
)

var rootCmd = &cobra.Command{
	Use:           "chatfmt",
	Short:         "Format assistant replies and browse chat transcripts",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		level := logLevel
		if level == "" {
			level = os.Getenv("CHATFMT_LOG_LEVEL")
		}
		if level == "" {
			level = string(logger.InfoLevel)
		}
		log := logger.Setup(level, logJSON)
		cmd.SetContext(logger.ContextWithLogger(cmd.Context(), log))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dialectFlag, "dialect", "",
		"transcript dialect: 'chat' or 'bank' (env: CHATFMT_DIALECT, default: chat)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log level: debug, info, warn, or error (env: CHATFMT_LOG_LEVEL)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "emit logs as JSON")

	rootCmd.AddCommand(newFormatCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newViewCmd())
	rootCmd.AddCommand(newInfoCmd())
	rootCmd.AddCommand(newAskCmd())
	rootCmd.AddCommand(newChatCmd())
	rootCmd.AddCommand(newServeCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "chatfmt: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the environment configuration, with --dialect taking
// precedence over CHATFMT_DIALECT.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if dialectFlag != "" {
		cfg.Dialect = dialectFlag
	}
	return cfg, nil
}

// newParser returns the transcript parser for the configured dialect.
func newParser(cfg *config.Config) (model.Parser, error) {
	parser, err := model.NewParser(model.Dialect(strings.ToLower(cfg.Dialect)))
	if err != nil {
		return nil, fmt.Errorf("create parser: %w", err)
	}
	return parser, nil
}

// profileFor returns the inline profile matching the configured dialect.
func profileFor(cfg *config.Config) document.Profile {
	return format.ProfileFor(model.Dialect(strings.ToLower(cfg.Dialect)))
}

func resolveTranscriptPath(parser model.Parser, arg, root string) (string, error) {
	if arg == "" {
		return "", fmt.Errorf("transcript identifier is empty")
	}

	if info, err := os.Stat(arg); err == nil && !info.IsDir() {
		return arg, nil
	}

	for _, candidate := range []string{filepath.Join(root, arg), filepath.Join(root, arg+".jsonl")} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return store.FindPath(parser, root, arg)
}

// terminalWidth returns the width of out when it is a terminal, then
// $COLUMNS, then 80.
func terminalWidth(out io.Writer) int {
	if f, ok := out.(*os.File); ok {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			return w
		}
	}
	if cols, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && cols > 0 {
		return cols
	}
	return 80
}

func collapseWhitespace(text string) string {
	return strings.Join(strings.Fields(strings.TrimSpace(text)), " ")
}

func clipSummary(text string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	if maxLen == 1 {
		return "…"
	}
	return string(runes[:maxLen-1]) + "…"
}

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"chatfmt/internal/document"
	"chatfmt/internal/logger"
	"chatfmt/internal/render"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// outputOptions holds the rendering flags shared by format and ask.
type outputOptions struct {
	format       string
	width        int
	forceColor   bool
	forceNoColor bool
}

func (o *outputOptions) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&o.format, "format", "text", "output format: "+strings.Join(render.Formats, ", "))
	flags.IntVar(&o.width, "width", 0, "wrap text output at the given width (default: terminal width)")
	flags.BoolVar(&o.forceColor, "color", false, "force-enable ANSI styles even when stdout is not a TTY")
	flags.BoolVar(&o.forceNoColor, "no-color", false, "disable ANSI styles regardless of terminal detection")
}

func (o *outputOptions) resolve(out io.Writer) (render.Options, error) {
	if o.forceColor && o.forceNoColor {
		return render.Options{}, errors.New("--color and --no-color cannot be used together")
	}
	opts := render.Options{Format: strings.ToLower(o.format), Width: o.width}
	if opts.Width <= 0 {
		opts.Width = terminalWidth(out)
	}
	switch {
	case o.forceColor:
		opts.Color = true
	case o.forceNoColor:
		opts.Color = false
	default:
		opts.Color = colorTerminal(out)
	}
	return opts, nil
}

func colorTerminal(out io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// writeReply formats raw with profile and renders it to out.
func writeReply(cmd *cobra.Command, raw string, profile document.Profile, opts render.Options) error {
	doc := render.SafeWith(raw, profile)
	logger.FromContext(cmd.Context()).Debug("formatted reply",
		"profile", profile, "layout", doc.Layout, "blocks", len(doc.Blocks), "tables", len(doc.Tables()))
	return render.Write(cmd.OutOrStdout(), doc, opts)
}

func newFormatCmd() *cobra.Command {
	var (
		output      outputOptions
		profileFlag string
	)

	cmd := &cobra.Command{
		Use:   "format [file]",
		Short: "Format an assistant reply read from a file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := output.resolve(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			profile, err := document.ParseProfile(profileFlag)
			if err != nil {
				return err
			}

			var data []byte
			if len(args) == 0 || args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}

			return writeReply(cmd, string(data), profile, opts)
		},
	}
	output.register(cmd)
	cmd.Flags().StringVar(&profileFlag, "profile", string(document.ProfileAudit),
		"inline rules: audit (report labels and headers) or bank (italics, code, rupee amounts)")

	return cmd
}

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/haasonsaas/agentrunner/internal/config"
)

// buildInteractiveCmd wraps ProcessMessage in a REPL: one line in, one
// response out, until "exit"/"quit" or EOF.
func buildInteractiveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "interactive",
		Short: "Start an interactive REPL",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			rt, err := newRuntime(cfg, slog.Default())
			if err != nil {
				return fmt.Errorf("initialize runtime: %w", err)
			}
			defer rt.Close()

			return runREPL(cmd.Context(), rt, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

// runREPL reads one line at a time from in and writes prompts/responses
// to out. When in is a real terminal, term.GetSize supplies the window
// width and each response is wrapped to it; a non-terminal in (pipes,
// tests) skips that and prints responses unwrapped.
func runREPL(ctx context.Context, rt *runtime, in io.Reader, out io.Writer) error {
	width := 0
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil {
			width = w
		}
	}

	scanner := bufio.NewScanner(in)
	fmt.Fprintln(out, "agentrunner interactive. Type 'exit' or 'quit' to leave.")
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}

		response, err := rt.Query(ctx, line)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		fmt.Fprintln(out, wrapToWidth(response, width))
	}
}

// wrapToWidth, when width > 0, replaces the first space at or past each
// width-th column with a newline; words are never split, so a line can run
// longer than width. Otherwise it returns text unchanged.
func wrapToWidth(text string, width int) string {
	if width <= 0 || len(text) <= width {
		return text
	}
	var b strings.Builder
	line := 0
	for _, r := range text {
		if line >= width && r == ' ' {
			b.WriteByte('\n')
			line = 0
			continue
		}
		b.WriteRune(r)
		line++
	}
	return b.String()
}

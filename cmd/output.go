package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/zpools-io/zpools-cli/internal/adapters/render/live"
	"github.com/zpools-io/zpools-cli/internal/application"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printView(w io.Writer, view string) error {
	_, err := fmt.Fprintln(w, view)
	return err
}

type fdWriter interface {
	Fd() uintptr
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(fdWriter)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// terminalWidth reports the column count of w, or zero when unknown.
func terminalWidth(w io.Writer) int {
	f, ok := w.(fdWriter)
	if !ok {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return width
}

// display picks the live region for interactive output. JSON mode and piped
// output get no progress frames at all.
func display(cmd *cobra.Command, asJSON bool) application.Display {
	out := cmd.OutOrStdout()
	if asJSON || !isTerminal(out) {
		return application.DiscardDisplay{}
	}
	return live.NewRegion(out, terminalWidth(out))
}

func confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	_, _ = fmt.Fprintf(out, "%s [y/N]: ", question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		if err == io.EOF {
			return false, nil
		}
		return false, fmt.Errorf("read confirmation: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

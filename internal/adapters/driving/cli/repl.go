package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docent/internal/core/domain"
)

// repl reads questions until EOF or "exit". Errors from handle are printed
// and the loop continues, except cancellation and a missing session.
func repl(cmd *cobra.Command, prompt string, handle func(ctx context.Context, question string) error) error {
	ctx := cmd.Context()
	scanner := bufio.NewScanner(cmd.InOrStdin())
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	out := cmd.OutOrStdout()

	for {
		fmt.Fprint(out, prompt)
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		question := strings.TrimSpace(scanner.Text())
		switch question {
		case "":
			continue
		case "exit", "quit", ":q":
			return nil
		}

		err := handle(ctx, question)
		switch {
		case err == nil:
		case errors.Is(err, context.Canceled), errors.Is(err, domain.ErrNoSession):
			return err
		default:
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
		fmt.Fprintln(out)
	}
}

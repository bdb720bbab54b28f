package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/core/ports/driving"
)

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Header = text.FormatDefault
	return t
}

func printCitations(w io.Writer, citations []domain.Citation) {
	if len(citations) == 0 {
		return
	}
	fmt.Fprintln(w, "\nSources:")
	for _, c := range citations {
		fmt.Fprintf(w, "  [%s #%d] %s\n", c.Source, c.Position, excerpt(c.Excerpt, 70))
	}
}

func printTurn(w io.Writer, turn domain.Turn) {
	fmt.Fprintln(w, turn.Answer)
	printCitations(w, turn.Citations)
}

// lastTurn returns the most recent recorded turn.
func lastTurn(sess *driving.Session) (domain.Turn, bool) {
	sess.Lock()
	defer sess.Unlock()
	if len(sess.History) == 0 {
		return domain.Turn{}, false
	}
	return sess.History[len(sess.History)-1], true
}

// excerpt flattens s to one line of at most n runes.
func excerpt(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

package cli

import (
	"context"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/docent/internal/adapters/driving/tui"
	"github.com/custodia-labs/docent/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docent/internal/core/ports/driving"
	"github.com/custodia-labs/docent/internal/logger"
	"github.com/custodia-labs/docent/internal/watch"
)

var (
	chatTUI   bool
	chatWatch bool
)

var chatCmd = &cobra.Command{
	Use:   "chat FILE",
	Short: "Chat with a document",
	Long: `Load a .txt, .md, .html, .docx, .pdf, or .eml file and answer questions about it.

Answers come only from the document. When it does not contain the answer,
docent says "I don't know." Type 'exit' or press Ctrl-D to leave.`,
	Args: cobra.ExactArgs(1),
	RunE: runChat,
}

func init() {
	chatCmd.Flags().BoolVar(&chatTUI, "tui", false, "open the full-screen chat")
	chatCmd.Flags().BoolVarP(&chatWatch, "watch", "w", false, "reload the document when it changes")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	svc, err := loadServices(cmd.Context())
	if err != nil {
		return err
	}
	path := args[0]

	done := logger.Timed("ingest " + path)
	sess, err := svc.Chat.Open(cmd.Context(), path)
	done()
	if err != nil {
		return err
	}

	if chatTUI {
		return runChatTUI(cmd, svc.Chat, sess, path)
	}

	if chatWatch {
		notify := func(err error) {
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "\nreload failed: %v\n", err)
				return
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "\n(%s reloaded)\n", path)
		}
		stop, err := startWatch(cmd.Context(), svc.Chat, sess, path, notify)
		if err != nil {
			return err
		}
		defer stop()
	}

	cmd.Printf("Loaded %s: %d chunks.\n\n", sess.Label, len(sess.Chunks))
	return repl(cmd, "> ", func(ctx context.Context, q string) error {
		return answer(ctx, cmd.OutOrStdout(), svc.Chat, sess, q)
	})
}

// answer streams to a terminal and prints whole answers elsewhere.
func answer(ctx context.Context, out io.Writer, chat driving.ChatService, sess *driving.Session, q string) error {
	if !isTerminal(out) {
		turn, err := chat.Ask(ctx, sess, q)
		if err != nil {
			return err
		}
		printTurn(out, turn)
		return nil
	}

	for frag, err := range chat.AskStream(ctx, sess, q) {
		if err != nil {
			return err
		}
		fmt.Fprint(out, frag)
	}
	fmt.Fprintln(out)
	if turn, ok := lastTurn(sess); ok {
		printCitations(out, turn.Citations)
	}
	return nil
}

// startWatch reloads sess whenever path changes and reports each outcome.
func startWatch(
	ctx context.Context, chat driving.ChatService, sess *driving.Session, path string, notify func(error),
) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	w, err := watch.New([]string{path}, watch.DefaultDebounce, func(p string) {
		notify(chat.Reload(ctx, sess, p))
	})
	if err != nil {
		cancel()
		return nil, err
	}
	go func() {
		if err := w.Run(ctx); err != nil {
			logger.Warn("watch stopped: %v", err)
		}
	}()
	return cancel, nil
}

func runChatTUI(cmd *cobra.Command, chat driving.ChatService, sess *driving.Session, path string) error {
	app, err := tui.NewApp(&tui.Ports{Chat: chat, Session: sess})
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	app.WithContext(cmd.Context())

	p := tea.NewProgram(app, tea.WithAltScreen())

	if chatWatch {
		stop, err := startWatch(cmd.Context(), chat, sess, path, func(err error) {
			p.Send(messages.SessionReloaded{Path: path, Err: err})
		})
		if err != nil {
			return err
		}
		defer stop()
	}

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docent/internal/core/domain"
)

var (
	meetingSummary bool
	meetingAsk     bool
)

var meetingCmd = &cobra.Command{
	Use:   "meeting VIDEO",
	Short: "Transcribe, summarise, and question a recording",
	Long: `Extract the audio from a recording, transcribe it in segments, and
optionally summarise it or answer questions about it.

Every stage is saved next to the others under ~/.docent/meetings, so running
the command again resumes where it stopped.`,
	Args: cobra.ExactArgs(1),
	RunE: runMeeting,
}

func init() {
	meetingCmd.Flags().BoolVar(&meetingSummary, "summary", false, "print a summary of the transcript")
	meetingCmd.Flags().BoolVar(&meetingAsk, "ask", false, "ask questions about the transcript")
	rootCmd.AddCommand(meetingCmd)
}

func runMeeting(cmd *cobra.Command, args []string) error {
	svc, err := loadServices(cmd.Context())
	if err != nil {
		return err
	}

	cmd.Printf("Preparing %s...\n", args[0])
	m, err := svc.Meeting.Prepare(cmd.Context(), args[0])
	if err != nil {
		if m != nil && len(m.Segments) > 0 {
			cmd.PrintErrf("Stopped after %d segments; run again to resume.\n", len(m.Segments))
		}
		return err
	}
	cmd.Printf("Transcript: %s\n", m.TranscriptPath())

	if !meetingSummary && !meetingAsk {
		fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n", m.Transcript)
		return nil
	}

	if meetingSummary {
		summary, err := svc.Meeting.Summarise(cmd.Context(), m, func(done, total int) {
			cmd.PrintErrf("\rSummarising %d/%d", done, total)
		})
		cmd.PrintErrln()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n", summary)
	}

	if meetingAsk {
		sess, err := svc.Meeting.Open(cmd.Context(), m)
		if err != nil {
			if errors.Is(err, domain.ErrEmptyContext) {
				return errors.New("the transcript is empty")
			}
			return err
		}
		cmd.Println()
		return repl(cmd, "> ", func(ctx context.Context, q string) error {
			return answer(ctx, cmd.OutOrStdout(), svc.Chat, sess, q)
		})
	}
	return nil
}

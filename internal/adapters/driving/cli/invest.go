package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/core/ports/driving"
	"github.com/custodia-labs/docent/internal/logger"
)

var investFollowUp bool

var investCmd = &cobra.Command{
	Use:   "invest QUESTION",
	Short: "Research a company and recommend whether to buy its stock",
	Long: `Research a company with market data tools and give a buy or don't-buy
recommendation.

The agent looks up the stock symbol, the company overview, its income
statements and balance sheets, and its recent weekly stock performance. Market
data requires an Alpha Vantage key (finance.alphavantage_key or
ALPHAVANTAGE_API_KEY).

With --chat the conversation stays open for follow-up questions, which can
refer to the companies and figures already looked up.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInvest,
}

func init() {
	investCmd.Flags().BoolVarP(&investFollowUp, "chat", "c", false, "keep the conversation open for follow-up questions")
	rootCmd.AddCommand(investCmd)
}

func runInvest(cmd *cobra.Command, args []string) error {
	svc, err := loadServices(cmd.Context())
	if err != nil {
		return err
	}

	thread := svc.Research.NewThread()
	ask := func(ctx context.Context, question string) error {
		return investAsk(ctx, cmd, svc.Research, thread, question)
	}
	if err := ask(cmd.Context(), strings.Join(args, " ")); err != nil {
		return err
	}
	if !investFollowUp {
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout())
	return repl(cmd, "follow-up> ", ask)
}

func investAsk(ctx context.Context, cmd *cobra.Command, research driving.ResearchService, thread *driving.ResearchThread, question string) error {
	done := logger.Timed("research")
	answer, err := research.Research(ctx, thread, question, func(call domain.ToolCall) {
		cmd.PrintErrf("→ %s(%s)\n", call.Kind, call.Input)
	})
	done()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n", answer)
	return nil
}

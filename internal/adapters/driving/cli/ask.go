package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docent/internal/core/domain"
)

var askJSON bool

var askCmd = &cobra.Command{
	Use:   "ask FILE QUESTION",
	Short: "Answer one question about a document",
	Args:  cobra.ExactArgs(2),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the answer and citations as JSON")
	rootCmd.AddCommand(askCmd)
}

type askOutput struct {
	Question  string            `json:"question"`
	Answer    string            `json:"answer"`
	Citations []domain.Citation `json:"citations"`
}

func runAsk(cmd *cobra.Command, args []string) error {
	svc, err := loadServices(cmd.Context())
	if err != nil {
		return err
	}
	sess, err := svc.Chat.Open(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	turn, err := svc.Chat.Ask(cmd.Context(), sess, args[1])
	if err != nil {
		return err
	}

	if !askJSON {
		printTurn(cmd.OutOrStdout(), turn)
		return nil
	}
	citations := turn.Citations
	if citations == nil {
		citations = []domain.Citation{}
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(askOutput{Question: turn.Question, Answer: turn.Answer, Citations: citations})
}

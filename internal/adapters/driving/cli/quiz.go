package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/docent/internal/core/domain"
)

var (
	quizFile       string
	quizWiki       string
	quizDifficulty string
)

var quizCmd = &cobra.Command{
	Use:   "quiz",
	Short: "Take a multiple-choice quiz on a file or topic",
	Long: `Generate a multiple-choice quiz from a local file or from Wikipedia
articles about a topic, then answer it interactively.

Answer each question with its number or letter.`,
	Args: cobra.NoArgs,
	RunE: runQuiz,
}

func init() {
	quizCmd.Flags().StringVar(&quizFile, "file", "", "file to quiz on")
	quizCmd.Flags().StringVar(&quizWiki, "wiki", "", "Wikipedia topic to quiz on")
	quizCmd.Flags().StringVar(&quizDifficulty, "difficulty", string(domain.DifficultyEasy), "easy or hard")
	quizCmd.MarkFlagsMutuallyExclusive("file", "wiki")
	quizCmd.MarkFlagsOneRequired("file", "wiki")
	rootCmd.AddCommand(quizCmd)
}

func runQuiz(cmd *cobra.Command, _ []string) error {
	difficulty := domain.Difficulty(strings.ToLower(quizDifficulty))
	if !difficulty.IsValid() {
		return fmt.Errorf("invalid difficulty %q: use easy or hard", quizDifficulty)
	}

	svc, err := loadServices(cmd.Context())
	if err != nil {
		return err
	}

	var quiz *domain.Quiz
	if quizFile != "" {
		quiz, err = svc.Quiz.FromFile(cmd.Context(), quizFile, difficulty)
	} else {
		quiz, err = svc.Quiz.FromTopic(cmd.Context(), quizWiki, difficulty)
	}
	if err != nil {
		return err
	}

	choices, err := takeQuiz(cmd.InOrStdin(), cmd.OutOrStdout(), quiz)
	if err != nil {
		return err
	}
	printResults(cmd.OutOrStdout(), quiz, choices)
	return nil
}

// takeQuiz asks every question and returns the chosen option per question.
// Input ending early leaves the remaining questions unanswered.
func takeQuiz(in io.Reader, out io.Writer, quiz *domain.Quiz) (map[int]int, error) {
	if len(quiz.Questions) == 0 {
		return nil, errors.New("the quiz has no questions")
	}
	reader := bufio.NewReader(in)
	choices := make(map[int]int, len(quiz.Questions))

	for i, q := range quiz.Questions {
		fmt.Fprintf(out, "\n%d. %s\n", i+1, q.Question)
		for j, a := range q.Answers {
			fmt.Fprintf(out, "   %c) %s\n", 'a'+j, a.Answer)
		}
		for {
			fmt.Fprint(out, "Your answer: ")
			line, err := reader.ReadString('\n')
			if choice, ok := parseOption(line, len(q.Answers)); ok {
				choices[i] = choice
				break
			}
			if err != nil {
				fmt.Fprintln(out)
				return choices, nil
			}
			fmt.Fprintf(out, "Pick 1-%d or a-%c.\n", len(q.Answers), 'a'+len(q.Answers)-1)
		}
	}
	return choices, nil
}

// parseOption reads "2", "b", or "B" as option index 1.
func parseOption(s string, n int) (int, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, false
	}
	if v, err := strconv.Atoi(s); err == nil {
		if v >= 1 && v <= n {
			return v - 1, true
		}
		return 0, false
	}
	if len(s) == 1 && s[0] >= 'a' && int(s[0]-'a') < n {
		return int(s[0] - 'a'), true
	}
	return 0, false
}

func printResults(w io.Writer, quiz *domain.Quiz, choices map[int]int) {
	res := quiz.Grade(choices)

	fmt.Fprintln(w)
	t := newTable(w)
	t.AppendHeader(table.Row{"#", "Question", "Your answer", "Correct answer", ""})
	for i, q := range quiz.Questions {
		yours := "-"
		if c, ok := choices[i]; ok {
			yours = q.Answers[c].Answer
		}
		mark := "✗"
		if c, ok := choices[i]; ok && c == q.CorrectIndex() {
			mark = "✓"
		}
		correct := ""
		if ci := q.CorrectIndex(); ci >= 0 {
			correct = q.Answers[ci].Answer
		}
		t.AppendRow(table.Row{i + 1, excerpt(q.Question, 50), excerpt(yours, 30), excerpt(correct, 30), mark})
	}
	t.AppendFooter(table.Row{"", "Score", fmt.Sprintf("%d/%d", res.Correct, res.Total), "", ""})
	t.Render()

	if res.Perfect() {
		fmt.Fprintln(w, "Perfect score!")
	}
}

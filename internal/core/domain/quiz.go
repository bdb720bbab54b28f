package domain

import "fmt"

// Difficulty controls how hard generated quiz questions are.
type Difficulty string

// Quiz difficulties.
const (
	DifficultyEasy Difficulty = "easy"
	DifficultyHard Difficulty = "hard"
)

// IsValid returns true if the difficulty is recognised.
func (d Difficulty) IsValid() bool {
	return d == DifficultyEasy || d == DifficultyHard
}

// QuizOption is one possible answer.
type QuizOption struct {
	Answer  string `json:"answer"`
	Correct bool   `json:"correct"`
}

// QuizQuestion has exactly one correct option.
type QuizQuestion struct {
	Question string       `json:"question"`
	Answers  []QuizOption `json:"answers"`
}

// Validate checks the question has text, at least two options, and one correct option.
func (q QuizQuestion) Validate() error {
	if q.Question == "" {
		return fmt.Errorf("%w: empty question", ErrInvalidInput)
	}
	if len(q.Answers) < 2 {
		return fmt.Errorf("%w: question %q has fewer than two answers", ErrInvalidInput, q.Question)
	}
	correct := 0
	for _, a := range q.Answers {
		if a.Correct {
			correct++
		}
	}
	if correct != 1 {
		return fmt.Errorf("%w: question %q has %d correct answers", ErrInvalidInput, q.Question, correct)
	}
	return nil
}

// CorrectIndex returns the index of the correct option, or -1.
func (q QuizQuestion) CorrectIndex() int {
	for i, a := range q.Answers {
		if a.Correct {
			return i
		}
	}
	return -1
}

// Quiz is a generated set of questions.
type Quiz struct {
	Questions  []QuizQuestion `json:"questions"`
	Difficulty Difficulty     `json:"difficulty"`
	Source     string         `json:"source"`
}

// QuizResult summarises a graded attempt.
type QuizResult struct {
	Correct int
	Total   int

	// Wrong lists the indexes of incorrectly answered questions.
	Wrong []int
}

// Perfect reports whether every question was answered correctly.
func (r QuizResult) Perfect() bool {
	return r.Total > 0 && r.Correct == r.Total
}

// Grade scores choices, a map from question index to chosen option index.
// Unanswered questions count as wrong.
func (q *Quiz) Grade(choices map[int]int) QuizResult {
	res := QuizResult{Total: len(q.Questions)}
	for i, question := range q.Questions {
		choice, ok := choices[i]
		if ok && choice == question.CorrectIndex() {
			res.Correct++
			continue
		}
		res.Wrong = append(res.Wrong, i)
	}
	return res
}

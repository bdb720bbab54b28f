package domain

import (
	"strings"
	"unicode/utf8"
)

// FallbackAnswer is returned whenever the context cannot answer a question.
const FallbackAnswer = "I don't know."

// IsFallback reports whether a model reply means "I don't know".
func IsFallback(answer string) bool {
	a := strings.ToLower(strings.TrimSpace(answer))
	a = strings.Trim(a, " .!\"'`")
	a = strings.ReplaceAll(a, "’", "'")
	switch a {
	case "i don't know", "i do not know", "i dont know":
		return true
	}
	return false
}

// Citation points at the chunk an answer drew on.
type Citation struct {
	// Source is the document provenance (file name or URL).
	Source string `json:"source"`

	// Position is the chunk's sequence index.
	Position int `json:"position"`

	// Excerpt is a short prefix of the chunk text.
	Excerpt string `json:"excerpt"`
}

// Turn is one answered question.
type Turn struct {
	Question  string
	Answer    string
	Citations []Citation

	// Cached marks answers reused from an earlier turn.
	Cached bool
}

// Answered reports whether the turn has an answer yet.
func (t Turn) Answered() bool {
	return strings.TrimSpace(t.Answer) != ""
}

// Memory is the bounded conversation record folded into prompts.
// Summary condenses turns that no longer fit; Turns are the recent ones.
type Memory struct {
	Summary string
	Turns   []Turn
}

// EstimateTokens approximates a token count at four runes per token.
func EstimateTokens(s string) int {
	n := utf8.RuneCountInString(s)
	return (n + 3) / 4
}

// Tokens estimates the size of the whole memory.
func (m *Memory) Tokens() int {
	total := EstimateTokens(m.Summary)
	for _, t := range m.Turns {
		total += EstimateTokens(t.Question) + EstimateTokens(t.Answer)
	}
	return total
}

// Render formats the memory for a prompt.
func (m *Memory) Render() string {
	var b strings.Builder
	if m.Summary != "" {
		b.WriteString("Summary of earlier conversation: ")
		b.WriteString(m.Summary)
		b.WriteString("\n")
	}
	for _, t := range m.Turns {
		b.WriteString(RenderTurn(t))
	}
	return b.String()
}

// RenderTurn formats one exchange as two lines.
func RenderTurn(t Turn) string {
	return "Human: " + t.Question + "\nAI: " + t.Answer + "\n"
}

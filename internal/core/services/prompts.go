package services

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/core/ports/driven"
)

// renderPrompt loads a template and fills its %s placeholders in order.
func renderPrompt(store driven.PromptStore, name string, args ...any) (string, error) {
	if store == nil {
		return "", fmt.Errorf("%w: no prompt store", domain.ErrInvalidInput)
	}
	tmpl, err := store.Load(name)
	if err != nil {
		return "", fmt.Errorf("load prompt %s: %w", name, err)
	}
	return fmt.Sprintf(tmpl, args...), nil
}

// LanguageName returns the English name of a BCP-47 tag, e.g. "ko" gives "Korean".
func LanguageName(tag string) (string, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return "", nil
	}
	t, err := language.Parse(tag)
	if err != nil {
		return "", fmt.Errorf("%w: language %q: %v", domain.ErrInvalidInput, tag, err)
	}
	name := display.English.Tags().Name(t)
	if name == "" {
		return "", fmt.Errorf("%w: language %q has no display name", domain.ErrInvalidInput, tag)
	}
	return name, nil
}

// languageInstruction is appended to answer prompts; empty when no language is set.
func languageInstruction(tag string) string {
	name, err := LanguageName(tag)
	if err != nil || name == "" {
		return ""
	}
	return "\nAnswer in " + name + "."
}

// renderContext numbers chunks and prefixes each with its source.
func renderContext(hits []domain.ScoredChunk) string {
	var b strings.Builder
	for i, h := range hits {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%d]", i+1)
		if src := h.Chunk.Source(); src != "" {
			b.WriteString(" (" + src + ")")
		}
		b.WriteString("\n" + h.Chunk.Content)
	}
	return b.String()
}

// citations lists the chunks an answer was built from, one per chunk.
func citations(hits []domain.ScoredChunk) []domain.Citation {
	const excerptRunes = 80
	out := make([]domain.Citation, 0, len(hits))
	for _, h := range hits {
		excerpt := strings.Join(strings.Fields(h.Chunk.Content), " ")
		if r := []rune(excerpt); len(r) > excerptRunes {
			excerpt = string(r[:excerptRunes]) + "..."
		}
		out = append(out, domain.Citation{
			Source:   h.Chunk.Source(),
			Position: h.Chunk.Position,
			Excerpt:  excerpt,
		})
	}
	return out
}

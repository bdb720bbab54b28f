package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names. Placeholders are fmt verbs filled in the listed order.
const (
	// PromptAnswer answers from retrieved context only.
	// Placeholders: %s history, %s context, %s question.
	PromptAnswer = "answer"

	// PromptMemorySummary condenses old conversation turns.
	// Placeholders: %s existing summary, %s new lines.
	PromptMemorySummary = "memory_summary"

	// PromptCandidate scores one chunk as an answer.
	// Placeholders: %s context, %s question.
	PromptCandidate = "candidate"

	// PromptChoose combines scored candidates into a final answer.
	// Placeholders: %s candidates, %s question.
	PromptChoose = "choose"

	// PromptCacheLookup decides whether a question was already answered.
	// Placeholders: %s numbered history, %s question.
	PromptCacheLookup = "cache_lookup"

	// PromptSummarise summarises the first chunk of a long text.
	// Placeholders: %s text.
	PromptSummarise = "summarise"

	// PromptRefine refines a running summary with one more chunk.
	// Placeholders: %s existing summary, %s text.
	PromptRefine = "refine"

	// PromptQuiz writes quiz questions as JSON.
	// Placeholders: %s difficulty, %s context.
	PromptQuiz = "quiz"

	// PromptAgentSystem is the investment agent's system prompt.
	// Placeholders: %s tool list.
	PromptAgentSystem = "agent_system"
)

// PromptStoreAware is an optional interface for services that can use custom prompts.
type PromptStoreAware interface {
	// SetPromptStore sets the prompt store for loading customisable prompts.
	SetPromptStore(store PromptStore)
}

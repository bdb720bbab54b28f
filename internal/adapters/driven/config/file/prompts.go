package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/docent/internal/core/ports/driven"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// PromptStore loads LLM prompts from user-editable files on disk.
// Prompts are loaded from a configurable directory with fallback to embedded defaults.
//
// The store uses lazy initialisation - files are only created when first accessed,
// not in the constructor. This makes testing easier and avoids unexpected I/O.
type PromptStore struct {
	mu        sync.RWMutex
	promptDir string
	cache     map[string]string
	initOnce  sync.Once
	initErr   error
}

// defaultPrompts contains embedded default prompts.
// These are used when user files don't exist and as the initial content for new files.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var defaultPrompts = map[string]string{
	driven.PromptAnswer: `You are a helpful assistant answering questions about a document.
Answer the question using ONLY the context below. Do not use outside knowledge.
If the context does not contain the answer, reply exactly: I don't know.
Do not make anything up. The user may refer to earlier parts of the conversation.

------- History -------
%s
-----------------------

------- Context -------
%s
-----------------------

Question: %s
Answer:`,

	driven.PromptMemorySummary: `Progressively summarise the lines of conversation provided, adding onto the previous summary and returning a new summary.
Keep names, numbers and facts the human asked about.

Current summary:
%s

New lines of conversation:
%s

New summary:`,

	driven.PromptCandidate: `Using ONLY the following context, answer the user's question. If you can't, say you don't know. Don't make anything up.

Then give the answer a score from 0 to 5: 5 if it fully answers the question, 0 if it does not answer it at all.
Always give a score, even when the answer is "I don't know".

Reply with JSON only, in this shape:
{"answer": "...", "score": 3}

Context:
%s

Question: %s`,

	driven.PromptChoose: `Use ONLY the following pre-existing answers to answer the user's question.
Prefer answers with a higher score (more helpful) and favour the most recent ones.
Cite sources exactly as written and return them unchanged. Do not include the dates.

Answers:
%s

Question: %s`,

	driven.PromptCacheLookup: `Below is a numbered list of questions that were already answered, followed by a new question.
Decide whether the new question asks the same thing as one of the listed questions.

Reply with JSON only:
{"is_new": false, "match": 2}   when it matches entry 2
{"is_new": true, "match": -1}   when it is a new question

Answered questions:
%s

New question: %s`,

	driven.PromptSummarise: `Write a concise summary of the following:
"%s"
CONCISE SUMMARY:`,

	driven.PromptRefine: `Your job is to produce a final summary.
We have provided an existing summary up to a certain point:
%s

We have the opportunity to refine the existing summary (only if needed) with some more context below.
------------
%s
------------
Given the new context, refine the original summary.
If the context isn't useful, reply with exactly NO_CHANGE.`,

	driven.PromptQuiz: `You are a helpful assistant that is role playing as a teacher.
Based ONLY on the following context, make 10 questions to test the user's knowledge about the text.
The questions should be %s.
Each question should have 4 answers, three of them incorrect and one of them correct.

Reply with JSON only, in this shape:
{"questions": [{"question": "What is the color of the ocean?", "answers": [{"answer": "Red", "correct": false}, {"answer": "Blue", "correct": true}, {"answer": "Green", "correct": false}, {"answer": "Yellow", "correct": false}]}]}

Context:
%s`,

	driven.PromptAgentSystem: `You are a hedge fund manager.
You evaluate a company and provide your opinion and reasons why the stock is a buy or not.
Consider the performance of the stock, the company overview, the income statement and the balance sheet.
Be assertive in your judgement and recommend the stock or advise the user against it.

You can use these tools:
%s

Reply with JSON only, one action per reply:
{"tool": "<tool name>", "input": {...}}   to call a tool
{"final_answer": "..."}                    when you are done

Tool results are sent back to you as the next user message.
The user may ask follow-up questions; earlier tool results stay available to you.`,
}

// NewPromptStore creates a new file-based prompt store.
// If promptDir is empty, defaults to ~/.docent/prompts/.
//
// The constructor does not perform any I/O - directory creation and
// file writes happen lazily on first Load() call.
func NewPromptStore(promptDir string) (*PromptStore, error) {
	if promptDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		promptDir = filepath.Join(home, ".docent", "prompts")
	}

	return &PromptStore{
		promptDir: promptDir,
		cache:     make(map[string]string),
	}, nil
}

// Load returns the prompt template for the given name.
// On first call, initialises the prompt directory and creates default files.
// Returns cached value if available, otherwise loads from file.
// Falls back to embedded default if file doesn't exist.
func (s *PromptStore) Load(name string) (string, error) {
	// Ensure directory and defaults exist (lazy init)
	s.initOnce.Do(s.initialise)
	if s.initErr != nil {
		// Fall back to embedded defaults if init failed
		if prompt, ok := defaultPrompts[name]; ok {
			return prompt, nil
		}
		return "", fmt.Errorf("prompt store init failed: %w", s.initErr)
	}

	// Check cache first (read lock)
	s.mu.RLock()
	if prompt, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return prompt, nil
	}
	s.mu.RUnlock()

	// Load from file (no lock held during I/O)
	prompt, err := s.loadFromFile(name)
	if err != nil {
		// Fall back to embedded default
		if defaultPrompt, ok := defaultPrompts[name]; ok {
			return defaultPrompt, nil
		}
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}

	// Cache the result (write lock)
	// Use double-check pattern to avoid overwriting concurrent loads
	s.mu.Lock()
	if _, ok := s.cache[name]; !ok {
		s.cache[name] = prompt
	} else {
		// Another goroutine loaded it first, use their value
		prompt = s.cache[name]
	}
	s.mu.Unlock()

	return prompt, nil
}

// Reload clears the prompt cache, forcing fresh loads from disk.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// PromptNames lists the built-in prompt names in sorted order.
func PromptNames() []string {
	names := make([]string, 0, len(defaultPrompts))
	for name := range defaultPrompts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.promptDir
}

// initialise creates the prompt directory and default files.
// Called once via sync.Once on first Load().
func (s *PromptStore) initialise() {
	// Create directory
	if err := os.MkdirAll(s.promptDir, 0700); err != nil {
		s.initErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	// Create default prompt files (only if they don't exist)
	for name, content := range defaultPrompts {
		path := filepath.Join(s.promptDir, name+".txt")
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := os.WriteFile(path, []byte(content), 0600); err != nil {
				s.initErr = fmt.Errorf("create default prompt %q: %w", name, err)
				return
			}
		}
	}

	// Create README
	if err := s.createReadme(); err != nil {
		s.initErr = err
	}
}

// loadFromFile reads a prompt from disk.
func (s *PromptStore) loadFromFile(name string) (string, error) {
	path := filepath.Join(s.promptDir, name+".txt")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// createReadme writes a README file explaining the prompts directory.
func (s *PromptStore) createReadme() error {
	path := filepath.Join(s.promptDir, "README.md")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return nil // Already exists or stat error (ignore)
	}

	var b strings.Builder
	b.WriteString("# docent prompts\n\n")
	b.WriteString("Each file is a template used by one docent feature. Edit a file to change\n")
	b.WriteString("the wording; delete it to get the built-in default back on the next run.\n\n")
	b.WriteString("## Files\n\n")
	for _, name := range PromptNames() {
		fmt.Fprintf(&b, "- `%s.txt` (%d placeholder(s))\n", name, strings.Count(defaultPrompts[name], "%s"))
	}
	b.WriteString("\n## Placeholders\n\n")
	b.WriteString("Templates use Go fmt verbs. Every `%s` is filled in order, so keep the same\n")
	b.WriteString("number of them in the same positions. Write a literal percent sign as `%%`.\n")
	content := b.String()
	return os.WriteFile(path, []byte(content), 0600)
}

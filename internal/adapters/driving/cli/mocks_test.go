package cli

import (
	"bytes"
	"context"
	"iter"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/core/ports/driving"
)

type mockChat struct {
	answers map[string]string
	err     error
	opened  []string
}

func (m *mockChat) Open(_ context.Context, path string) (*driving.Session, error) {
	m.opened = append(m.opened, path)
	if m.err != nil {
		return nil, m.err
	}
	return &driving.Session{Label: path, Chunks: make([]domain.Chunk, 3)}, nil
}

func (m *mockChat) OpenDocuments(_ context.Context, label string, _ []domain.Document) (*driving.Session, error) {
	return &driving.Session{Label: label}, m.err
}

func (m *mockChat) Reload(_ context.Context, _ *driving.Session, _ string) error { return m.err }

func (m *mockChat) Retrieve(_ context.Context, _ *driving.Session, _ string, _ int) ([]domain.ScoredChunk, error) {
	return nil, m.err
}

func (m *mockChat) Ask(_ context.Context, sess *driving.Session, q string) (domain.Turn, error) {
	a, ok := m.answers[q]
	if !ok {
		a = domain.FallbackAnswer
	}
	turn := domain.Turn{Question: q, Answer: a}
	if ok {
		turn.Citations = []domain.Citation{{Source: "notes.md", Position: 0, Excerpt: a}}
	}
	sess.History = append(sess.History, turn)
	return turn, nil
}

func (m *mockChat) AskStream(ctx context.Context, sess *driving.Session, q string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		turn, _ := m.Ask(ctx, sess, q)
		for _, w := range strings.SplitAfter(turn.Answer, " ") {
			if !yield(w, nil) {
				return
			}
		}
	}
}

type mockSite struct {
	answer *domain.SiteAnswer
	opts   domain.CrawlOptions
}

func (m *mockSite) Crawl(_ context.Context, _ string, opts domain.CrawlOptions) (*driving.Session, error) {
	m.opts = opts
	return &driving.Session{Documents: make([]domain.Document, 2), Chunks: make([]domain.Chunk, 5)}, nil
}

func (m *mockSite) Ask(_ context.Context, _ *driving.Session, _ string) (*domain.SiteAnswer, error) {
	return m.answer, nil
}

type mockMeeting struct {
	meeting *domain.Meeting
	summary string
	steps   int
}

func (m *mockMeeting) Prepare(_ context.Context, _ string) (*domain.Meeting, error) {
	return m.meeting, nil
}

func (m *mockMeeting) Summarise(_ context.Context, _ *domain.Meeting, onStep func(done, total int)) (string, error) {
	for i := 1; i <= m.steps; i++ {
		onStep(i, m.steps)
	}
	return m.summary, nil
}

func (m *mockMeeting) Open(_ context.Context, _ *domain.Meeting) (*driving.Session, error) {
	return &driving.Session{}, nil
}

type mockQuiz struct {
	quiz       *domain.Quiz
	gotTopic   string
	gotFile    string
	difficulty domain.Difficulty
}

func (m *mockQuiz) FromFile(_ context.Context, path string, d domain.Difficulty) (*domain.Quiz, error) {
	m.gotFile, m.difficulty = path, d
	return m.quiz, nil
}

func (m *mockQuiz) FromTopic(_ context.Context, topic string, d domain.Difficulty) (*domain.Quiz, error) {
	m.gotTopic, m.difficulty = topic, d
	return m.quiz, nil
}

type mockResearch struct {
	calls     []domain.ToolCall
	answer    string
	questions []string
	threads   []*driving.ResearchThread
}

func (m *mockResearch) NewThread() *driving.ResearchThread {
	return &driving.ResearchThread{ID: "thread-1"}
}

func (m *mockResearch) Research(_ context.Context, thread *driving.ResearchThread, question string, onTool func(domain.ToolCall)) (string, error) {
	m.questions = append(m.questions, question)
	m.threads = append(m.threads, thread)
	thread.Questions++
	for _, c := range m.calls {
		onTool(c)
	}
	return m.answer, nil
}

type mockCache struct {
	stats   driving.CacheStats
	cleared bool
}

func (m *mockCache) Stats(_ context.Context) (driving.CacheStats, error) { return m.stats, nil }

func (m *mockCache) Clear(_ context.Context) error {
	m.cleared = true
	return nil
}

// withServices installs s for the duration of the test.
func withServices(t *testing.T, s *Services) {
	t.Helper()
	prevBuilder, prevServices := servicesBuilder, services
	servicesBuilder, services = nil, s
	t.Cleanup(func() { servicesBuilder, services = prevBuilder, prevServices })
}

// run executes the root command with args and stdin, returning stdout and stderr.
func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	resetFlags()
	out, errOut := new(bytes.Buffer), new(bytes.Buffer)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

// resetFlags restores package-level flag values; cobra keeps them between executions.
func resetFlags() {
	chatTUI, chatWatch = false, false
	askJSON = false
	siteInclude, siteExclude, siteMaxPages, siteCandidates = nil, nil, 0, false
	meetingSummary, meetingAsk = false, false
	quizFile, quizWiki, quizDifficulty = "", "", string(domain.DifficultyEasy)
	mcpFile, mcpHTTP = "", ""
	investFollowUp = false
	for _, c := range rootCmd.Commands() {
		c.Flags().VisitAll(func(f *pflag.Flag) { f.Changed = false })
	}
}

func requireContains(t *testing.T, s string, parts ...string) {
	t.Helper()
	for _, p := range parts {
		require.Contains(t, s, p)
	}
}

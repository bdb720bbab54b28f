package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/core/ports/driven"
	"github.com/custodia-labs/docent/internal/core/ports/driving"
	"github.com/custodia-labs/docent/internal/llmjson"
	"github.com/custodia-labs/docent/internal/logger"
	"github.com/custodia-labs/docent/internal/retry"
)

var _ driving.SiteService = (*SiteService)(nil)

// SiteConfig configures site answering.
type SiteConfig struct {
	TopK              int
	Concurrency       int
	MinCandidateScore int
	Temperature       float64
	Language          string
	Retry             retry.Policy
}

// SiteService answers questions about a crawled site with map-then-choose.
type SiteService struct {
	fetcher driven.SiteFetcher
	ingest  *Ingestor
	synth   *Synthesizer
	llm     driven.LLMService
	prompts driven.PromptStore
	cfg     SiteConfig
}

// NewSiteService creates a site service.
func NewSiteService(
	fetcher driven.SiteFetcher,
	ingest *Ingestor,
	synth *Synthesizer,
	llm driven.LLMService,
	prompts driven.PromptStore,
	cfg SiteConfig,
) *SiteService {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.Retry.Attempts == 0 {
		cfg.Retry = retry.Default()
	}
	return &SiteService{fetcher: fetcher, ingest: ingest, synth: synth, llm: llm, prompts: prompts, cfg: cfg}
}

// Crawl fetches and indexes the sitemap's pages. Pages that cannot be
// normalised are skipped.
func (s *SiteService) Crawl(ctx context.Context, sitemapURL string, opts domain.CrawlOptions) (*driving.Session, error) {
	raws, err := s.fetcher.FetchSite(ctx, sitemapURL, opts)
	if err != nil {
		return nil, err
	}

	docs := make([]domain.Document, 0, len(raws))
	for i := range raws {
		doc, err := s.ingest.Normalise(ctx, &raws[i])
		if err != nil {
			logger.Warn("skipping %s: %v", raws[i].URI, err)
			continue
		}
		docs = append(docs, doc)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: no readable pages in %s", domain.ErrSourceUnreadable, sitemapURL)
	}
	return s.ingest.NewSession(ctx, sitemapURL, docs)
}

// Ask answers from the history when the question repeats, otherwise runs
// map-then-choose over the retrieved pages.
func (s *SiteService) Ask(ctx context.Context, sess *driving.Session, question string) (*domain.SiteAnswer, error) {
	if sess == nil {
		return nil, domain.ErrNoSession
	}
	sess.Lock()
	defer sess.Unlock()

	if prior, ok := s.lookup(ctx, sess, question); ok {
		sess.History = append(sess.History, domain.Turn{Question: question, Answer: prior.Answer, Citations: prior.Citations, Cached: true})
		return &domain.SiteAnswer{Answer: prior.Answer, Cached: true}, nil
	}

	hits, err := s.ingest.Retrieve(ctx, sess, question, s.cfg.TopK)
	if err != nil {
		return nil, err
	}
	hits = s.synth.Usable(hits)

	cands, err := s.candidates(ctx, sess, question, hits)
	if err != nil {
		return nil, err
	}
	answer, kept, err := s.choose(ctx, question, cands)
	if err != nil {
		return nil, err
	}

	turn := domain.Turn{Question: question, Answer: answer}
	for _, c := range kept {
		turn.Citations = append(turn.Citations, domain.Citation{Source: c.Source})
	}
	sess.History = append(sess.History, turn)
	return &domain.SiteAnswer{Answer: answer, Candidates: cands}, nil
}

// lookupReply is the cache lookup decision. Match is 1-based.
type lookupReply struct {
	IsNew bool `json:"is_new"`
	Match int  `json:"match"`
}

// lookup asks the model whether question repeats an answered one. Any
// failure counts as a new question.
func (s *SiteService) lookup(ctx context.Context, sess *driving.Session, question string) (domain.Turn, bool) {
	answered := sess.AnsweredHistory()
	if len(answered) == 0 {
		return domain.Turn{}, false
	}

	var list strings.Builder
	for i, t := range answered {
		fmt.Fprintf(&list, "%d. %s\n", i+1, t.Question)
	}
	prompt, err := renderPrompt(s.prompts, driven.PromptCacheLookup, list.String(), question)
	if err != nil {
		logger.Warn("answer cache lookup skipped: %v", err)
		return domain.Turn{}, false
	}

	msgs := []driven.ChatMessage{{Role: driven.RoleUser, Content: prompt}}
	reply, err := s.llm.Chat(ctx, msgs, driven.ChatOptions{JSON: true})
	if err != nil {
		logger.Warn("answer cache lookup failed: %v", err)
		return domain.Turn{}, false
	}

	decision := lookupReply{IsNew: true}
	if err := llmjson.Decode(reply, &decision); err != nil {
		logger.Debug("answer cache lookup: %v", err)
		return domain.Turn{}, false
	}
	if decision.IsNew || decision.Match < 1 || decision.Match > len(answered) {
		return domain.Turn{}, false
	}
	logger.Info("reusing answer %d for %q", decision.Match, question)
	return answered[decision.Match-1], true
}

// candidateReply is one scoring result. Score tolerates strings and floats.
type candidateReply struct {
	Answer string    `json:"answer"`
	Score  flexScore `json:"score"`
}

type flexScore int

func (f *flexScore) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	var n float64
	switch x := v.(type) {
	case float64:
		n = x
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return fmt.Errorf("score %q: %w", x, err)
		}
		n = parsed
	case nil:
		n = 0
	default:
		return fmt.Errorf("score has type %T", v)
	}
	*f = flexScore(math.Round(n))
	return nil
}

// candidates scores every hit in parallel. Results keep retrieval order.
func (s *SiteService) candidates(ctx context.Context, sess *driving.Session, question string, hits []domain.ScoredChunk) ([]domain.AnswerCandidate, error) {
	out := make([]domain.AnswerCandidate, len(hits))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i, h := range hits {
		g.Go(func() error {
			c, err := s.score(gctx, question, h)
			if err != nil {
				return err
			}
			c.Source = h.Chunk.Source()
			c.Date = chunkDate(sess, h.Chunk)
			out[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("score candidates: %w", err)
	}
	return out, nil
}

func (s *SiteService) score(ctx context.Context, question string, hit domain.ScoredChunk) (domain.AnswerCandidate, error) {
	prompt, err := renderPrompt(s.prompts, driven.PromptCandidate, hit.Chunk.Content, question)
	if err != nil {
		return domain.AnswerCandidate{}, err
	}
	msgs := []driven.ChatMessage{{Role: driven.RoleUser, Content: prompt}}
	opts := driven.ChatOptions{Temperature: driven.Temperature(s.cfg.Temperature), JSON: true}

	reply, err := retry.Do(ctx, s.cfg.Retry, "score candidate", func(ctx context.Context) (string, error) {
		return s.llm.Chat(ctx, msgs, opts)
	})
	if err != nil {
		return domain.AnswerCandidate{}, err
	}

	var parsed candidateReply
	if err := llmjson.Decode(reply, &parsed); err != nil {
		logger.Warn("unscored candidate from %s: %v", hit.Chunk.Source(), err)
		return domain.AnswerCandidate{Answer: strings.TrimSpace(reply)}, nil
	}
	score := min(max(int(parsed.Score), 0), domain.MaxCandidateScore)
	return domain.AnswerCandidate{Answer: strings.TrimSpace(parsed.Answer), Score: score}, nil
}

func chunkDate(sess *driving.Session, c domain.Chunk) time.Time {
	doc, ok := sess.DocumentByID(c.DocumentID)
	if !ok {
		return time.Time{}
	}
	raw, _ := doc.Metadata[domain.MetaLastMod].(string)
	t, _ := domain.ParseLastMod(raw)
	return t
}

// rankCandidates drops low scores and orders by score, then most recent.
func rankCandidates(cands []domain.AnswerCandidate, minScore int) []domain.AnswerCandidate {
	kept := make([]domain.AnswerCandidate, 0, len(cands))
	for _, c := range cands {
		if c.Score >= minScore && c.Answer != "" {
			kept = append(kept, c)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Score != kept[j].Score {
			return kept[i].Score > kept[j].Score
		}
		return kept[i].Date.After(kept[j].Date)
	})
	return kept
}

const dateLayout = "2006-01-02"

// choose combines the ranked candidates. Without survivors the fallback is
// returned and the model is not called.
func (s *SiteService) choose(ctx context.Context, question string, cands []domain.AnswerCandidate) (string, []domain.AnswerCandidate, error) {
	kept := rankCandidates(cands, s.cfg.MinCandidateScore)
	if len(kept) == 0 {
		return domain.FallbackAnswer, nil, nil
	}

	var list strings.Builder
	for _, c := range kept {
		fmt.Fprintf(&list, "Answer: %s\nSource: %s\n", c.Answer, c.Source)
		if !c.Date.IsZero() {
			fmt.Fprintf(&list, "Date: %s\n", c.Date.Format(dateLayout))
		}
		fmt.Fprintf(&list, "Score: %d\n\n", c.Score)
	}

	prompt, err := renderPrompt(s.prompts, driven.PromptChoose, list.String(), question)
	if err != nil {
		return "", nil, err
	}
	prompt += languageInstruction(s.cfg.Language)

	msgs := []driven.ChatMessage{{Role: driven.RoleUser, Content: prompt}}
	answer, err := s.llm.Chat(ctx, msgs, driven.ChatOptions{Temperature: driven.Temperature(s.cfg.Temperature)})
	if err != nil {
		return "", nil, fmt.Errorf("choose answer: %w", err)
	}
	return NormaliseAnswer(stripDates(answer, kept)), kept, nil
}

// stripDates removes "Date:" lines and any candidate date left in the answer.
func stripDates(answer string, cands []domain.AnswerCandidate) string {
	lines := strings.Split(answer, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(line)), "date:") {
			continue
		}
		kept = append(kept, line)
	}
	answer = strings.Join(kept, "\n")

	for _, c := range cands {
		if c.Date.IsZero() {
			continue
		}
		answer = strings.ReplaceAll(answer, c.Date.Format(dateLayout), "")
	}
	return strings.TrimSpace(answer)
}

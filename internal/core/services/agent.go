package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/core/ports/driven"
	"github.com/custodia-labs/docent/internal/core/ports/driving"
	"github.com/custodia-labs/docent/internal/llmjson"
	"github.com/custodia-labs/docent/internal/logger"
	"github.com/custodia-labs/docent/internal/retry"
)

var _ driving.ResearchService = (*ResearchService)(nil)

// Defaults for AgentConfig fields left zero.
const (
	DefaultAgentSteps       = 6
	DefaultObservationRunes = 6000
)

// AgentConfig bounds the research agent.
type AgentConfig struct {
	MaxSteps         int
	ObservationRunes int
	Temperature      float64
	Retry            retry.Policy
}

// ResearchService runs a tool-using agent over market data and web search.
type ResearchService struct {
	llm     driven.LLMService
	prompts driven.PromptStore
	search  driven.WebSearch
	market  driven.MarketData
	cfg     AgentConfig
}

// NewResearchService creates the agent.
func NewResearchService(
	llm driven.LLMService,
	prompts driven.PromptStore,
	search driven.WebSearch,
	market driven.MarketData,
	cfg AgentConfig,
) *ResearchService {
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = DefaultAgentSteps
	}
	if cfg.ObservationRunes <= 0 {
		cfg.ObservationRunes = DefaultObservationRunes
	}
	if cfg.Retry.Attempts == 0 {
		cfg.Retry = retry.Default()
	}
	return &ResearchService{llm: llm, prompts: prompts, search: search, market: market, cfg: cfg}
}

// action is one model reply: a tool call or the final answer.
type action struct {
	Tool        string          `json:"tool"`
	Input       json.RawMessage `json:"input"`
	FinalAnswer string          `json:"final_answer"`
}

// NewThread starts an empty research conversation.
func (s *ResearchService) NewThread() *driving.ResearchThread {
	return &driving.ResearchThread{ID: uuid.New().String(), CreatedAt: time.Now()}
}

// Research answers question, calling tools until the model gives a final
// answer or the step limit is reached. The exchange is appended to thread
// only when it ends in an answer; a failed question leaves thread as it was.
func (s *ResearchService) Research(ctx context.Context, thread *driving.ResearchThread, question string, onTool func(domain.ToolCall)) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("%w: empty question", domain.ErrInvalidInput)
	}
	if thread == nil {
		thread = s.NewThread()
	}

	msgs := thread.Messages
	if len(msgs) == 0 {
		system, err := renderPrompt(s.prompts, driven.PromptAgentSystem, toolList())
		if err != nil {
			return "", err
		}
		msgs = []driven.ChatMessage{{Role: driven.RoleSystem, Content: system}}
	}
	msgs = append(msgs[:len(msgs):len(msgs)], driven.ChatMessage{Role: driven.RoleUser, Content: question})

	answer, msgs, err := s.run(ctx, msgs, onTool)
	if err != nil {
		return "", err
	}
	thread.Messages = msgs
	thread.Questions++
	return answer, nil
}

// run drives the tool loop over msgs and returns the answer with the
// extended message list.
func (s *ResearchService) run(ctx context.Context, msgs []driven.ChatMessage, onTool func(domain.ToolCall)) (string, []driven.ChatMessage, error) {
	opts := driven.ChatOptions{Temperature: driven.Temperature(s.cfg.Temperature), JSON: true}

	for step := 1; step <= s.cfg.MaxSteps; step++ {
		reply, err := retry.Do(ctx, s.cfg.Retry, "agent", func(ctx context.Context) (string, error) {
			return s.llm.Chat(ctx, msgs, opts)
		})
		if err != nil {
			return "", nil, err
		}
		msgs = append(msgs, driven.ChatMessage{Role: driven.RoleAssistant, Content: reply})

		var act action
		if err := llmjson.Decode(reply, &act); err != nil {
			// A plain-text reply is the model answering directly.
			if text := strings.TrimSpace(reply); text != "" {
				return text, msgs, nil
			}
			return "", nil, err
		}
		if act.FinalAnswer != "" {
			return strings.TrimSpace(act.FinalAnswer), msgs, nil
		}

		observation, err := s.act(ctx, act, onTool)
		if err != nil {
			return "", nil, err
		}
		logger.Debug("agent step %d: %s", step, llmjson.Snippet(observation))
		msgs = append(msgs, driven.ChatMessage{Role: driven.RoleUser, Content: s.truncate(observation)})
	}
	return "", nil, fmt.Errorf("%w: %d steps", domain.ErrAgentStepLimit, s.cfg.MaxSteps)
}

// act runs one tool. Tool failures become observations so the model can
// recover; only cancellation stops the run.
func (s *ResearchService) act(ctx context.Context, act action, onTool func(domain.ToolCall)) (string, error) {
	kind, err := domain.ParseToolKind(act.Tool)
	if err != nil {
		return fmt.Sprintf("Unknown tool %q. Use one of: %s", act.Tool, toolNames()), nil
	}
	call := domain.ToolCall{Kind: kind, Input: decodeToolInput(act.Input)}
	if onTool != nil {
		onTool(call)
	}

	res, err := s.Dispatch(ctx, call)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		logger.Warn("tool %s failed: %v", kind, err)
		return fmt.Sprintf("Tool %s failed: %v", kind, err), nil
	}
	return res.Observation(), nil
}

// Dispatch runs a tool call.
func (s *ResearchService) Dispatch(ctx context.Context, call domain.ToolCall) (domain.ToolResult, error) {
	out, err := s.dispatch(ctx, call)
	if err != nil {
		return domain.ToolResult{}, err
	}
	return domain.ToolResult{Call: call, Output: out}, nil
}

func (s *ResearchService) dispatch(ctx context.Context, call domain.ToolCall) (string, error) {
	switch call.Kind {
	case domain.ToolSymbolSearch:
		in := domain.SymbolSearchInput{Query: call.Input}
		if s.search == nil {
			return "", fmt.Errorf("%w: web search not configured", domain.ErrInvalidInput)
		}
		return s.search.Search(ctx, in.Query)
	case domain.ToolCompanyOverview, domain.ToolIncomeStatement, domain.ToolBalanceSheet, domain.ToolStockPerformance:
		in := domain.CompanyInput{Symbol: call.Input}
		if s.market == nil {
			return "", fmt.Errorf("%w: market data not configured", domain.ErrInvalidInput)
		}
		switch call.Kind {
		case domain.ToolCompanyOverview:
			return s.market.CompanyOverview(ctx, in.Symbol)
		case domain.ToolIncomeStatement:
			return s.market.IncomeStatement(ctx, in.Symbol)
		case domain.ToolBalanceSheet:
			return s.market.BalanceSheet(ctx, in.Symbol)
		default:
			return s.market.WeeklyPerformance(ctx, in.Symbol)
		}
	default:
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedType, call.Kind)
	}
}

// decodeToolInput accepts "AAPL", {"symbol":"AAPL"}, or {"query":"apple"}.
func decodeToolInput(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return strings.TrimSpace(s)
	}
	var obj map[string]any
	if json.Unmarshal(raw, &obj) == nil {
		for _, k := range []string{"symbol", "query", "input"} {
			if v, ok := obj[k].(string); ok {
				return strings.TrimSpace(v)
			}
		}
	}
	return strings.TrimSpace(string(raw))
}

func (s *ResearchService) truncate(text string) string {
	if r := []rune(text); len(r) > s.cfg.ObservationRunes {
		return string(r[:s.cfg.ObservationRunes]) + "\n[truncated]"
	}
	return text
}

func toolList() string {
	var b strings.Builder
	for _, k := range domain.AllTools() {
		fmt.Fprintf(&b, "- %s: %s\n", k, k.Description())
	}
	return b.String()
}

func toolNames() string {
	names := make([]string, 0, len(domain.AllTools()))
	for _, k := range domain.AllTools() {
		names = append(names, k.String())
	}
	return strings.Join(names, ", ")
}

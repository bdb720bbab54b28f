package domain

import (
	"fmt"
	"strings"
)

// ToolKind is the closed set of research tools the investment agent may call.
type ToolKind int

// Supported tools.
const (
	ToolSymbolSearch ToolKind = iota + 1
	ToolCompanyOverview
	ToolIncomeStatement
	ToolStockPerformance
	ToolBalanceSheet
)

var toolNames = map[ToolKind]string{
	ToolSymbolSearch:     "stock_symbol_search",
	ToolCompanyOverview:  "company_overview",
	ToolIncomeStatement:  "company_income_statement",
	ToolStockPerformance: "company_stock_performance",
	ToolBalanceSheet:     "company_balance_sheet",
}

// String returns the wire name the model uses.
func (k ToolKind) String() string {
	if n, ok := toolNames[k]; ok {
		return n
	}
	return fmt.Sprintf("tool(%d)", int(k))
}

// Description tells the model what the tool does and what input it takes.
func (k ToolKind) Description() string {
	switch k {
	case ToolSymbolSearch:
		return "Find the stock market symbol for a company. Input: a company name or search query."
	case ToolCompanyOverview:
		return "Get an overview of a company's financials. Input: a stock symbol, e.g. AAPL."
	case ToolIncomeStatement:
		return "Get the annual income statements of a company. Input: a stock symbol."
	case ToolBalanceSheet:
		return "Get the annual balance sheets of a company: assets, liabilities and equity. Input: a stock symbol."
	case ToolStockPerformance:
		return "Get the weekly price performance of a company's stock. Input: a stock symbol."
	default:
		return ""
	}
}

// AllTools returns every tool in a stable order.
func AllTools() []ToolKind {
	return []ToolKind{ToolSymbolSearch, ToolCompanyOverview, ToolIncomeStatement, ToolBalanceSheet, ToolStockPerformance}
}

// ParseToolKind maps a wire name to a ToolKind.
func ParseToolKind(name string) (ToolKind, error) {
	name = strings.TrimSpace(strings.ToLower(name))
	for k, n := range toolNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: tool %q", ErrUnsupportedType, name)
}

// SymbolSearchInput is the typed input of ToolSymbolSearch.
type SymbolSearchInput struct {
	Query string
}

// CompanyInput is the typed input of the per-company tools.
type CompanyInput struct {
	Symbol string
}

// ToolCall is a parsed request from the model.
type ToolCall struct {
	Kind  ToolKind
	Input string
}

// ToolResult is the output of one tool call, handed back to the model.
type ToolResult struct {
	Call   ToolCall
	Output string
}

// Observation renders the result as the message the model reads next.
func (r ToolResult) Observation() string {
	return fmt.Sprintf("Result of %s(%s):\n%s", r.Call.Kind, r.Call.Input, r.Output)
}

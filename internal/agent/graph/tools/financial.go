package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/finsight-router/server/internal/marketdata"
)

const (
	ToolDividendsSplits = "yfinance_get_dividends_stock_split_history"
	ToolBalanceSheet    = "yfinance_get_balance_sheet"
	ToolFinancials      = "yfinance_get_financials"
	ToolEarnings        = "yfinance_get_earnings"
	ToolInfo            = "yfinance_get_info"
	ToolCashFlow        = "yfinance_get_cash_flow"
)

// FinancialToolNames lists the financial agent's tool set in registration order.
var FinancialToolNames = []string{
	ToolDividendsSplits,
	ToolBalanceSheet,
	ToolFinancials,
	ToolEarnings,
	ToolInfo,
	ToolCashFlow,
}

type SymbolInput struct {
	Symbol string `json:"symbol"`
}

var symbolParams = map[string]*schema.ParameterInfo{
	"symbol": {
		Type:     schema.String,
		Desc:     "Stock ticker symbol exactly as provided in the context, including any exchange suffix (e.g., TCS.NS, TSLA).",
		Required: true,
	},
}

// NewFinancialTools builds the market-data tools over provider.
func NewFinancialTools(provider marketdata.Provider) ([]tool.InvokableTool, error) {
	if provider == nil {
		return nil, fmt.Errorf("market data provider is nil")
	}

	type spec struct {
		name, desc, what string
		fetch            func(ctx context.Context, symbol string) (string, error)
	}
	specs := []spec{
		{ToolDividendsSplits, "Get the dividend and stock split history for a given stock symbol.", "dividend and split history",
			func(ctx context.Context, symbol string) (string, error) {
				a, err := provider.Actions(ctx, symbol)
				if err != nil {
					return "", err
				}
				return marketdata.FormatActions(a), nil
			}},
		{ToolBalanceSheet, "Get the balance sheet for a given stock symbol.", "balance sheet",
			func(ctx context.Context, symbol string) (string, error) {
				s, err := provider.BalanceSheet(ctx, symbol)
				if err != nil {
					return "", err
				}
				return marketdata.FormatStatements(s), nil
			}},
		{ToolFinancials, "Get the financials (income statement) for a given stock symbol.", "financials",
			func(ctx context.Context, symbol string) (string, error) {
				s, err := provider.Financials(ctx, symbol)
				if err != nil {
					return "", err
				}
				return marketdata.FormatStatements(s), nil
			}},
		{ToolEarnings, "Get the earnings for a given stock symbol.", "earnings",
			func(ctx context.Context, symbol string) (string, error) {
				e, err := provider.Earnings(ctx, symbol)
				if err != nil {
					return "", err
				}
				return marketdata.FormatEarnings(e), nil
			}},
		{ToolInfo, "Get the information for a given stock symbol, including current price, market cap and company profile.", "company information",
			func(ctx context.Context, symbol string) (string, error) {
				i, err := provider.Info(ctx, symbol)
				if err != nil {
					return "", err
				}
				return marketdata.FormatInfo(i), nil
			}},
		{ToolCashFlow, "Get the cash flow for a given stock symbol.", "cash flow",
			func(ctx context.Context, symbol string) (string, error) {
				s, err := provider.CashFlow(ctx, symbol)
				if err != nil {
					return "", err
				}
				return marketdata.FormatStatements(s), nil
			}},
	}

	out := make([]tool.InvokableTool, 0, len(specs))
	for _, sp := range specs {
		sp := sp
		t, err := newTextTool(sp.name, sp.desc, symbolParams, func(ctx context.Context, in *SymbolInput) (string, error) {
			text, err := sp.fetch(ctx, in.Symbol)
			if err != nil {
				return describeFetchFailure(sp.what, in.Symbol, err), nil
			}
			return text, nil
		})
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// describeFetchFailure turns a provider error into a message for the model.
func describeFetchFailure(what, symbol string, err error) string {
	if errors.Is(err, marketdata.ErrNoData) {
		return fmt.Sprintf("No %s data could be retrieved for ticker %s. The symbol may be invalid or the data is not published.", what, symbol)
	}
	return fmt.Sprintf("Error fetching %s for %s: %v", what, symbol, err)
}

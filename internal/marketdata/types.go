package marketdata

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Provider is the market-data surface consumed by the financial tools.
type Provider interface {
	Actions(ctx context.Context, symbol string) (*Actions, error)
	BalanceSheet(ctx context.Context, symbol string) (*Statements, error)
	Financials(ctx context.Context, symbol string) (*Statements, error)
	Earnings(ctx context.Context, symbol string) (*Earnings, error)
	Info(ctx context.Context, symbol string) (*Info, error)
	CashFlow(ctx context.Context, symbol string) (*Statements, error)
}

// Statement is one reporting period of a financial statement.
type Statement struct {
	EndDate time.Time
	Items   map[string]decimal.Decimal
}

// Statements is a set of periods, most recent first.
type Statements struct {
	Symbol  string
	Kind    string
	Periods []Statement
}

type Dividend struct {
	Date   time.Time
	Amount decimal.Decimal
}

type Split struct {
	Date        time.Time
	Numerator   decimal.Decimal
	Denominator decimal.Decimal
	Ratio       string
}

// Actions holds the dividend and split history, oldest first.
type Actions struct {
	Symbol    string
	Currency  string
	Dividends []Dividend
	Splits    []Split
}

type EarningsPeriod struct {
	Period   string
	Revenue  *decimal.Decimal
	Earnings *decimal.Decimal
	EPS      *decimal.Decimal
	Estimate *decimal.Decimal
}

type Earnings struct {
	Symbol    string
	Currency  string
	Yearly    []EarningsPeriod
	Quarterly []EarningsPeriod
}

// Info is a flat key/value view over profile, price and key statistics.
type Info struct {
	Symbol string
	Fields map[string]string
}

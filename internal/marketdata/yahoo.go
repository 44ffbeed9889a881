package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	moduleAssetProfile  = "assetProfile"
	modulePrice         = "price"
	moduleSummaryDetail = "summaryDetail"
	moduleKeyStatistics = "defaultKeyStatistics"
	moduleFinancialData = "financialData"
	moduleBalanceSheet  = "balanceSheetHistory"
	moduleIncome        = "incomeStatementHistory"
	moduleCashFlow      = "cashflowStatementHistory"
	moduleEarnings      = "earnings"
)

type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []map[string]json.RawMessage `json:"result"`
		Error  *apiError                    `json:"error"`
	} `json:"quoteSummary"`
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency string `json:"currency"`
				Symbol   string `json:"symbol"`
			} `json:"meta"`
			Events struct {
				Dividends map[string]struct {
					Amount float64 `json:"amount"`
					Date   int64   `json:"date"`
				} `json:"dividends"`
				Splits map[string]struct {
					Date        int64   `json:"date"`
					Numerator   float64 `json:"numerator"`
					Denominator float64 `json:"denominator"`
					SplitRatio  string  `json:"splitRatio"`
				} `json:"splits"`
			} `json:"events"`
		} `json:"result"`
		Error *apiError `json:"error"`
	} `json:"chart"`
}

// value is the {"raw": 1.0, "fmt": "1.00"} wrapper used for numeric fields.
type value struct {
	Raw *float64 `json:"raw"`
	Fmt string   `json:"fmt"`
}

func (v value) decimal() *decimal.Decimal {
	if v.Raw == nil {
		return nil
	}
	d := decimal.NewFromFloat(*v.Raw)
	return &d
}

func (c *Client) quoteSummary(ctx context.Context, symbol string, modules ...string) (map[string]json.RawMessage, error) {
	var resp quoteSummaryResponse
	q := url.Values{}
	q.Set("modules", strings.Join(modules, ","))
	if err := c.getJSON(ctx, "/v10/finance/quoteSummary/"+url.PathEscape(symbol), q, &resp); err != nil {
		return nil, err
	}
	if e := resp.QuoteSummary.Error; e != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoData, e.Description)
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return nil, ErrNoData
	}
	return resp.QuoteSummary.Result[0], nil
}

func (c *Client) statements(ctx context.Context, symbol, module, listKey, kind string) (*Statements, error) {
	result, err := c.quoteSummary(ctx, symbol, module)
	if err != nil {
		return nil, err
	}
	raw, ok := result[module]
	if !ok {
		return nil, ErrNoData
	}
	periods, err := parseStatements(raw, listKey)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", module, err)
	}
	if len(periods) == 0 {
		return nil, ErrNoData
	}
	return &Statements{Symbol: symbol, Kind: kind, Periods: periods}, nil
}

func parseStatements(raw json.RawMessage, listKey string) ([]Statement, error) {
	var wrapper map[string][]map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil, err
	}
	var out []Statement
	for _, entry := range wrapper[listKey] {
		st := Statement{Items: make(map[string]decimal.Decimal)}
		for key, field := range entry {
			var v value
			if err := json.Unmarshal(field, &v); err != nil || v.Raw == nil {
				continue
			}
			switch key {
			case "maxAge":
			case "endDate":
				st.EndDate = time.Unix(int64(*v.Raw), 0).UTC()
			default:
				st.Items[key] = decimal.NewFromFloat(*v.Raw)
			}
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndDate.After(out[j].EndDate) })
	return out, nil
}

func (c *Client) BalanceSheet(ctx context.Context, symbol string) (*Statements, error) {
	return c.statements(ctx, symbol, moduleBalanceSheet, "balanceSheetStatements", "balance sheet")
}

func (c *Client) Financials(ctx context.Context, symbol string) (*Statements, error) {
	return c.statements(ctx, symbol, moduleIncome, "incomeStatementHistory", "income statement")
}

func (c *Client) CashFlow(ctx context.Context, symbol string) (*Statements, error) {
	return c.statements(ctx, symbol, moduleCashFlow, "cashflowStatements", "cash flow statement")
}

func (c *Client) Earnings(ctx context.Context, symbol string) (*Earnings, error) {
	result, err := c.quoteSummary(ctx, symbol, moduleEarnings)
	if err != nil {
		return nil, err
	}
	raw, ok := result[moduleEarnings]
	if !ok {
		return nil, ErrNoData
	}

	var body struct {
		FinancialCurrency string `json:"financialCurrency"`
		EarningsChart     struct {
			Quarterly []struct {
				Date     string `json:"date"`
				Actual   value  `json:"actual"`
				Estimate value  `json:"estimate"`
			} `json:"quarterly"`
		} `json:"earningsChart"`
		FinancialsChart struct {
			Yearly []struct {
				Date     json.Number `json:"date"`
				Revenue  value       `json:"revenue"`
				Earnings value       `json:"earnings"`
			} `json:"yearly"`
			Quarterly []struct {
				Date     string `json:"date"`
				Revenue  value  `json:"revenue"`
				Earnings value  `json:"earnings"`
			} `json:"quarterly"`
		} `json:"financialsChart"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("decode earnings: %w", err)
	}

	out := &Earnings{Symbol: symbol, Currency: body.FinancialCurrency}
	for _, y := range body.FinancialsChart.Yearly {
		out.Yearly = append(out.Yearly, EarningsPeriod{
			Period:   y.Date.String(),
			Revenue:  y.Revenue.decimal(),
			Earnings: y.Earnings.decimal(),
		})
	}

	eps := make(map[string]int)
	for _, q := range body.FinancialsChart.Quarterly {
		eps[q.Date] = len(out.Quarterly)
		out.Quarterly = append(out.Quarterly, EarningsPeriod{
			Period:   q.Date,
			Revenue:  q.Revenue.decimal(),
			Earnings: q.Earnings.decimal(),
		})
	}
	for _, q := range body.EarningsChart.Quarterly {
		i, ok := eps[q.Date]
		if !ok {
			i = len(out.Quarterly)
			out.Quarterly = append(out.Quarterly, EarningsPeriod{Period: q.Date})
		}
		out.Quarterly[i].EPS = q.Actual.decimal()
		out.Quarterly[i].Estimate = q.Estimate.decimal()
	}

	if len(out.Yearly) == 0 && len(out.Quarterly) == 0 {
		return nil, ErrNoData
	}
	return out, nil
}

func (c *Client) Info(ctx context.Context, symbol string) (*Info, error) {
	result, err := c.quoteSummary(ctx, symbol,
		modulePrice, moduleSummaryDetail, moduleAssetProfile, moduleKeyStatistics, moduleFinancialData)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]string)
	for _, module := range []string{moduleAssetProfile, moduleKeyStatistics, moduleFinancialData, moduleSummaryDetail, modulePrice} {
		raw, ok := result[module]
		if !ok {
			continue
		}
		var entries map[string]json.RawMessage
		if err := json.Unmarshal(raw, &entries); err != nil {
			continue
		}
		for key, field := range entries {
			if s, ok := scalar(field); ok {
				fields[key] = s
			}
		}
	}
	delete(fields, "maxAge")
	if len(fields) == 0 {
		return nil, ErrNoData
	}
	return &Info{Symbol: symbol, Fields: fields}, nil
}

// scalar flattens a quote field into display text. Nested objects other than
// the raw/fmt wrapper and arrays are dropped.
func scalar(field json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(field, &s); err == nil {
		return s, s != ""
	}
	var f float64
	if err := json.Unmarshal(field, &f); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64), true
	}
	var b bool
	if err := json.Unmarshal(field, &b); err == nil {
		return strconv.FormatBool(b), true
	}
	var v value
	if err := json.Unmarshal(field, &v); err == nil {
		if v.Fmt != "" {
			return v.Fmt, true
		}
		if v.Raw != nil {
			return strconv.FormatFloat(*v.Raw, 'f', -1, 64), true
		}
	}
	return "", false
}

func (c *Client) Actions(ctx context.Context, symbol string) (*Actions, error) {
	var resp chartResponse
	q := url.Values{}
	q.Set("range", "max")
	q.Set("interval", "3mo")
	q.Set("events", "div,split")
	if err := c.getJSON(ctx, "/v8/finance/chart/"+url.PathEscape(symbol), q, &resp); err != nil {
		return nil, err
	}
	if e := resp.Chart.Error; e != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoData, e.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, ErrNoData
	}

	r := resp.Chart.Result[0]
	out := &Actions{Symbol: symbol, Currency: r.Meta.Currency}
	for _, d := range r.Events.Dividends {
		out.Dividends = append(out.Dividends, Dividend{
			Date:   time.Unix(d.Date, 0).UTC(),
			Amount: decimal.NewFromFloat(d.Amount),
		})
	}
	for _, s := range r.Events.Splits {
		out.Splits = append(out.Splits, Split{
			Date:        time.Unix(s.Date, 0).UTC(),
			Numerator:   decimal.NewFromFloat(s.Numerator),
			Denominator: decimal.NewFromFloat(s.Denominator),
			Ratio:       s.SplitRatio,
		})
	}
	sort.Slice(out.Dividends, func(i, j int) bool { return out.Dividends[i].Date.Before(out.Dividends[j].Date) })
	sort.Slice(out.Splits, func(i, j int) bool { return out.Splits[i].Date.Before(out.Splits[j].Date) })
	return out, nil
}

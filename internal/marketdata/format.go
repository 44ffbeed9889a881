package marketdata

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// FormatStatements renders statements as plain text for the model.
func FormatStatements(s *Statements) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s for %s (%d periods)\n", capitalize(s.Kind), s.Symbol, len(s.Periods))
	for _, p := range s.Periods {
		fmt.Fprintf(&b, "\nPeriod ending %s:\n", p.EndDate.Format(dateLayout))
		keys := make([]string, 0, len(p.Items))
		for k := range p.Items {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "  %s: %s\n", k, amount(p.Items[k]))
		}
	}
	return b.String()
}

// FormatActions renders the dividend and split history.
func FormatActions(a *Actions) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dividends and stock splits for %s", a.Symbol)
	if a.Currency != "" {
		fmt.Fprintf(&b, " (%s)", a.Currency)
	}
	b.WriteString("\n\nDividends:\n")
	if len(a.Dividends) == 0 {
		b.WriteString("  none recorded\n")
	}
	for _, d := range a.Dividends {
		fmt.Fprintf(&b, "  %s: %s\n", d.Date.Format(dateLayout), d.Amount.String())
	}
	b.WriteString("\nStock splits:\n")
	if len(a.Splits) == 0 {
		b.WriteString("  none recorded\n")
	}
	for _, s := range a.Splits {
		ratio := s.Ratio
		if ratio == "" {
			ratio = s.Numerator.String() + ":" + s.Denominator.String()
		}
		fmt.Fprintf(&b, "  %s: %s\n", s.Date.Format(dateLayout), ratio)
	}
	return b.String()
}

// FormatEarnings renders yearly and quarterly earnings.
func FormatEarnings(e *Earnings) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Earnings for %s", e.Symbol)
	if e.Currency != "" {
		fmt.Fprintf(&b, " (%s)", e.Currency)
	}
	b.WriteString("\n")
	if len(e.Yearly) > 0 {
		b.WriteString("\nYearly:\n")
		for _, p := range e.Yearly {
			writePeriod(&b, p)
		}
	}
	if len(e.Quarterly) > 0 {
		b.WriteString("\nQuarterly:\n")
		for _, p := range e.Quarterly {
			writePeriod(&b, p)
		}
	}
	return b.String()
}

func writePeriod(b *strings.Builder, p EarningsPeriod) {
	parts := []string{}
	add := func(label string, d *decimal.Decimal) {
		if d != nil {
			parts = append(parts, label+"="+amount(*d))
		}
	}
	add("revenue", p.Revenue)
	add("earnings", p.Earnings)
	add("eps", p.EPS)
	add("eps_estimate", p.Estimate)
	fmt.Fprintf(b, "  %s: %s\n", p.Period, strings.Join(parts, ", "))
}

// FormatInfo renders the info fields sorted by key.
func FormatInfo(i *Info) string {
	keys := make([]string, 0, len(i.Fields))
	for k := range i.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "Company information for %s\n\n", i.Symbol)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\n", k, i.Fields[k])
	}
	return b.String()
}

// amount prints whole numbers without decimals and everything else to 4 places.
func amount(d decimal.Decimal) string {
	if d.Equal(d.Truncate(0)) {
		return d.StringFixed(0)
	}
	return d.Round(4).String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

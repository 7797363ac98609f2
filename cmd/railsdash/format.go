package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/MacJediWizard/railsdash/internal/dashboard"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var printer = message.NewPrinter(language.English)

// formatAmount renders v with the currency symbol and grouped digits, e.g.
// "$ 3,500.00". Unknown currency codes are printed verbatim.
func formatAmount(v float64, code string) string {
	amount := printer.Sprint(number.Decimal(v, number.Scale(2)))
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return amount
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return code + " " + amount
	}
	return printer.Sprint(currency.Symbol(unit)) + " " + amount
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func joinEvents(types []string) string {
	const shown = 3
	if len(types) <= shown {
		return strings.Join(types, ",")
	}
	return fmt.Sprintf("%s (+%d)", strings.Join(types[:shown], ","), len(types)-shown)
}

type table struct {
	w   io.Writer
	tw  *tabwriter.Writer
	out int
}

func newTable(w io.Writer, headers ...string) *table {
	t := &table{w: w, tw: tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)}
	fmt.Fprintln(t.tw, strings.Join(headers, "\t"))
	return t
}

func (t *table) row(cols ...string) {
	for i, c := range cols {
		if c == "" {
			cols[i] = "-"
		}
	}
	fmt.Fprintln(t.tw, strings.Join(cols, "\t"))
	t.out++
}

func (t *table) flush() error {
	return t.tw.Flush()
}

// flushPage writes the table followed by a paging footer.
func (t *table) flushPage(page, totalPages, total int) error {
	if err := t.flush(); err != nil {
		return err
	}
	_, err := printer.Fprintf(t.w, "\nPage %d of %d, %d shown, %d total\n", page, totalPages, t.out, total)
	return err
}

func printStats(w io.Writer, result dashboard.StatsResult) {
	s := result.Data
	printer.Fprintf(w, "Customers:     %d\n", s.Customers)
	printer.Fprintf(w, "Accounts:      %d\n", s.Accounts)
	printer.Fprintf(w, "Cards:         %d\n", s.Cards)
	printer.Fprintf(w, "Transactions:  %d\n", s.Transactions)

	currencies := make([]string, 0, len(s.TotalBalance))
	for cur := range s.TotalBalance {
		currencies = append(currencies, cur)
	}
	sort.Strings(currencies)
	fmt.Fprintln(w, "Balances:")
	for _, cur := range currencies {
		fmt.Fprintf(w, "  %-4s %s\n", cur, formatAmount(s.TotalBalance[cur], cur))
	}

	switch {
	case result.IsMockData:
		fmt.Fprintln(w, "\nShowing mock data.")
	case len(result.Failed) > 0:
		fmt.Fprintf(w, "\nUnavailable: %s\n", strings.Join(result.Failed, ", "))
	}
	if result.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", result.Error)
	}
}

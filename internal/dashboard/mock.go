// Package dashboard aggregates upstream counts and balances into the
// dashboard summary and substitutes a fixed dataset when the upstream API
// cannot be used.
package dashboard

// TrackedCurrencies are the currencies shown in the balance summary.
var TrackedCurrencies = []string{"RUB", "USD", "EUR"}

// Stats is the dashboard summary.
type Stats struct {
	Customers    int                `json:"customers"`
	Accounts     int                `json:"accounts"`
	Cards        int                `json:"cards"`
	Transactions int                `json:"transactions"`
	TotalBalance map[string]float64 `json:"totalBalance"`
}

// emptyStats returns zero counts with every tracked currency present.
func emptyStats() Stats {
	balance := make(map[string]float64, len(TrackedCurrencies))
	for _, cur := range TrackedCurrencies {
		balance[cur] = 0
	}
	return Stats{TotalBalance: balance}
}

// MockStats returns the fixed demo dataset. Each call returns a fresh copy.
func MockStats() Stats {
	return Stats{
		Customers:    5,
		Accounts:     12,
		Cards:        8,
		Transactions: 47,
		TotalBalance: map[string]float64{
			"RUB": 250000,
			"USD": 3500,
			"EUR": 2800,
		},
	}
}

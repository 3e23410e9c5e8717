package csvio

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/xdelape/txproc/internal/ledger"
)

// WriteAccounts renders final account states as CSV, one row per client,
// in the order given (the store's snapshot order, so output is
// reproducible run to run).
//
// Amounts are rendered with exactly four fractional digits so precision
// is consistent across rows.
func WriteAccounts(w io.Writer, accounts []ledger.Account) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"client", "available", "held", "total", "locked"}); err != nil {
		return err
	}
	for i := range accounts {
		a := &accounts[i]
		row := []string{
			strconv.FormatUint(uint64(a.Client), 10),
			a.Available.StringFixed(ledger.AmountPlaces),
			a.Held.StringFixed(ledger.AmountPlaces),
			a.Total().StringFixed(ledger.AmountPlaces),
			strconv.FormatBool(a.Locked),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

package offset

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/lune-climate/spreadsheet-offset-tool/lune"
	"github.com/lune-climate/spreadsheet-offset-tool/sheet"
)

// quantityTag is baked into every idempotency key. It predates configurable
// quantities and must never change - a different tag would make replayed rows
// place brand new orders.
const quantityTag = "2kg"

var defaultQuantityKg = decimal.NewFromInt(2)

// Driver walks the spreadsheet row by row, places the missing orders and
// persists progress after every row.
type Driver struct {
	Client    *lune.Client
	Accounts  map[string]ClientAccount
	Portfolio lune.BundlePortfolio
	Output    string
	Log       logrus.FieldLogger
}

// Run reconciles every row of the table, strictly in input order. Any
// unexpected failure halts the run; the output file keeps every row completed
// up to that point so the next invocation resumes correctly.
func (d *Driver) Run(table *sheet.Table) error {
	for i, row := range table.Rows {
		d.Log.Infof("Processing row %v out of %v...", i+1, len(table.Rows))

		state, ok := d.Accounts[row.Recipient]
		if !ok {
			return fmt.Errorf("no provisioned account for recipient '%v'", row.Recipient)
		}

		// Set unconditionally so a rerun also repairs rows whose URL was
		// lost or has changed.
		row.PageURL = state.PageURL()

		if row.OrderID == "" {
			order, err := d.placeOrder(state, row)
			if err != nil {
				return err
			}

			row.OrderID = order.ID
		}

		if err := table.Write(d.Output); err != nil {
			return err
		}
	}

	return nil
}

func (d *Driver) placeOrder(state ClientAccount, row *sheet.Row) (lune.Order, error) {
	key := IdempotencyKey(row.Timestamp, row.Recipient)

	d.Log.Infof("Placing an order for account %v, idempotency key %v...", state.Account.ID, key)

	result := d.Client.CreateOrderByMass(state.Account.ID, key, MassGrams(row.QuantityKg), d.Portfolio.BundleSelection)

	// A repeated idempotency key means the order is already in place -
	// typically a previous run that was interrupted after placing the order
	// but before persisting the row. Fetch the existing order instead.
	if apiErr, ok := result.APIError(); ok && apiErr.ErrorCode == lune.ErrOrderIdempotencyAlreadyExists {
		d.Log.Infof("We already have an order for idempotency key %v, fetching...", key)

		result = d.Client.GetOrderByIdempotencyKey(state.Account.ID, key)
	}

	return result.Expect()
}

// IdempotencyKey derives the deterministic identifier that lets the API
// recognise a replayed order for the same row. It doesn't need to be
// cryptographically strong so SHA1 is more than good enough.
func IdempotencyKey(timestamp, recipient string) string {
	sum := sha1.Sum([]byte(fmt.Sprintf("%v %v %v", timestamp, recipient, quantityTag)))

	return hex.EncodeToString(sum[:])
}

// MassGrams converts a row's offset quantity to grams, falling back to the
// default 2 kg when the spreadsheet doesn't specify one.
func MassGrams(quantityKg *decimal.Decimal) int64 {
	quantity := defaultQuantityKg
	if quantityKg != nil {
		quantity = *quantityKg
	}

	return quantity.Mul(decimal.NewFromInt(1000)).IntPart()
}

// RecipientNames returns the distinct recipient names in the table, in first
// appearance order.
func RecipientNames(table *sheet.Table) []string {
	seen := map[string]bool{}
	names := []string{}
	for _, row := range table.Rows {
		if !seen[row.Recipient] {
			seen[row.Recipient] = true
			names = append(names, row.Recipient)
		}
	}

	return names
}

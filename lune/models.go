package lune

import (
	"encoding/json"
	"fmt"
)

// The models below define only the subset of the API's properties this tool
// needs. Unknown properties are ignored on decode; required properties are
// checked after decode and a missing one is a contract error.

// Account is a Lune account - either the main account behind the API key or
// a client account nested under it.
type Account struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Scope    string  `json:"scope"`
	Currency string  `json:"currency"`
	Logo     *string `json:"logo"`
}

func (a Account) validate() error {
	if a.ID == "" || a.Name == "" || a.Currency == "" {
		return fmt.Errorf("incomplete account %+v", a)
	}

	if a.Type != "live" && a.Type != "test" {
		return fmt.Errorf("unexpected account type '%v'", a.Type)
	}

	if a.Scope != "account" && a.Scope != "client_account" {
		return fmt.Errorf("unexpected account scope '%v'", a.Scope)
	}

	return nil
}

// SustainabilityPage is the public disclosure page bound to an account.
type SustainabilityPage struct {
	Slug string `json:"slug"`
}

func (p SustainabilityPage) validate() error {
	if p.Slug == "" {
		return fmt.Errorf("sustainability page with an empty slug")
	}

	return nil
}

// Order is a carbon offset purchase.
type Order struct {
	ID string `json:"id"`
}

func (o Order) validate() error {
	if o.ID == "" {
		return fmt.Errorf("order with an empty id")
	}

	return nil
}

// UpdateLogoResult is the response to a logo upload.
type UpdateLogoResult struct {
	URL string `json:"url"`
}

func (u UpdateLogoResult) validate() error {
	if u.URL == "" {
		return fmt.Errorf("logo update result with an empty URL")
	}

	return nil
}

// BundleSelectionItem allocates a share of an order to one bundle. The API
// represents the percentage as either a JSON number or a string so it is kept
// verbatim and sent back unchanged when placing orders.
type BundleSelectionItem struct {
	BundleID   string          `json:"bundle_id"`
	Percentage json.RawMessage `json:"percentage"`
}

// BundlePortfolio is a named, fixed allocation of offset project bundles.
type BundlePortfolio struct {
	Identifier      string                `json:"identifier"`
	Label           string                `json:"label"`
	BundleSelection []BundleSelectionItem `json:"bundle_selection"`
}

func (p BundlePortfolio) validate() error {
	if p.Identifier == "" || p.Label == "" {
		return fmt.Errorf("incomplete bundle portfolio %+v", p)
	}

	for _, item := range p.BundleSelection {
		if item.BundleID == "" || len(item.Percentage) == 0 {
			return fmt.Errorf("incomplete bundle selection in portfolio '%v'", p.Label)
		}
	}

	return nil
}

type portfolios []BundlePortfolio

func (l portfolios) validate() error {
	for _, p := range l {
		if err := p.validate(); err != nil {
			return err
		}
	}

	return nil
}

// resultPage is one page of a paginated listing.
type resultPage[T any] struct {
	Data    []T  `json:"data"`
	HasMore bool `json:"has_more"`
}

func (p resultPage[T]) validate() error {
	for _, item := range p.Data {
		if v, ok := any(item).(validator); ok {
			if err := v.validate(); err != nil {
				return err
			}
		}
	}

	return nil
}

type validator interface {
	validate() error
}

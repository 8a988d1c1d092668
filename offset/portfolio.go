package offset

import (
	"fmt"

	"github.com/lune-climate/spreadsheet-offset-tool/lune"
)

// DefaultPortfolioLabel is the bundle portfolio applied to orders unless the
// operator picks a different one.
const DefaultPortfolioLabel = "Oxford Offsetting Principles Portfolio"

// PortfolioByLabel resolves a bundle portfolio by its exact label. Zero or
// multiple matches mean the remote catalog no longer matches this tool's
// assumptions and the run cannot proceed.
func PortfolioByLabel(client *lune.Client, label string) (lune.BundlePortfolio, error) {
	available, err := client.ListAllBundlePortfolios().Expect()
	if err != nil {
		return lune.BundlePortfolio{}, err
	}

	matched := []lune.BundlePortfolio{}
	labels := []string{}
	for _, portfolio := range available {
		labels = append(labels, portfolio.Label)
		if portfolio.Label == label {
			matched = append(matched, portfolio)
		}
	}

	if len(matched) == 0 {
		return lune.BundlePortfolio{}, fmt.Errorf("failed to find portfolio '%v', portfolios available: %v", label, labels)
	}

	if len(matched) > 1 {
		return lune.BundlePortfolio{}, fmt.Errorf("non-unique portfolios when looking for '%v'", label)
	}

	return matched[0], nil
}

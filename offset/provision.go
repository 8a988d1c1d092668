package offset

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/lune-climate/spreadsheet-offset-tool/lune"
)

const pageBaseURL = "https://sustainability.lune.co/"

// ClientAccount is a fully provisioned recipient: a client account plus its
// published sustainability page.
type ClientAccount struct {
	Account lune.Account
	Page    lune.SustainabilityPage
}

// PageURL is the public URL of the account's sustainability page. Test
// accounts get their own path segment.
func (a ClientAccount) PageURL() string {
	extra := ""
	if a.Account.Type == "test" {
		extra = "test/"
	}

	return pageBaseURL + extra + a.Page.Slug
}

// EnsureClientAccounts makes sure every name in names has a client account, a
// logo (when logoPath is set) and a sustainability page, creating whatever is
// missing and reusing whatever exists. The remote system is the only source
// of truth - nothing is cached between runs.
func EnsureClientAccounts(client *lune.Client, names []string, logoPath, currency, beneficiary string, log logrus.FieldLogger) (map[string]ClientAccount, error) {
	accounts, err := client.ListAllClientAccounts().Expect()
	if err != nil {
		return nil, err
	}

	mapped := map[string]lune.Account{}
	for _, account := range accounts {
		if _, ok := mapped[account.Name]; ok {
			return nil, fmt.Errorf("non-unique client account name '%v'", account.Name)
		}

		mapped[account.Name] = account
	}

	provisioned := map[string]ClientAccount{}
	for i, name := range names {
		log.Infof("Processing name %v out of %v...", i+1, len(names))

		// Three things have to be in order for every name...
		// 1. The client account itself
		account, ok := mapped[name]
		if !ok {
			log.Infof("Creating client account for %v...", name)

			if account, err = client.CreateClientAccount(name, currency, beneficiary).Expect(); err != nil {
				return nil, err
			}

			mapped[name] = account
		}

		// 2. The logo. The API doesn't report whether a logo is already set
		// so the only safe option is to upload it every time - an upload
		// overwrites whatever is there.
		if logoPath != "" {
			log.Infof("Uploading logo for %v (account %v)...", name, account.ID)

			if _, err := client.UpdateClientAccountLogo(account.ID, logoPath).Expect(); err != nil {
				return nil, err
			}
		}

		// 3. The sustainability page
		result := client.GetSustainabilityPage(account.ID)
		page, err := result.Expect()
		if err != nil {
			// 404 is the one expected outcome here: the page simply doesn't
			// exist yet. Anything else ends the run.
			if apiErr, ok := result.APIError(); !ok || apiErr.Status != http.StatusNotFound {
				return nil, err
			}

			slug := PageSlug(beneficiary, account.ID)

			log.Infof("Creating a sustainability page for account %v (%v), slug %v...", account.ID, name, slug)

			if page, err = client.CreateSustainabilityPage(account.ID, slug, "On behalf of "+name).Expect(); err != nil {
				return nil, err
			}
		}

		provisioned[name] = ClientAccount{Account: account, Page: page}
	}

	return provisioned, nil
}

// PageSlug derives a sustainability page slug that is deterministic but
// unlikely to collide with any other customer's pages. It doesn't need to be
// cryptographically strong so SHA1 is more than good enough.
func PageSlug(beneficiary, accountID string) string {
	sum := sha1.Sum([]byte(fmt.Sprintf("%v %v", beneficiary, accountID)))

	return hex.EncodeToString(sum[:])
}

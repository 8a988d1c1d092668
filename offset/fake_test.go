package offset

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/lune-climate/spreadsheet-offset-tool/lune"
)

// fakeAPI is a minimal in-memory Lune API for exercising provisioning and
// reconciliation end to end.
type fakeAPI struct {
	t *testing.T

	accounts []lune.Account
	pages    map[string]string // account id -> slug
	orders   map[string]string // idempotency key -> order id

	createdAccounts int
	uploadedLogos   int
	createdPages    int
	placedOrders    int

	massAmounts         []string
	duplicatePortfolios bool

	pageStatus  int // non-zero forces this status from the page probe
	orderStatus int // non-zero forces this status from order placement
	orderCode   lune.ErrorCode
}

func newFakeAPI(t *testing.T) *fakeAPI {
	return &fakeAPI{
		t:      t,
		pages:  map[string]string{},
		orders: map[string]string{},
	}
}

func (f *fakeAPI) client(t *testing.T) *lune.Client {
	server := httptest.NewServer(f)
	t.Cleanup(server.Close)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	return lune.NewClient("test-key", server.URL, logger)
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/v1/accounts/client":
		json.NewEncoder(w).Encode(map[string]any{"data": f.accounts, "has_more": false})

	case r.Method == http.MethodPost && r.URL.Path == "/v1/accounts/client":
		body := map[string]string{}
		json.NewDecoder(r.Body).Decode(&body)

		f.createdAccounts++
		account := lune.Account{
			ID:       fmt.Sprintf("acc_%v", len(f.accounts)+1),
			Name:     body["name"],
			Type:     "test",
			Scope:    "client_account",
			Currency: body["currency"],
		}
		f.accounts = append(f.accounts, account)
		json.NewEncoder(w).Encode(account)

	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/logo"):
		f.uploadedLogos++
		json.NewEncoder(w).Encode(map[string]string{"url": "https://cdn.example.com/logo.png"})

	case r.Method == http.MethodGet && r.URL.Path == "/v1/sustainability-pages/current-account":
		if f.pageStatus != 0 {
			w.WriteHeader(f.pageStatus)
			return
		}

		slug, ok := f.pages[r.Header.Get("Lune-Account")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		json.NewEncoder(w).Encode(map[string]string{"slug": slug})

	case r.Method == http.MethodPost && r.URL.Path == "/v1/sustainability-pages":
		body := map[string]any{}
		json.NewDecoder(r.Body).Decode(&body)

		f.createdPages++
		slug := body["slug"].(string)
		f.pages[r.Header.Get("Lune-Account")] = slug
		json.NewEncoder(w).Encode(map[string]string{"slug": slug})

	case r.Method == http.MethodGet && r.URL.Path == "/v1/bundle-portfolios":
		listed := []map[string]any{
			{
				"identifier":       "p1",
				"label":            DefaultPortfolioLabel,
				"bundle_selection": []map[string]any{{"bundle_id": "b1", "percentage": 100}},
			},
		}
		if f.duplicatePortfolios {
			listed = append(listed, listed[0])
		}
		json.NewEncoder(w).Encode(listed)

	case r.Method == http.MethodPost && r.URL.Path == "/v1/orders/by-mass":
		if f.orderStatus != 0 {
			w.WriteHeader(f.orderStatus)
			json.NewEncoder(w).Encode(map[string]any{"error": map[string]string{"error_code": string(f.orderCode), "message": "order error"}})
			return
		}

		body := map[string]any{}
		json.NewDecoder(r.Body).Decode(&body)

		f.placedOrders++
		key := body["idempotency_key"].(string)
		id := fmt.Sprintf("ord_srv_%v", f.placedOrders)
		f.orders[key] = id
		f.lastOrderMass(body)
		json.NewEncoder(w).Encode(map[string]string{"id": id})

	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/v1/orders/by-idempotency-key/"):
		key := strings.TrimPrefix(r.URL.Path, "/v1/orders/by-idempotency-key/")
		id, ok := f.orders[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		json.NewEncoder(w).Encode(map[string]string{"id": id})

	default:
		f.t.Errorf("Unexpected request %v %v", r.Method, r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeAPI) lastOrderMass(body map[string]any) {
	mass, ok := body["mass"].(map[string]any)
	if !ok {
		f.t.Errorf("Order request without a mass: %v", body)
		return
	}

	f.massAmounts = append(f.massAmounts, fmt.Sprintf("%v", mass["amount"]))
}

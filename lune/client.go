package lune

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

const pageLimit = "100"

// Client is a hand-written client for the subset of the Lune API this tool
// uses.
//
// Error handling: network failures, timeouts and HTTP 4xx/5xx responses are
// all returned as values inside Result - no method fails for an expected
// error mode. A structurally invalid payload or an unexpected redirect is the
// one exception: that is a contract error, there is nothing a caller can do
// about it short of fixing the code on one side or the other.
type Client struct {
	http   *http.Client
	apiKey string
	apiURL string
	log    logrus.FieldLogger
}

// NewClient returns a client for the API at apiURL. The underlying transport
// retries rate-limited requests transparently.
func NewClient(apiKey, apiURL string, log logrus.FieldLogger) *Client {
	return &Client{
		http: &http.Client{
			Transport: newRetryTransport(http.DefaultTransport),
			// Redirects are never expected from this API - hand any 3xx
			// back so it can be reported as a contract violation.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		apiKey: apiKey,
		apiURL: strings.TrimSuffix(apiURL, "/"),
		log:    log,
	}
}

// GetAccount fetches the main account associated with the API key in use.
func (c *Client) GetAccount() Result[Account] {
	return request[Account](c, params{method: http.MethodGet, path: "accounts/me"})
}

// ListAllClientAccounts fetches all client accounts available via the API
// key, following pagination until the API signals there are no more pages.
// The returned result carries the last page's request id.
func (c *Client) ListAllClientAccounts() Result[[]Account] {
	accounts := []Account{}
	after := ""
	requestID := ""

	for {
		query := url.Values{"limit": []string{pageLimit}}
		if after != "" {
			query.Set("after", after)
		}

		result := request[resultPage[Account]](c, params{
			method: http.MethodGet,
			path:   "accounts/client",
			query:  query,
		})

		page, err := result.Expect()
		if err != nil {
			return failure[[]Account](err)
		}

		accounts = append(accounts, page.Data...)
		requestID = result.RequestID()

		if !page.HasMore {
			break
		}

		if len(page.Data) == 0 {
			return failure[[]Account](&ContractError{Detail: "has_more set on an empty page", RequestID: requestID})
		}

		after = page.Data[len(page.Data)-1].ID
	}

	return success(accounts, requestID)
}

// CreateClientAccount creates a client account nested under the main account.
func (c *Client) CreateClientAccount(name, currency, beneficiary string) Result[Account] {
	return request[Account](c, params{
		method: http.MethodPost,
		path:   "accounts/client",
		json: map[string]string{
			"name":        name,
			"currency":    currency,
			"beneficiary": beneficiary,
		},
	})
}

// UpdateClientAccountLogo uploads the file at logoPath as the client
// account's logo, replacing any existing one.
func (c *Client) UpdateClientAccountLogo(accountID, logoPath string) Result[UpdateLogoResult] {
	f, err := os.Open(logoPath)
	if err != nil {
		return failure[UpdateLogoResult](&ConnError{Cause: err})
	}

	defer f.Close()

	body := bytes.Buffer{}
	form := multipart.NewWriter(&body)

	part, err := form.CreateFormFile("logo", filepath.Base(logoPath))
	if err == nil {
		_, err = io.Copy(part, f)
	}

	if err == nil {
		err = form.Close()
	}

	if err != nil {
		return failure[UpdateLogoResult](&ConnError{Cause: err})
	}

	return request[UpdateLogoResult](c, params{
		method:      http.MethodPost,
		path:        fmt.Sprintf("accounts/client/%v/logo", accountID),
		body:        body.Bytes(),
		contentType: form.FormDataContentType(),
	})
}

// GetSustainabilityPage fetches the sustainability page for the given client
// account. An account without a page yields an APIError with status 404.
func (c *Client) GetSustainabilityPage(accountID string) Result[SustainabilityPage] {
	return request[SustainabilityPage](c, params{
		method:  http.MethodGet,
		path:    "sustainability-pages/current-account",
		account: accountID,
	})
}

// CreateSustainabilityPage publishes a sustainability page for the given
// client account, addressed by slug.
func (c *Client) CreateSustainabilityPage(accountID, slug, description string) Result[SustainabilityPage] {
	return request[SustainabilityPage](c, params{
		method:  http.MethodPost,
		path:    "sustainability-pages",
		account: accountID,
		json: map[string]any{
			"status":             "enabled",
			"slug":               slug,
			"title":              "by_volume",
			"description":        "by_custom_description",
			"custom_description": description,
			"sections":           []string{"bundles_breakdown", "certificates"},
		},
	})
}

// ListAllBundlePortfolios fetches all available bundle portfolios.
func (c *Client) ListAllBundlePortfolios() Result[[]BundlePortfolio] {
	result := request[portfolios](c, params{method: http.MethodGet, path: "bundle-portfolios"})

	return Result[[]BundlePortfolio]{
		data:      result.data,
		requestID: result.requestID,
		err:       result.err,
	}
}

// CreateOrderByMass places an order for the given mass of CO2 offsets,
// allocated per the given bundle selection. A repeated idempotency key yields
// an APIError with the ErrOrderIdempotencyAlreadyExists error code.
func (c *Client) CreateOrderByMass(accountID, idempotencyKey string, massGrams int64, selection []BundleSelectionItem) Result[Order] {
	return request[Order](c, params{
		method:  http.MethodPost,
		path:    "orders/by-mass",
		account: accountID,
		json: map[string]any{
			"mass": map[string]string{
				"amount": fmt.Sprintf("%v", massGrams),
				"unit":   "g",
			},
			"idempotency_key":  idempotencyKey,
			"bundle_selection": selection,
		},
	})
}

// GetOrderByIdempotencyKey fetches the order previously placed with the given
// idempotency key.
func (c *Client) GetOrderByIdempotencyKey(accountID, idempotencyKey string) Result[Order] {
	return request[Order](c, params{
		method:  http.MethodGet,
		path:    "orders/by-idempotency-key/" + idempotencyKey,
		account: accountID,
	})
}

type params struct {
	method      string
	path        string
	account     string
	query       url.Values
	json        any
	body        []byte
	contentType string
}

type errorBody struct {
	Error struct {
		ErrorCode string `json:"error_code"`
		Message   string `json:"message"`
	} `json:"error"`
}

func request[T any](c *Client, p params) Result[T] {
	endpoint := fmt.Sprintf("%v/v1/%v", c.apiURL, p.path)
	if len(p.query) > 0 {
		endpoint += "?" + p.query.Encode()
	}

	body := p.body
	contentType := p.contentType
	if p.json != nil {
		encoded, err := json.Marshal(p.json)
		if err != nil {
			return failure[T](&ContractError{Detail: fmt.Sprintf("cannot encode request body (%v)", err)})
		}

		body = encoded
		contentType = "application/json"
	}

	req, err := http.NewRequest(p.method, endpoint, bytes.NewReader(body))
	if err != nil {
		return failure[T](&ContractError{Detail: fmt.Sprintf("cannot build request (%v)", err)})
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	if p.account != "" {
		req.Header.Set("Lune-Account", p.account)
	}

	response, err := c.http.Do(req)
	if err != nil {
		return failure[T](&ConnError{Cause: err})
	}

	defer response.Body.Close()

	requestID := response.Header.Get("cf-ray")
	payload, err := io.ReadAll(response.Body)
	if err != nil {
		return failure[T](&ConnError{Cause: err})
	}

	c.log.WithFields(logrus.Fields{
		"method":     p.method,
		"path":       p.path,
		"status":     response.StatusCode,
		"request_id": requestID,
	}).Debug("API request")

	if response.StatusCode >= 400 {
		apiErr := APIError{Status: response.StatusCode, RequestID: requestID}
		if strings.HasPrefix(response.Header.Get("Content-Type"), "application/json") {
			decoded := errorBody{}
			if json.Unmarshal(payload, &decoded) == nil {
				apiErr.ErrorCode = ErrorCode(decoded.Error.ErrorCode)
				apiErr.Message = decoded.Error.Message
			}
		}

		return failure[T](&apiErr)
	}

	if response.StatusCode >= 300 {
		return failure[T](&ContractError{
			Detail:    fmt.Sprintf("unexpected status code %v", response.StatusCode),
			RequestID: requestID,
		})
	}

	var data T
	if err := json.Unmarshal(payload, &data); err != nil {
		return failure[T](&ContractError{
			Detail:    fmt.Sprintf("cannot decode response (%v)", err),
			RequestID: requestID,
		})
	}

	if v, ok := any(data).(validator); ok {
		if err := v.validate(); err != nil {
			return failure[T](&ContractError{Detail: err.Error(), RequestID: requestID})
		}
	}

	return success(data, requestID)
}

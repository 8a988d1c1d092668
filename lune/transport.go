package lune

import (
	"net/http"
	"time"
)

const (
	retryAttempts = 5
	retryBackoff  = 200 * time.Millisecond
	retryCap      = 10 * time.Second
)

// retryTransport retries rate-limited GET and POST requests with capped
// exponential backoff. The API returns HTTP 429 when a client makes requests
// too fast and those are always safe to retry. Nothing else is retried here -
// the core logic sees either a final response or a final failure.
type retryTransport struct {
	next     http.RoundTripper
	attempts int
	backoff  time.Duration
	cap      time.Duration
}

func newRetryTransport(next http.RoundTripper) *retryTransport {
	return &retryTransport{
		next:     next,
		attempts: retryAttempts,
		backoff:  retryBackoff,
		cap:      retryCap,
	}
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet && req.Method != http.MethodPost {
		return t.next.RoundTrip(req)
	}

	var response *http.Response
	var err error

	for attempt := 0; attempt < t.attempts; attempt++ {
		if attempt > 0 {
			if req.Body != nil {
				if req.GetBody == nil {
					return response, err
				}

				if req.Body, err = req.GetBody(); err != nil {
					return nil, err
				}
			}

			backoff := t.backoff << (attempt - 1)
			if backoff > t.cap {
				backoff = t.cap
			}

			select {
			case <-time.After(backoff):
			case <-req.Context().Done():
				return nil, req.Context().Err()
			}
		}

		response, err = t.next.RoundTrip(req)
		if err == nil && response.StatusCode != http.StatusTooManyRequests {
			return response, nil
		}

		// The final attempt's response is handed to the caller as-is.
		if err == nil && attempt < t.attempts-1 {
			response.Body.Close()
		}
	}

	return response, err
}

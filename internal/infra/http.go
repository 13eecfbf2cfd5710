package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultUserAgent is sent when a request sets no User-Agent.
const DefaultUserAgent = "optiscreen/1.0 (+https://github.com/seenimoa/optiscreen)"

// maxErrorBody bounds the response body kept in ErrHTTP.
const maxErrorBody = 2048

// ErrHTTP is returned for non-2xx responses.
type ErrHTTP struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("received unexpected status code %d: %s", e.StatusCode, e.Body)
}

// NewHTTPClient returns a client with the given timeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// Request describes an outbound HTTP call.
type Request struct {
	Method  string
	URL     string
	Query   url.Values
	Headers map[string]string
	Body    any // JSON-encoded when non-nil
}

// FullURL returns URL with Query appended.
func (r Request) FullURL() (string, error) {
	u, err := url.Parse(r.URL)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", r.URL, err)
	}
	if len(r.Query) > 0 {
		q := u.Query()
		for k, vs := range r.Query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// Do performs the request and returns the body of a 2xx response.
func Do(ctx context.Context, client *http.Client, r Request) ([]byte, error) {
	if client == nil {
		client = NewHTTPClient(0)
	}
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}
	full, err := r.FullURL()
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if r.Body != nil {
		data, err := json.Marshal(r.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, full, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", DefaultUserAgent)
	req.Header.Set("Accept", "application/json, text/csv, text/html;q=0.9, */*;q=0.8")
	if r.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http %s %s: %w", method, r.URL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(data) > maxErrorBody {
			data = data[:maxErrorBody]
		}
		return nil, &ErrHTTP{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(data)}
	}
	return data, nil
}

// DecodeJSON decodes data into an untyped value, keeping numbers as
// json.Number so their literal text survives.
func DecodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

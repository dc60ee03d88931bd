package matrixclient

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/tidwall/gjson"
	"maunium.net/go/mautrix"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindBadRequest
	KindAuthentication
	KindForbidden
	KindNotFound
	KindRateLimited
)

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad request"
	case KindAuthentication:
		return "authentication"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not found"
	case KindRateLimited:
		return "rate limited"
	default:
		return "unknown"
	}
}

// APIError is a homeserver failure classified by HTTP status and errcode.
type APIError struct {
	Kind       Kind
	Code       string
	Message    string
	StatusCode int
	// RetryAfter is the wait the server asked for, 0 when it did not say.
	RetryAfter time.Duration
	Err        error
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("matrix %s (%d %s): %s", e.Kind, e.StatusCode, e.Code, e.Message)
	}

	return fmt.Sprintf("matrix %s (%d): %s", e.Kind, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// RetryDelay lets the sync loop honour a rate limit.
func (e *APIError) RetryDelay() time.Duration {
	return e.RetryAfter
}

// IsKind reports whether err is an APIError of kind k.
func IsKind(err error, k Kind) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind == k
	}

	return false
}

// classify turns a mautrix HTTP error into an APIError. Other errors (network
// failures and the like) are returned unchanged.
func classify(err error) error {
	for e := err; e != nil; e = errors.Unwrap(e) {
		switch httpErr := interface{}(e).(type) {
		case mautrix.HTTPError:
			return newAPIError(&httpErr, err)
		case *mautrix.HTTPError:
			return newAPIError(httpErr, err)
		}
	}

	return err
}

func newAPIError(httpErr *mautrix.HTTPError, err error) *APIError {
	apiErr := &APIError{
		Message: httpErr.Message,
		Err:     err,
	}

	if httpErr.Response != nil {
		apiErr.StatusCode = httpErr.Response.StatusCode
		apiErr.RetryAfter = parseRetryAfter(httpErr.Response.Header.Get("Retry-After"))
	}

	if httpErr.RespError != nil {
		apiErr.Code = httpErr.RespError.ErrCode
		apiErr.Message = httpErr.RespError.Err
	}

	apiErr.Kind = kindOf(apiErr.StatusCode, apiErr.Code)

	return apiErr
}

func kindOf(status int, code string) Kind {
	switch code {
	case "M_LIMIT_EXCEEDED":
		return KindRateLimited
	case "M_UNKNOWN_TOKEN", "M_MISSING_TOKEN":
		return KindAuthentication
	case "M_FORBIDDEN":
		return KindForbidden
	case "M_NOT_FOUND":
		return KindNotFound
	}

	switch status {
	case http.StatusBadRequest:
		return KindBadRequest
	case http.StatusUnauthorized:
		return KindAuthentication
	case http.StatusForbidden:
		return KindForbidden
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusTooManyRequests:
		return KindRateLimited
	default:
		return KindUnknown
	}
}

func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0
	}

	return time.Duration(secs) * time.Second
}

// rateLimitTransport copies retry_after_ms from a 429 body into the
// Retry-After header, where classify can find it after mautrix has consumed
// the body.
type rateLimitTransport struct {
	next http.RoundTripper
}

func (t *rateLimitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	if err != nil || resp.StatusCode != http.StatusTooManyRequests || resp.Header.Get("Retry-After") != "" {
		return resp, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()

	if err != nil {
		return nil, err
	}

	resp.Body = io.NopCloser(bytes.NewReader(body))

	if ms := gjson.GetBytes(body, "retry_after_ms"); ms.Exists() && ms.Int() > 0 {
		// whole seconds, rounded up
		resp.Header.Set("Retry-After", strconv.FormatInt((ms.Int()+999)/1000, 10))
	}

	return resp, nil
}

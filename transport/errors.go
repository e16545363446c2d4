package transport

import (
	"fmt"
	"net/http"

	"github.com/goliatone/go-errors"
)

const maxErrorBody = 512

// StatusCategory maps an HTTP status code to an error category.
func StatusCategory(status int) errors.Category {
	switch {
	case status == http.StatusNotFound:
		return errors.CategoryNotFound
	case status == http.StatusUnauthorized:
		return errors.CategoryAuth
	case status == http.StatusForbidden:
		return errors.CategoryAuthz
	case status == http.StatusConflict:
		return errors.CategoryConflict
	case status == http.StatusTooManyRequests:
		return errors.CategoryRateLimit
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return errors.CategoryBadInput
	default:
		return errors.CategoryExternal
	}
}

func statusError(method, target string, resp *Response) error {
	body := string(resp.Body)
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}

	return errors.New(
		fmt.Sprintf("%s %s: unexpected status %d", method, target, resp.Status),
		StatusCategory(resp.Status),
	).
		WithCode(resp.Status).
		WithTextCode("HTTP_STATUS").
		WithRequestID(resp.RequestID).
		WithMetadata(map[string]any{
			"method": method,
			"url":    target,
			"body":   body,
		})
}

// StatusCode returns the HTTP status carried by a transport error, or 0.
func StatusCode(err error) int {
	var e *errors.Error
	if errors.As(err, &e) {
		return e.Code
	}
	return 0
}

package transport

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/agentstation/gatelink/pkg/errors"
	"github.com/agentstation/gatelink/pkg/logging"
)

// maxErrorBody bounds how much of an error response is kept in an APIError.
const maxErrorBody = 4096

// Success reports whether status is 2xx.
func Success(status int) bool {
	return status >= 200 && status < 300
}

// DecodeResponse decodes a JSON response into target. Non-2xx statuses
// yield an *errors.APIError for operation. A nil target discards the body.
func DecodeResponse(resp *http.Response, operation string, target any) error {
	defer CloseBody(resp)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.WrapIO("read", "response body", err)
	}

	if !Success(resp.StatusCode) {
		return &errors.APIError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp, body),
			Endpoint:   endpoint(resp),
		}
	}

	if target == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, target); err != nil {
		return errors.WrapParse("json", operation+" response", err)
	}
	return nil
}

// CloseBody drains and closes the response body.
func CloseBody(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	if err := resp.Body.Close(); err != nil {
		logging.Debug().Err(err).Msg("Failed to close response body")
	}
}

func errorMessage(resp *http.Response, body []byte) string {
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody]
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return msg
}

func endpoint(resp *http.Response) string {
	if resp.Request == nil || resp.Request.URL == nil {
		return ""
	}
	return resp.Request.Method + " " + resp.Request.URL.Path
}

package helpers

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"gotest.tools/v3/assert"
)

// ErrorResponse is the body shape echo's default error handler renders when
// a route handler returns an HTTPError.
type ErrorResponse struct {
	Message string `json:"message"`
}

// AssertErrorResponse checks that the recorded response carries the status
// code provided, and that its error message contains the fragment provided.
// An empty fragment matches any message.
func AssertErrorResponse(t *testing.T, rec *httptest.ResponseRecorder, expectedStatusCode int, expectedMessageFragment string) {
	assert.Equal(t, rec.Code, expectedStatusCode, "response status code did not match expected")

	apiErr := DecodeJSONBody[ErrorResponse](t, rec)
	if expectedMessageFragment != "" {
		assert.Assert(t, strings.Contains(apiErr.Message, expectedMessageFragment),
			"error message %q does not contain %q", apiErr.Message, expectedMessageFragment)
	}
}

// DecodeJSONBody decodes the recorded response body in to the type provided,
// failing the test if the body is not legal JSON for that type.
func DecodeJSONBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	var decoded T
	assert.NilError(t, json.Unmarshal(rec.Body.Bytes(), &decoded), "could not decode response body %q", rec.Body.String())
	return decoded
}

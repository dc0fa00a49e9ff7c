// Package testutil provides common test utilities and assertions for nativemod tests.
package testutil

import (
	"encoding/json"
	"testing"

	"github.com/python-project-templates/nativemod/domain/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertJSONEqual compares two JSON strings for equality, ignoring formatting
func AssertJSONEqual(t *testing.T, expected, actual string, msgAndArgs ...interface{}) {
	t.Helper()

	var expectedJSON, actualJSON interface{}
	require.NoError(t, json.Unmarshal([]byte(expected), &expectedJSON), "expected JSON is invalid")
	require.NoError(t, json.Unmarshal([]byte(actual), &actualJSON), "actual JSON is invalid")

	assert.Equal(t, expectedJSON, actualJSON, msgAndArgs...)
}

// RequireErrorDetail asserts that err is a host error of the given type and
// returns it.
func RequireErrorDetail(t *testing.T, err error, errorType string) *entities.ErrorDetail {
	t.Helper()

	require.Error(t, err)
	var detail *entities.ErrorDetail
	require.ErrorAs(t, err, &detail, "error should be *entities.ErrorDetail")
	assert.Equal(t, errorType, detail.Type, "unexpected error type: %s", detail.Message)
	return detail
}

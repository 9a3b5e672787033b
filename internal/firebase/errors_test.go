package firebase

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"

	"desirius_backend/internal/common"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		want    *common.APIError
		message string
	}{
		{"wrong password", &googleapi.Error{Code: 400, Message: "INVALID_PASSWORD"}, common.ErrUnauthorized, msgInvalidCredentials},
		{"unknown email on sign in", &googleapi.Error{Code: 400, Message: "EMAIL_NOT_FOUND"}, common.ErrUnauthorized, msgInvalidCredentials},
		{"duplicate email", &googleapi.Error{Code: 400, Message: "EMAIL_EXISTS"}, common.ErrConflict, msgEmailExists},
		{"weak password with detail", &googleapi.Error{Code: 400, Message: "WEAK_PASSWORD : Password should be at least 6 characters"}, common.ErrUnprocessableEntity, msgWeakPassword},
		{"throttled", &googleapi.Error{Code: 400, Message: "TOO_MANY_ATTEMPTS_TRY_LATER"}, common.ErrTooManyRequests, msgTooManyAttempts},
		{"provider outage", &googleapi.Error{Code: 503, Message: "backend error"}, common.ErrServiceUnavailable, msgProviderDown},
		{"timeout", fmt.Errorf("call: %w", context.DeadlineExceeded), common.ErrGatewayTimeout, msgProviderDown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError(tt.err)
			assert.True(t, errors.Is(got, tt.want), "got %v", got)
			assert.Equal(t, tt.message, common.UserMessage(got))
		})
	}
}

func TestMapError_PassesThroughUnknownErrors(t *testing.T) {
	base := errors.New("dial tcp: connection refused")
	got := mapError(base)
	assert.ErrorIs(t, got, base)
	_, isAPI := common.IsAPIError(got)
	assert.False(t, isAPI)

	assert.Nil(t, mapError(nil))
}

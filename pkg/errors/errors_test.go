package errors_test

import (
	"errors"
	"fmt"
	"testing"

	pkgerrors "github.com/agentstation/gatelink/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := pkgerrors.New("test error")
	assert.NotNil(t, err)
	assert.Equal(t, "test error", err.Error())
}

func TestUnrecognizedEventError(t *testing.T) {
	t.Run("with reason", func(t *testing.T) {
		err := pkgerrors.NewUnrecognizedEventError("OnFooEvent", "no registry entry")
		assert.Contains(t, err.Error(), "OnFooEvent")
		assert.Contains(t, err.Error(), "no registry entry")
	})

	t.Run("without reason", func(t *testing.T) {
		err := pkgerrors.NewUnrecognizedEventError("OnBarEvent", "")
		assert.Equal(t, `unrecognized event "OnBarEvent"`, err.Error())
	})

	t.Run("is sentinel", func(t *testing.T) {
		err := fmt.Errorf("decode: %w", pkgerrors.NewUnrecognizedEventError("x", ""))
		assert.True(t, pkgerrors.IsUnrecognizedEvent(err))
		assert.False(t, pkgerrors.IsTimeout(err))
	})
}

func TestAPIError(t *testing.T) {
	t.Run("with status", func(t *testing.T) {
		err := pkgerrors.NewAPIError("keepalive", 500, "internal server error")
		assert.Contains(t, err.Error(), "keepalive")
		assert.Contains(t, err.Error(), "500")
		assert.True(t, pkgerrors.IsGatewayUnavailable(err))
		assert.False(t, pkgerrors.IsUnauthorized(err))
	})

	t.Run("unauthorized", func(t *testing.T) {
		err := pkgerrors.NewAPIError("open session", 401, "bad token")
		assert.True(t, pkgerrors.IsUnauthorized(err))
	})

	t.Run("wrap helper", func(t *testing.T) {
		baseErr := errors.New("connection reset")
		err := pkgerrors.WrapAPI("create subscription", 0, baseErr)
		var apiErr *pkgerrors.APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, "create subscription", apiErr.Operation)
		assert.Equal(t, baseErr, apiErr.Unwrap())
		assert.Nil(t, pkgerrors.WrapAPI("noop", 0, nil))
	})
}

func TestChannelError(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		err := &pkgerrors.ChannelError{Op: "open", URL: "http://gw/poll", StatusCode: 401}
		assert.Contains(t, err.Error(), "status 401")
		assert.True(t, err.Rejected())
		assert.True(t, errors.Is(err, pkgerrors.ErrUnauthorized))
		assert.True(t, errors.Is(err, pkgerrors.ErrChannelClosed))
	})

	t.Run("server error is retryable", func(t *testing.T) {
		err := &pkgerrors.ChannelError{Op: "open", URL: "http://gw/poll", StatusCode: 503}
		assert.False(t, err.Rejected())
		assert.True(t, pkgerrors.IsGatewayUnavailable(err))
	})

	t.Run("transport error", func(t *testing.T) {
		baseErr := errors.New("broken pipe")
		err := &pkgerrors.ChannelError{Op: "read", URL: "http://gw/poll", Err: baseErr}
		assert.Contains(t, err.Error(), "broken pipe")
		assert.True(t, errors.Is(err, baseErr))
		assert.False(t, err.Rejected())
	})
}

func TestConfigError(t *testing.T) {
	err := pkgerrors.NewConfigError("registry", "duplicate event name OnFooEvent", nil)
	assert.Contains(t, err.Error(), "registry")
	assert.Contains(t, err.Error(), "OnFooEvent")
	assert.Nil(t, err.Unwrap())
}

func TestConsistencyError(t *testing.T) {
	err := pkgerrors.NewConsistencyError("test.FooListener", "OnFoo", "listener does not implement interface")
	assert.Contains(t, err.Error(), "test.FooListener.OnFoo")
	assert.Contains(t, err.Error(), "does not implement")
}

func TestSubscriptionError(t *testing.T) {
	err := &pkgerrors.SubscriptionError{Status: "REJECTED", Message: "quota exceeded"}
	assert.Equal(t, "subscription REJECTED: quota exceeded", err.Error())
	assert.True(t, errors.Is(err, pkgerrors.ErrSubscriptionRejected))
}

func TestParseError(t *testing.T) {
	baseErr := errors.New("unexpected end of JSON input")
	err := pkgerrors.WrapParse("json", "chunk", baseErr)
	var parseErr *pkgerrors.ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, "json", parseErr.Format)
	assert.Contains(t, err.Error(), "chunk")
	assert.True(t, errors.Is(err, baseErr))
}

func TestTimeoutError(t *testing.T) {
	err := pkgerrors.NewTimeoutError("await channel ready", "30s", "no channel information received")
	assert.Contains(t, err.Error(), "30s")
	assert.True(t, pkgerrors.IsTimeout(err))
}

func TestResourceError(t *testing.T) {
	err := pkgerrors.WrapResource("delete", "subscription", "sub-1", errors.New("timeout"))
	var resErr *pkgerrors.ResourceError
	require.True(t, errors.As(err, &resErr))
	assert.Equal(t, "delete", resErr.Operation)
	assert.Equal(t, "subscription", resErr.Resource)
	assert.Contains(t, err.Error(), "sub-1")
	assert.Nil(t, pkgerrors.WrapResource("delete", "subscription", "", nil))
}

func TestIOError(t *testing.T) {
	baseErr := errors.New("permission denied")
	err := pkgerrors.WrapIO("read", "/etc/gatelink.yaml", baseErr)
	var ioErr *pkgerrors.IOError
	require.True(t, errors.As(err, &ioErr))
	assert.Equal(t, baseErr, ioErr.Unwrap())
	assert.Contains(t, err.Error(), "/etc/gatelink.yaml")
}

func TestValidationError(t *testing.T) {
	err := pkgerrors.NewValidationError("ttl", -1, "must be positive")
	assert.Contains(t, err.Error(), "ttl")
	assert.True(t, pkgerrors.IsValidationError(err))
}

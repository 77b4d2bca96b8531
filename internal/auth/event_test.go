package auth

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvent_Defaults(t *testing.T) {
	var evt Event
	assert.Equal(t, "GET", evt.Method())
	assert.Equal(t, "/", evt.RequestPath())

	evt = Event{HTTPMethod: "POST", Path: "/invoke"}
	assert.Equal(t, "POST", evt.Method())
	assert.Equal(t, "/invoke", evt.RequestPath())
}

func TestPayload_TableOmittedWhenEmpty(t *testing.T) {
	data, err := json.Marshal(Payload{
		Message:   "Auth service healthy",
		Service:   "auth-service-19987",
		Timestamp: 1700000000,
	})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "table")

	data, err = json.Marshal(Payload{
		Message:   "Auth service healthy",
		Service:   "auth-service-19987",
		Table:     "auth-tokens",
		Timestamp: 1700000000,
	})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"table":"auth-tokens"`)
}

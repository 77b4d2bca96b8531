package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestTestLogger_Creation(t *testing.T) {
	tl := NewTestLogger()
	assert.NotNil(t, tl.Logger)
	assert.NotNil(t, tl.observed)
}

func TestTestLogger_AssertLogged(t *testing.T) {
	tl := NewTestLogger()
	ctx := context.Background()

	tl.Info(ctx, "invocation completed", zap.String("method", "POST"))

	tl.AssertLogged(t, zapcore.InfoLevel, "invocation completed")
}

func TestTestLogger_AssertNotLogged(t *testing.T) {
	tl := NewTestLogger()
	ctx := context.Background()

	tl.Info(ctx, "invocation completed", zap.Int("status", 200))

	tl.AssertNotLogged(t, zapcore.ErrorLevel, "invocation failed")
}

func TestTestLogger_AssertField(t *testing.T) {
	tl := NewTestLogger()
	ctx := context.Background()

	tl.Info(ctx, "invocation accepted",
		zap.String("invocation_id", "01932c4a-7f10-7abc-9def-0123456789ab"),
		zap.String("path", "/invoke"))

	tl.AssertField(t, "invocation accepted", "path", "/invoke")
}

func TestTestLogger_AssertNoSecrets(t *testing.T) {
	tl := NewTestLogger()
	ctx := context.Background()

	tl.Info(ctx, "session established", zap.String("username", "alice"))

	tl.AssertNoSecrets(t)
}

func TestTestLogger_CapturesSecretFields(t *testing.T) {
	tl := NewTestLogger()
	ctx := context.Background()

	// The observer core records raw fields; redaction happens at the
	// encoder. AssertNoSecrets would flag this entry.
	tl.Error(ctx, "credential check failed", zap.String("password", "hunter2"))

	logs := tl.All()
	assert.Len(t, logs, 1)
	assert.Equal(t, "credential check failed", logs[0].Message)
}

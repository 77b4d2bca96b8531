package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "classified error reports its kind",
			err:  NewError(KindInvalidInput, "bad token"),
			want: KindInvalidInput,
		},
		{
			name: "wrapped classified error reports its kind",
			err:  fmt.Errorf("authenticate: %w", NewError(KindTimeout, "upstream slow")),
			want: KindTimeout,
		},
		{
			name: "deadline exceeded maps to timeout",
			err:  context.DeadlineExceeded,
			want: KindTimeout,
		},
		{
			name: "wrapped deadline exceeded maps to timeout",
			err:  fmt.Errorf("authenticate: %w", context.DeadlineExceeded),
			want: KindTimeout,
		},
		{
			name: "canceled maps to canceled",
			err:  context.Canceled,
			want: KindCanceled,
		},
		{
			name: "plain error maps to internal",
			err:  errors.New("boom"),
			want: KindInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestWrapError(t *testing.T) {
	cause := errors.New("connection reset")
	err := WrapError(KindInternal, cause)
	require.NotNil(t, err)

	assert.Equal(t, "connection reset", err.Error())
	assert.ErrorIs(t, err, cause)

	var classified *Error
	require.ErrorAs(t, fmt.Errorf("outer: %w", err), &classified)
	assert.Equal(t, KindInternal, classified.Kind)
}

func TestWrapError_Nil(t *testing.T) {
	assert.Nil(t, WrapError(KindInternal, nil))
}

package asset

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Format(t *testing.T) {
	err := NewError(CodeInsufficient, "engine.MintPair", "balance of %s is below the pair fee", "alice")
	assert.Equal(t, "engine.MintPair: INSUFFICIENT_FUNDS: balance of alice is below the pair fee", err.Error())

	bare := &Error{Code: CodePaused, Message: "engine is paused"}
	assert.Equal(t, "PAUSED: engine is paused", bare.Error())
}

func TestCodeOf_UnwrapsWrappedErrors(t *testing.T) {
	inner := NewError(CodeAuthorization, "registry.Burn", "not authorized")
	wrapped := fmt.Errorf("running scenario: %w", inner)

	assert.Equal(t, CodeAuthorization, CodeOf(wrapped))
	assert.True(t, IsAuthorization(wrapped))
	assert.False(t, IsValidation(wrapped))
}

func TestCodeOf_ForeignErrorHasNoCode(t *testing.T) {
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("disk full")))
	assert.Equal(t, ErrorCode(""), CodeOf(nil))
}

func TestPredicates_MatchTheirCode(t *testing.T) {
	tests := []struct {
		code ErrorCode
		pred func(error) bool
	}{
		{CodeValidation, IsValidation},
		{CodeAuthorization, IsAuthorization},
		{CodeInsufficient, IsInsufficient},
		{CodeInvariant, IsInvariant},
		{CodePaused, IsPaused},
		{CodeReentrancy, IsReentrancy},
	}
	for _, tt := range tests {
		err := NewError(tt.code, "op", "msg")
		assert.True(t, tt.pred(err), string(tt.code))
		for _, other := range tests {
			if other.code != tt.code {
				assert.False(t, other.pred(err), "%s matched %s", other.code, tt.code)
			}
		}
	}
}

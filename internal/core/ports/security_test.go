package ports

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSecurityValidator struct {
	errorToReturn error
	name          string
	callCount     int
	shouldAllow   bool
}

func (m *mockSecurityValidator) Name() string {
	return m.name
}

func (m *mockSecurityValidator) Validate(ctx context.Context, req SecurityRequest) (SecurityResult, error) {
	m.callCount++

	if m.errorToReturn != nil {
		return SecurityResult{}, m.errorToReturn
	}

	if !m.shouldAllow {
		return SecurityResult{
			Allowed: false,
			Reason:  fmt.Sprintf("validator %s rejected request", m.name),
		}, nil
	}

	return SecurityResult{Allowed: true}, nil
}

func TestSecurityChain_AllAllow(t *testing.T) {
	v1 := &mockSecurityValidator{name: "size_limit", shouldAllow: true}
	v2 := &mockSecurityValidator{name: "rate_limit", shouldAllow: true}
	chain := NewSecurityChain(v1, v2)

	result, err := chain.Validate(context.Background(), SecurityRequest{Endpoint: "/generate"})
	require.NoError(t, err)

	assert.True(t, result.Allowed)
	assert.Equal(t, 1, v1.callCount)
	assert.Equal(t, 1, v2.callCount)
	assert.Len(t, chain.GetValidators(), 2)
}

func TestSecurityChain_StopsAtFirstRejection(t *testing.T) {
	v1 := &mockSecurityValidator{name: "size_limit", shouldAllow: false}
	v2 := &mockSecurityValidator{name: "rate_limit", shouldAllow: true}
	chain := NewSecurityChain(v1, v2)

	result, err := chain.Validate(context.Background(), SecurityRequest{Endpoint: "/summarize"})
	require.NoError(t, err)

	assert.False(t, result.Allowed)
	assert.Contains(t, result.Reason, "size_limit")
	assert.Equal(t, 0, v2.callCount)
}

func TestSecurityChain_PropagatesErrors(t *testing.T) {
	boom := errors.New("validator broke")
	chain := NewSecurityChain(&mockSecurityValidator{name: "broken", errorToReturn: boom})

	_, err := chain.Validate(context.Background(), SecurityRequest{})
	assert.ErrorIs(t, err, boom)
}

func TestSecurityChain_Empty(t *testing.T) {
	result, err := NewSecurityChain().Validate(context.Background(), SecurityRequest{})
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

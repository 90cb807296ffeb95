package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDevVerifier(t *testing.T) {
	var v Verifier = DevVerifier{}

	id, err := v.Verify(context.Background(), "dev:alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", id.UID)

	for _, tok := range []string{"", "dev:", "dev:   ", "alice", "Bearer dev:alice"} {
		_, err := v.Verify(context.Background(), tok)
		assert.ErrorIs(t, err, ErrInvalidToken, tok)
	}
}

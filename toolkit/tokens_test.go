package toolkit

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSignedTokenCarriesSubject(t *testing.T) {
	t.Parallel()

	raw, err := SignToken("t0p-secret", "test@example.com")
	require.NoError(t, err)

	claims, err := InspectToken(raw)
	require.NoError(t, err)
	require.Equal(t, "test@example.com", claims.Subject)
	require.True(t, claims.ExpiresAt.IsZero())
}

func TestSignTokenRequiresSecret(t *testing.T) {
	t.Parallel()

	_, err := SignToken(" ", "someone")
	require.Error(t, err)
}

func TestInspectTokenRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := InspectToken("invalid.token.here")
	require.Error(t, err)
}

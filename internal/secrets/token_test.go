package secrets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestAPITokenLookup(t *testing.T) {
	keyring.MockInit()
	t.Setenv(TokenEnv, "")

	_, err := GetAPIToken()
	assert.ErrorIs(t, err, ErrNoToken)

	require.NoError(t, SetAPIToken("  from-keyring "))
	tok, err := GetAPIToken()
	require.NoError(t, err)
	assert.Equal(t, "from-keyring", tok)

	t.Setenv(TokenEnv, "from-env")
	tok, err = GetAPIToken()
	require.NoError(t, err)
	assert.Equal(t, "from-env", tok)

	t.Setenv(TokenEnv, "")
	require.NoError(t, DeleteAPIToken())
	require.NoError(t, DeleteAPIToken())
	_, err = GetAPIToken()
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestSetEmptyTokenRejected(t *testing.T) {
	keyring.MockInit()
	assert.Error(t, SetAPIToken(" "))
}

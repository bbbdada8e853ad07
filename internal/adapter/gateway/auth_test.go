package gateway

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clickloop/internal/domain"
	"clickloop/internal/infra/config"
)

func TestStaticTokenAuth(t *testing.T) {
	auth := NewStaticTokenAuth([]config.TokenConfig{
		{Token: "alpha", Name: "laptop"},
		{Token: "beta", Name: "kiosk"},
	})

	info, err := auth.Authenticate("beta")
	require.NoError(t, err)
	assert.Equal(t, "kiosk", info.Name)

	_, err = auth.Authenticate("gamma")
	assert.True(t, errors.Is(err, domain.ErrGatewayAuthFailed))
	assert.True(t, errors.Is(err, domain.ErrAuthInvalid))

	_, err = auth.Authenticate("")
	assert.Error(t, err)
}

func TestNewAuthenticatorOpenWhenNoTokens(t *testing.T) {
	auth := NewAuthenticator(nil)
	info, err := auth.Authenticate("anything")
	require.NoError(t, err)
	assert.Equal(t, "anonymous", info.Name)

	_, ok := NewAuthenticator([]config.TokenConfig{{Token: "x"}}).(*StaticTokenAuth)
	assert.True(t, ok)
}

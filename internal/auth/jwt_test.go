package auth_test

import (
	"testing"
	"time"

	"github.com/LRZ-BADW/avina/internal/auth"
	"github.com/LRZ-BADW/avina/internal/clock"
	"github.com/LRZ-BADW/avina/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuth_AccessToken(t *testing.T) {
	clk := clock.NewMock(time.Now().UTC())
	a := auth.NewAuth("secret", time.Hour, "").WithClock(clk)
	user := &types.User{ID: 42, Name: "alice"}

	token, err := a.GenerateAccessToken(user)
	require.NoError(t, err)

	t.Run("round trips the user", func(t *testing.T) {
		claims, err := a.ValidateAccessToken(token)
		require.NoError(t, err)
		id, err := claims.UserID()
		require.NoError(t, err)
		assert.Equal(t, uint32(42), id)
		assert.Equal(t, "alice", claims.Name)
		assert.Equal(t, auth.DefaultIssuer, claims.Issuer)
		assert.NotEmpty(t, claims.ID)
	})

	t.Run("rejects a foreign secret", func(t *testing.T) {
		other := auth.NewAuth("other", time.Hour, "").WithClock(clk)
		_, err := other.ValidateAccessToken(token)
		assert.Error(t, err)
	})

	t.Run("rejects a foreign issuer", func(t *testing.T) {
		other := auth.NewAuth("secret", time.Hour, "someone-else").WithClock(clk)
		_, err := other.ValidateAccessToken(token)
		assert.Error(t, err)
	})

	t.Run("rejects expired tokens", func(t *testing.T) {
		later := auth.NewAuth("secret", time.Hour, "").WithClock(clock.NewMock(clk.Now().Add(2 * time.Hour)))
		_, err := later.ValidateAccessToken(token)
		assert.Error(t, err)
	})
}

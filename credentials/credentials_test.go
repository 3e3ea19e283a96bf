package credentials_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/canteen-ledger/credentials"
	"github.com/warp/canteen-ledger/ledger"
)

func TestHashAndVerify(t *testing.T) {
	hash, err := credentials.Hash("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)
	assert.True(t, credentials.Verify(hash, "s3cret"))
	assert.False(t, credentials.Verify(hash, "wrong"))

	other, err := credentials.Hash("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, hash, other, "hashes are salted")
}

func TestHash_EmptyPassword(t *testing.T) {
	_, err := credentials.Hash("")
	assert.Error(t, err)
}

func TestAuthenticate(t *testing.T) {
	seed, err := credentials.SeedUsers("adminpw", "techpw")
	require.NoError(t, err)
	s := ledger.NewState(seed)

	u, err := credentials.Authenticate(s, "tech", "techpw")
	require.NoError(t, err)
	assert.Equal(t, ledger.User{Username: "tech", Role: ledger.RoleTech}, u)

	_, err = credentials.Authenticate(s, "tech", "adminpw")
	assert.ErrorIs(t, err, credentials.ErrInvalidCredentials)

	_, err = credentials.Authenticate(s, "ghost", "x")
	assert.ErrorIs(t, err, credentials.ErrInvalidCredentials)
}

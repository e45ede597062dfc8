package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashRoundTrip(t *testing.T) {
	hp := HashPassword("correct horse battery staple")
	assert.False(t, hp.IsOutdated())

	reparsed, err := ParsePasswordString(hp.String())
	require.Nil(t, err)

	ok, err := CheckPassword("correct horse battery staple", reparsed)
	require.Nil(t, err)
	assert.True(t, ok)

	ok, err = CheckPassword("wrong password", reparsed)
	require.Nil(t, err)
	assert.False(t, ok)
}

func TestLegacyDjangoHashParsing(t *testing.T) {
	hp, err := ParsePasswordString("pbkdf2_sha256$260000$ZFq3gFY1AFOWAjzMyg3SWv$P9hcpQDDHHDDv2BLsOhP5V7VN0A9homcIQzZDA1uBPA=")
	require.Nil(t, err)
	assert.Equal(t, Django_PBKDF2SHA256, hp.Algorithm)
	assert.Equal(t, "260000", hp.AlgoConfig)
	assert.True(t, hp.IsOutdated())

	// Wrong password against a legacy hash must fail cleanly, not error.
	ok, err := CheckPassword("definitely wrong", hp)
	require.Nil(t, err)
	assert.False(t, ok)

	_, err = ParsePasswordString("garbage")
	assert.NotNil(t, err)
}

func TestMakeToken(t *testing.T) {
	t1, err := MakeToken(20)
	require.Nil(t, err)
	t2, err := MakeToken(20)
	require.Nil(t, err)

	assert.Len(t, t1, 20)
	assert.NotEqual(t, t1, t2)
	for _, c := range t1 {
		assert.Contains(t, tokenAlphabet, string(c))
	}
}

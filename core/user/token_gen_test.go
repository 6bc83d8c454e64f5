package user

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
)

func tokenConf() *core.Config {
	return &core.Config{
		SecretKey:                 "secret",
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
	}
}

func tokenUser(t *testing.T) User {
	t.Helper()
	usr := User{ID: "7f0f4b3e-7d3c-4f6e-bbf6-0b9a4f5de111", Email: "junior@shule.cd"}
	require.NoError(t, usr.SetPassword("LeTresBonMotDePasse"))
	return usr
}

func Test_makeToken(t *testing.T) {
	conf := tokenConf()
	usr := tokenUser(t)

	token, err := MakeToken(conf, usr)
	require.NoError(t, err)
	assert.NoError(t, verifyToken(conf, usr, token))
}

func Test_verifyToken_invalid(t *testing.T) {
	conf := tokenConf()
	usr := tokenUser(t)

	token, err := MakeToken(conf, usr)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbled", "not-a-token"},
		{"missing signature", "GEYDOMI"},
		{"tampered signature", token + "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, errInvalidToken, verifyToken(conf, usr, tt.token))
		})
	}
}

func Test_verifyToken_singleUse(t *testing.T) {
	conf := tokenConf()
	usr := tokenUser(t)

	token, err := MakeToken(conf, usr)
	require.NoError(t, err)

	// a password change rotates the hash baked into the signature
	require.NoError(t, usr.SetPassword("UnNouveauMotDePasse"))
	assert.Equal(t, errInvalidToken, verifyToken(conf, usr, token))
}

func Test_verifyToken_lastLoginInvalidates(t *testing.T) {
	conf := tokenConf()
	usr := tokenUser(t)

	token, err := MakeToken(conf, usr)
	require.NoError(t, err)

	usr.LastLogin = time.Now().UTC()
	assert.Equal(t, errInvalidToken, verifyToken(conf, usr, token))
}

func Test_verifyToken_expired(t *testing.T) {
	conf := tokenConf()
	usr := tokenUser(t)

	NowFunc = func() time.Time { return time.Now().AddDate(0, 0, -10) }
	defer func() { NowFunc = time.Now }()

	token, err := MakeToken(conf, usr)
	require.NoError(t, err)
	assert.Equal(t, errTokenExpired, verifyToken(conf, usr, token))
}

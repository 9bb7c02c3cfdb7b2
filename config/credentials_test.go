package config

import (
	"errors"
	"testing"

	"github.com/99designs/keyring"
	"github.com/iSamMahoozi/stackmob-sdk-go/sdkerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withMockKeyring(t *testing.T, ring keyring.Keyring) {
	t.Helper()
	t.Cleanup(SetOpenKeyring(func(cfg keyring.Config) (keyring.Keyring, error) {
		return ring, nil
	}))
}

func withFailingKeyring(t *testing.T, err error) {
	t.Helper()
	t.Cleanup(SetOpenKeyring(func(cfg keyring.Config) (keyring.Keyring, error) {
		return nil, err
	}))
}

func TestCredentialStore_RoundTrip(t *testing.T) {
	withMockKeyring(t, keyring.NewArrayKeyring(nil))
	store := NewCredentialStore()

	require.NoError(t, store.SetPrivateKey("pub", "priv"))

	key, err := store.PrivateKey("pub")
	require.NoError(t, err)
	assert.Equal(t, "priv", key)

	require.NoError(t, store.DeletePrivateKey("pub"))
	_, err = store.PrivateKey("pub")
	assert.ErrorIs(t, err, ErrNoCredentials)

	assert.NoError(t, store.DeletePrivateKey("pub"), "deleting twice is fine")
}

func TestCredentialStore_Validation(t *testing.T) {
	withMockKeyring(t, keyring.NewArrayKeyring(nil))
	assert.ErrorIs(t, NewCredentialStore().SetPrivateKey("pub", ""), sdkerr.ErrConfiguration)
}

func TestCredentialStore_OpenFailure(t *testing.T) {
	boom := errors.New("keyring locked")
	withFailingKeyring(t, boom)
	store := NewCredentialStore()

	_, err := store.PrivateKey("pub")
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, sdkerr.ErrConfiguration)
	assert.ErrorIs(t, store.SetPrivateKey("pub", "priv"), boom)
	assert.ErrorIs(t, store.DeletePrivateKey("pub"), boom)
}

func TestCredentialStore_FillPrivateKey(t *testing.T) {
	withMockKeyring(t, keyring.NewArrayKeyring([]keyring.Item{{Key: "pub", Data: []byte("stored")}}))
	store := NewCredentialStore()

	cfg := Config{PublicKey: "pub"}
	require.NoError(t, store.FillPrivateKey(&cfg))
	assert.Equal(t, "stored", cfg.PrivateKey)

	cfg = Config{PublicKey: "pub", PrivateKey: "explicit"}
	require.NoError(t, store.FillPrivateKey(&cfg))
	assert.Equal(t, "explicit", cfg.PrivateKey)

	cfg = Config{PublicKey: "other"}
	assert.ErrorIs(t, store.FillPrivateKey(&cfg), ErrNoCredentials)
}

func TestKeyringConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(envCredentialsDir, dir)
	t.Setenv(envKeyringBackend, "file")

	cfg := keyringConfig()
	assert.Equal(t, serviceName, cfg.ServiceName)
	assert.Equal(t, []keyring.BackendType{keyring.FileBackend}, cfg.AllowedBackends)
	assert.Equal(t, dir+"/keyring", cfg.FileDir)

	t.Setenv(envKeyringPassword, "pw")
	pw, err := keyringFilePassword("prompt")
	require.NoError(t, err)
	assert.Equal(t, "pw", pw)
}

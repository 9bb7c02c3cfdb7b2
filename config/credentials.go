package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/99designs/keyring"
)

const (
	serviceName        = "stackmob-sdk-go"
	envKeyringBackend  = "STACKMOB_KEYRING_BACKEND"
	envKeyringPassword = "STACKMOB_KEYRING_PASSWORD"
	envCredentialsDir  = "STACKMOB_CREDENTIALS_DIR"
)

// ErrNoCredentials is returned when the keyring holds no key for an app.
var ErrNoCredentials = errors.New("no private key stored; run 'smcli auth set-key' first")

// openKeyring can be replaced in tests.
var openKeyring = func(cfg keyring.Config) (keyring.Keyring, error) {
	return keyring.Open(cfg)
}

// SetOpenKeyring replaces the keyring opener and returns a restore function.
func SetOpenKeyring(fn func(keyring.Config) (keyring.Keyring, error)) func() {
	original := openKeyring
	openKeyring = fn
	return func() { openKeyring = original }
}

// CredentialStore keeps OAuth private keys in the OS keyring, keyed by the
// public key they belong to.
type CredentialStore struct {
	cfg keyring.Config
}

func NewCredentialStore() *CredentialStore {
	return &CredentialStore{cfg: keyringConfig()}
}

func keyringConfig() keyring.Config {
	cfg := keyring.Config{
		ServiceName:      serviceName,
		FileDir:          keyringFileDir(),
		FilePasswordFunc: keyringFilePassword,
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv(envKeyringBackend)), "file") {
		cfg.AllowedBackends = []keyring.BackendType{keyring.FileBackend}
	}
	return cfg
}

func keyringFileDir() string {
	if dir := strings.TrimSpace(os.Getenv(envCredentialsDir)); dir != "" {
		return filepath.Join(dir, "keyring")
	}
	if dir, err := os.UserConfigDir(); err == nil && dir != "" {
		return filepath.Join(dir, serviceName, "keyring")
	}
	return filepath.Join(os.TempDir(), serviceName, "keyring")
}

func keyringFilePassword(prompt string) (string, error) {
	if password, ok := os.LookupEnv(envKeyringPassword); ok && password != "" {
		return password, nil
	}
	return keyring.TerminalPrompt(prompt)
}

// SetPrivateKey stores privateKey for publicKey.
func (s *CredentialStore) SetPrivateKey(publicKey, privateKey string) error {
	if publicKey == "" || privateKey == "" {
		return missing("public and private key")
	}
	ring, err := openKeyring(s.cfg)
	if err != nil {
		return wrap("SetPrivateKey", err)
	}
	if err := ring.Set(keyring.Item{
		Key:   publicKey,
		Data:  []byte(privateKey),
		Label: "StackMob private key",
	}); err != nil {
		return wrap("SetPrivateKey", err)
	}
	return nil
}

// PrivateKey returns the key stored for publicKey, or ErrNoCredentials.
func (s *CredentialStore) PrivateKey(publicKey string) (string, error) {
	ring, err := openKeyring(s.cfg)
	if err != nil {
		return "", wrap("PrivateKey", err)
	}
	item, err := ring.Get(publicKey)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", ErrNoCredentials
		}
		return "", wrap("PrivateKey", err)
	}
	return string(item.Data), nil
}

// DeletePrivateKey removes the key for publicKey. Removing a missing key is
// not an error.
func (s *CredentialStore) DeletePrivateKey(publicKey string) error {
	ring, err := openKeyring(s.cfg)
	if err != nil {
		return wrap("DeletePrivateKey", err)
	}
	if err := ring.Remove(publicKey); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return wrap("DeletePrivateKey", err)
	}
	return nil
}

// FillPrivateKey loads the private key from the store when cfg has none.
func (s *CredentialStore) FillPrivateKey(cfg *Config) error {
	if cfg.PrivateKey != "" || cfg.PublicKey == "" {
		return nil
	}
	key, err := s.PrivateKey(cfg.PublicKey)
	if err != nil {
		return err
	}
	cfg.PrivateKey = key
	return nil
}

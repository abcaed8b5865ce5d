package secrets

import (
	"errors"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// KeyringService groups the engine's secrets in the OS keychain.
	KeyringService = "jobyaari"
	TokenAccount   = "api-token"
	TokenEnv       = "JOBYAARI_API_TOKEN"
)

var ErrNoToken = errors.New("api token not set")

// GetAPIToken returns the admin token guarding mutating endpoints. The
// environment wins over the keychain. ErrNoToken means auth is off.
func GetAPIToken() (string, error) {
	if v := strings.TrimSpace(os.Getenv(TokenEnv)); v != "" {
		return v, nil
	}
	tok, err := keyring.Get(KeyringService, TokenAccount)
	if errors.Is(err, keyring.ErrNotFound) || (err == nil && strings.TrimSpace(tok) == "") {
		return "", ErrNoToken
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(tok), nil
}

func SetAPIToken(token string) error {
	if strings.TrimSpace(token) == "" {
		return errors.New("token is empty")
	}
	return keyring.Set(KeyringService, TokenAccount, strings.TrimSpace(token))
}

func DeleteAPIToken() error {
	err := keyring.Delete(KeyringService, TokenAccount)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

package credential

import (
	"errors"
	"fmt"
	"strings"

	"github.com/99designs/keyring"
)

const serviceName = "kilamea"

// ErrNotFound is returned when no password is stored for an account.
var ErrNotFound = errors.New("credential not found")

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/kilamea/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("kilamea-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// accountKey names the keyring item holding an account password.
func accountKey(email string) string {
	return "account:" + strings.ToLower(email)
}

// GetPassword reads the account password from the system keyring.
func GetPassword(email string) (string, error) {
	ring, err := openKeyring()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(accountKey(email))
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("getting password for %s: %w", email, err)
	}

	return string(item.Data), nil
}

// SetPassword stores the account password in the system keyring.
func SetPassword(email, password string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:   accountKey(email),
		Data:  []byte(password),
		Label: "kilamea " + email,
	})
	if err != nil {
		return fmt.Errorf("setting password for %s: %w", email, err)
	}

	return nil
}

// DeletePassword removes the account password. A missing item is not
// an error.
func DeletePassword(email string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Remove(accountKey(email))
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting password for %s: %w", email, err)
	}

	return nil
}

package credential

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/pbkdf2"
)

// Key derivation parameters for stored account passwords. They are
// fixed so existing databases keep decrypting.
const (
	defaultPassphrase = "secret"
	defaultSalt       = "12345678"
	iterations        = 40000
	keyLength         = 16
)

const separator = ":"

// CryptoError reports a failure to encrypt or decrypt a value.
type CryptoError struct {
	Message string
	Err     error
}

func (e *CryptoError) Error() string {
	if e.Err == nil {
		return "crypto error: " + e.Message
	}
	return fmt.Sprintf("crypto error: %s: %v", e.Message, e.Err)
}

func (e *CryptoError) Unwrap() error {
	return e.Err
}

// Cipher encrypts short strings with AES-CBC under a PBKDF2-derived key.
// Output has the form base64(iv) ":" base64(ciphertext).
type Cipher struct {
	block cipher.Block
}

// NewCipher derives a key from passphrase and salt.
func NewCipher(passphrase, salt string) (*Cipher, error) {
	key := pbkdf2.Key([]byte(passphrase), []byte(salt), iterations, keyLength, sha512.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, &CryptoError{Message: "creating block cipher", Err: err}
	}
	return &Cipher{block: block}, nil
}

// Encrypt returns the encrypted form of plaintext. An empty string
// encrypts to an empty string.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", &CryptoError{Message: "generating iv", Err: err}
	}

	data := pad([]byte(plaintext), aes.BlockSize)
	out := make([]byte, len(data))
	cipher.NewCBCEncrypter(c.block, iv).CryptBlocks(out, data)

	return base64.StdEncoding.EncodeToString(iv) + separator +
		base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt reverses Encrypt. An empty string decrypts to an empty string.
func (c *Cipher) Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}

	ivPart, dataPart, ok := strings.Cut(ciphertext, separator)
	if !ok {
		return "", &CryptoError{Message: "missing iv separator"}
	}

	iv, err := base64.StdEncoding.DecodeString(ivPart)
	if err != nil {
		return "", &CryptoError{Message: "decoding iv", Err: err}
	}
	if len(iv) != aes.BlockSize {
		return "", &CryptoError{Message: fmt.Sprintf("iv has %d bytes", len(iv))}
	}

	data, err := base64.StdEncoding.DecodeString(dataPart)
	if err != nil {
		return "", &CryptoError{Message: "decoding ciphertext", Err: err}
	}
	if len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return "", &CryptoError{Message: "ciphertext is not a whole number of blocks"}
	}

	out := make([]byte, len(data))
	cipher.NewCBCDecrypter(c.block, iv).CryptBlocks(out, data)

	plain, err := unpad(out, aes.BlockSize)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// pad applies PKCS#7 padding.
func pad(data []byte, size int) []byte {
	n := size - len(data)%size
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(data []byte, size int) ([]byte, error) {
	n := int(data[len(data)-1])
	if n == 0 || n > size || n > len(data) {
		return nil, &CryptoError{Message: "invalid padding"}
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, &CryptoError{Message: "invalid padding"}
		}
	}
	return data[:len(data)-n], nil
}

var defaultCipher = sync.OnceValues(func() (*Cipher, error) {
	return NewCipher(defaultPassphrase, defaultSalt)
})

// Encrypt encrypts plaintext with the built-in key.
func Encrypt(plaintext string) (string, error) {
	c, err := defaultCipher()
	if err != nil {
		return "", err
	}
	return c.Encrypt(plaintext)
}

// Decrypt decrypts ciphertext produced by Encrypt.
func Decrypt(ciphertext string) (string, error) {
	c, err := defaultCipher()
	if err != nil {
		return "", err
	}
	return c.Decrypt(ciphertext)
}

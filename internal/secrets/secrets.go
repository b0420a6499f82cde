// Package secrets stores account credentials in an encrypted vault file.
// Entries are AES-256-GCM encrypted as a whole; the key is derived from a
// passphrase via Argon2id or supplied directly.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/argon2"
)

const (
	// keyLen is the AES-256 key length in bytes.
	keyLen = 32
	// nonceLen is the GCM nonce length in bytes.
	nonceLen = 12
	// saltLen is the Argon2id salt length in bytes.
	saltLen = 32

	// Argon2id parameters.
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4

	vaultFile = "vault.bin"
	saltFile  = "vault.salt"
)

// ErrNotFound is returned by Fetch when no credential exists for a key.
var ErrNotFound = errors.New("credential not found")

// Vault is an encrypted credential store keyed by account key.
type Vault struct {
	path string
	key  []byte
}

// AccountKey returns the vault key for the given account identifier.
func AccountKey(accountID int64) string {
	return fmt.Sprintf("calsync-account-%d", accountID)
}

// Open opens (creating if necessary) a vault in dir with a raw 32-byte key.
func Open(dir string, key []byte) (*Vault, error) {
	if len(key) != keyLen {
		return nil, errors.New("key must be 32 bytes")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}
	return &Vault{path: filepath.Join(dir, vaultFile), key: key}, nil
}

// OpenWithPassphrase opens a vault whose key is derived from a passphrase.
// The Argon2id salt is persisted next to the vault on first use.
func OpenWithPassphrase(dir, passphrase string) (*Vault, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}

	saltPath := filepath.Join(dir, saltFile)
	salt, err := os.ReadFile(saltPath)
	if os.IsNotExist(err) {
		salt = make([]byte, saltLen)
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return nil, fmt.Errorf("random salt: %w", err)
		}
		if err := os.WriteFile(saltPath, salt, 0600); err != nil {
			return nil, fmt.Errorf("write salt: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("read salt: %w", err)
	}
	if len(salt) != saltLen {
		return nil, fmt.Errorf("salt must be %d bytes", saltLen)
	}

	key := argon2.IDKey([]byte(passphrase), salt, argonTime, argonMemory, argonThreads, keyLen)
	return &Vault{path: filepath.Join(dir, vaultFile), key: key}, nil
}

// Store saves a credential under the given account key.
func (v *Vault) Store(accountKey, credential string) error {
	entries, err := v.load()
	if err != nil {
		return err
	}
	entries[accountKey] = credential
	return v.save(entries)
}

// Fetch returns the credential for the given account key, or ErrNotFound.
func (v *Vault) Fetch(accountKey string) (string, error) {
	entries, err := v.load()
	if err != nil {
		return "", err
	}
	cred, ok := entries[accountKey]
	if !ok {
		return "", ErrNotFound
	}
	return cred, nil
}

// Delete removes the credential for the given account key, if present.
func (v *Vault) Delete(accountKey string) error {
	entries, err := v.load()
	if err != nil {
		return err
	}
	if _, ok := entries[accountKey]; !ok {
		return nil
	}
	delete(entries, accountKey)
	return v.save(entries)
}

func (v *Vault) load() (map[string]string, error) {
	ciphertext, err := os.ReadFile(v.path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read vault: %w", err)
	}

	plaintext, err := decrypt(v.key, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("decrypt vault: %w", err)
	}

	var entries map[string]string
	if err := json.Unmarshal(plaintext, &entries); err != nil {
		return nil, fmt.Errorf("unmarshal vault: %w", err)
	}
	return entries, nil
}

func (v *Vault) save(entries map[string]string) error {
	plaintext, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal vault: %w", err)
	}

	ciphertext, err := encrypt(v.key, plaintext)
	if err != nil {
		return fmt.Errorf("encrypt vault: %w", err)
	}

	// Atomic write: temp file in same dir, then rename
	dir := filepath.Dir(v.path)
	tmp, err := os.CreateTemp(dir, "vault-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp vault: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(ciphertext); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write vault: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close vault: %w", err)
	}
	if err := os.Chmod(tmpName, 0600); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod vault: %w", err)
	}
	return os.Rename(tmpName, v.path)
}

// encrypt produces nonce || ciphertext using AES-256-GCM.
func encrypt(key, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("gcm: %w", err)
	}

	nonce := make([]byte, nonceLen)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("random nonce: %w", err)
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// decrypt reverses encrypt.
func decrypt(key, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < nonceLen {
		return nil, errors.New("ciphertext too short")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("gcm: %w", err)
	}

	plaintext, err := gcm.Open(nil, ciphertext[:nonceLen], ciphertext[nonceLen:], nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plaintext, nil
}

// Package secretbox cifra secretos en reposo (los access tokens que
// quedan en el session store) con NaCl secretbox.
//
// La clave maestra se carga una sola vez desde SECRETBOX_MASTER_KEY
// (base64 de 32 bytes). Formato del ciphertext:
// base64(nonce) + "|" + base64(box).
package secretbox

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	masterKeyEnvVar   = "SECRETBOX_MASTER_KEY"
	nonceSize         = 24 // NaCl secretbox nonce
	requiredKeyLength = 32
	sep               = "|"
)

var (
	masterKey     [requiredKeyLength]byte
	keyLoaded     bool
	masterKeyOnce sync.Once
	loadErr       error
	mu            sync.RWMutex
)

// ensureLoaded carga la clave maestra una sola vez.
func ensureLoaded() error {
	masterKeyOnce.Do(func() {
		kb64 := strings.TrimSpace(os.Getenv(masterKeyEnvVar))
		if kb64 == "" {
			loadErr = fmt.Errorf("%s no seteada; genere una clave con: openssl rand -base64 32", masterKeyEnvVar)
			return
		}
		k, err := base64.StdEncoding.DecodeString(kb64)
		if err != nil {
			loadErr = fmt.Errorf("decode %s: %w", masterKeyEnvVar, err)
			return
		}
		if len(k) != requiredKeyLength {
			loadErr = fmt.Errorf("%s debe decodificar a %d bytes, obtuvo %d", masterKeyEnvVar, requiredKeyLength, len(k))
			return
		}
		mu.Lock()
		copy(masterKey[:], k)
		keyLoaded = true
		mu.Unlock()
	})
	return loadErr
}

// Ready expone si la clave está cargada (útil para healthchecks).
func Ready() bool {
	mu.RLock()
	defer mu.RUnlock()
	return keyLoaded
}

// Seal cifra plainText y devuelve base64(nonce)|base64(box).
func Seal(plainText string) (string, error) {
	if err := ensureLoaded(); err != nil {
		return "", err
	}

	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("secretbox: nonce random: %w", err)
	}

	mu.RLock()
	key := masterKey
	mu.RUnlock()

	box := secretbox.Seal(nil, []byte(plainText), &nonce, &key)
	return base64.StdEncoding.EncodeToString(nonce[:]) + sep +
		base64.StdEncoding.EncodeToString(box), nil
}

// Open descifra un valor producido por Seal.
func Open(cipherText string) (string, error) {
	if err := ensureLoaded(); err != nil {
		return "", err
	}

	nonceB64, boxB64, found := strings.Cut(cipherText, sep)
	if !found {
		return "", fmt.Errorf("secretbox: formato inválido")
	}
	nonceBytes, err := base64.StdEncoding.DecodeString(nonceB64)
	if err != nil || len(nonceBytes) != nonceSize {
		return "", fmt.Errorf("secretbox: nonce inválido")
	}
	box, err := base64.StdEncoding.DecodeString(boxB64)
	if err != nil {
		return "", fmt.Errorf("secretbox: ciphertext inválido")
	}

	var nonce [nonceSize]byte
	copy(nonce[:], nonceBytes)

	mu.RLock()
	key := masterKey
	mu.RUnlock()

	plain, ok := secretbox.Open(nil, box, &nonce, &key)
	if !ok {
		return "", fmt.Errorf("secretbox: autenticación fallida")
	}
	return string(plain), nil
}

// UnsafeResetForTests limpia el estado global. Solo para tests.
func UnsafeResetForTests() {
	mu.Lock()
	defer mu.Unlock()
	masterKeyOnce = sync.Once{}
	masterKey = [requiredKeyLength]byte{}
	keyLoaded = false
	loadErr = nil
}

// Package sshkey validates the SSH public key substituted into templates.
package sshkey

import (
	"errors"
	"strings"

	"golang.org/x/crypto/ssh"
)

// ErrInvalidPublicKey is returned when a key is not in authorized_keys format.
var ErrInvalidPublicKey = errors.New("invalid SSH public key")

// ErrEmptyPublicKey is returned for a blank key.
var ErrEmptyPublicKey = errors.New("SSH public key is empty")

// Validate checks that authorizedKey is a single OpenSSH authorized_keys line.
// Returns nil if valid.
func Validate(authorizedKey string) error {
	_, err := parse(authorizedKey)
	return err
}

// Fingerprint returns the SHA256 fingerprint of the key, in the form
// ssh-keygen -l prints it ("SHA256:...").
func Fingerprint(authorizedKey string) (string, error) {
	pub, err := parse(authorizedKey)
	if err != nil {
		return "", err
	}
	return ssh.FingerprintSHA256(pub), nil
}

// Type returns the key algorithm, e.g. "ssh-ed25519".
func Type(authorizedKey string) (string, error) {
	pub, err := parse(authorizedKey)
	if err != nil {
		return "", err
	}
	return pub.Type(), nil
}

func parse(authorizedKey string) (ssh.PublicKey, error) {
	key := strings.TrimSpace(authorizedKey)
	if key == "" {
		return nil, ErrEmptyPublicKey
	}
	pub, _, _, rest, err := ssh.ParseAuthorizedKey([]byte(key))
	if err != nil || len(strings.TrimSpace(string(rest))) > 0 {
		return nil, ErrInvalidPublicKey
	}
	return pub, nil
}

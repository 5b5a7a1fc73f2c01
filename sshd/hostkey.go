package sshd

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"os"

	"golang.org/x/crypto/ssh"
)

// LoadOrGenerateHostKey parses the PEM host key at path, or generates an
// ephemeral ed25519 key when no path is configured. An ephemeral key changes
// the host fingerprint on every boot, which is fine for lab use but should be
// pinned via HOST_KEY_PATH anywhere clients verify hosts.
func LoadOrGenerateHostKey(path string) (ssh.Signer, error) {
	if path == "" {
		return generateHostKey()
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read host key: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse host key: %w", err)
	}
	return signer, nil
}

func generateHostKey() (ssh.Signer, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate host key: %w", err)
	}
	return ssh.NewSignerFromKey(priv)
}

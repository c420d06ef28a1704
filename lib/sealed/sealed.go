// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sealed stores access tokens at rest as age-encrypted files.
//
// A sealed token file is an armored age file ("-----BEGIN AGE
// ENCRYPTED FILE-----") addressed to one or more x25519 recipients.
// Operators seal a token once with [Seal]; the classroom service opens
// it at startup with the identity file named in its configuration.
// Binary (unarmored) age files are accepted by [Open] too.
//
// Private keys and decrypted tokens are held in [secret.Buffer] values
// and never pass through long-lived heap strings.
package sealed

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"filippo.io/age"
	"filippo.io/age/armor"

	"github.com/bureau-foundation/classroom/lib/secret"
)

// ErrNoRecipients is returned by [Seal] with an empty recipient list.
var ErrNoRecipients = errors.New("at least one recipient is required")

// Identity is an age x25519 keypair. Close releases the private key.
type Identity struct {
	// Private is the AGE-SECRET-KEY-1... encoding.
	Private *secret.Buffer

	// Recipient is the age1... public key. Safe to publish.
	Recipient string
}

// Close zeroes and releases the private key.
func (identity *Identity) Close() error {
	if identity.Private != nil {
		return identity.Private.Close()
	}
	return nil
}

// GenerateIdentity creates a new x25519 keypair.
func GenerateIdentity() (*Identity, error) {
	generated, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("generating age identity: %w", err)
	}
	private, err := secret.NewFromBytes([]byte(generated.String()))
	if err != nil {
		return nil, fmt.Errorf("protecting private key: %w", err)
	}
	return &Identity{Private: private, Recipient: generated.Recipient().String()}, nil
}

// Seal encrypts plaintext to every recipient and returns armored
// ciphertext.
func Seal(plaintext []byte, recipientKeys []string) ([]byte, error) {
	if len(recipientKeys) == 0 {
		return nil, ErrNoRecipients
	}
	recipients := make([]age.Recipient, 0, len(recipientKeys))
	for _, key := range recipientKeys {
		recipient, err := age.ParseX25519Recipient(key)
		if err != nil {
			return nil, fmt.Errorf("parsing recipient %q: %w", key, err)
		}
		recipients = append(recipients, recipient)
	}

	var output bytes.Buffer
	armored := armor.NewWriter(&output)
	writer, err := age.Encrypt(armored, recipients...)
	if err != nil {
		return nil, fmt.Errorf("creating age encryptor: %w", err)
	}
	if _, err := writer.Write(plaintext); err != nil {
		return nil, fmt.Errorf("encrypting: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalizing age encryption: %w", err)
	}
	if err := armored.Close(); err != nil {
		return nil, fmt.Errorf("finalizing armor: %w", err)
	}
	return output.Bytes(), nil
}

// Open decrypts ciphertext with the identities in identityFile, the
// contents of an age identity file. The plaintext is trimmed and
// returned as a token buffer; identityFile is not closed.
func Open(ciphertext []byte, identityFile *secret.Buffer) (*secret.Buffer, error) {
	identities, err := age.ParseIdentities(bytes.NewReader(identityFile.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("parsing identities: %w", err)
	}

	var source io.Reader = bytes.NewReader(ciphertext)
	if bytes.HasPrefix(bytes.TrimSpace(ciphertext), []byte(armor.Header)) {
		source = armor.NewReader(bufio.NewReader(bytes.NewReader(bytes.TrimSpace(ciphertext))))
	}
	reader, err := age.Decrypt(source, identities...)
	if err != nil {
		return nil, fmt.Errorf("decrypting: %w", err)
	}
	plaintext, err := io.ReadAll(reader)
	if err != nil {
		secret.Zero(plaintext)
		return nil, fmt.Errorf("reading plaintext: %w", err)
	}
	return secret.FromBytes(plaintext)
}

// OpenFile decrypts the sealed file at path with the identity file at
// identityPath.
func OpenFile(path, identityPath string) (*secret.Buffer, error) {
	ciphertext, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading sealed file: %w", err)
	}
	identityFile, err := LoadIdentity(identityPath)
	if err != nil {
		return nil, err
	}
	defer identityFile.Close()

	token, err := Open(ciphertext, identityFile)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return token, nil
}

// LoadIdentity reads an age identity file into a secret buffer after
// checking that it parses.
func LoadIdentity(path string) (*secret.Buffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading identity file: %w", err)
	}
	if _, err := age.ParseIdentities(bytes.NewReader(data)); err != nil {
		secret.Zero(data)
		return nil, fmt.Errorf("parsing identity file %s: %w", path, err)
	}
	identityFile, err := secret.NewFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("protecting identity file: %w", err)
	}
	return identityFile, nil
}

// ValidateRecipient reports whether key is an age x25519 public key.
func ValidateRecipient(key string) error {
	if _, err := age.ParseX25519Recipient(key); err != nil {
		return fmt.Errorf("invalid age recipient: %w", err)
	}
	return nil
}

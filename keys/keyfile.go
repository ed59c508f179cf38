package keys

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/veraison/go-cose"
)

// Key files come in two on-disk forms. Ed25519 keys are 64 lowercase hex
// characters: the .pri file holds the seed, the .pub file the point (so
// the .pub content is also the key ID). COSE keys are CBOR COSE_Key
// blobs, with private parameters present only in the .pri file.

// Save writes the key pair as base.pri (0600) and base.pub (0644) and
// returns the two paths.
func (k *PrivateKey) Save(base string) (string, string, error) {
	pri := base + ".pri"
	pub := base + ".pub"
	var priData, pubData []byte
	switch k.scheme {
	case SchemeEd25519:
		priData = []byte(hex.EncodeToString(k.ed.Seed()))
		pubData = []byte(k.pub.ID())
	case SchemeCOSEES256:
		raw, err := cbor.Marshal(k.ck)
		if err != nil {
			return "", "", err
		}
		priData = raw
		pubData = k.pub.Material()
	default:
		return "", "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, k.scheme)
	}
	if err := os.WriteFile(pri, priData, 0o600); err != nil {
		return "", "", err
	}
	if err := os.WriteFile(pub, pubData, 0o644); err != nil {
		return "", "", err
	}
	return pri, pub, nil
}

// LoadPrivateKeyFile reads a private key file in either on-disk form.
func LoadPrivateKeyFile(path string) (*PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if seed, ok := hex32(data); ok {
		return newEd25519Private(ed25519.NewKeyFromSeed(seed))
	}
	var ck cose.Key
	if err := cbor.Unmarshal(data, &ck); err != nil {
		return nil, fmt.Errorf("%w: %s holds neither a hex seed nor a COSE key: %v",
			ErrInvalidKey, path, err)
	}
	return newCOSEPrivateKey(&ck)
}

// LoadPublicKeyFile reads a public key file in either on-disk form.
func LoadPublicKeyFile(path string) (*PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if point, ok := hex32(data); ok {
		return NewPublicKey(SchemeEd25519, point)
	}
	return NewPublicKey(SchemeCOSEES256, data)
}

// hex32 reports whether data is the hex form of exactly 32 bytes.
func hex32(data []byte) ([]byte, bool) {
	s := strings.TrimSpace(string(data))
	if len(s) != 64 {
		return nil, false
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, false
	}
	return raw, true
}

package keys

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"fmt"
	"io"

	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/ProtonMail/go-crypto/openpgp/eddsa"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
)

// ImportPGPPublicKey reads an OpenPGP public key, armored or binary (the
// raw output of gpg --export), and returns the pgp+eddsa-ed25519 key for
// the first EdDSA/Ed25519 public-key packet. The key's ID is the hex of
// the underlying Ed25519 point, the same identity a native key over that
// point would have. Certifications in the stream are not evaluated;
// trust in the key comes from role membership, not from the PGP web of
// trust.
func ImportPGPPublicKey(r io.Reader) (*PublicKey, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	body := io.Reader(bytes.NewReader(data))
	if bytes.Contains(data, []byte("-----BEGIN PGP")) {
		block, err := armor.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: bad armor: %v", ErrInvalidKey, err)
		}
		body = block.Body
	}

	packets := packet.NewReader(body)
	for {
		p, err := packets.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: bad packet stream: %v", ErrInvalidKey, err)
		}
		pk, ok := p.(*packet.PublicKey)
		if !ok {
			continue
		}
		point, err := ed25519Point(pk)
		if err != nil {
			continue
		}
		return NewPublicKey(SchemePGPEd25519, point)
	}
	return nil, fmt.Errorf("%w: no eddsa-ed25519 public key packet found", ErrInvalidKey)
}

func ed25519Point(pk *packet.PublicKey) ([]byte, error) {
	switch pub := pk.PublicKey.(type) {
	case *eddsa.PublicKey:
		if len(pub.X) != ed25519.PublicKeySize {
			return nil, fmt.Errorf("eddsa point is %d bytes", len(pub.X))
		}
		return pub.X, nil
	case ed25519.PublicKey:
		return pub, nil
	default:
		return nil, fmt.Errorf("public key algorithm %d is not eddsa", pk.PubKeyAlgo)
	}
}

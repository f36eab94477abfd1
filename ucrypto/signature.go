package ucrypto

import (
	"encoding/hex"
	"encoding/json"
	"filippo.io/edwards25519"
	"github.com/pkg/errors"
)

const (
	SignatureSize = 64

	domainRingSig = "umbra_ring_sig"
)

var ErrInvalidSignature = errors.New("invalid signature")

// Signature is a linkable Schnorr signature over a one-member ring. It
// proves knowledge of x for P = x*G and binds the key image x*Hp(P).
type Signature [SignatureSize]byte

// Sign signs msg with the one-time private key x.
func Sign(msg []byte, x PrivateKey) (Signature, KeyImage) {
	pub := x.PublicKey()
	ki := ComputeKeyImage(x)
	hp := HashToPoint(pub[:])

	k := NewPrivateKey().Scalar()
	l := new(edwards25519.Point).ScalarBaseMult(k)
	r := new(edwards25519.Point).ScalarMult(k, hp)
	c := HashToScalar(domainRingSig, msg, pub[:], ki[:], l.Bytes(), r.Bytes())
	// s = k - c*x
	s := edwards25519.NewScalar().Multiply(c, x.Scalar())
	s.Subtract(k, s)

	var sig Signature
	copy(sig[:32], c.Bytes())
	copy(sig[32:], s.Bytes())
	return sig, ki
}

// Verify checks sig over msg against one-time public key pub and key
// image ki.
func Verify(msg []byte, pub PublicKey, ki KeyImage, sig Signature) bool {
	c, err := edwards25519.NewScalar().SetCanonicalBytes(sig[:32])
	if err != nil {
		return false
	}
	s, err := edwards25519.NewScalar().SetCanonicalBytes(sig[32:])
	if err != nil {
		return false
	}
	p, err := pub.Point()
	if err != nil {
		return false
	}
	kiPt, err := new(edwards25519.Point).SetBytes(ki[:])
	if err != nil {
		return false
	}
	hp := HashToPoint(pub[:])

	l := new(edwards25519.Point).VarTimeDoubleScalarBaseMult(c, p, s)
	sHp := new(edwards25519.Point).ScalarMult(s, hp)
	cKI := new(edwards25519.Point).ScalarMult(c, kiPt)
	r := sHp.Add(sHp, cKI)

	expected := HashToScalar(domainRingSig, msg, pub[:], ki[:], l.Bytes(), r.Bytes())
	return expected.Equal(c) == 1
}

func SignatureFromBytes(b []byte) (Signature, error) {
	var sig Signature
	if len(b) != SignatureSize {
		return sig, ErrInvalidSignature
	}
	copy(sig[:], b)
	return sig, nil
}

func (s Signature) IsZero() bool {
	return s == Signature{}
}

func (s Signature) String() string {
	return hex.EncodeToString(s[:])
}

func (s Signature) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Signature) UnmarshalJSON(b []byte) error {
	buf, err := unmarshalHexJSON(b)
	if err != nil {
		return err
	}
	sig, err := SignatureFromBytes(buf)
	if err != nil {
		return err
	}
	*s = sig
	return nil
}

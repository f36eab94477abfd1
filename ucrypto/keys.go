package ucrypto

import (
	"crypto/rand"
	"database/sql/driver"
	"encoding/hex"
	"encoding/json"
	"filippo.io/edwards25519"
	"github.com/pkg/errors"
	"reflect"
)

const KeySize = 32

var (
	ErrInvalidPoint  = errors.New("invalid curve point")
	ErrInvalidScalar = errors.New("invalid scalar")
)

// PublicKey is a compressed edwards25519 point.
type PublicKey [KeySize]byte

// PrivateKey is a canonically encoded edwards25519 scalar.
type PrivateKey [KeySize]byte

// KeyImage is the one-way spend tag x*Hp(P) of a one-time key pair.
type KeyImage [KeySize]byte

func NewPrivateKey() PrivateKey {
	var seed [64]byte
	if _, err := rand.Read(seed[:]); err != nil {
		panic(err)
	}
	s, err := edwards25519.NewScalar().SetUniformBytes(seed[:])
	if err != nil {
		panic(err)
	}
	return PrivateKeyFromScalar(s)
}

func PrivateKeyFromScalar(s *edwards25519.Scalar) PrivateKey {
	var out PrivateKey
	copy(out[:], s.Bytes())
	return out
}

func PrivateKeyFromBytes(b []byte) (PrivateKey, error) {
	var out PrivateKey
	if len(b) != KeySize {
		return out, ErrInvalidScalar
	}
	if _, err := edwards25519.NewScalar().SetCanonicalBytes(b); err != nil {
		return out, ErrInvalidScalar
	}
	copy(out[:], b)
	return out, nil
}

func (k PrivateKey) Scalar() *edwards25519.Scalar {
	s, err := edwards25519.NewScalar().SetCanonicalBytes(k[:])
	if err != nil {
		// keys only enter through PrivateKeyFromBytes or PrivateKeyFromScalar
		panic(ErrInvalidScalar)
	}
	return s
}

func (k PrivateKey) PublicKey() PublicKey {
	return PublicKeyFromPoint(new(edwards25519.Point).ScalarBaseMult(k.Scalar()))
}

func (k PrivateKey) IsZero() bool {
	return k == PrivateKey{}
}

func (k PrivateKey) String() string {
	return hex.EncodeToString(k[:])
}

func (k PrivateKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *PrivateKey) UnmarshalJSON(b []byte) error {
	buf, err := unmarshalHexJSON(b)
	if err != nil {
		return err
	}
	key, err := PrivateKeyFromBytes(buf)
	if err != nil {
		return err
	}
	*k = key
	return nil
}

func PublicKeyFromPoint(p *edwards25519.Point) PublicKey {
	var out PublicKey
	copy(out[:], p.Bytes())
	return out
}

func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	var out PublicKey
	if len(b) != KeySize {
		return out, ErrInvalidPoint
	}
	if _, err := new(edwards25519.Point).SetBytes(b); err != nil {
		return out, ErrInvalidPoint
	}
	copy(out[:], b)
	return out, nil
}

func PublicKeyFromHex(in string) (PublicKey, error) {
	buf, err := hex.DecodeString(in)
	if err != nil {
		return PublicKey{}, errors.Wrap(err, "invalid public key hex")
	}
	return PublicKeyFromBytes(buf)
}

func (p PublicKey) Point() (*edwards25519.Point, error) {
	pt, err := new(edwards25519.Point).SetBytes(p[:])
	if err != nil {
		return nil, ErrInvalidPoint
	}
	return pt, nil
}

func (p PublicKey) Bytes() []byte {
	return p[:]
}

func (p PublicKey) String() string {
	return hex.EncodeToString(p[:])
}

func (p PublicKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *PublicKey) UnmarshalJSON(b []byte) error {
	buf, err := unmarshalHexJSON(b)
	if err != nil {
		return err
	}
	key, err := PublicKeyFromBytes(buf)
	if err != nil {
		return err
	}
	*p = key
	return nil
}

func (p PublicKey) Value() (driver.Value, error) {
	return p[:], nil
}

func (p *PublicKey) Scan(src interface{}) error {
	return scanFixed(p[:], src)
}

func KeyImageFromBytes(b []byte) (KeyImage, error) {
	var out KeyImage
	if len(b) != KeySize {
		return out, ErrInvalidPoint
	}
	copy(out[:], b)
	return out, nil
}

func KeyImageFromHex(in string) (KeyImage, error) {
	buf, err := hex.DecodeString(in)
	if err != nil {
		return KeyImage{}, errors.Wrap(err, "invalid key image hex")
	}
	return KeyImageFromBytes(buf)
}

func (k KeyImage) Bytes() []byte {
	return k[:]
}

func (k KeyImage) String() string {
	return hex.EncodeToString(k[:])
}

func (k KeyImage) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *KeyImage) UnmarshalJSON(b []byte) error {
	buf, err := unmarshalHexJSON(b)
	if err != nil {
		return err
	}
	ki, err := KeyImageFromBytes(buf)
	if err != nil {
		return err
	}
	*k = ki
	return nil
}

func (k KeyImage) Value() (driver.Value, error) {
	return k[:], nil
}

func (k *KeyImage) Scan(src interface{}) error {
	return scanFixed(k[:], src)
}

func unmarshalHexJSON(b []byte) ([]byte, error) {
	var hexStr string
	if err := json.Unmarshal(b, &hexStr); err != nil {
		return nil, errors.WithStack(err)
	}
	buf, err := hex.DecodeString(hexStr)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return buf, nil
}

func scanFixed(dst []byte, src interface{}) error {
	b, ok := src.([]byte)
	if !ok {
		return errors.Errorf("cannot scan %v into key", reflect.TypeOf(src))
	}
	if len(b) != len(dst) {
		return errors.Errorf("cannot scan %d bytes into %d byte key", len(b), len(dst))
	}
	copy(dst, b)
	return nil
}

package ucrypto

import (
	"encoding/binary"
	"filippo.io/edwards25519"
	"golang.org/x/crypto/blake2b"
)

const (
	domainOnetime    = "umbra_onetime_key"
	domainHashToPt   = "umbra_hash_to_point"
	domainSubaddress = "umbra_subaddress"
)

// HashToScalar reduces a 512-bit blake2b digest of the domain and data
// into a scalar.
func HashToScalar(domain string, data ...[]byte) *edwards25519.Scalar {
	h, _ := blake2b.New512(nil)
	h.Write([]byte(domain))
	for _, d := range data {
		h.Write(d)
	}
	s, err := edwards25519.NewScalar().SetUniformBytes(h.Sum(nil))
	if err != nil {
		panic(err)
	}
	return s
}

// HashToPoint maps data onto the prime-order subgroup by try-and-increment
// followed by cofactor clearing.
func HashToPoint(data []byte) *edwards25519.Point {
	identity := edwards25519.NewIdentityPoint()
	ctr := make([]byte, 4)
	for i := uint32(0); ; i++ {
		binary.LittleEndian.PutUint32(ctr, i)
		digest := Blake256([]byte(domainHashToPt), data, ctr)
		p, err := new(edwards25519.Point).SetBytes(digest)
		if err != nil {
			continue
		}
		p.MultByCofactor(p)
		if p.Equal(identity) == 1 {
			continue
		}
		return p
	}
}

// SharedSecret computes priv*pub. The sender uses (r, C) and the receiver
// uses (a, R); both arrive at the same point.
func SharedSecret(priv PrivateKey, pub PublicKey) (PublicKey, error) {
	pt, err := pub.Point()
	if err != nil {
		return PublicKey{}, err
	}
	return PublicKeyFromPoint(new(edwards25519.Point).ScalarMult(priv.Scalar(), pt)), nil
}

// OnetimePublicKey computes P = Hs(ss)*G + D.
func OnetimePublicKey(sharedSecret PublicKey, spendPublic PublicKey) (PublicKey, error) {
	d, err := spendPublic.Point()
	if err != nil {
		return PublicKey{}, err
	}
	hs := HashToScalar(domainOnetime, sharedSecret[:])
	p := new(edwards25519.Point).ScalarBaseMult(hs)
	return PublicKeyFromPoint(p.Add(p, d)), nil
}

// RecoverSpendPublicKey computes D' = P - Hs(ss)*G, the subaddress spend
// public key an output was addressed to if ss is the correct secret.
func RecoverSpendPublicKey(sharedSecret PublicKey, target PublicKey) (PublicKey, error) {
	p, err := target.Point()
	if err != nil {
		return PublicKey{}, err
	}
	hs := HashToScalar(domainOnetime, sharedSecret[:])
	hsG := new(edwards25519.Point).ScalarBaseMult(hs)
	return PublicKeyFromPoint(new(edwards25519.Point).Subtract(p, hsG)), nil
}

// OnetimePrivateKey computes x = Hs(ss) + d, the private half of P.
func OnetimePrivateKey(sharedSecret PublicKey, subaddressSpendPrivate PrivateKey) PrivateKey {
	hs := HashToScalar(domainOnetime, sharedSecret[:])
	return PrivateKeyFromScalar(edwards25519.NewScalar().Add(hs, subaddressSpendPrivate.Scalar()))
}

// ComputeKeyImage computes x*Hp(x*G).
func ComputeKeyImage(onetimePrivate PrivateKey) KeyImage {
	pub := onetimePrivate.PublicKey()
	hp := HashToPoint(pub[:])
	var out KeyImage
	copy(out[:], new(edwards25519.Point).ScalarMult(onetimePrivate.Scalar(), hp).Bytes())
	return out
}

// SubaddressOffset computes Hs(a || i), the per-index tweak added to the
// account spend key.
func SubaddressOffset(viewPrivate PrivateKey, index uint64) *edwards25519.Scalar {
	idx := make([]byte, 8)
	binary.LittleEndian.PutUint64(idx, index)
	return HashToScalar(domainSubaddress, viewPrivate[:], idx)
}

// SubaddressSpendPrivate computes d_i = Hs(a || i) + b.
func SubaddressSpendPrivate(viewPrivate, spendPrivate PrivateKey, index uint64) PrivateKey {
	off := SubaddressOffset(viewPrivate, index)
	return PrivateKeyFromScalar(edwards25519.NewScalar().Add(off, spendPrivate.Scalar()))
}

// SubaddressSpendPublic computes D_i = Hs(a || i)*G + B.
func SubaddressSpendPublic(viewPrivate PrivateKey, spendPublic PublicKey, index uint64) (PublicKey, error) {
	b, err := spendPublic.Point()
	if err != nil {
		return PublicKey{}, err
	}
	off := new(edwards25519.Point).ScalarBaseMult(SubaddressOffset(viewPrivate, index))
	return PublicKeyFromPoint(off.Add(off, b)), nil
}

// SubaddressViewPublic computes C_i = a*D_i.
func SubaddressViewPublic(viewPrivate PrivateKey, subaddressSpendPublic PublicKey) (PublicKey, error) {
	return SharedSecret(viewPrivate, subaddressSpendPublic)
}

// MultiplyKeys returns x*y as a private key.
func MultiplyKeys(x, y PrivateKey) PrivateKey {
	return PrivateKeyFromScalar(edwards25519.NewScalar().Multiply(x.Scalar(), y.Scalar()))
}

// ScalarMultBase returns s*G for a raw scalar.
func ScalarMultBase(s *edwards25519.Scalar) PublicKey {
	return PublicKeyFromPoint(new(edwards25519.Point).ScalarBaseMult(s))
}

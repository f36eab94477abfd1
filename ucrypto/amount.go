package ucrypto

import (
	"encoding/binary"
	"encoding/json"
	"filippo.io/edwards25519"
	"github.com/pkg/errors"
)

const (
	domainAmountValue    = "umbra_amount_value"
	domainAmountBlinding = "umbra_amount_blinding"
)

var ErrAmountMismatch = errors.New("amount commitment mismatch")

var valueGenerator = HashToPoint([]byte("umbra_value_generator"))

// MaskedAmount is an output's confidential value: a Pedersen commitment
// plus the value XORed with a keystream derived from the shared secret.
type MaskedAmount struct {
	Commitment  PublicKey
	MaskedValue uint64
}

type maskedAmountJSON struct {
	Commitment  PublicKey `json:"commitment"`
	MaskedValue uint64    `json:"masked_value"`
}

func NewMaskedAmount(value uint64, sharedSecret PublicKey) MaskedAmount {
	return MaskedAmount{
		Commitment:  commit(value, sharedSecret),
		MaskedValue: value ^ valueMask(sharedSecret),
	}
}

// Unmask recovers the cleartext value. ErrAmountMismatch means the shared
// secret is not the one the output was built with.
func (m MaskedAmount) Unmask(sharedSecret PublicKey) (uint64, error) {
	value := m.MaskedValue ^ valueMask(sharedSecret)
	if commit(value, sharedSecret) != m.Commitment {
		return 0, ErrAmountMismatch
	}
	return value, nil
}

func (m MaskedAmount) MarshalJSON() ([]byte, error) {
	return json.Marshal(maskedAmountJSON{
		Commitment:  m.Commitment,
		MaskedValue: m.MaskedValue,
	})
}

func (m *MaskedAmount) UnmarshalJSON(b []byte) error {
	raw := new(maskedAmountJSON)
	if err := json.Unmarshal(b, raw); err != nil {
		return errors.WithStack(err)
	}
	m.Commitment = raw.Commitment
	m.MaskedValue = raw.MaskedValue
	return nil
}

func valueMask(sharedSecret PublicKey) uint64 {
	return binary.LittleEndian.Uint64(DomainHash256(domainAmountValue, sharedSecret[:])[:8])
}

func commit(value uint64, sharedSecret PublicKey) PublicKey {
	var buf [32]byte
	binary.LittleEndian.PutUint64(buf[:], value)
	v, err := edwards25519.NewScalar().SetCanonicalBytes(buf[:])
	if err != nil {
		panic(err)
	}
	blind := HashToScalar(domainAmountBlinding, sharedSecret[:])
	vH := new(edwards25519.Point).ScalarMult(v, valueGenerator)
	bG := new(edwards25519.Point).ScalarBaseMult(blind)
	return PublicKeyFromPoint(vH.Add(vH, bG))
}

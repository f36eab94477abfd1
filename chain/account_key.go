package chain

import (
	"encoding/hex"
	"github.com/kurumiimari/umbra/ucrypto"
	"github.com/pkg/errors"
)

const (
	KeyDerivationVersion = 1

	accountKeyFull     byte = 0x01
	accountKeyViewOnly byte = 0x02
)

// ViewAccountKey holds what a view-only account needs: the view private key
// a and the account spend public key B. Every subaddress public key is
// derivable from it.
type ViewAccountKey struct {
	ViewPrivateKey ucrypto.PrivateKey
	SpendPublicKey ucrypto.PublicKey
}

// AccountKey adds the spend private key b.
type AccountKey struct {
	ViewAccountKey
	SpendPrivateKey ucrypto.PrivateKey
}

func NewAccountKey(viewPriv, spendPriv ucrypto.PrivateKey) *AccountKey {
	return &AccountKey{
		ViewAccountKey: ViewAccountKey{
			ViewPrivateKey: viewPriv,
			SpendPublicKey: spendPriv.PublicKey(),
		},
		SpendPrivateKey: spendPriv,
	}
}

func NewRandomAccountKey() *AccountKey {
	return NewAccountKey(ucrypto.NewPrivateKey(), ucrypto.NewPrivateKey())
}

// AccountKeyFromMnemonic hashes the view and spend keys out of the hardened
// BIP32 node m/44'/coin'/index'.
func AccountKeyFromMnemonic(network *Network, mnemonic string, index uint32) (*AccountKey, error) {
	seed, err := mnemonicSeed(mnemonic)
	if err != nil {
		return nil, err
	}
	node, err := AccountDerivation(network, index).Derive(seed)
	if err != nil {
		return nil, err
	}
	viewPriv := ucrypto.PrivateKeyFromScalar(ucrypto.HashToScalar("umbra_view_private", node.Key))
	spendPriv := ucrypto.PrivateKeyFromScalar(ucrypto.HashToScalar("umbra_spend_private", node.Key))
	return NewAccountKey(viewPriv, spendPriv), nil
}

// ID is stable across view-only re-import of the same account.
func (k *ViewAccountKey) ID() string {
	viewPub := k.ViewPrivateKey.PublicKey()
	return hex.EncodeToString(ucrypto.DomainHash256("umbra_account_id", viewPub[:], k.SpendPublicKey[:]))
}

func (k *ViewAccountKey) SubaddressSpendPublicKey(index uint64) ucrypto.PublicKey {
	pub, err := ucrypto.SubaddressSpendPublic(k.ViewPrivateKey, k.SpendPublicKey, index)
	if err != nil {
		// SpendPublicKey is validated on every construction path
		panic(err)
	}
	return pub
}

func (k *ViewAccountKey) Subaddress(index uint64) *PublicAddress {
	spendPub := k.SubaddressSpendPublicKey(index)
	viewPub, err := ucrypto.SubaddressViewPublic(k.ViewPrivateKey, spendPub)
	if err != nil {
		panic(err)
	}
	return &PublicAddress{
		ViewPublicKey:  viewPub,
		SpendPublicKey: spendPub,
	}
}

func (k *ViewAccountKey) DefaultAddress() *PublicAddress {
	return k.Subaddress(DefaultSubaddressIndex)
}

func (k *ViewAccountKey) ChangeAddress() *PublicAddress {
	return k.Subaddress(ChangeSubaddressIndex)
}

// SharedSecret computes a*R for an output public key R.
func (k *ViewAccountKey) SharedSecret(outputPublicKey ucrypto.PublicKey) (ucrypto.PublicKey, error) {
	return ucrypto.SharedSecret(k.ViewPrivateKey, outputPublicKey)
}

func (k *ViewAccountKey) Bytes() []byte {
	out := make([]byte, 0, 1+2*ucrypto.KeySize)
	out = append(out, accountKeyViewOnly)
	out = append(out, k.ViewPrivateKey[:]...)
	return append(out, k.SpendPublicKey[:]...)
}

func (k *AccountKey) View() *ViewAccountKey {
	view := k.ViewAccountKey
	return &view
}

func (k *AccountKey) SubaddressSpendPrivateKey(index uint64) ucrypto.PrivateKey {
	return ucrypto.SubaddressSpendPrivate(k.ViewPrivateKey, k.SpendPrivateKey, index)
}

// OnetimePrivateKey returns the private key of an output received on the
// given subaddress under shared secret ss.
func (k *AccountKey) OnetimePrivateKey(ss ucrypto.PublicKey, index uint64) ucrypto.PrivateKey {
	return ucrypto.OnetimePrivateKey(ss, k.SubaddressSpendPrivateKey(index))
}

func (k *AccountKey) KeyImage(ss ucrypto.PublicKey, index uint64) ucrypto.KeyImage {
	return ucrypto.ComputeKeyImage(k.OnetimePrivateKey(ss, index))
}

func (k *AccountKey) Bytes() []byte {
	out := make([]byte, 0, 1+2*ucrypto.KeySize)
	out = append(out, accountKeyFull)
	out = append(out, k.ViewPrivateKey[:]...)
	return append(out, k.SpendPrivateKey[:]...)
}

// DecodeAccountKey parses serialized key material. The returned AccountKey
// is nil for view-only keys.
func DecodeAccountKey(b []byte) (*ViewAccountKey, *AccountKey, error) {
	if len(b) != 1+2*ucrypto.KeySize {
		return nil, nil, errors.New("invalid account key length")
	}
	viewPriv, err := ucrypto.PrivateKeyFromBytes(b[1:33])
	if err != nil {
		return nil, nil, err
	}

	switch b[0] {
	case accountKeyFull:
		spendPriv, err := ucrypto.PrivateKeyFromBytes(b[33:])
		if err != nil {
			return nil, nil, err
		}
		key := NewAccountKey(viewPriv, spendPriv)
		return key.View(), key, nil
	case accountKeyViewOnly:
		spendPub, err := ucrypto.PublicKeyFromBytes(b[33:])
		if err != nil {
			return nil, nil, err
		}
		return &ViewAccountKey{
			ViewPrivateKey: viewPriv,
			SpendPublicKey: spendPub,
		}, nil, nil
	default:
		return nil, nil, errors.Errorf("unknown account key type %d", b[0])
	}
}

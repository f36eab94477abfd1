package chain

import (
	"bytes"
	"github.com/btcsuite/btcutil/base58"
	"github.com/kurumiimari/umbra/bio"
	"github.com/kurumiimari/umbra/ucrypto"
	"github.com/pkg/errors"
	"io"
)

const ShortHashSize = 16

var ErrInvalidAddress = errors.New("invalid address")

// PublicAddress is a subaddress as seen by payers: its view public key C
// and spend public key D.
type PublicAddress struct {
	ViewPublicKey  ucrypto.PublicKey
	SpendPublicKey ucrypto.PublicKey
}

func PublicAddressFromB58(network *Network, in string) (*PublicAddress, error) {
	payload, version, err := base58.CheckDecode(in)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidAddress, err.Error())
	}
	if version != network.AddressVersion {
		return nil, errors.Wrap(ErrInvalidAddress, "wrong network")
	}
	addr := new(PublicAddress)
	if _, err := addr.ReadFrom(bytes.NewReader(payload)); err != nil {
		return nil, errors.Wrap(ErrInvalidAddress, err.Error())
	}
	return addr, nil
}

func (a *PublicAddress) B58(network *Network) string {
	return base58.CheckEncode(a.Bytes(), network.AddressVersion)
}

// ShortHash identifies an address inside memos.
func (a *PublicAddress) ShortHash() [ShortHashSize]byte {
	var out [ShortHashSize]byte
	copy(out[:], ucrypto.DomainHash256("umbra_address_hash", a.Bytes()))
	return out
}

func (a *PublicAddress) Equal(b *PublicAddress) bool {
	return a.ViewPublicKey == b.ViewPublicKey && a.SpendPublicKey == b.SpendPublicKey
}

func (a *PublicAddress) Bytes() []byte {
	buf := new(bytes.Buffer)
	if _, err := a.WriteTo(buf); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func (a *PublicAddress) WriteTo(w io.Writer) (int64, error) {
	g := bio.NewGuardWriter(w)
	bio.WriteRawBytes(g, a.ViewPublicKey[:])
	bio.WriteRawBytes(g, a.SpendPublicKey[:])
	return g.N, errors.Wrap(g.Err, "error writing address")
}

func (a *PublicAddress) ReadFrom(r io.Reader) (int64, error) {
	g := bio.NewGuardReader(r)
	view, _ := bio.ReadFixed32(g)
	spend, _ := bio.ReadFixed32(g)
	if g.Err != nil {
		return g.N, errors.Wrap(g.Err, "error reading address")
	}
	viewPub, err := ucrypto.PublicKeyFromBytes(view[:])
	if err != nil {
		return g.N, err
	}
	spendPub, err := ucrypto.PublicKeyFromBytes(spend[:])
	if err != nil {
		return g.N, err
	}
	a.ViewPublicKey = viewPub
	a.SpendPublicKey = spendPub
	return g.N, nil
}

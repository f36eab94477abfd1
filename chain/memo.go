package chain

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"github.com/kurumiimari/umbra/ucrypto"
	"github.com/pkg/errors"
)

const (
	MemoPayloadSize = ucrypto.MemoSize
	MemoDataSize    = MemoPayloadSize - 2

	maxMemoFee = 1<<56 - 1
)

// MemoPayload is a type-tagged memo: two big-endian type bytes followed by
// 64 bytes of type-specific data.
type MemoPayload [MemoPayloadSize]byte

type MemoType uint16

const (
	MemoTypeUnused                                MemoType = 0x0000
	MemoTypeAuthenticatedSender                   MemoType = 0x0100
	MemoTypeAuthenticatedSenderWithPaymentRequest MemoType = 0x0101
	MemoTypeAuthenticatedSenderWithPaymentIntent  MemoType = 0x0102
	MemoTypeDestination                           MemoType = 0x0200
	MemoTypeDestinationWithPaymentRequest         MemoType = 0x0203
	MemoTypeDestinationWithPaymentIntent          MemoType = 0x0204
)

var ErrUnknownMemoType = errors.New("unknown memo type")

func (t MemoType) IsAuthenticatedSender() bool {
	return t == MemoTypeAuthenticatedSender ||
		t == MemoTypeAuthenticatedSenderWithPaymentRequest ||
		t == MemoTypeAuthenticatedSenderWithPaymentIntent
}

func (t MemoType) IsDestination() bool {
	return t == MemoTypeDestination ||
		t == MemoTypeDestinationWithPaymentRequest ||
		t == MemoTypeDestinationWithPaymentIntent
}

func (t MemoType) HasPaymentRequestID() bool {
	return t == MemoTypeAuthenticatedSenderWithPaymentRequest || t == MemoTypeDestinationWithPaymentRequest
}

func (t MemoType) HasPaymentIntentID() bool {
	return t == MemoTypeAuthenticatedSenderWithPaymentIntent || t == MemoTypeDestinationWithPaymentIntent
}

func (t MemoType) String() string {
	switch t {
	case MemoTypeUnused:
		return "unused"
	case MemoTypeAuthenticatedSender:
		return "authenticated_sender"
	case MemoTypeAuthenticatedSenderWithPaymentRequest:
		return "authenticated_sender_with_payment_request_id"
	case MemoTypeAuthenticatedSenderWithPaymentIntent:
		return "authenticated_sender_with_payment_intent_id"
	case MemoTypeDestination:
		return "destination"
	case MemoTypeDestinationWithPaymentRequest:
		return "destination_with_payment_request_id"
	case MemoTypeDestinationWithPaymentIntent:
		return "destination_with_payment_intent_id"
	default:
		return "unknown"
	}
}

func (p *MemoPayload) Type() MemoType {
	return MemoType(binary.BigEndian.Uint16(p[:2]))
}

func (p *MemoPayload) Data() []byte {
	return p[2:]
}

func (p *MemoPayload) String() string {
	return hex.EncodeToString(p[:])
}

func (p MemoPayload) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(p[:]))
}

func (p *MemoPayload) UnmarshalJSON(b []byte) error {
	var hexStr string
	if err := json.Unmarshal(b, &hexStr); err != nil {
		return errors.WithStack(err)
	}
	buf, err := hex.DecodeString(hexStr)
	if err != nil {
		return errors.WithStack(err)
	}
	if len(buf) != MemoPayloadSize {
		return errors.Errorf("memo payload must be %d bytes", MemoPayloadSize)
	}
	copy(p[:], buf)
	return nil
}

func newPayload(t MemoType) *MemoPayload {
	p := new(MemoPayload)
	binary.BigEndian.PutUint16(p[:2], uint16(t))
	return p
}

// Memo is one decoded memo variant.
type Memo interface {
	MemoType() MemoType
	Payload() *MemoPayload
}

// AuthenticatedSenderMemo proves to the recipient which address sent an
// output. The MAC is keyed by a secret only the sender and the holder of
// the receiving subaddress spend key can compute.
type AuthenticatedSenderMemo struct {
	Type             MemoType
	SenderHash       [ShortHashSize]byte
	PaymentRequestID uint64
	PaymentIntentID  uint64
	MAC              [ucrypto.MACSize]byte
}

// NewAuthenticatedSenderMemo builds a sender memo for an output with public
// key outputPub. senderSpend is the private spend key of the sender's
// default subaddress.
func NewAuthenticatedSenderMemo(
	memoType MemoType,
	sender *PublicAddress,
	senderSpend ucrypto.PrivateKey,
	recipient *PublicAddress,
	paymentID uint64,
	outputPub ucrypto.PublicKey,
) (*AuthenticatedSenderMemo, error) {
	if !memoType.IsAuthenticatedSender() {
		return nil, ErrUnknownMemoType
	}
	key, err := ucrypto.SharedSecret(senderSpend, recipient.ViewPublicKey)
	if err != nil {
		return nil, err
	}
	m := &AuthenticatedSenderMemo{
		Type:       memoType,
		SenderHash: sender.ShortHash(),
	}
	m.setPaymentID(paymentID)
	m.MAC = m.computeMAC(key, outputPub)
	return m, nil
}

func (m *AuthenticatedSenderMemo) setPaymentID(id uint64) {
	switch {
	case m.Type.HasPaymentRequestID():
		m.PaymentRequestID = id
	case m.Type.HasPaymentIntentID():
		m.PaymentIntentID = id
	}
}

func (m *AuthenticatedSenderMemo) paymentID() uint64 {
	switch {
	case m.Type.HasPaymentRequestID():
		return m.PaymentRequestID
	case m.Type.HasPaymentIntentID():
		return m.PaymentIntentID
	}
	return 0
}

func (m *AuthenticatedSenderMemo) MemoType() MemoType {
	return m.Type
}

func (m *AuthenticatedSenderMemo) Payload() *MemoPayload {
	p := newPayload(m.Type)
	copy(p[2:18], m.SenderHash[:])
	binary.BigEndian.PutUint64(p[18:26], m.paymentID())
	copy(p[50:66], m.MAC[:])
	return p
}

func (m *AuthenticatedSenderMemo) computeMAC(key ucrypto.PublicKey, outputPub ucrypto.PublicKey) [ucrypto.MACSize]byte {
	p := m.Payload()
	return ucrypto.MemoMAC(key, []byte("umbra_sender_memo"), p[:50], outputPub[:])
}

// Validate checks the memo against the purported sender address. The
// receiver needs the view private key and the private spend key of the
// subaddress the output arrived on.
func (m *AuthenticatedSenderMemo) Validate(
	sender *PublicAddress,
	recvView ucrypto.PrivateKey,
	recvSubaddressSpend ucrypto.PrivateKey,
	outputPub ucrypto.PublicKey,
) bool {
	if m.SenderHash != sender.ShortHash() {
		return false
	}
	key, err := ucrypto.SharedSecret(ucrypto.MultiplyKeys(recvView, recvSubaddressSpend), sender.SpendPublicKey)
	if err != nil {
		return false
	}
	return m.computeMAC(key, outputPub) == m.MAC
}

// DestinationMemo is written to the sender's own change output and records
// where the transaction's value went.
type DestinationMemo struct {
	Type             MemoType
	RecipientHash    [ShortHashSize]byte
	NumRecipients    uint8
	Fee              uint64
	TotalOutlay      uint64
	PaymentRequestID uint64
	PaymentIntentID  uint64
}

func NewDestinationMemo(
	memoType MemoType,
	recipient *PublicAddress,
	numRecipients uint8,
	fee uint64,
	totalOutlay uint64,
	paymentID uint64,
) (*DestinationMemo, error) {
	if !memoType.IsDestination() {
		return nil, ErrUnknownMemoType
	}
	if fee > maxMemoFee {
		return nil, errors.New("fee too large for destination memo")
	}
	m := &DestinationMemo{
		Type:          memoType,
		RecipientHash: recipient.ShortHash(),
		NumRecipients: numRecipients,
		Fee:           fee,
		TotalOutlay:   totalOutlay,
	}
	switch {
	case memoType.HasPaymentRequestID():
		m.PaymentRequestID = paymentID
	case memoType.HasPaymentIntentID():
		m.PaymentIntentID = paymentID
	}
	return m, nil
}

func (m *DestinationMemo) MemoType() MemoType {
	return m.Type
}

func (m *DestinationMemo) Payload() *MemoPayload {
	p := newPayload(m.Type)
	d := p[2:]
	copy(d[0:16], m.RecipientHash[:])
	d[16] = m.NumRecipients
	var fee [8]byte
	binary.BigEndian.PutUint64(fee[:], m.Fee)
	copy(d[17:24], fee[1:])
	binary.BigEndian.PutUint64(d[24:32], m.TotalOutlay)
	var id uint64
	switch {
	case m.Type.HasPaymentRequestID():
		id = m.PaymentRequestID
	case m.Type.HasPaymentIntentID():
		id = m.PaymentIntentID
	}
	binary.BigEndian.PutUint64(d[32:40], id)
	return p
}

// ParseMemo decodes a payload into its variant. Unused memos return nil
// with no error.
func ParseMemo(p *MemoPayload) (Memo, error) {
	t := p.Type()
	d := p.Data()
	switch {
	case t == MemoTypeUnused:
		return nil, nil
	case t.IsAuthenticatedSender():
		m := &AuthenticatedSenderMemo{Type: t}
		copy(m.SenderHash[:], d[0:16])
		m.setPaymentID(binary.BigEndian.Uint64(d[16:24]))
		copy(m.MAC[:], d[48:64])
		return m, nil
	case t.IsDestination():
		m := &DestinationMemo{
			Type:          t,
			NumRecipients: d[16],
			TotalOutlay:   binary.BigEndian.Uint64(d[24:32]),
		}
		copy(m.RecipientHash[:], d[0:16])
		var fee [8]byte
		copy(fee[1:], d[17:24])
		m.Fee = binary.BigEndian.Uint64(fee[:])
		id := binary.BigEndian.Uint64(d[32:40])
		switch {
		case t.HasPaymentRequestID():
			m.PaymentRequestID = id
		case t.HasPaymentIntentID():
			m.PaymentIntentID = id
		}
		return m, nil
	default:
		return nil, ErrUnknownMemoType
	}
}

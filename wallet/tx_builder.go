package wallet

import (
	"github.com/kurumiimari/umbra/chain"
	"github.com/kurumiimari/umbra/ucrypto"
	"github.com/kurumiimari/umbra/walletdb"
	"github.com/pkg/errors"
	"math"
	"sort"
)

type Payment struct {
	Address *chain.PublicAddress
	Value   uint64
}

// BuiltOutput is an output of a built transaction with the cleartext the
// wallet keeps about it.
type BuiltOutput struct {
	TxOut              *chain.TxOut
	Value              uint64
	Recipient          *chain.PublicAddress
	IsChange           bool
	ConfirmationNumber ucrypto.Hash
}

type BuiltTx struct {
	Tx      *chain.Tx
	Inputs  []*walletdb.Txo
	Outputs []*BuiltOutput
}

// TxBuilder assembles a transaction from owned TXOs. The change output is
// always present, possibly with zero value, and carries the destination
// memo.
type TxBuilder struct {
	network   *chain.Network
	inputs    []*walletdb.Txo
	payments  []*Payment
	fee       uint64
	tombstone uint64
	paymentID uint64
}

func NewTxBuilder(network *chain.Network, fee uint64, tombstone uint64) *TxBuilder {
	return &TxBuilder{
		network:   network,
		fee:       fee,
		tombstone: tombstone,
	}
}

// SetPaymentRequestID tags the transaction's memos with a payment request
// id. Zero leaves it untagged.
func (b *TxBuilder) SetPaymentRequestID(id uint64) {
	b.paymentID = id
}

func (b *TxBuilder) AddInput(txo *walletdb.Txo) error {
	if txo.SubaddressIndex == nil || txo.SharedSecret == nil {
		return errors.Errorf("txo %s is not spendable", txo.ID)
	}
	if len(b.inputs) >= b.network.MaxInputs {
		return ErrFragmentedFunds
	}
	for _, in := range b.inputs {
		if in.ID == txo.ID {
			return errors.Errorf("txo %s already added", txo.ID)
		}
	}
	b.inputs = append(b.inputs, txo)
	return nil
}

func (b *TxBuilder) AddPayment(addr *chain.PublicAddress, value uint64) error {
	// one slot is reserved for change
	if len(b.payments)+1 >= b.network.MaxOutputs {
		return ErrTooManyOutputs
	}
	b.payments = append(b.payments, &Payment{
		Address: addr,
		Value:   value,
	})
	return nil
}

func (b *TxBuilder) TotalPayments() uint64 {
	var total uint64
	for _, p := range b.payments {
		total = addSaturating(total, p.Value)
	}
	return total
}

func (b *TxBuilder) TotalInputs() uint64 {
	var total uint64
	for _, in := range b.inputs {
		total = addSaturating(total, in.Value)
	}
	return total
}

// Fund adds inputs from spendable, largest first, until they cover the
// payments plus fee.
func (b *TxBuilder) Fund(spendable []*walletdb.Txo) error {
	target := addSaturating(b.TotalPayments(), b.fee)
	if target == math.MaxUint64 {
		return ErrInsufficientFunds
	}
	if b.TotalInputs() >= target {
		return nil
	}

	used := make(map[string]bool)
	for _, in := range b.inputs {
		used[in.ID] = true
	}
	candidates := make([]*walletdb.Txo, 0, len(spendable))
	var available uint64
	for _, txo := range spendable {
		if used[txo.ID] {
			continue
		}
		candidates = append(candidates, txo)
		available = addSaturating(available, txo.Value)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Value > candidates[j].Value
	})

	if addSaturating(b.TotalInputs(), available) < target {
		return ErrInsufficientFunds
	}

	total := b.TotalInputs()
	for _, txo := range candidates {
		if len(b.inputs) >= b.network.MaxInputs {
			return ErrFragmentedFunds
		}
		b.inputs = append(b.inputs, txo)
		total += txo.Value
		if total >= target {
			return nil
		}
	}
	return ErrInsufficientFunds
}

// Build creates the outputs and the unsigned transaction. When sender is
// set, payment outputs carry authenticated sender memos.
func (b *TxBuilder) Build(change *chain.PublicAddress, sender *chain.AccountKey) (*BuiltTx, error) {
	if len(b.payments) == 0 {
		return nil, ErrNoPayments
	}
	if len(b.inputs) == 0 {
		return nil, ErrInsufficientFunds
	}
	outlay := addSaturating(b.TotalPayments(), b.fee)
	totalIn := b.TotalInputs()
	if totalIn < outlay || outlay == math.MaxUint64 {
		return nil, ErrInsufficientFunds
	}

	senderType := chain.MemoTypeAuthenticatedSender
	destType := chain.MemoTypeDestination
	if b.paymentID != 0 {
		senderType = chain.MemoTypeAuthenticatedSenderWithPaymentRequest
		destType = chain.MemoTypeDestinationWithPaymentRequest
	}

	tx := &chain.Tx{
		Fee:            b.fee,
		TombstoneBlock: b.tombstone,
	}
	for _, in := range b.inputs {
		tx.Inputs = append(tx.Inputs, &chain.TxIn{
			TargetKey: in.TargetKey,
			PublicKey: in.PublicKey,
		})
	}

	built := &BuiltTx{
		Tx:     tx,
		Inputs: b.inputs,
	}
	for _, p := range b.payments {
		r := ucrypto.NewPrivateKey()
		outPub, ss, err := chain.OutputKeys(r, p.Address)
		if err != nil {
			return nil, errors.Wrap(err, "error deriving output keys")
		}
		var memo *chain.MemoPayload
		if sender != nil {
			sm, err := chain.NewAuthenticatedSenderMemo(
				senderType,
				sender.DefaultAddress(),
				sender.SubaddressSpendPrivateKey(chain.DefaultSubaddressIndex),
				p.Address,
				b.paymentID,
				outPub,
			)
			if err != nil {
				return nil, errors.Wrap(err, "error creating sender memo")
			}
			memo = sm.Payload()
		}
		out, err := chain.NewTxOut(p.Value, p.Address, r, memo)
		if err != nil {
			return nil, err
		}
		tx.Outputs = append(tx.Outputs, out)
		built.Outputs = append(built.Outputs, &BuiltOutput{
			TxOut:              out,
			Value:              p.Value,
			Recipient:          p.Address,
			ConfirmationNumber: chain.NewConfirmationNumber(ss),
		})
	}

	dest, err := chain.NewDestinationMemo(
		destType,
		b.payments[0].Address,
		uint8(len(b.payments)),
		b.fee,
		outlay,
		b.paymentID,
	)
	if err != nil {
		return nil, err
	}
	changeValue := totalIn - outlay
	changeOut, err := chain.NewTxOut(changeValue, change, ucrypto.NewPrivateKey(), dest.Payload())
	if err != nil {
		return nil, err
	}
	tx.Outputs = append(tx.Outputs, changeOut)
	built.Outputs = append(built.Outputs, &BuiltOutput{
		TxOut:     changeOut,
		Value:     changeValue,
		Recipient: change,
		IsChange:  true,
	})
	return built, nil
}

// Sign signs every input with its one-time private key, filling in the key
// images.
func (b *BuiltTx) Sign(key *chain.AccountKey) {
	msg := b.Tx.PrefixHash()
	for i, in := range b.Inputs {
		x := key.OnetimePrivateKey(*in.SharedSecret, *in.SubaddressIndex)
		sig, ki := ucrypto.Sign(msg, x)
		b.Tx.Inputs[i].Signature = sig
		b.Tx.Inputs[i].KeyImage = ki
	}
}

func addSaturating(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}

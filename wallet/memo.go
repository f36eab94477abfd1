package wallet

import (
	"github.com/kurumiimari/umbra/chain"
	"github.com/kurumiimari/umbra/ucrypto"
)

// DecodeMemo dispatches a cleartext payload to its variant. Unused,
// unknown and missing payloads all decode to nil.
func DecodeMemo(payload *chain.MemoPayload) chain.Memo {
	if payload == nil {
		return nil
	}
	memo, err := chain.ParseMemo(payload)
	if err != nil {
		scanLogger.Debug("ignoring memo", "type", payload.Type(), "err", err)
		return nil
	}
	return memo
}

// DecodeSenderMemo returns the sender memo of payload when it authenticates
// against sender, or nil. recvSpend is the private spend key of the
// subaddress the output arrived on.
func DecodeSenderMemo(
	payload *chain.MemoPayload,
	sender *chain.PublicAddress,
	recvView ucrypto.PrivateKey,
	recvSpend ucrypto.PrivateKey,
	outputPub ucrypto.PublicKey,
) *chain.AuthenticatedSenderMemo {
	memo, ok := DecodeMemo(payload).(*chain.AuthenticatedSenderMemo)
	if !ok {
		return nil
	}
	if !memo.Validate(sender, recvView, recvSpend, outputPub) {
		return nil
	}
	return memo
}

// trustedDestinationMemo returns a destination memo only when it sits on
// the account's change subaddress, the one place this wallet writes them.
func trustedDestinationMemo(memo chain.Memo, subaddressIndex *uint64) *chain.DestinationMemo {
	dest, ok := memo.(*chain.DestinationMemo)
	if !ok || subaddressIndex == nil || *subaddressIndex != chain.ChangeSubaddressIndex {
		return nil
	}
	return dest
}

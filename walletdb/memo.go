package walletdb

import (
	"database/sql"
	"github.com/kurumiimari/umbra/chain"
	"github.com/pkg/errors"
)

// TxoMemo holds the decoded, trusted memo of a TXO. At most one of the
// variants is set.
type TxoMemo struct {
	Sender      *chain.AuthenticatedSenderMemo
	Destination *chain.DestinationMemo
}

func CreateSenderMemo(tx Transactor, txoID string, memo *chain.AuthenticatedSenderMemo) error {
	_, err := tx.Exec(`
INSERT INTO authenticated_sender_memos (txo_id, sender_address_hash, payment_request_id, payment_intent_id)
VALUES (?, ?, ?, ?)
ON CONFLICT (txo_id) DO NOTHING
`,
		txoID,
		memo.SenderHash[:],
		optionalID(memo.Type.HasPaymentRequestID(), memo.PaymentRequestID),
		optionalID(memo.Type.HasPaymentIntentID(), memo.PaymentIntentID),
	)
	return errors.WithStack(err)
}

func CreateDestinationMemo(tx Transactor, txoID string, memo *chain.DestinationMemo) error {
	_, err := tx.Exec(`
INSERT INTO destination_memos (
	txo_id,
	recipient_address_hash,
	num_recipients,
	fee,
	total_outlay,
	payment_request_id,
	payment_intent_id
) VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (txo_id) DO NOTHING
`,
		txoID,
		memo.RecipientHash[:],
		memo.NumRecipients,
		memo.Fee,
		memo.TotalOutlay,
		optionalID(memo.Type.HasPaymentRequestID(), memo.PaymentRequestID),
		optionalID(memo.Type.HasPaymentIntentID(), memo.PaymentIntentID),
	)
	return errors.WithStack(err)
}

// GetTxoMemo returns the stored memo for txoID, or nil when none was
// trusted.
func GetTxoMemo(q Querier, txoID string) (*TxoMemo, error) {
	var memoType sql.NullInt64
	row := q.QueryRow("SELECT memo_type FROM txos WHERE id = ?", txoID)
	if err := row.Scan(&memoType); err != nil {
		return nil, notFound(err)
	}
	if !memoType.Valid {
		return nil, nil
	}
	t := chain.MemoType(memoType.Int64)

	var reqID, intentID sql.NullInt64
	var hash []byte
	switch {
	case t.IsAuthenticatedSender():
		m := &chain.AuthenticatedSenderMemo{Type: t}
		row := q.QueryRow(
			"SELECT sender_address_hash, payment_request_id, payment_intent_id FROM authenticated_sender_memos WHERE txo_id = ?",
			txoID,
		)
		if err := row.Scan(&hash, &reqID, &intentID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil
			}
			return nil, errors.WithStack(err)
		}
		copy(m.SenderHash[:], hash)
		m.PaymentRequestID = uint64(reqID.Int64)
		m.PaymentIntentID = uint64(intentID.Int64)
		return &TxoMemo{Sender: m}, nil
	case t.IsDestination():
		m := &chain.DestinationMemo{Type: t}
		row := q.QueryRow(
			"SELECT recipient_address_hash, num_recipients, fee, total_outlay, payment_request_id, payment_intent_id FROM destination_memos WHERE txo_id = ?",
			txoID,
		)
		if err := row.Scan(&hash, &m.NumRecipients, &m.Fee, &m.TotalOutlay, &reqID, &intentID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil
			}
			return nil, errors.WithStack(err)
		}
		copy(m.RecipientHash[:], hash)
		m.PaymentRequestID = uint64(reqID.Int64)
		m.PaymentIntentID = uint64(intentID.Int64)
		return &TxoMemo{Destination: m}, nil
	default:
		return nil, nil
	}
}

func optionalID(present bool, id uint64) sql.NullInt64 {
	if !present {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(id), Valid: true}
}

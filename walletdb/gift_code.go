package walletdb

import (
	"database/sql"
	"github.com/kurumiimari/umbra/ucrypto"
	"github.com/pkg/errors"
	"time"
)

type GiftCode struct {
	ID                 int64
	GiftCodeB58        string
	Value              uint64
	Memo               string
	FundingAccountID   string
	TransactionLogID   string
	TxoPublicKey       ucrypto.PublicKey
	EphemeralAccountID string
	CreatedAt          time.Time
}

func CreateGiftCode(tx Transactor, gc *GiftCode) (*GiftCode, error) {
	now := time.Now().Unix()
	_, err := tx.Exec(`
INSERT INTO gift_codes (
	gift_code_b58,
	value,
	memo,
	funding_account_id,
	transaction_log_id,
	txo_public_key,
	ephemeral_account_id,
	created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (gift_code_b58) DO NOTHING
`,
		gc.GiftCodeB58,
		gc.Value,
		gc.Memo,
		nullString(gc.FundingAccountID),
		nullString(gc.TransactionLogID),
		gc.TxoPublicKey,
		gc.EphemeralAccountID,
		now,
	)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return GetGiftCode(tx, gc.GiftCodeB58)
}

func GetGiftCode(q Querier, b58 string) (*GiftCode, error) {
	row := q.QueryRow(giftCodeQuery("WHERE gift_code_b58 = ?"), b58)
	if row.Err() != nil {
		return nil, errors.WithStack(row.Err())
	}
	return scanGiftCode(row)
}

func ListGiftCodes(q Querier, count, offset int) ([]*GiftCode, error) {
	rows, err := q.Query(giftCodeQuery("ORDER BY id DESC LIMIT ? OFFSET ?"), count, offset)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer rows.Close()
	var out []*GiftCode
	for rows.Next() {
		gc, err := scanGiftCode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, gc)
	}
	return out, errors.WithStack(rows.Err())
}

// DeleteGiftCode removes the local record only.
func DeleteGiftCode(tx Transactor, b58 string) error {
	res, err := tx.Exec("DELETE FROM gift_codes WHERE gift_code_b58 = ?", b58)
	if err != nil {
		return errors.WithStack(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.WithStack(err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanGiftCode(s Scanner) (*GiftCode, error) {
	gc := new(GiftCode)
	var funding, logID sql.NullString
	var createdAt int64
	err := s.Scan(
		&gc.ID,
		&gc.GiftCodeB58,
		&gc.Value,
		&gc.Memo,
		&funding,
		&logID,
		&gc.TxoPublicKey,
		&gc.EphemeralAccountID,
		&createdAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	gc.FundingAccountID = funding.String
	gc.TransactionLogID = logID.String
	gc.CreatedAt = time.Unix(createdAt, 0)
	return gc, nil
}

const baseGiftCodeQuery = `
SELECT
	id,
	gift_code_b58,
	value,
	memo,
	funding_account_id,
	transaction_log_id,
	txo_public_key,
	ephemeral_account_id,
	created_at
FROM gift_codes
`

func giftCodeQuery(fragment string) string {
	return baseGiftCodeQuery + " " + fragment
}

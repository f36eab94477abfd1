package walletdb

import (
	"github.com/kurumiimari/umbra/ucrypto"
	"github.com/pkg/errors"
)

type Subaddress struct {
	PublicAddressB58 string            `json:"public_address_b58"`
	AccountID        string            `json:"account_id"`
	SubaddressIndex  uint64            `json:"subaddress_index"`
	Comment          string            `json:"comment"`
	SpendPublicKey   ucrypto.PublicKey `json:"spend_public_key"`
}

func CreateSubaddress(tx Transactor, sub *Subaddress) error {
	_, err := tx.Exec(`
INSERT INTO assigned_subaddresses (
	public_address_b58,
	account_id,
	subaddress_index,
	comment,
	spend_public_key
) VALUES (?, ?, ?, ?, ?)
ON CONFLICT (public_address_b58) DO NOTHING
`,
		sub.PublicAddressB58,
		sub.AccountID,
		sub.SubaddressIndex,
		sub.Comment,
		sub.SpendPublicKey,
	)
	return errors.WithStack(err)
}

func ListSubaddresses(q Querier, accountID string, count, offset int) ([]*Subaddress, error) {
	rows, err := q.Query(
		subaddressQuery("WHERE account_id = ? ORDER BY subaddress_index LIMIT ? OFFSET ?"),
		accountID,
		count,
		offset,
	)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer rows.Close()
	var out []*Subaddress
	for rows.Next() {
		sub, err := scanSubaddress(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, errors.WithStack(rows.Err())
}

// GetSubaddressBySpendKey resolves a recovered subaddress spend public key
// to the account's assigned subaddress.
func GetSubaddressBySpendKey(q Querier, accountID string, spendKey ucrypto.PublicKey) (*Subaddress, error) {
	row := q.QueryRow(
		subaddressQuery("WHERE account_id = ? AND spend_public_key = ?"),
		accountID,
		spendKey,
	)
	if row.Err() != nil {
		return nil, errors.WithStack(row.Err())
	}
	return scanSubaddress(row)
}

func GetSubaddressByB58(q Querier, b58 string) (*Subaddress, error) {
	row := q.QueryRow(subaddressQuery("WHERE public_address_b58 = ?"), b58)
	if row.Err() != nil {
		return nil, errors.WithStack(row.Err())
	}
	return scanSubaddress(row)
}

func GetSubaddressByIndex(q Querier, accountID string, index uint64) (*Subaddress, error) {
	row := q.QueryRow(
		subaddressQuery("WHERE account_id = ? AND subaddress_index = ?"),
		accountID,
		index,
	)
	if row.Err() != nil {
		return nil, errors.WithStack(row.Err())
	}
	return scanSubaddress(row)
}

func scanSubaddress(s Scanner) (*Subaddress, error) {
	sub := new(Subaddress)
	err := s.Scan(
		&sub.PublicAddressB58,
		&sub.AccountID,
		&sub.SubaddressIndex,
		&sub.Comment,
		&sub.SpendPublicKey,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return sub, nil
}

const baseSubaddressQuery = `
SELECT
	public_address_b58,
	account_id,
	subaddress_index,
	comment,
	spend_public_key
FROM assigned_subaddresses
`

func subaddressQuery(fragment string) string {
	return baseSubaddressQuery + " " + fragment
}

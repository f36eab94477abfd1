package walletdb

import (
	"database/sql"
	"github.com/pkg/errors"
	"time"
)

type Account struct {
	ID                   string
	Name                 string
	AccountKey           []byte
	ViewOnly             bool
	Ephemeral            bool
	Entropy              []byte
	KeyDerivationVersion int
	FirstBlockIndex      uint64
	NextBlockIndex       uint64
	ImportBlockIndex     *uint64
	NextSubaddressIndex  uint64
	KeyImageBloom        []byte
	CreatedAt            time.Time
}

type CreateAccountOpts struct {
	ID                   string
	Name                 string
	AccountKey           []byte
	ViewOnly             bool
	Ephemeral            bool
	Entropy              []byte
	KeyDerivationVersion int
	FirstBlockIndex      uint64
	ImportBlockIndex     *uint64
	NextSubaddressIndex  uint64
	KeyImageBloom        []byte
}

func CreateAccount(tx Transactor, opts *CreateAccountOpts) (*Account, error) {
	now := time.Now()
	_, err := tx.Exec(`
INSERT INTO accounts (
	id,
	name,
	account_key,
	view_only,
	ephemeral,
	entropy,
	key_derivation_version,
	first_block_index,
	next_block_index,
	import_block_index,
	next_subaddress_index,
	key_image_bloom,
	created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		opts.ID,
		opts.Name,
		opts.AccountKey,
		opts.ViewOnly,
		opts.Ephemeral,
		opts.Entropy,
		opts.KeyDerivationVersion,
		opts.FirstBlockIndex,
		opts.FirstBlockIndex,
		nullIndex(opts.ImportBlockIndex),
		opts.NextSubaddressIndex,
		opts.KeyImageBloom,
		now.Unix(),
	)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return &Account{
		ID:                   opts.ID,
		Name:                 opts.Name,
		AccountKey:           opts.AccountKey,
		ViewOnly:             opts.ViewOnly,
		Ephemeral:            opts.Ephemeral,
		Entropy:              opts.Entropy,
		KeyDerivationVersion: opts.KeyDerivationVersion,
		FirstBlockIndex:      opts.FirstBlockIndex,
		NextBlockIndex:       opts.FirstBlockIndex,
		ImportBlockIndex:     opts.ImportBlockIndex,
		NextSubaddressIndex:  opts.NextSubaddressIndex,
		KeyImageBloom:        opts.KeyImageBloom,
		CreatedAt:            time.Unix(now.Unix(), 0),
	}, nil
}

func GetAccount(q Querier, id string) (*Account, error) {
	row := q.QueryRow(accountQuery("WHERE id = ?"), id)
	if row.Err() != nil {
		return nil, errors.WithStack(row.Err())
	}
	return scanAccount(row)
}

// ListAccounts returns every account, ephemeral gift code accounts only
// when includeEphemeral is set.
func ListAccounts(q Querier, includeEphemeral bool) ([]*Account, error) {
	rows, err := q.Query(
		accountQuery("WHERE ephemeral = FALSE OR ? ORDER BY created_at, id"),
		includeEphemeral,
	)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer rows.Close()
	var out []*Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, acc)
	}
	return out, errors.WithStack(rows.Err())
}

// DeleteAccount removes an account with its subaddresses and logs. TXOs
// it received are deleted unless another account minted them, in which
// case only the receiving side is cleared.
func DeleteAccount(tx Transactor, id string) error {
	_, err := tx.Exec(`
DELETE FROM txos
WHERE account_id = ?
AND id NOT IN (
	SELECT oxt.txo_id FROM transaction_output_txos AS oxt
	JOIN transaction_logs AS tl ON tl.id = oxt.transaction_log_id
	WHERE tl.account_id != ?
)
`,
		id,
		id,
	)
	if err != nil {
		return errors.WithStack(err)
	}

	_, err = tx.Exec(`
DELETE FROM txos
WHERE account_id IS NULL
AND id IN (
	SELECT oxt.txo_id FROM transaction_output_txos AS oxt
	JOIN transaction_logs AS tl ON tl.id = oxt.transaction_log_id
	WHERE tl.account_id = ?
)
`,
		id,
	)
	if err != nil {
		return errors.WithStack(err)
	}

	_, err = tx.Exec(`
DELETE FROM authenticated_sender_memos
WHERE txo_id IN (SELECT id FROM txos WHERE account_id = ?)
`,
		id,
	)
	if err != nil {
		return errors.WithStack(err)
	}

	_, err = tx.Exec(`
UPDATE txos SET
	account_id = NULL,
	subaddress_index = NULL,
	key_image = NULL,
	shared_secret = NULL,
	received_block_index = NULL,
	spent_block_index = NULL
WHERE account_id = ?
`,
		id,
	)
	if err != nil {
		return errors.WithStack(err)
	}

	res, err := tx.Exec("DELETE FROM accounts WHERE id = ?", id)
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

// UpdateNextBlockIndex advances the scan cursor. Moving it backwards is an
// integrity violation; use ResetNextBlockIndex for an explicit resync.
func UpdateNextBlockIndex(tx Transactor, id string, next uint64) error {
	res, err := tx.Exec(
		"UPDATE accounts SET next_block_index = ? WHERE id = ? AND next_block_index <= ?",
		next,
		id,
		next,
	)
	if err != nil {
		return errors.WithStack(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.WithStack(err)
	}
	if n == 0 {
		if _, err := GetAccount(tx, id); err != nil {
			return err
		}
		return errors.Wrapf(ErrIntegrityViolation, "next block index of %s cannot regress to %d", id, next)
	}
	return nil
}

func ResetNextBlockIndex(tx Transactor, id string) error {
	_, err := tx.Exec("UPDATE accounts SET next_block_index = first_block_index WHERE id = ?", id)
	return errors.WithStack(err)
}

func UpdateNextSubaddressIndex(tx Transactor, id string, next uint64) error {
	_, err := tx.Exec(
		"UPDATE accounts SET next_subaddress_index = ? WHERE id = ? AND next_subaddress_index <= ?",
		next,
		id,
		next,
	)
	return errors.WithStack(err)
}

func UpdateKeyImageBloom(tx Transactor, id string, bloom []byte) error {
	_, err := tx.Exec(
		"UPDATE accounts SET key_image_bloom = ? WHERE id = ?",
		bloom,
		id,
	)
	return errors.WithStack(err)
}

// MinNextBlockIndex is the lowest scan cursor across non-ephemeral
// accounts, or the ok flag is false when there are none.
func MinNextBlockIndex(q Querier) (uint64, bool, error) {
	row := q.QueryRow("SELECT MIN(next_block_index) FROM accounts WHERE ephemeral = FALSE")
	var min sql.NullInt64
	if err := row.Scan(&min); err != nil {
		return 0, false, errors.WithStack(err)
	}
	if !min.Valid {
		return 0, false, nil
	}
	return uint64(min.Int64), true, nil
}

func scanAccount(s Scanner) (*Account, error) {
	acc := new(Account)
	var importIdx sql.NullInt64
	var createdAt int64
	err := s.Scan(
		&acc.ID,
		&acc.Name,
		&acc.AccountKey,
		&acc.ViewOnly,
		&acc.Ephemeral,
		&acc.Entropy,
		&acc.KeyDerivationVersion,
		&acc.FirstBlockIndex,
		&acc.NextBlockIndex,
		&importIdx,
		&acc.NextSubaddressIndex,
		&acc.KeyImageBloom,
		&createdAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	acc.ImportBlockIndex = indexPtr(importIdx)
	acc.CreatedAt = time.Unix(createdAt, 0)
	return acc, nil
}

const baseAccountQuery = `
SELECT
	id,
	name,
	account_key,
	view_only,
	ephemeral,
	entropy,
	key_derivation_version,
	first_block_index,
	next_block_index,
	import_block_index,
	next_subaddress_index,
	key_image_bloom,
	created_at
FROM accounts
`

func accountQuery(fragment string) string {
	return baseAccountQuery + " " + fragment
}

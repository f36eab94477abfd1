package walletdb

import (
	"database/sql"
	"github.com/kurumiimari/umbra/chain"
	"github.com/kurumiimari/umbra/ucrypto"
	"github.com/pkg/errors"
)

// Txo is a tracked output. AccountID is the receiving account and is empty
// for outputs this wallet minted but does not own. PendingTombstone and
// MintedByAccountID are derived from the transaction log tables.
type Txo struct {
	ID                 string
	AccountID          string
	Value              uint64
	TargetKey          ucrypto.PublicKey
	PublicKey          ucrypto.PublicKey
	TxOut              *chain.TxOut
	SubaddressIndex    *uint64
	KeyImage           *ucrypto.KeyImage
	SharedSecret       *ucrypto.PublicKey
	ReceivedBlockIndex *uint64
	SpentBlockIndex    *uint64
	MemoPayload        *chain.MemoPayload
	PendingTombstone   *uint64
	MintedByAccountID  string
}

type ReceivedTxoOpts struct {
	AccountID          string
	TxOut              *chain.TxOut
	Value              uint64
	SubaddressIndex    *uint64
	KeyImage           *ucrypto.KeyImage
	SharedSecret       ucrypto.PublicKey
	ReceivedBlockIndex uint64
	MemoPayload        *chain.MemoPayload
}

// UpsertReceivedTxo records ownership of an output. Re-recording the same
// output is idempotent and never clears a spent block or key image.
func UpsertReceivedTxo(tx Transactor, opts *ReceivedTxoOpts) (*Txo, error) {
	id := opts.TxOut.ID()
	existing, err := GetTxo(tx, id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if existing != nil && existing.AccountID != "" && existing.AccountID != opts.AccountID {
		return nil, errors.Wrapf(ErrIntegrityViolation, "txo %s already received by %s", id, existing.AccountID)
	}

	var memo, memoType interface{}
	if opts.MemoPayload != nil {
		memo = opts.MemoPayload[:]
		memoType = int(opts.MemoPayload.Type())
	}
	var keyImage interface{}
	if opts.KeyImage != nil {
		keyImage = opts.KeyImage[:]
	}

	_, err = tx.Exec(`
INSERT INTO txos (
	id,
	account_id,
	value,
	target_key,
	public_key,
	txo,
	subaddress_index,
	key_image,
	shared_secret,
	received_block_index,
	memo_payload,
	memo_type
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
	account_id = excluded.account_id,
	value = excluded.value,
	subaddress_index = COALESCE(excluded.subaddress_index, txos.subaddress_index),
	key_image = COALESCE(excluded.key_image, txos.key_image),
	shared_secret = excluded.shared_secret,
	received_block_index = COALESCE(txos.received_block_index, excluded.received_block_index),
	memo_payload = excluded.memo_payload,
	memo_type = excluded.memo_type
`,
		id,
		opts.AccountID,
		opts.Value,
		opts.TxOut.TargetKey,
		opts.TxOut.PublicKey,
		opts.TxOut.Bytes(),
		nullIndex(opts.SubaddressIndex),
		keyImage,
		opts.SharedSecret,
		opts.ReceivedBlockIndex,
		memo,
		memoType,
	)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return GetTxo(tx, id)
}

// CreateMintedTxo records an output built by this wallet. It has no
// receiving account until a scan claims it.
func CreateMintedTxo(tx Transactor, out *chain.TxOut, value uint64) (string, error) {
	id := out.ID()
	_, err := tx.Exec(`
INSERT INTO txos (id, value, target_key, public_key, txo)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (id) DO NOTHING
`,
		id,
		value,
		out.TargetKey,
		out.PublicKey,
		out.Bytes(),
	)
	return id, errors.WithStack(err)
}

func GetTxo(q Querier, id string) (*Txo, error) {
	row := q.QueryRow(txoQuery("WHERE txos.id = ?"), id)
	if row.Err() != nil {
		return nil, errors.WithStack(row.Err())
	}
	return scanTxo(row)
}

func GetTxoByPublicKey(q Querier, pub ucrypto.PublicKey) (*Txo, error) {
	row := q.QueryRow(txoQuery("WHERE txos.public_key = ?"), pub)
	if row.Err() != nil {
		return nil, errors.WithStack(row.Err())
	}
	return scanTxo(row)
}

// ListTxos returns every output the account received or minted.
func ListTxos(q Querier, accountID string, count, offset int) ([]*Txo, error) {
	return queryTxos(q, txoQuery(`
WHERE txos.account_id = ? OR minted_by_account_id = ?
ORDER BY COALESCE(txos.received_block_index, 0), txos.id
LIMIT ? OFFSET ?
`),
		accountID,
		accountID,
		count,
		offset,
	)
}

// ListSpendableTxos returns unspent outputs, largest first.
func ListSpendableTxos(q Querier, accountID string) ([]*Txo, error) {
	return queryTxos(q, txoQuery(`
WHERE txos.account_id = ?
AND txos.spent_block_index IS NULL
AND txos.subaddress_index IS NOT NULL
AND pending_tombstone IS NULL
ORDER BY txos.value DESC, txos.id
`),
		accountID,
	)
}

func ListOrphanedTxos(q Querier, accountID string) ([]*Txo, error) {
	return queryTxos(q, txoQuery(`
WHERE txos.account_id = ? AND txos.subaddress_index IS NULL
ORDER BY txos.received_block_index, txos.id
`),
		accountID,
	)
}

func ListTxosByKeyImage(q Querier, ki ucrypto.KeyImage) ([]*Txo, error) {
	return queryTxos(q, txoQuery("WHERE txos.key_image = ?"), ki)
}

// ListTxosMissingKeyImage returns owned outputs whose key image has not
// been computed, the work list for an offline signer.
func ListTxosMissingKeyImage(q Querier, accountID string) ([]*Txo, error) {
	return queryTxos(q, txoQuery(`
WHERE txos.account_id = ?
AND txos.key_image IS NULL
AND txos.subaddress_index IS NOT NULL
ORDER BY txos.received_block_index, txos.id
`),
		accountID,
	)
}

// SetTxoSpent marks a TXO spent at blockIndex. Re-applying the same block
// is a no-op; a different block is an integrity violation.
func SetTxoSpent(tx Transactor, id string, blockIndex uint64) error {
	txo, err := GetTxo(tx, id)
	if err != nil {
		return err
	}
	if txo.SpentBlockIndex != nil {
		if *txo.SpentBlockIndex == blockIndex {
			return nil
		}
		return errors.Wrapf(
			ErrIntegrityViolation,
			"txo %s spent at %d cannot move to %d",
			id,
			*txo.SpentBlockIndex,
			blockIndex,
		)
	}
	_, err = tx.Exec("UPDATE txos SET spent_block_index = ? WHERE id = ?", blockIndex, id)
	return errors.WithStack(err)
}

func SetTxoKeyImage(tx Transactor, id string, ki ucrypto.KeyImage) error {
	txo, err := GetTxo(tx, id)
	if err != nil {
		return err
	}
	if txo.KeyImage != nil && *txo.KeyImage != ki {
		return errors.Wrapf(ErrIntegrityViolation, "txo %s key image cannot change", id)
	}
	_, err = tx.Exec("UPDATE txos SET key_image = ? WHERE id = ?", ki, id)
	return errors.WithStack(err)
}

// ResolveOrphanedTxo attaches a subaddress to an orphaned TXO.
func ResolveOrphanedTxo(tx Transactor, id string, subaddressIndex uint64, ki *ucrypto.KeyImage) error {
	var keyImage interface{}
	if ki != nil {
		keyImage = ki[:]
	}
	_, err := tx.Exec(
		"UPDATE txos SET subaddress_index = ?, key_image = COALESCE(?, key_image) WHERE id = ? AND subaddress_index IS NULL",
		subaddressIndex,
		keyImage,
		id,
	)
	return errors.WithStack(err)
}

func queryTxos(q Querier, query string, args ...interface{}) ([]*Txo, error) {
	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer rows.Close()
	var out []*Txo
	for rows.Next() {
		txo, err := scanTxo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, txo)
	}
	return out, errors.WithStack(rows.Err())
}

func scanTxo(s Scanner) (*Txo, error) {
	txo := new(Txo)
	var accountID sql.NullString
	var rawTxo []byte
	var subIdx, recvIdx, spentIdx, tombstone sql.NullInt64
	var keyImage, sharedSecret, memo []byte
	var mintedBy sql.NullString
	err := s.Scan(
		&txo.ID,
		&accountID,
		&txo.Value,
		&txo.TargetKey,
		&txo.PublicKey,
		&rawTxo,
		&subIdx,
		&keyImage,
		&sharedSecret,
		&recvIdx,
		&spentIdx,
		&memo,
		&tombstone,
		&mintedBy,
	)
	if err != nil {
		return nil, notFound(err)
	}
	out, err := chain.TxOutFromBytes(rawTxo)
	if err != nil {
		return nil, errors.Wrap(err, "error decoding stored txo")
	}
	txo.TxOut = out
	txo.AccountID = accountID.String
	txo.SubaddressIndex = indexPtr(subIdx)
	txo.ReceivedBlockIndex = indexPtr(recvIdx)
	txo.SpentBlockIndex = indexPtr(spentIdx)
	txo.PendingTombstone = indexPtr(tombstone)
	txo.MintedByAccountID = mintedBy.String
	if keyImage != nil {
		ki, err := ucrypto.KeyImageFromBytes(keyImage)
		if err != nil {
			return nil, err
		}
		txo.KeyImage = &ki
	}
	if sharedSecret != nil {
		ss, err := ucrypto.PublicKeyFromBytes(sharedSecret)
		if err != nil {
			return nil, err
		}
		txo.SharedSecret = &ss
	}
	if len(memo) == chain.MemoPayloadSize {
		payload := new(chain.MemoPayload)
		copy(payload[:], memo)
		txo.MemoPayload = payload
	}
	return txo, nil
}

// pending_tombstone is the earliest tombstone among live logs spending the
// TXO. minted_by_account_id ignores failed logs, whose outputs never
// reached the chain.
const baseTxoQuery = `
SELECT * FROM (
	SELECT
		txos.id AS id,
		txos.account_id AS account_id,
		txos.value AS value,
		txos.target_key AS target_key,
		txos.public_key AS public_key,
		txos.txo AS txo,
		txos.subaddress_index AS subaddress_index,
		txos.key_image AS key_image,
		txos.shared_secret AS shared_secret,
		txos.received_block_index AS received_block_index,
		txos.spent_block_index AS spent_block_index,
		txos.memo_payload AS memo_payload,
		(
			SELECT MIN(tl.tombstone_block_index) FROM transaction_input_txos AS ixt
			JOIN transaction_logs AS tl ON tl.id = ixt.transaction_log_id
			WHERE ixt.txo_id = txos.id AND tl.failed = FALSE AND tl.finalized_block_index IS NULL
		) AS pending_tombstone,
		(
			SELECT tl.account_id FROM transaction_output_txos AS oxt
			JOIN transaction_logs AS tl ON tl.id = oxt.transaction_log_id
			WHERE oxt.txo_id = txos.id AND tl.failed = FALSE
			ORDER BY tl.created_at LIMIT 1
		) AS minted_by_account_id
	FROM txos
) AS txos
`

func txoQuery(fragment string) string {
	return baseTxoQuery + " " + fragment
}

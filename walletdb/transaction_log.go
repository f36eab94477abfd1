package walletdb

import (
	"database/sql"
	"github.com/kurumiimari/umbra/chain"
	"github.com/kurumiimari/umbra/ucrypto"
	"github.com/pkg/errors"
	"time"
)

type TransactionLog struct {
	ID                    string
	AccountID             string
	Value                 uint64
	Fee                   uint64
	AssignedSubaddressB58 string
	SubmittedBlockIndex   *uint64
	TombstoneBlockIndex   uint64
	FinalizedBlockIndex   *uint64
	Failed                bool
	SubmitAttempted       bool
	Comment               string
	Tx                    *chain.Tx
	CreatedAt             time.Time
	InputTxoIDs           []string
	Outputs               []*TransactionLogOutput
}

type TransactionLogOutput struct {
	TxoID              string
	RecipientB58       string
	IsChange           bool
	ConfirmationNumber ucrypto.Hash
}

type LogOutputOpts struct {
	TxOut              *chain.TxOut
	Value              uint64
	RecipientB58       string
	IsChange           bool
	ConfirmationNumber ucrypto.Hash
}

type CreateTransactionLogOpts struct {
	AccountID             string
	Value                 uint64
	Fee                   uint64
	AssignedSubaddressB58 string
	Comment               string
	Tx                    *chain.Tx
	InputTxoIDs           []string
	Outputs               []*LogOutputOpts
}

// CreateTransactionLog writes the log, claims its inputs and records its
// outputs as minted TXOs. Inputs that are not unspent for the account fail
// the whole write with ErrTxoUnavailable.
func CreateTransactionLog(tx Transactor, opts *CreateTransactionLogOpts) (*TransactionLog, error) {
	for _, id := range opts.InputTxoIDs {
		txo, err := GetTxo(tx, id)
		if err != nil {
			return nil, errors.Wrapf(err, "error loading input %s", id)
		}
		if DeriveTxoStatus(txo, opts.AccountID) != TxoStatusUnspent {
			return nil, errors.Wrapf(ErrTxoUnavailable, "input %s", id)
		}
	}

	logID := opts.Tx.ID()
	now := time.Now().Unix()
	_, err := tx.Exec(`
INSERT INTO transaction_logs (
	id,
	account_id,
	value,
	fee_value,
	assigned_subaddress_b58,
	tombstone_block_index,
	comment,
	tx,
	created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		logID,
		opts.AccountID,
		opts.Value,
		opts.Fee,
		nullString(opts.AssignedSubaddressB58),
		opts.Tx.TombstoneBlock,
		opts.Comment,
		opts.Tx.Bytes(),
		now,
	)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	for _, id := range opts.InputTxoIDs {
		_, err := tx.Exec(
			"INSERT INTO transaction_input_txos (transaction_log_id, txo_id) VALUES (?, ?)",
			logID,
			id,
		)
		if err != nil {
			return nil, errors.WithStack(err)
		}
	}

	for _, out := range opts.Outputs {
		txoID, err := CreateMintedTxo(tx, out.TxOut, out.Value)
		if err != nil {
			return nil, err
		}
		_, err = tx.Exec(`
INSERT INTO transaction_output_txos (transaction_log_id, txo_id, recipient_public_address_b58, is_change, confirmation_number)
VALUES (?, ?, ?, ?, ?)
`,
			logID,
			txoID,
			out.RecipientB58,
			out.IsChange,
			[]byte(out.ConfirmationNumber),
		)
		if err != nil {
			return nil, errors.WithStack(err)
		}
	}

	return GetTransactionLog(tx, logID)
}

func GetTransactionLog(q Querier, id string) (*TransactionLog, error) {
	row := q.QueryRow(transactionLogQuery("WHERE id = ?"), id)
	if row.Err() != nil {
		return nil, errors.WithStack(row.Err())
	}
	log, err := scanTransactionLog(row)
	if err != nil {
		return nil, err
	}
	if err := fillTransactionLog(q, log); err != nil {
		return nil, err
	}
	return log, nil
}

func ListTransactionLogs(q Querier, accountID string, count, offset int) ([]*TransactionLog, error) {
	rows, err := q.Query(
		transactionLogQuery("WHERE account_id = ? ORDER BY created_at DESC, id LIMIT ? OFFSET ?"),
		accountID,
		count,
		offset,
	)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	var out []*TransactionLog
	for rows.Next() {
		log, err := scanTransactionLog(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, log)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, errors.WithStack(err)
	}
	rows.Close()

	for _, log := range out {
		if err := fillTransactionLog(q, log); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ListTransactionLogsForInput returns every log that spends the TXO.
func ListTransactionLogsForInput(q Querier, txoID string) ([]*TransactionLog, error) {
	rows, err := q.Query(
		transactionLogQuery(`
WHERE id IN (SELECT transaction_log_id FROM transaction_input_txos WHERE txo_id = ?)
ORDER BY created_at, id
`),
		txoID,
	)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer rows.Close()
	var out []*TransactionLog
	for rows.Next() {
		log, err := scanTransactionLog(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, log)
	}
	return out, errors.WithStack(rows.Err())
}

func MarkTransactionLogSubmitted(tx Transactor, id string, blockIndex uint64) error {
	_, err := tx.Exec(
		"UPDATE transaction_logs SET submitted_block_index = ? WHERE id = ? AND failed = FALSE AND finalized_block_index IS NULL",
		blockIndex,
		id,
	)
	return errors.WithStack(err)
}

// MarkTransactionLogAttempted records a delivery attempt whose outcome is
// unknown. Such a log may be on the network even if later attempts are
// refused.
func MarkTransactionLogAttempted(tx Transactor, id string) error {
	_, err := tx.Exec(
		"UPDATE transaction_logs SET submit_attempted = TRUE WHERE id = ? AND failed = FALSE",
		id,
	)
	return errors.WithStack(err)
}

// MarkTransactionLogFailed fails a log that has not finalized. Its inputs
// return to the unspent pool.
func MarkTransactionLogFailed(tx Transactor, id string) error {
	_, err := tx.Exec(
		"UPDATE transaction_logs SET failed = TRUE WHERE id = ? AND finalized_block_index IS NULL",
		id,
	)
	return errors.WithStack(err)
}

// FinalizeLogsForInput finalizes the live logs that spend txoID.
func FinalizeLogsForInput(tx Transactor, txoID string, blockIndex uint64) (int64, error) {
	res, err := tx.Exec(`
UPDATE transaction_logs SET finalized_block_index = ?
WHERE failed = FALSE AND finalized_block_index IS NULL
AND id IN (SELECT transaction_log_id FROM transaction_input_txos WHERE txo_id = ?)
`,
		blockIndex,
		txoID,
	)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	n, err := res.RowsAffected()
	return n, errors.WithStack(err)
}

// FinalizeLogsForOutput finalizes the live logs that minted txoID.
func FinalizeLogsForOutput(tx Transactor, txoID string, blockIndex uint64) (int64, error) {
	res, err := tx.Exec(`
UPDATE transaction_logs SET finalized_block_index = ?
WHERE failed = FALSE AND finalized_block_index IS NULL
AND id IN (SELECT transaction_log_id FROM transaction_output_txos WHERE txo_id = ?)
`,
		blockIndex,
		txoID,
	)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	n, err := res.RowsAffected()
	return n, errors.WithStack(err)
}

// FailExpiredTransactionLogs fails the account's live logs whose tombstone
// block has been scanned past without confirmation.
func FailExpiredTransactionLogs(tx Transactor, accountID string, nextBlockIndex uint64) (int64, error) {
	res, err := tx.Exec(`
UPDATE transaction_logs SET failed = TRUE
WHERE account_id = ? AND failed = FALSE AND finalized_block_index IS NULL
AND tombstone_block_index <= ?
`,
		accountID,
		nextBlockIndex,
	)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	n, err := res.RowsAffected()
	return n, errors.WithStack(err)
}

// SetTransactionLogTx replaces the stored transaction with a signed copy.
// The prefix hash, and so the log ID, must not change.
func SetTransactionLogTx(tx Transactor, id string, signed *chain.Tx) error {
	if signed.ID() != id {
		return errors.New("signed transaction does not match log")
	}
	_, err := tx.Exec("UPDATE transaction_logs SET tx = ? WHERE id = ?", signed.Bytes(), id)
	return errors.WithStack(err)
}

func fillTransactionLog(q Querier, log *TransactionLog) error {
	rows, err := q.Query(
		"SELECT txo_id FROM transaction_input_txos WHERE transaction_log_id = ? ORDER BY txo_id",
		log.ID,
	)
	if err != nil {
		return errors.WithStack(err)
	}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return errors.WithStack(err)
		}
		log.InputTxoIDs = append(log.InputTxoIDs, id)
	}
	rows.Close()

	rows, err = q.Query(
		"SELECT txo_id, recipient_public_address_b58, is_change, confirmation_number FROM transaction_output_txos WHERE transaction_log_id = ? ORDER BY is_change, txo_id",
		log.ID,
	)
	if err != nil {
		return errors.WithStack(err)
	}
	defer rows.Close()
	for rows.Next() {
		out := new(TransactionLogOutput)
		var confirmation []byte
		if err := rows.Scan(&out.TxoID, &out.RecipientB58, &out.IsChange, &confirmation); err != nil {
			return errors.WithStack(err)
		}
		if len(confirmation) > 0 {
			out.ConfirmationNumber = confirmation
		}
		log.Outputs = append(log.Outputs, out)
	}
	return errors.WithStack(rows.Err())
}

func scanTransactionLog(s Scanner) (*TransactionLog, error) {
	log := new(TransactionLog)
	var assigned sql.NullString
	var submitted, finalized sql.NullInt64
	var rawTx []byte
	var createdAt int64
	err := s.Scan(
		&log.ID,
		&log.AccountID,
		&log.Value,
		&log.Fee,
		&assigned,
		&submitted,
		&log.TombstoneBlockIndex,
		&finalized,
		&log.Failed,
		&log.SubmitAttempted,
		&log.Comment,
		&rawTx,
		&createdAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	tx, err := chain.TxFromBytes(rawTx)
	if err != nil {
		return nil, errors.Wrap(err, "error decoding stored transaction")
	}
	log.Tx = tx
	log.AssignedSubaddressB58 = assigned.String
	log.SubmittedBlockIndex = indexPtr(submitted)
	log.FinalizedBlockIndex = indexPtr(finalized)
	log.CreatedAt = time.Unix(createdAt, 0)
	return log, nil
}

const baseTransactionLogQuery = `
SELECT
	id,
	account_id,
	value,
	fee_value,
	assigned_subaddress_b58,
	submitted_block_index,
	tombstone_block_index,
	finalized_block_index,
	failed,
	submit_attempted,
	comment,
	tx,
	created_at
FROM transaction_logs
`

func transactionLogQuery(fragment string) string {
	return baseTransactionLogQuery + " " + fragment
}

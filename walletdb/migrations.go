package walletdb

import (
	"github.com/kurumiimari/umbra/log"
	"github.com/pkg/errors"
	"time"
)

var logger = log.ModuleLogger("migrations")

const CreateMigrationsQuery = `
CREATE TABLE IF NOT EXISTS migrations (
	id INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
	name VARCHAR NOT NULL,
	applied_at INTEGER NOT NULL
);
`

type Migration struct {
	Query string
	Name  string
}

var Migrations = []*Migration{
	{
		Query: `
CREATE TABLE accounts (
	id VARCHAR(64) NOT NULL PRIMARY KEY,
	name VARCHAR NOT NULL DEFAULT '',
	account_key BLOB NOT NULL,
	view_only BOOLEAN NOT NULL DEFAULT FALSE,
	ephemeral BOOLEAN NOT NULL DEFAULT FALSE,
	entropy BLOB,
	key_derivation_version INTEGER NOT NULL DEFAULT 1,
	first_block_index INTEGER NOT NULL DEFAULT 0,
	next_block_index INTEGER NOT NULL DEFAULT 0,
	import_block_index INTEGER,
	next_subaddress_index INTEGER NOT NULL DEFAULT 2,
	key_image_bloom BLOB NOT NULL,
	created_at INTEGER NOT NULL,
	CHECK (next_block_index >= first_block_index)
);
`,
		Name: "create_accounts",
	},
	{
		Query: `
CREATE TABLE assigned_subaddresses (
	public_address_b58 VARCHAR NOT NULL PRIMARY KEY,
	account_id VARCHAR(64) NOT NULL,
	subaddress_index INTEGER NOT NULL,
	comment VARCHAR NOT NULL DEFAULT '',
	spend_public_key BLOB NOT NULL,
	FOREIGN KEY (account_id) REFERENCES accounts(id) ON DELETE CASCADE
);

CREATE UNIQUE INDEX idx_uniq_subaddresses_account_index ON assigned_subaddresses(account_id, subaddress_index);
CREATE UNIQUE INDEX idx_uniq_subaddresses_spend_key ON assigned_subaddresses(account_id, spend_public_key);
`,
		Name: "create_assigned_subaddresses",
	},
	{
		Query: `
CREATE TABLE txos (
	id VARCHAR(64) NOT NULL PRIMARY KEY,
	account_id VARCHAR(64),
	value INTEGER NOT NULL,
	target_key BLOB NOT NULL,
	public_key BLOB NOT NULL,
	txo BLOB NOT NULL,
	subaddress_index INTEGER,
	key_image BLOB,
	shared_secret BLOB,
	received_block_index INTEGER,
	spent_block_index INTEGER,
	memo_payload BLOB,
	memo_type INTEGER,
	FOREIGN KEY (account_id) REFERENCES accounts(id) ON DELETE SET NULL
);

CREATE INDEX idx_txos_account_id ON txos(account_id);
CREATE INDEX idx_txos_key_image ON txos(key_image);
CREATE UNIQUE INDEX idx_uniq_txos_public_key ON txos(public_key);
`,
		Name: "create_txos",
	},
	{
		Query: `
CREATE TABLE transaction_logs (
	id VARCHAR(64) NOT NULL PRIMARY KEY,
	account_id VARCHAR(64) NOT NULL,
	value INTEGER NOT NULL,
	fee_value INTEGER NOT NULL,
	assigned_subaddress_b58 VARCHAR,
	submitted_block_index INTEGER,
	tombstone_block_index INTEGER NOT NULL,
	finalized_block_index INTEGER,
	failed BOOLEAN NOT NULL DEFAULT FALSE,
	comment VARCHAR NOT NULL DEFAULT '',
	tx BLOB NOT NULL,
	created_at INTEGER NOT NULL,
	FOREIGN KEY (account_id) REFERENCES accounts(id) ON DELETE CASCADE
);

CREATE INDEX idx_transaction_logs_account_id ON transaction_logs(account_id);

CREATE TABLE transaction_input_txos (
	transaction_log_id VARCHAR(64) NOT NULL,
	txo_id VARCHAR(64) NOT NULL,
	PRIMARY KEY (transaction_log_id, txo_id),
	FOREIGN KEY (transaction_log_id) REFERENCES transaction_logs(id) ON DELETE CASCADE,
	FOREIGN KEY (txo_id) REFERENCES txos(id) ON DELETE CASCADE
);

CREATE INDEX idx_transaction_input_txos_txo_id ON transaction_input_txos(txo_id);

CREATE TABLE transaction_output_txos (
	transaction_log_id VARCHAR(64) NOT NULL,
	txo_id VARCHAR(64) NOT NULL,
	recipient_public_address_b58 VARCHAR NOT NULL,
	is_change BOOLEAN NOT NULL,
	PRIMARY KEY (transaction_log_id, txo_id),
	FOREIGN KEY (transaction_log_id) REFERENCES transaction_logs(id) ON DELETE CASCADE,
	FOREIGN KEY (txo_id) REFERENCES txos(id) ON DELETE CASCADE
);

CREATE INDEX idx_transaction_output_txos_txo_id ON transaction_output_txos(txo_id);
`,
		Name: "create_transaction_logs",
	},
	{
		Query: `
CREATE TABLE authenticated_sender_memos (
	txo_id VARCHAR(64) NOT NULL PRIMARY KEY,
	sender_address_hash BLOB NOT NULL,
	payment_request_id INTEGER,
	payment_intent_id INTEGER,
	FOREIGN KEY (txo_id) REFERENCES txos(id) ON DELETE CASCADE
);

CREATE TABLE destination_memos (
	txo_id VARCHAR(64) NOT NULL PRIMARY KEY,
	recipient_address_hash BLOB NOT NULL,
	num_recipients INTEGER NOT NULL,
	fee INTEGER NOT NULL,
	total_outlay INTEGER NOT NULL,
	payment_request_id INTEGER,
	payment_intent_id INTEGER,
	FOREIGN KEY (txo_id) REFERENCES txos(id) ON DELETE CASCADE
);
`,
		Name: "create_memos",
	},
	{
		Query: `
CREATE TABLE gift_codes (
	id INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
	gift_code_b58 VARCHAR NOT NULL,
	value INTEGER NOT NULL,
	memo VARCHAR NOT NULL DEFAULT '',
	funding_account_id VARCHAR(64),
	transaction_log_id VARCHAR(64),
	txo_public_key BLOB NOT NULL,
	ephemeral_account_id VARCHAR(64) NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE UNIQUE INDEX idx_uniq_gift_codes_b58 ON gift_codes(gift_code_b58);
`,
		Name: "create_gift_codes",
	},
	{
		Query: `
ALTER TABLE transaction_logs ADD COLUMN submit_attempted BOOLEAN NOT NULL DEFAULT FALSE;
`,
		Name: "add_transaction_logs_submit_attempted",
	},
	{
		Query: `
ALTER TABLE transaction_output_txos ADD COLUMN confirmation_number BLOB;
`,
		Name: "add_transaction_output_txos_confirmation_number",
	},
}

func MigrateDB(engine *Engine) error {
	return engine.Transaction(func(tx Transactor) error {
		logger.Debug("creating migrations table")
		_, err := tx.Exec(CreateMigrationsQuery)
		if err != nil {
			return errors.WithStack(err)
		}

		migRow := tx.QueryRow("SELECT COALESCE(MAX(id), 0) FROM migrations")
		if migRow.Err() != nil {
			return errors.WithStack(migRow.Err())
		}
		var latestMigID int
		if err := migRow.Scan(&latestMigID); err != nil {
			return errors.WithStack(err)
		}

		if latestMigID == len(Migrations) {
			logger.Info("migrations up to date")
			return nil
		}

		logger.Info("running migrations")
		for i := latestMigID; i < len(Migrations); i++ {
			mig := Migrations[i]
			logger.Debug("executing migration", "name", mig.Name, "version", i)
			if err := ExecMigration(tx, mig); err != nil {
				return err
			}
		}
		logger.Info("successfully migrated database")
		return nil
	})
}

func ExecMigration(tx Transactor, migration *Migration) error {
	if _, err := tx.Exec(migration.Query); err != nil {
		return errors.Wrapf(err, "error executing migration %s", migration.Name)
	}
	_, err := tx.Exec(
		"INSERT INTO migrations (name, applied_at) VALUES (?, ?)",
		migration.Name,
		time.Now().Unix(),
	)
	if err != nil {
		return errors.WithStack(err)
	}
	return nil
}

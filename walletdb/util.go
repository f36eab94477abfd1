package walletdb

import (
	"database/sql"
	"github.com/pkg/errors"
)

func nullIndex(v *uint64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func indexPtr(v sql.NullInt64) *uint64 {
	if !v.Valid {
		return nil
	}
	out := uint64(v.Int64)
	return &out
}

func uint64Ptr(v uint64) *uint64 {
	return &v
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return errors.WithStack(err)
}

func scanBalance(q Querier, query string, queryArgs ...interface{}) (uint64, error) {
	row := q.QueryRow(query, queryArgs...)
	if row.Err() != nil {
		return 0, errors.WithStack(row.Err())
	}
	var bal uint64
	if err := row.Scan(&bal); err != nil {
		return 0, errors.WithStack(err)
	}
	return bal, nil
}

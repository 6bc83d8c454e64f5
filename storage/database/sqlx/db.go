// Package sqlxrepos implements the core repositories on PostgreSQL
// using sqlx for scanning and squirrel for query building.
package sqlxrepos

import (
	"database/sql"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

// psql builds queries with PostgreSQL's $N placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// trapNoRowsErr maps psql "no rows" err to core.ErrNotFound
func trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return core.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func orderBy(ordering []core.DBOrdering, fallback string) string {
	if len(ordering) == 0 {
		return fallback
	}
	orderList := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		orderList = append(orderList, ord.String())
	}
	return strings.Join(orderList, ", ")
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

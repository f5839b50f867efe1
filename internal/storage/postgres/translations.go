package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// translationTable describes a per-locale side table keyed by
// (ownerColumn, locale).
type translationTable struct {
	name        string
	ownerColumn string
	columns     []string
}

// replace deletes every translation row of owner and copies in the new set.
// Callers run it in the same transaction as the parent write.
func (t translationTable) replace(ctx context.Context, q queryer, owner string, rows [][]any) error {
	if _, err := q.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, t.name, t.ownerColumn), owner); err != nil {
		return fmt.Errorf("delete %s: %w", t.name, err)
	}
	if len(rows) == 0 {
		return nil
	}
	full := make([][]any, len(rows))
	for i, row := range rows {
		full[i] = append([]any{owner}, row...)
	}
	columns := append([]string{t.ownerColumn, "locale"}, t.columns...)
	if _, err := q.CopyFrom(ctx, pgx.Identifier{t.name}, columns, pgx.CopyFromRows(full)); err != nil {
		return fmt.Errorf("copy %s: %w", t.name, err)
	}
	return nil
}

// loadTranslations fetches translations for owners and groups them by owner and locale.
// scan receives the row positioned after owner and locale.
func loadTranslations[T any](ctx context.Context, q queryer, t translationTable, owners []string, scan func(pgx.Rows, *string, *string) (T, error)) (map[string]map[string]T, error) {
	out := make(map[string]map[string]T, len(owners))
	if len(owners) == 0 {
		return out, nil
	}
	query := fmt.Sprintf(`SELECT %s, locale, %s FROM %s WHERE %s = ANY($1) ORDER BY %s, locale`,
		t.ownerColumn, strings.Join(t.columns, ", "), t.name, t.ownerColumn, t.ownerColumn)
	rows, err := q.Query(ctx, query, owners)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", t.name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var owner, locale string
		value, err := scan(rows, &owner, &locale)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.name, err)
		}
		if out[owner] == nil {
			out[owner] = map[string]T{}
		}
		out[owner][locale] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", t.name, err)
	}
	return out, nil
}

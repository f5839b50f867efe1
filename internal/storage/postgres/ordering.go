package postgres

import (
	"context"
	"fmt"

	"github.com/vitrin-cms/server/internal/domain/content"
)

// nextSortOrder returns one past the highest sort_order in table.
func nextSortOrder(ctx context.Context, q queryer, table string) (int, error) {
	var next int
	if err := q.QueryRow(ctx, `SELECT COALESCE(MAX(sort_order) + 1, 0) FROM `+table).Scan(&next); err != nil {
		return 0, fmt.Errorf("next sort order for %s: %w", table, err)
	}
	return next, nil
}

// reorder assigns each id its index as sort_order in one transaction. Every
// id must exist, otherwise nothing is changed and ErrNotFound is returned.
// The ids must also cover the whole table so no two rows share a position.
func (c conn) reorder(ctx context.Context, table string, ids []string) error {
	return c.inTx(ctx, func(q queryer) error {
		tag, err := q.Exec(ctx, `
UPDATE `+table+` AS t
   SET sort_order = o.position - 1, updated_at = now()
  FROM unnest($1::text[]) WITH ORDINALITY AS o(id, position)
 WHERE t.id = o.id
`, ids)
		if err != nil {
			return fmt.Errorf("reorder %s: %w", table, err)
		}
		if tag.RowsAffected() != int64(len(ids)) {
			return content.ErrNotFound
		}
		var total int
		if err := q.QueryRow(ctx, `SELECT count(*) FROM `+table).Scan(&total); err != nil {
			return fmt.Errorf("count %s: %w", table, err)
		}
		if total != len(ids) {
			problems := content.Problems{}
			problems.Add("ids", fmt.Sprintf("must list all %d items", total))
			return problems.Err()
		}
		return nil
	})
}

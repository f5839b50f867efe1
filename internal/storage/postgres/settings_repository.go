package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/vitrin-cms/server/internal/domain/settings"
)

var _ settings.Repository = (*SettingsRepository)(nil)

type SettingsRepository struct {
	conn
}

var settingTranslations = translationTable{
	name:        "setting_translations",
	ownerColumn: "setting_key",
	columns:     []string{"value"},
}

func (r *SettingsRepository) All(ctx context.Context) (map[string]settings.Stored, error) {
	q := r.queryer()
	rows, err := q.Query(ctx, `SELECT key, value, updated_at FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	out := map[string]settings.Stored{}
	var keys []string
	for rows.Next() {
		var s settings.Stored
		if err := rows.Scan(&s.Key, &s.Value, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan settings: %w", err)
		}
		out[s.Key] = s
		keys = append(keys, s.Key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate settings: %w", err)
	}

	translations, err := loadTranslations(ctx, q, settingTranslations, keys,
		func(rows pgx.Rows, owner, locale *string) (string, error) {
			var value string
			err := rows.Scan(owner, locale, &value)
			return value, err
		})
	if err != nil {
		return nil, err
	}
	for key, values := range translations {
		s := out[key]
		s.Translations = values
		out[key] = s
	}
	return out, nil
}

func (r *SettingsRepository) Upsert(ctx context.Context, values []settings.Stored) error {
	return r.inTx(ctx, func(q queryer) error {
		for _, s := range values {
			if _, err := q.Exec(ctx, `
INSERT INTO settings (key, value, updated_at) VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
`, s.Key, s.Value); err != nil {
				return fmt.Errorf("upsert setting %s: %w", s.Key, err)
			}
			if s.Translations == nil {
				continue
			}
			rows := make([][]any, 0, len(s.Translations))
			for locale, value := range s.Translations {
				rows = append(rows, []any{locale, value})
			}
			if err := settingTranslations.replace(ctx, q, s.Key, rows); err != nil {
				return err
			}
		}
		return nil
	})
}

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/vitrin-cms/server/internal/api/pagination"
	"github.com/vitrin-cms/server/internal/domain/content"
	"github.com/vitrin-cms/server/internal/domain/team"
)

var _ team.Repository = (*TeamRepository)(nil)

type TeamRepository struct {
	conn
}

var teamTranslations = translationTable{
	name:        "team_member_translations",
	ownerColumn: "member_id",
	columns:     []string{"name", "position", "bio", "bio_doc"},
}

const teamColumns = `m.id, m.slug, m.photo_url, m.email, m.phone, m.linkedin_url, m.sort_order, m.status, m.created_at, m.updated_at`

func scanMember(row pgx.Row) (team.Member, error) {
	var m team.Member
	err := row.Scan(&m.ID, &m.Slug, &m.PhotoURL, &m.Email, &m.Phone, &m.LinkedInURL, &m.SortOrder, &m.Status, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

func scanMemberTranslation(rows pgx.Rows, owner, locale *string) (team.Translation, error) {
	var t team.Translation
	var doc []byte
	err := rows.Scan(owner, locale, &t.Name, &t.Position, &t.Bio, &doc)
	t.BioDoc = doc
	return t, err
}

func (r *TeamRepository) List(ctx context.Context, params content.ListParams) (content.Page[team.Member], error) {
	q := r.queryer()

	var cursorPos *int
	var cursorID *string
	if params.After != "" {
		cursor, err := pagination.DecodeOrderCursor(params.After)
		if err != nil {
			return content.Page[team.Member]{}, err
		}
		cursorPos, cursorID = &cursor.Position, &cursor.ID
	}
	limit := params.Limit
	if limit <= 0 {
		limit = content.DefaultLimit
	}

	rows, err := q.Query(ctx, `
SELECT `+teamColumns+`
  FROM team_members m
 WHERE ($1 = '' OR m.status = $1)
   AND ($2 = '' OR EXISTS (
         SELECT 1 FROM team_member_translations t
          WHERE t.member_id = m.id AND (t.name ILIKE $2 OR t.position ILIKE $2)))
   AND ($3::int IS NULL OR (m.sort_order, m.id) > ($3::int, $4::text))
 ORDER BY m.sort_order ASC, m.id ASC
 LIMIT $5
`, string(params.Status), likePattern(params.Query), cursorPos, cursorID, limit+1)
	if err != nil {
		return content.Page[team.Member]{}, fmt.Errorf("list team members: %w", err)
	}
	defer rows.Close()

	items := make([]team.Member, 0, limit+1)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return content.Page[team.Member]{}, fmt.Errorf("scan team members: %w", err)
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return content.Page[team.Member]{}, fmt.Errorf("iterate team members: %w", err)
	}
	if err := r.attach(ctx, q, items); err != nil {
		return content.Page[team.Member]{}, err
	}
	return content.Paginate(items, limit, func(m team.Member) string {
		return pagination.EncodeOrderCursor(m.SortOrder, m.ID)
	}), nil
}

func (r *TeamRepository) attach(ctx context.Context, q queryer, items []team.Member) error {
	owners := make([]string, len(items))
	for i, m := range items {
		owners[i] = m.ID
	}
	translations, err := loadTranslations(ctx, q, teamTranslations, owners, scanMemberTranslation)
	if err != nil {
		return err
	}
	for i := range items {
		items[i].Translations = translations[items[i].ID]
		if items[i].Translations == nil {
			items[i].Translations = map[string]team.Translation{}
		}
	}
	return nil
}

func (r *TeamRepository) Get(ctx context.Context, id string) (*team.Member, error) {
	q := r.queryer()
	m, err := scanMember(q.QueryRow(ctx, `SELECT `+teamColumns+` FROM team_members m WHERE m.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, content.ErrNotFound
		}
		return nil, fmt.Errorf("get team member: %w", err)
	}
	items := []team.Member{m}
	if err := r.attach(ctx, q, items); err != nil {
		return nil, err
	}
	return &items[0], nil
}

func memberTranslationRows(translations map[string]team.Translation) [][]any {
	rows := make([][]any, 0, len(translations))
	for locale, t := range translations {
		rows = append(rows, []any{locale, t.Name, t.Position, t.Bio, nullableJSON(t.BioDoc)})
	}
	return rows
}

func (r *TeamRepository) Create(ctx context.Context, member team.Member) (*team.Member, error) {
	err := r.inTx(ctx, func(q queryer) error {
		if err := q.QueryRow(ctx, `
INSERT INTO team_members (id, slug, photo_url, email, phone, linkedin_url, sort_order, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING created_at, updated_at
`, member.ID, member.Slug, member.PhotoURL, member.Email, member.Phone, member.LinkedInURL, member.SortOrder, member.Status,
		).Scan(&member.CreatedAt, &member.UpdatedAt); err != nil {
			if uniqueViolationOn(err) {
				return content.ErrSlugTaken
			}
			return fmt.Errorf("insert team member: %w", err)
		}
		return teamTranslations.replace(ctx, q, member.ID, memberTranslationRows(member.Translations))
	})
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *TeamRepository) Update(ctx context.Context, member team.Member) (*team.Member, error) {
	err := r.inTx(ctx, func(q queryer) error {
		if err := q.QueryRow(ctx, `
UPDATE team_members
   SET slug = $2, photo_url = $3, email = $4, phone = $5, linkedin_url = $6, sort_order = $7, status = $8,
       updated_at = now()
 WHERE id = $1
RETURNING created_at, updated_at
`, member.ID, member.Slug, member.PhotoURL, member.Email, member.Phone, member.LinkedInURL, member.SortOrder, member.Status,
		).Scan(&member.CreatedAt, &member.UpdatedAt); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return content.ErrNotFound
			}
			if uniqueViolationOn(err) {
				return content.ErrSlugTaken
			}
			return fmt.Errorf("update team member: %w", err)
		}
		return teamTranslations.replace(ctx, q, member.ID, memberTranslationRows(member.Translations))
	})
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *TeamRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.queryer(), "team_members", id)
}

func (r *TeamRepository) NextSortOrder(ctx context.Context) (int, error) {
	return nextSortOrder(ctx, r.queryer(), "team_members")
}

func (r *TeamRepository) Reorder(ctx context.Context, ids []string) error {
	return r.reorder(ctx, "team_members", ids)
}

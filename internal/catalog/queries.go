package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"cardhub/pkg/models"
	"cardhub/pkg/textutil"
)

// ListQuery filters faction listings.
type ListQuery struct {
	Q      string // keyword search in name/description
	Limit  int
	Offset int
}

// CardQuery filters card listings.
type CardQuery struct {
	Faction string // faction name, normalized before matching
	Type    string // "minion" / "action"
	Q       string // keyword search in name/effect
	Limit   int
	Offset  int
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func (r *Repo) GetFactionByName(ctx context.Context, name string) (*models.Faction, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, name, description, source_url
		FROM factions
		WHERE name_key = ?
	`, textutil.NormalizeKey(name))

	var (
		f           models.Faction
		description sql.NullString
		sourceURL   sql.NullString
	)
	if err := row.Scan(&f.ID, &f.Name, &description, &sourceURL); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan faction: %w", err)
	}
	f.Description = description.String
	f.SourceURL = sourceURL.String
	return &f, nil
}

func (r *Repo) ListFactions(ctx context.Context, q ListQuery) ([]models.Faction, error) {
	limit, offset := clampPage(q.Limit, q.Offset)

	var where string
	var args []any
	if strings.TrimSpace(q.Q) != "" {
		where = ` WHERE (LOWER(name) LIKE ? OR LOWER(description) LIKE ?)`
		kw := "%" + strings.ToLower(strings.TrimSpace(q.Q)) + "%"
		args = append(args, kw, kw)
	}
	args = append(args, limit, offset)

	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, name, description, source_url
		FROM factions`+where+`
		ORDER BY name_key ASC
		LIMIT ? OFFSET ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("list factions: %w", err)
	}
	defer rows.Close()

	out := make([]models.Faction, 0, limit)
	for rows.Next() {
		var (
			f           models.Faction
			description sql.NullString
			sourceURL   sql.NullString
		)
		if err := rows.Scan(&f.ID, &f.Name, &description, &sourceURL); err != nil {
			return nil, fmt.Errorf("scan faction row: %w", err)
		}
		f.Description = description.String
		f.SourceURL = sourceURL.String
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *Repo) CountFactions(ctx context.Context) (int, error) {
	var n int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM factions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count factions: %w", err)
	}
	return n, nil
}

func (r *Repo) GetCard(ctx context.Context, faction, name string) (*models.Card, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT c.id, f.name, c.name, c.card_type, c.power, c.effect, c.source_url
		FROM cards c
		JOIN factions f ON f.id = c.faction_id
		WHERE f.name_key = ? AND c.name_key = ?
	`, textutil.NormalizeKey(faction), textutil.NormalizeKey(name))

	c, err := scanCard(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan card: %w", err)
	}
	return c, nil
}

func (r *Repo) ListCards(ctx context.Context, q CardQuery) ([]models.Card, error) {
	limit, offset := clampPage(q.Limit, q.Offset)
	sqlStr, args := buildCardSQL(q, false)
	args = append(args, limit, offset)

	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	out := make([]models.Card, 0, limit)
	for rows.Next() {
		c, err := scanCard(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan card row: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *Repo) CountCards(ctx context.Context, q CardQuery) (int, error) {
	sqlStr, args := buildCardSQL(q, true)
	var n int
	if err := r.DB.QueryRowContext(ctx, sqlStr, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count cards: %w", err)
	}
	return n, nil
}

// buildCardSQL builds either COUNT(*) or the SELECT list for cards.
func buildCardSQL(q CardQuery, countOnly bool) (string, []any) {
	sel := `
		SELECT c.id, f.name, c.name, c.card_type, c.power, c.effect, c.source_url
		FROM cards c
		JOIN factions f ON f.id = c.faction_id
	`
	if countOnly {
		sel = `SELECT COUNT(*) FROM cards c JOIN factions f ON f.id = c.faction_id`
	}

	var where []string
	var args []any

	if strings.TrimSpace(q.Faction) != "" {
		where = append(where, "f.name_key = ?")
		args = append(args, textutil.NormalizeKey(q.Faction))
	}
	if strings.TrimSpace(q.Type) != "" {
		where = append(where, "c.card_type = ?")
		args = append(args, strings.ToLower(strings.TrimSpace(q.Type)))
	}
	if strings.TrimSpace(q.Q) != "" {
		where = append(where, "(LOWER(c.name) LIKE ? OR LOWER(c.effect) LIKE ?)")
		kw := "%" + strings.ToLower(strings.TrimSpace(q.Q)) + "%"
		args = append(args, kw, kw)
	}

	if len(where) > 0 {
		sel += " WHERE " + strings.Join(where, " AND ")
	}
	if !countOnly {
		sel += " ORDER BY f.name_key ASC, c.name_key ASC LIMIT ? OFFSET ?"
	}
	return sel, args
}

func scanCard(scan func(...any) error) (*models.Card, error) {
	var (
		c         models.Card
		power     sql.NullInt64
		effect    sql.NullString
		sourceURL sql.NullString
	)
	if err := scan(&c.ID, &c.FactionName, &c.Name, &c.Type, &power, &effect, &sourceURL); err != nil {
		return nil, err
	}
	if power.Valid {
		p := int(power.Int64)
		c.Power = &p
	}
	c.Effect = effect.String
	c.SourceURL = sourceURL.String
	return &c, nil
}

func (r *Repo) GetSetByName(ctx context.Context, name string) (*models.Set, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, name, release_slug, source_url
		FROM sets
		WHERE name_key = ?
	`, textutil.NormalizeKey(name))

	var (
		s           models.Set
		releaseSlug sql.NullString
		sourceURL   sql.NullString
	)
	if err := row.Scan(&s.ID, &s.Name, &releaseSlug, &sourceURL); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan set: %w", err)
	}
	s.ReleaseSlug = releaseSlug.String
	s.SourceURL = sourceURL.String

	factions, err := r.setMembers(ctx, s.ID)
	if err != nil {
		return nil, err
	}
	s.Factions = factions
	return &s, nil
}

func (r *Repo) ListSets(ctx context.Context) ([]models.Set, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, name, release_slug, source_url
		FROM sets
		ORDER BY name_key ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list sets: %w", err)
	}
	defer rows.Close()

	var out []models.Set
	for rows.Next() {
		var (
			s           models.Set
			releaseSlug sql.NullString
			sourceURL   sql.NullString
		)
		if err := rows.Scan(&s.ID, &s.Name, &releaseSlug, &sourceURL); err != nil {
			return nil, fmt.Errorf("scan set row: %w", err)
		}
		s.ReleaseSlug = releaseSlug.String
		s.SourceURL = sourceURL.String
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		factions, err := r.setMembers(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Factions = factions
	}
	return out, nil
}

func (r *Repo) setMembers(ctx context.Context, setID int64) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT faction_name
		FROM set_factions
		WHERE set_id = ?
		ORDER BY position
	`, setID)
	if err != nil {
		return nil, fmt.Errorf("set members: %w", err)
	}
	defer rows.Close()

	names := make([]string, 0, 4)
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan set member: %w", err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

func (r *Repo) GetBaseByName(ctx context.Context, name string) (*models.Base, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, name, breakpoint, first_place, second_place, third_place, effect, source_url
		FROM bases
		WHERE name_key = ?
	`, textutil.NormalizeKey(name))

	b, err := scanBase(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan base: %w", err)
	}
	return b, nil
}

func (r *Repo) ListBases(ctx context.Context, q ListQuery) ([]models.Base, error) {
	limit, offset := clampPage(q.Limit, q.Offset)

	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, name, breakpoint, first_place, second_place, third_place, effect, source_url
		FROM bases
		ORDER BY name_key ASC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list bases: %w", err)
	}
	defer rows.Close()

	out := make([]models.Base, 0, limit)
	for rows.Next() {
		b, err := scanBase(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan base row: %w", err)
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func scanBase(scan func(...any) error) (*models.Base, error) {
	var (
		b         models.Base
		effect    sql.NullString
		sourceURL sql.NullString
	)
	if err := scan(&b.ID, &b.Name, &b.Breakpoint, &b.FirstPlace, &b.SecondPlace, &b.ThirdPlace, &effect, &sourceURL); err != nil {
		return nil, err
	}
	b.Effect = effect.String
	b.SourceURL = sourceURL.String
	return &b, nil
}

// FactionNames returns the display names of all stored factions, used to
// drive the card extractor.
func (r *Repo) FactionNames(ctx context.Context) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT name FROM factions ORDER BY name_key ASC`)
	if err != nil {
		return nil, fmt.Errorf("faction names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan faction name: %w", err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"cardhub/pkg/models"
	"cardhub/pkg/textutil"
)

// Repo owns persistence for the scraped card catalog. All writes go through
// upserts keyed by normalized natural key, so repeated scrapes of the same
// source converge to the same rows. The per-batch transaction is the
// serialization point: concurrent upserts for one entity type never
// interleave writes to the same key.
type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// BatchResult aggregates the outcomes of one bulk upsert.
type BatchResult struct {
	Inserted  int
	Updated   int
	Unchanged int
	Skipped   int
	// SkippedCauses holds the typed error behind each skipped record, so
	// callers can classify skips with errors.As before flattening them.
	SkippedCauses []error
}

func (b *BatchResult) add(o models.Outcome) {
	switch o {
	case models.OutcomeInserted:
		b.Inserted++
	case models.OutcomeUpdated:
		b.Updated++
	case models.OutcomeUnchanged:
		b.Unchanged++
	}
}

// UpsertBatch persists a scrape run's records for one entity type inside a
// single transaction: either the whole batch commits or none of it does.
// Records whose dependency cannot be resolved (card → missing faction) are
// skipped and counted, not fatal to the batch.
func (r *Repo) UpsertBatch(ctx context.Context, entity models.EntityType, recs []models.Record) (*BatchResult, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, &Error{Kind: KindTransactionAborted, Entity: entity, Err: fmt.Errorf("begin tx: %w", err)}
	}
	defer tx.Rollback()

	result := &BatchResult{}
	for _, rec := range recs {
		if rec.EntityType() != entity {
			return nil, fmt.Errorf("upsert batch: %s record in %s batch", rec.EntityType(), entity)
		}

		outcome, err := upsertTx(ctx, tx, rec)
		if err != nil {
			if IsMissingDependency(err) {
				result.Skipped++
				result.SkippedCauses = append(result.SkippedCauses, err)
				continue
			}
			return nil, err
		}
		result.add(outcome)
	}

	if err := tx.Commit(); err != nil {
		return nil, &Error{Kind: KindTransactionAborted, Entity: entity, Err: fmt.Errorf("commit tx: %w", err)}
	}
	return result, nil
}

// Upsert persists a single record in its own transaction and reports the
// exact outcome.
func (r *Repo) Upsert(ctx context.Context, rec models.Record) (models.Outcome, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return "", &Error{Kind: KindTransactionAborted, Entity: rec.EntityType(), Key: rec.NaturalKey(), Err: fmt.Errorf("begin tx: %w", err)}
	}
	defer tx.Rollback()

	outcome, err := upsertTx(ctx, tx, rec)
	if err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", &Error{Kind: KindTransactionAborted, Entity: rec.EntityType(), Key: rec.NaturalKey(), Err: fmt.Errorf("commit tx: %w", err)}
	}
	return outcome, nil
}

func upsertTx(ctx context.Context, tx *sql.Tx, rec models.Record) (models.Outcome, error) {
	switch v := rec.(type) {
	case models.Faction:
		return upsertFactionTx(ctx, tx, v)
	case models.Set:
		return upsertSetTx(ctx, tx, v)
	case models.Base:
		return upsertBaseTx(ctx, tx, v)
	case models.Card:
		return upsertCardTx(ctx, tx, v)
	default:
		return "", fmt.Errorf("upsert: unsupported record type %T", rec)
	}
}

func upsertFactionTx(ctx context.Context, tx *sql.Tx, f models.Faction) (models.Outcome, error) {
	key := f.NaturalKey()

	var (
		id          int64
		description sql.NullString
		sourceURL   sql.NullString
	)
	err := tx.QueryRowContext(ctx, `
		SELECT id, description, source_url
		FROM factions
		WHERE name_key = ?
	`, key).Scan(&id, &description, &sourceURL)

	if err == sql.ErrNoRows {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO factions (name, name_key, description, source_url)
			VALUES (?, ?, ?, ?)
		`, strings.TrimSpace(f.Name), key, nullString(f.Description), nullString(f.SourceURL))
		if err != nil {
			return "", wrapExec(models.EntityFaction, key, err)
		}
		return models.OutcomeInserted, nil
	}
	if err != nil {
		return "", fmt.Errorf("select faction %q: %w", key, err)
	}

	if sameString(description, f.Description) && sameString(sourceURL, f.SourceURL) {
		return models.OutcomeUnchanged, nil
	}

	// first-seen display casing is kept: the name column is never updated
	if _, err := tx.ExecContext(ctx, `
		UPDATE factions
		SET description = ?, source_url = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, nullString(f.Description), nullString(f.SourceURL), id); err != nil {
		return "", wrapExec(models.EntityFaction, key, err)
	}
	return models.OutcomeUpdated, nil
}

func upsertSetTx(ctx context.Context, tx *sql.Tx, s models.Set) (models.Outcome, error) {
	key := s.NaturalKey()

	var (
		id          int64
		releaseSlug sql.NullString
		sourceURL   sql.NullString
	)
	err := tx.QueryRowContext(ctx, `
		SELECT id, release_slug, source_url
		FROM sets
		WHERE name_key = ?
	`, key).Scan(&id, &releaseSlug, &sourceURL)

	if err == sql.ErrNoRows {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO sets (name, name_key, release_slug, source_url)
			VALUES (?, ?, ?, ?)
		`, strings.TrimSpace(s.Name), key, nullString(s.ReleaseSlug), nullString(s.SourceURL))
		if err != nil {
			return "", wrapExec(models.EntitySet, key, err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return "", fmt.Errorf("set insert id: %w", err)
		}
		if err := replaceSetFactions(ctx, tx, id, key, s.Factions); err != nil {
			return "", err
		}
		return models.OutcomeInserted, nil
	}
	if err != nil {
		return "", fmt.Errorf("select set %q: %w", key, err)
	}

	existing, err := setFactionNames(ctx, tx, id)
	if err != nil {
		return "", err
	}

	if sameString(releaseSlug, s.ReleaseSlug) && sameString(sourceURL, s.SourceURL) && sameNames(existing, s.Factions) {
		return models.OutcomeUnchanged, nil
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE sets
		SET release_slug = ?, source_url = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, nullString(s.ReleaseSlug), nullString(s.SourceURL), id); err != nil {
		return "", wrapExec(models.EntitySet, key, err)
	}
	if err := replaceSetFactions(ctx, tx, id, key, s.Factions); err != nil {
		return "", err
	}
	return models.OutcomeUpdated, nil
}

func replaceSetFactions(ctx context.Context, tx *sql.Tx, setID int64, setKey string, names []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM set_factions WHERE set_id = ?`, setID); err != nil {
		return wrapExec(models.EntitySet, setKey, err)
	}
	seen := make(map[string]bool, len(names))
	pos := 0
	for _, name := range names {
		nk := textutil.NormalizeKey(name)
		if nk == "" || seen[nk] {
			continue
		}
		seen[nk] = true
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO set_factions (set_id, position, faction_name, faction_name_key)
			VALUES (?, ?, ?, ?)
		`, setID, pos, strings.TrimSpace(name), nk); err != nil {
			return wrapExec(models.EntitySet, setKey, err)
		}
		pos++
	}
	return nil
}

func setFactionNames(ctx context.Context, tx *sql.Tx, setID int64) ([]string, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT faction_name
		FROM set_factions
		WHERE set_id = ?
		ORDER BY position
	`, setID)
	if err != nil {
		return nil, fmt.Errorf("select set factions: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan set faction: %w", err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

func upsertBaseTx(ctx context.Context, tx *sql.Tx, b models.Base) (models.Outcome, error) {
	key := b.NaturalKey()

	var (
		id                   int64
		breakpoint           int
		first, second, third int
		effect, sourceURL    sql.NullString
	)
	err := tx.QueryRowContext(ctx, `
		SELECT id, breakpoint, first_place, second_place, third_place, effect, source_url
		FROM bases
		WHERE name_key = ?
	`, key).Scan(&id, &breakpoint, &first, &second, &third, &effect, &sourceURL)

	if err == sql.ErrNoRows {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO bases (name, name_key, breakpoint, first_place, second_place, third_place, effect, source_url)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, strings.TrimSpace(b.Name), key, b.Breakpoint, b.FirstPlace, b.SecondPlace, b.ThirdPlace,
			nullString(b.Effect), nullString(b.SourceURL))
		if err != nil {
			return "", wrapExec(models.EntityBase, key, err)
		}
		return models.OutcomeInserted, nil
	}
	if err != nil {
		return "", fmt.Errorf("select base %q: %w", key, err)
	}

	if breakpoint == b.Breakpoint && first == b.FirstPlace && second == b.SecondPlace && third == b.ThirdPlace &&
		sameString(effect, b.Effect) && sameString(sourceURL, b.SourceURL) {
		return models.OutcomeUnchanged, nil
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE bases
		SET breakpoint = ?, first_place = ?, second_place = ?, third_place = ?,
		    effect = ?, source_url = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, b.Breakpoint, b.FirstPlace, b.SecondPlace, b.ThirdPlace,
		nullString(b.Effect), nullString(b.SourceURL), id); err != nil {
		return "", wrapExec(models.EntityBase, key, err)
	}
	return models.OutcomeUpdated, nil
}

func upsertCardTx(ctx context.Context, tx *sql.Tx, c models.Card) (models.Outcome, error) {
	key := c.NaturalKey()
	factionKey := textutil.NormalizeKey(c.FactionName)

	// the faction reference must resolve inside this transaction; we never
	// insert a dangling card row
	var factionID int64
	err := tx.QueryRowContext(ctx, `
		SELECT id FROM factions WHERE name_key = ?
	`, factionKey).Scan(&factionID)
	if err == sql.ErrNoRows {
		return "", &Error{
			Kind:   KindMissingDependency,
			Entity: models.EntityCard,
			Key:    key,
			Err:    fmt.Errorf("faction %q not found", c.FactionName),
		}
	}
	if err != nil {
		return "", fmt.Errorf("resolve faction %q: %w", factionKey, err)
	}

	var (
		id        int64
		cardType  string
		power     sql.NullInt64
		effect    sql.NullString
		sourceURL sql.NullString
	)
	err = tx.QueryRowContext(ctx, `
		SELECT id, card_type, power, effect, source_url
		FROM cards
		WHERE faction_id = ? AND name_key = ?
	`, factionID, textutil.NormalizeKey(c.Name)).Scan(&id, &cardType, &power, &effect, &sourceURL)

	if err == sql.ErrNoRows {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO cards (faction_id, name, name_key, card_type, power, effect, source_url)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, factionID, strings.TrimSpace(c.Name), textutil.NormalizeKey(c.Name), string(c.Type),
			nullInt(c.Power), nullString(c.Effect), nullString(c.SourceURL))
		if err != nil {
			return "", wrapExec(models.EntityCard, key, err)
		}
		return models.OutcomeInserted, nil
	}
	if err != nil {
		return "", fmt.Errorf("select card %q: %w", key, err)
	}

	if cardType == string(c.Type) && samePower(power, c.Power) &&
		sameString(effect, c.Effect) && sameString(sourceURL, c.SourceURL) {
		return models.OutcomeUnchanged, nil
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE cards
		SET card_type = ?, power = ?, effect = ?, source_url = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, string(c.Type), nullInt(c.Power), nullString(c.Effect), nullString(c.SourceURL), id); err != nil {
		return "", wrapExec(models.EntityCard, key, err)
	}
	return models.OutcomeUpdated, nil
}

func nullString(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func sameString(stored sql.NullString, incoming string) bool {
	return stored.String == strings.TrimSpace(incoming)
}

func samePower(stored sql.NullInt64, incoming *int) bool {
	if !stored.Valid {
		return incoming == nil
	}
	return incoming != nil && stored.Int64 == int64(*incoming)
}

func sameNames(stored, incoming []string) bool {
	cleaned := make([]string, 0, len(incoming))
	seen := make(map[string]bool, len(incoming))
	for _, n := range incoming {
		nk := textutil.NormalizeKey(n)
		if nk == "" || seen[nk] {
			continue
		}
		seen[nk] = true
		cleaned = append(cleaned, strings.TrimSpace(n))
	}
	if len(stored) != len(cleaned) {
		return false
	}
	for i := range stored {
		if stored[i] != cleaned[i] {
			return false
		}
	}
	return true
}

package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"flag"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"cardhub/pkg/database"
)

// Dumps the scraped catalog straight from the store, without going
// through the API.
func main() {
	var (
		cardsOut = flag.String("cards", "data/cards.csv", "output CSV path for cards")
		basesOut = flag.String("bases", "data/bases.csv", "output CSV path for bases")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	if err := exportCards(ctx, db, *cardsOut); err != nil {
		log.Fatalf("export cards failed: %v", err)
	}
	if err := exportBases(ctx, db, *basesOut); err != nil {
		log.Fatalf("export bases failed: %v", err)
	}

	log.Printf("exported cards to %s and bases to %s", *cardsOut, *basesOut)
}

func exportCards(ctx context.Context, db *sql.DB, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"faction", "name", "type", "power", "effect", "source_url"}); err != nil {
		return err
	}

	rows, err := db.QueryContext(ctx, `
        SELECT f.name, c.name, c.card_type, c.power, c.effect, c.source_url
        FROM cards c
        JOIN factions f ON f.id = c.faction_id
        ORDER BY f.name, c.name
    `)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			faction   string
			name      string
			cardType  string
			power     sql.NullInt64
			effect    sql.NullString
			sourceURL sql.NullString
		)

		if err := rows.Scan(&faction, &name, &cardType, &power, &effect, &sourceURL); err != nil {
			return err
		}

		p := ""
		if power.Valid {
			p = strconv.FormatInt(power.Int64, 10)
		}

		if err := w.Write([]string{faction, name, cardType, p, effect.String, sourceURL.String}); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}

func exportBases(ctx context.Context, db *sql.DB, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"name", "breakpoint", "first_place", "second_place", "third_place", "effect"}); err != nil {
		return err
	}

	rows, err := db.QueryContext(ctx, `
        SELECT name, breakpoint, first_place, second_place, third_place, effect
        FROM bases
        ORDER BY name
    `)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			name       string
			breakpoint int
			first      int
			second     int
			third      int
			effect     sql.NullString
		)

		if err := rows.Scan(&name, &breakpoint, &first, &second, &third, &effect); err != nil {
			return err
		}

		if err := w.Write([]string{
			name,
			strconv.Itoa(breakpoint),
			strconv.Itoa(first),
			strconv.Itoa(second),
			strconv.Itoa(third),
			effect.String,
		}); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}

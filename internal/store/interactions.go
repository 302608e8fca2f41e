package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lazypower/recall/internal/engine"
)

// SaveAll replaces the persisted state with the given snapshot in one
// transaction and appends a snapshots audit row. The engine owns the
// live state; the store only ever holds a complete copy of it, never a
// partial update.
func (db *DB) SaveAll(short, long []engine.InteractionRecord) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM interactions"); err != nil {
		return fmt.Errorf("clear interactions: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO interactions
		(id, seq, prompt, response, embedding, concepts, created_at, last_accessed_at, access_count, decay_factor, tier)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, recs := range [][]engine.InteractionRecord{short, long} {
		for i := range recs {
			if err := insertInteraction(stmt, &recs[i]); err != nil {
				return err
			}
		}
	}

	if _, err := tx.Exec(
		"INSERT INTO snapshots (saved_at, short_count, long_count) VALUES (?, ?, ?)",
		time.Now().UnixMilli(), len(short), len(long),
	); err != nil {
		return fmt.Errorf("record snapshot: %w", err)
	}

	return tx.Commit()
}

func insertInteraction(stmt *sql.Stmt, rec *engine.InteractionRecord) error {
	concepts, err := marshalConcepts(rec.Concepts)
	if err != nil {
		return fmt.Errorf("interaction %s: %w", rec.ID, err)
	}

	var blob []byte
	if len(rec.Embedding) > 0 {
		blob = encodeEmbedding(rec.Embedding)
	}

	_, err = stmt.Exec(
		rec.ID, rec.Seq, rec.Prompt, rec.Response,
		blob, concepts,
		rec.CreatedAt, rec.LastAccessedAt, rec.AccessCount, rec.DecayFactor,
		string(rec.Tier),
	)
	if err != nil {
		return fmt.Errorf("insert interaction %s: %w", rec.ID, err)
	}
	return nil
}

func marshalConcepts(concepts []string) (string, error) {
	if len(concepts) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(concepts)
	if err != nil {
		return "", fmt.Errorf("marshal concepts: %w", err)
	}
	return string(b), nil
}

// LoadAll returns the persisted records split by tier, in insertion
// order, ready for Engine.Restore.
func (db *DB) LoadAll() (short, long []engine.InteractionRecord, err error) {
	rows, err := db.Query(`
		SELECT id, seq, prompt, response, embedding, concepts,
		       created_at, last_accessed_at, access_count, decay_factor, tier
		FROM interactions
		ORDER BY seq
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("load interactions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec engine.InteractionRecord
		var blob []byte
		var concepts, tier string
		if err := rows.Scan(
			&rec.ID, &rec.Seq, &rec.Prompt, &rec.Response, &blob, &concepts,
			&rec.CreatedAt, &rec.LastAccessedAt, &rec.AccessCount, &rec.DecayFactor, &tier,
		); err != nil {
			return nil, nil, fmt.Errorf("scan interaction: %w", err)
		}

		if len(blob) > 0 {
			rec.Embedding = decodeEmbedding(blob)
		}
		if concepts != "" && concepts != "null" {
			if err := json.Unmarshal([]byte(concepts), &rec.Concepts); err != nil {
				return nil, nil, fmt.Errorf("decode concepts for %s: %w", rec.ID, err)
			}
		}

		rec.Tier = engine.Tier(tier)
		switch rec.Tier {
		case engine.TierShortTerm:
			short = append(short, rec)
		case engine.TierLongTerm:
			long = append(long, rec)
		default:
			return nil, nil, fmt.Errorf("interaction %s has unknown tier %q", rec.ID, tier)
		}
	}
	return short, long, rows.Err()
}

// CountByTier returns how many interactions are persisted per tier.
func (db *DB) CountByTier() (short, long int, err error) {
	rows, err := db.Query("SELECT tier, COUNT(*) FROM interactions GROUP BY tier")
	if err != nil {
		return 0, 0, fmt.Errorf("count interactions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var tier string
		var n int
		if err := rows.Scan(&tier, &n); err != nil {
			return 0, 0, fmt.Errorf("scan count: %w", err)
		}
		switch engine.Tier(tier) {
		case engine.TierShortTerm:
			short = n
		case engine.TierLongTerm:
			long = n
		}
	}
	return short, long, rows.Err()
}

// Snapshot is one row of the save-cycle audit trail.
type Snapshot struct {
	ID         int64 `json:"id"`
	SavedAt    int64 `json:"saved_at"`
	ShortCount int   `json:"short_count"`
	LongCount  int   `json:"long_count"`
}

// LastSnapshot returns the most recent save, or nil if nothing has been
// saved yet.
func (db *DB) LastSnapshot() (*Snapshot, error) {
	var s Snapshot
	err := db.QueryRow(`
		SELECT id, saved_at, short_count, long_count
		FROM snapshots
		ORDER BY saved_at DESC, id DESC
		LIMIT 1
	`).Scan(&s.ID, &s.SavedAt, &s.ShortCount, &s.LongCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last snapshot: %w", err)
	}
	return &s, nil
}

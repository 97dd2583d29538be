package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/wfunc/thirteen/models"
)

// Archive is an append-only match log over database/sql. It lives beside
// the GORM store so reporting queries never touch the hot tables.
type Archive struct {
	db *sql.DB
}

func NewArchive(host string, port int, user, password, dbname string) (*Archive, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := initArchiveTables(db); err != nil {
		return nil, err
	}

	return &Archive{db: db}, nil
}

func initArchiveTables(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS match_archive (
            id SERIAL PRIMARY KEY,
            room_code VARCHAR(16) NOT NULL,
            room_name VARCHAR(255) NOT NULL,
            duration_sec INT NOT NULL,
            rankings JSONB NOT NULL,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
        CREATE INDEX IF NOT EXISTS idx_match_archive_room_code ON match_archive(room_code);
        CREATE INDEX IF NOT EXISTS idx_match_archive_created_at ON match_archive(created_at);
    `)
	return err
}

func (a *Archive) AppendMatch(record *models.MatchRecord) error {
	rankings, err := json.Marshal(record.Rankings)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
        INSERT INTO match_archive (room_code, room_name, duration_sec, rankings)
        VALUES ($1, $2, $3, $4)
    `
	_, err = a.db.ExecContext(ctx, query,
		record.RoomCode, record.RoomName, record.DurationSec, rankings)
	return err
}

// MatchesForPlayer returns the player's most recent archived matches.
func (a *Archive) MatchesForPlayer(playerID string, limit int) ([]models.MatchRecord, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
        SELECT room_code, room_name, duration_sec, rankings, created_at
        FROM match_archive
        WHERE rankings @> $1
        ORDER BY created_at DESC
        LIMIT $2
    `
	filter := fmt.Sprintf(`[{"player_id": %q}]`, playerID)
	rows, err := a.db.QueryContext(ctx, query, filter, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.MatchRecord
	for rows.Next() {
		var rec models.MatchRecord
		var rankings []byte
		if err := rows.Scan(&rec.RoomCode, &rec.RoomName, &rec.DurationSec,
			&rankings, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(rankings, &rec.Rankings); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (a *Archive) Close() error {
	return a.db.Close()
}

package db

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Connect initializes the Postgres connection and runs migrations.
func Connect(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

func runMigrations(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
            id TEXT PRIMARY KEY,
            email TEXT NOT NULL,
            password_hash TEXT NOT NULL DEFAULT '',
            provider TEXT NOT NULL,
            display_name TEXT NOT NULL DEFAULT '',
            photo_url TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            UNIQUE(provider, email)
        );`,
		`CREATE TABLE IF NOT EXISTS users (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            avatar TEXT NOT NULL DEFAULT '',
            email TEXT NOT NULL DEFAULT '',
            last_seen TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            online BOOLEAN NOT NULL DEFAULT FALSE
        );`,
		`CREATE TABLE IF NOT EXISTS chats (
            id TEXT PRIMARY KEY,
            members TEXT[] NOT NULL,
            last_text TEXT,
            last_created_at TIMESTAMPTZ,
            last_sender_id TEXT,
            updated_at TIMESTAMPTZ,
            is_group BOOLEAN NOT NULL DEFAULT FALSE,
            group_name TEXT NOT NULL DEFAULT '',
            group_avatar TEXT NOT NULL DEFAULT ''
        );`,
		`CREATE INDEX IF NOT EXISTS chats_members_idx ON chats USING GIN (members);`,
		`CREATE TABLE IF NOT EXISTS messages (
            id TEXT PRIMARY KEY,
            chat_id TEXT NOT NULL REFERENCES chats(id),
            text TEXT NOT NULL DEFAULT '',
            media_url TEXT NOT NULL DEFAULT '',
            sender_id TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS messages_chat_created_idx ON messages (chat_id, created_at);`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}
	log.Println("database migrations applied")
	return nil
}

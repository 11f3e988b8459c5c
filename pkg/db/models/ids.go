package models

import "github.com/google/uuid"

// ensureID assigns a fresh UUID when the primary key was left empty. IDs are
// generated in Go so the same models work on Postgres and SQLite.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

package history

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/aristath/qpricing/internal/database"
)

// OpenJournal opens the SQLite run journal at path and applies its schema
func OpenJournal(ctx context.Context, path string, log zerolog.Logger) (*database.DB, error) {
	db, err := database.New(database.Config{
		Path:    path,
		Profile: database.ProfileJournal,
		Name:    "journal",
	})
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	log.Debug().
		Str("database", db.Name()).
		Str("path", db.Path()).
		Str("profile", string(db.Profile())).
		Msg("Run journal opened")

	return db, nil
}

package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema is the SQL DDL for the catalog tables. Execute it via
// [PostgresStore.Migrate] or apply it manually during deployment.
//
// clips.asset_id is nullable with ON DELETE SET NULL: removing an asset
// orphans its clips instead of deleting them, so the clip metadata survives
// until an operator re-uploads or removes it.
const Schema = `
CREATE TABLE IF NOT EXISTS commands (
    id         TEXT PRIMARY KEY,
    guild_id   TEXT NOT NULL,
    name       TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (guild_id, name)
);
CREATE TABLE IF NOT EXISTS assets (
    id         TEXT PRIMARY KEY,
    path       TEXT NOT NULL,
    mime       TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS clips (
    id         TEXT PRIMARY KEY,
    command_id TEXT NOT NULL REFERENCES commands(id) ON DELETE CASCADE,
    asset_id   TEXT REFERENCES assets(id) ON DELETE SET NULL,
    name       TEXT NOT NULL,
    keywords   TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_commands_guild ON commands(guild_id);
CREATE INDEX IF NOT EXISTS idx_clips_command ON clips(command_id);
`

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is a [Store] backed by a PostgreSQL database.
type PostgresStore struct {
	db DB
}

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a new [PostgresStore] that uses the given database
// connection or pool. The caller is responsible for calling
// [PostgresStore.Migrate] to ensure the schema exists before issuing queries.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate executes the [Schema] DDL against the database, creating the
// catalog tables and indexes if they do not already exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.Exec(ctx, Schema)
	if err != nil {
		return fmt.Errorf("catalog: migrate: %w", err)
	}
	return nil
}

// FetchClipsForCommand returns every clip belonging to commandID. The left
// join against assets means clips whose asset was deleted still come back,
// carrying an orphaned [AssetRef].
func (s *PostgresStore) FetchClipsForCommand(ctx context.Context, commandID string) ([]Clip, error) {
	const query = `
		SELECT c.id, c.name, c.keywords, a.path
		FROM clips c
		LEFT JOIN assets a ON a.id = c.asset_id
		WHERE c.command_id = $1
		ORDER BY c.name`

	rows, err := s.db.Query(ctx, query, commandID)
	if err != nil {
		return nil, fmt.Errorf("catalog: fetch clips for command %q: %w", commandID, err)
	}
	defer rows.Close()

	clips := []Clip{}
	for rows.Next() {
		var (
			clip Clip
			path *string
		)
		if err := rows.Scan(&clip.ID, &clip.Name, &clip.Keywords, &path); err != nil {
			return nil, fmt.Errorf("catalog: fetch clips scan: %w", err)
		}
		if path != nil {
			clip.Asset = AvailableAsset(*path)
		} else {
			clip.Asset = OrphanedAsset()
		}
		clips = append(clips, clip)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: fetch clips for command %q: %w", commandID, err)
	}
	return clips, nil
}

// FetchCommandsForGuild returns all commands registered for guildID.
func (s *PostgresStore) FetchCommandsForGuild(ctx context.Context, guildID string) ([]Command, error) {
	const query = `
		SELECT id, guild_id, name
		FROM commands
		WHERE guild_id = $1
		ORDER BY name`

	rows, err := s.db.Query(ctx, query, guildID)
	if err != nil {
		return nil, fmt.Errorf("catalog: fetch commands for guild %q: %w", guildID, err)
	}
	defer rows.Close()

	cmds := []Command{}
	for rows.Next() {
		var cmd Command
		if err := rows.Scan(&cmd.ID, &cmd.GuildID, &cmd.Name); err != nil {
			return nil, fmt.Errorf("catalog: fetch commands scan: %w", err)
		}
		cmds = append(cmds, cmd)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: fetch commands for guild %q: %w", guildID, err)
	}
	return cmds, nil
}

// CreateCommand inserts a new command.
func (s *PostgresStore) CreateCommand(ctx context.Context, cmd Command) error {
	const query = `INSERT INTO commands (id, guild_id, name) VALUES ($1, $2, $3)`
	_, err := s.db.Exec(ctx, query, cmd.ID, cmd.GuildID, cmd.Name)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("catalog: create command %q: %w", cmd.ID, ErrDuplicateID)
		}
		return fmt.Errorf("catalog: create command %q: %w", cmd.ID, err)
	}
	return nil
}

// DeleteCommand removes a command. Its clips go with it via ON DELETE CASCADE.
func (s *PostgresStore) DeleteCommand(ctx context.Context, commandID string) error {
	const query = `DELETE FROM commands WHERE id = $1`
	tag, err := s.db.Exec(ctx, query, commandID)
	if err != nil {
		return fmt.Errorf("catalog: delete command %q: %w", commandID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("catalog: delete command %q: %w", commandID, ErrNotFound)
	}
	return nil
}

// CreateClip inserts a new clip referencing the asset with assetID.
func (s *PostgresStore) CreateClip(ctx context.Context, commandID, assetID string, clip Clip) error {
	const query = `
		INSERT INTO clips (id, command_id, asset_id, name, keywords)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := s.db.Exec(ctx, query, clip.ID, commandID, assetID, clip.Name, clip.Keywords)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("catalog: create clip %q: %w", clip.ID, ErrDuplicateID)
		}
		if isForeignKeyError(err) {
			return fmt.Errorf("catalog: create clip %q: %w", clip.ID, ErrNotFound)
		}
		return fmt.Errorf("catalog: create clip %q: %w", clip.ID, err)
	}
	return nil
}

// UpdateClip replaces the name and keywords of an existing clip.
func (s *PostgresStore) UpdateClip(ctx context.Context, clip Clip) error {
	const query = `
		UPDATE clips SET name = $2, keywords = $3, updated_at = now()
		WHERE id = $1`
	tag, err := s.db.Exec(ctx, query, clip.ID, clip.Name, clip.Keywords)
	if err != nil {
		return fmt.Errorf("catalog: update clip %q: %w", clip.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("catalog: update clip %q: %w", clip.ID, ErrNotFound)
	}
	return nil
}

// DeleteClip removes a clip.
func (s *PostgresStore) DeleteClip(ctx context.Context, clipID string) error {
	const query = `DELETE FROM clips WHERE id = $1`
	tag, err := s.db.Exec(ctx, query, clipID)
	if err != nil {
		return fmt.Errorf("catalog: delete clip %q: %w", clipID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("catalog: delete clip %q: %w", clipID, ErrNotFound)
	}
	return nil
}

// CreateAsset registers a stored media file.
func (s *PostgresStore) CreateAsset(ctx context.Context, asset Asset) error {
	const query = `INSERT INTO assets (id, path, mime) VALUES ($1, $2, $3)`
	_, err := s.db.Exec(ctx, query, asset.ID, asset.Path, asset.MIME)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("catalog: create asset %q: %w", asset.ID, ErrDuplicateID)
		}
		return fmt.Errorf("catalog: create asset %q: %w", asset.ID, err)
	}
	return nil
}

// GetAsset retrieves an asset by ID.
func (s *PostgresStore) GetAsset(ctx context.Context, assetID string) (Asset, error) {
	const query = `SELECT id, path, mime FROM assets WHERE id = $1`
	var asset Asset
	err := s.db.QueryRow(ctx, query, assetID).Scan(&asset.ID, &asset.Path, &asset.MIME)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Asset{}, fmt.Errorf("catalog: get asset %q: %w", assetID, ErrNotFound)
		}
		return Asset{}, fmt.Errorf("catalog: get asset %q: %w", assetID, err)
	}
	return asset, nil
}

// DeleteAsset removes an asset. Referencing clips are orphaned via
// ON DELETE SET NULL, not deleted.
func (s *PostgresStore) DeleteAsset(ctx context.Context, assetID string) error {
	const query = `DELETE FROM assets WHERE id = $1`
	tag, err := s.db.Exec(ctx, query, assetID)
	if err != nil {
		return fmt.Errorf("catalog: delete asset %q: %w", assetID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("catalog: delete asset %q: %w", assetID, ErrNotFound)
	}
	return nil
}

// isDuplicateKeyError checks whether a PostgreSQL error is a unique-violation
// (SQLSTATE 23505).
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// isForeignKeyError checks whether a PostgreSQL error is a foreign-key
// violation (SQLSTATE 23503).
func isForeignKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}

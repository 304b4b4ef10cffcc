package catalog

import "context"

// Store is the catalog persistence interface consumed by the query and
// discord layers. Implementations must be safe for concurrent use.
//
// The production implementation is [PostgresStore]; [MemStore] backs tests
// and single-process deployments without a database.
type Store interface {
	// FetchClipsForCommand returns every clip belonging to commandID,
	// including clips whose asset has been deleted (orphaned AssetRef).
	// Returns an empty slice, not an error, when the command has no clips.
	FetchClipsForCommand(ctx context.Context, commandID string) ([]Clip, error)

	// FetchCommandsForGuild returns all commands registered for guildID.
	FetchCommandsForGuild(ctx context.Context, guildID string) ([]Command, error)

	// CreateCommand inserts a new command. Returns ErrDuplicateID if the ID
	// or the (guild, name) pair already exists.
	CreateCommand(ctx context.Context, cmd Command) error

	// DeleteCommand removes a command and all of its clips.
	DeleteCommand(ctx context.Context, commandID string) error

	// CreateClip inserts a new clip referencing the asset with assetID.
	// Returns ErrDuplicateID if the clip ID exists and ErrNotFound if either
	// the command or the asset does not.
	CreateClip(ctx context.Context, commandID, assetID string, clip Clip) error

	// UpdateClip replaces the name and keywords of an existing clip.
	// Returns ErrNotFound if the clip does not exist.
	UpdateClip(ctx context.Context, clip Clip) error

	// DeleteClip removes a clip. Returns ErrNotFound if the clip does not exist.
	DeleteClip(ctx context.Context, clipID string) error

	// CreateAsset registers a stored media file. Returns ErrDuplicateID if the
	// asset ID already exists.
	CreateAsset(ctx context.Context, asset Asset) error

	// GetAsset retrieves an asset by ID. Returns ErrNotFound if it does not exist.
	GetAsset(ctx context.Context, assetID string) (Asset, error)

	// DeleteAsset removes an asset, orphaning every clip that referenced it.
	// Returns ErrNotFound if the asset does not exist.
	DeleteAsset(ctx context.Context, assetID string) error
}

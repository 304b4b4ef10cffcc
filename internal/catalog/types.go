// Package catalog defines the clip catalog types and the [Store] interface
// the playback core queries. A clip belongs to a chat command; the store
// joins each clip against its uploaded asset, which may have been deleted
// independently — such clips carry an orphaned [AssetRef] and are skipped
// by the query layer.
package catalog

import "errors"

// Sentinel errors returned by [Store] implementations.
var (
	// ErrNotFound is returned when a clip, command, or guild does not exist.
	ErrNotFound = errors.New("catalog: not found")

	// ErrDuplicateID is returned when creating an entity whose ID already exists.
	ErrDuplicateID = errors.New("catalog: duplicate id")
)

// AssetRef points at a clip's stored media. It is either available (the
// asset row still exists and carries a path) or orphaned (the asset was
// deleted out from under the clip). The zero value is orphaned.
type AssetRef struct {
	path      string
	available bool
}

// AvailableAsset returns an AssetRef resolving to path.
func AvailableAsset(path string) AssetRef {
	return AssetRef{path: path, available: true}
}

// OrphanedAsset returns an AssetRef for a clip whose media was deleted.
func OrphanedAsset() AssetRef {
	return AssetRef{}
}

// Path returns the opaque asset path and whether the asset is available.
// When ok is false the path is empty and the clip must not be played.
func (a AssetRef) Path() (path string, ok bool) {
	return a.path, a.available
}

// Clip is one playable sound as fetched from the catalog. Immutable once
// fetched for a ranking pass; the catalog remains the source of truth and
// may change between passes.
type Clip struct {
	// ID is the opaque unique key of the clip.
	ID string

	// Name is the display name shown in the web UI and matched by queries.
	Name string

	// Keywords is a free-text tag string with whitespace-delimited tokens.
	Keywords string

	// Asset references the stored media for this clip.
	Asset AssetRef
}

// Asset is one stored media file. Clips reference assets by ID; deleting an
// asset orphans every clip that referenced it.
type Asset struct {
	// ID is the opaque unique key of the asset.
	ID string

	// Path locates the normalized media file under the media root.
	Path string

	// MIME is the content type the file was uploaded with.
	MIME string
}

// Command is a chat trigger that owns a set of clips.
type Command struct {
	// ID is the opaque unique key of the command.
	ID string

	// GuildID is the guild the command belongs to.
	GuildID string

	// Name is the trigger word members type after the command prefix.
	Name string
}

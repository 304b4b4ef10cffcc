package catalog

import (
	"context"
	"sort"
	"sync"
)

// Compile-time assertion that MemStore satisfies the Store interface.
var _ Store = (*MemStore)(nil)

// clipRow is the stored form of a clip. The asset is kept as a foreign key
// and resolved on fetch so that deleting the asset orphans the clip, exactly
// like the SQL schema's ON DELETE SET NULL.
type clipRow struct {
	clip      Clip
	commandID string
	assetID   string
}

// MemStore is a thread-safe, in-memory implementation of [Store].
// It is suitable for tests and single-process deployments without a database.
type MemStore struct {
	mu       sync.RWMutex
	commands map[string]Command
	clips    map[string]clipRow
	assets   map[string]Asset
}

// NewMemStore returns an initialised [MemStore].
func NewMemStore() *MemStore {
	return &MemStore{
		commands: make(map[string]Command),
		clips:    make(map[string]clipRow),
		assets:   make(map[string]Asset),
	}
}

// FetchClipsForCommand implements [Store.FetchClipsForCommand].
func (s *MemStore) FetchClipsForCommand(ctx context.Context, commandID string) ([]Clip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clips := []Clip{}
	for _, row := range s.clips {
		if row.commandID != commandID {
			continue
		}
		c := row.clip
		if asset, ok := s.assets[row.assetID]; ok {
			c.Asset = AvailableAsset(asset.Path)
		} else {
			c.Asset = OrphanedAsset()
		}
		clips = append(clips, c)
	}
	sort.Slice(clips, func(i, j int) bool { return clips[i].Name < clips[j].Name })
	return clips, nil
}

// FetchCommandsForGuild implements [Store.FetchCommandsForGuild].
func (s *MemStore) FetchCommandsForGuild(ctx context.Context, guildID string) ([]Command, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cmds := []Command{}
	for _, cmd := range s.commands {
		if cmd.GuildID == guildID {
			cmds = append(cmds, cmd)
		}
	}
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })
	return cmds, nil
}

// CreateCommand implements [Store.CreateCommand].
func (s *MemStore) CreateCommand(ctx context.Context, cmd Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.commands[cmd.ID]; exists {
		return ErrDuplicateID
	}
	for _, existing := range s.commands {
		if existing.GuildID == cmd.GuildID && existing.Name == cmd.Name {
			return ErrDuplicateID
		}
	}
	s.commands[cmd.ID] = cmd
	return nil
}

// DeleteCommand implements [Store.DeleteCommand].
func (s *MemStore) DeleteCommand(ctx context.Context, commandID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.commands[commandID]; !ok {
		return ErrNotFound
	}
	delete(s.commands, commandID)
	for id, row := range s.clips {
		if row.commandID == commandID {
			delete(s.clips, id)
		}
	}
	return nil
}

// CreateClip implements [Store.CreateClip].
func (s *MemStore) CreateClip(ctx context.Context, commandID, assetID string, clip Clip) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.clips[clip.ID]; exists {
		return ErrDuplicateID
	}
	if _, ok := s.commands[commandID]; !ok {
		return ErrNotFound
	}
	if _, ok := s.assets[assetID]; !ok {
		return ErrNotFound
	}
	s.clips[clip.ID] = clipRow{clip: clip, commandID: commandID, assetID: assetID}
	return nil
}

// UpdateClip implements [Store.UpdateClip].
func (s *MemStore) UpdateClip(ctx context.Context, clip Clip) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.clips[clip.ID]
	if !ok {
		return ErrNotFound
	}
	row.clip.Name = clip.Name
	row.clip.Keywords = clip.Keywords
	s.clips[clip.ID] = row
	return nil
}

// DeleteClip implements [Store.DeleteClip].
func (s *MemStore) DeleteClip(ctx context.Context, clipID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.clips[clipID]; !ok {
		return ErrNotFound
	}
	delete(s.clips, clipID)
	return nil
}

// CreateAsset implements [Store.CreateAsset].
func (s *MemStore) CreateAsset(ctx context.Context, asset Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.assets[asset.ID]; exists {
		return ErrDuplicateID
	}
	s.assets[asset.ID] = asset
	return nil
}

// GetAsset implements [Store.GetAsset].
func (s *MemStore) GetAsset(ctx context.Context, assetID string) (Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	asset, ok := s.assets[assetID]
	if !ok {
		return Asset{}, ErrNotFound
	}
	return asset, nil
}

// DeleteAsset implements [Store.DeleteAsset]. Clips referencing the asset
// stay behind with a dangling asset ID and come back orphaned from
// [MemStore.FetchClipsForCommand].
func (s *MemStore) DeleteAsset(ctx context.Context, assetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.assets[assetID]; !ok {
		return ErrNotFound
	}
	delete(s.assets, assetID)
	return nil
}

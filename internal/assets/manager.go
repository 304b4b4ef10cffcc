// Package assets manages the media files behind catalog clips: ingesting
// uploads (loudness-normalised to Ogg/Opus), opening stored files for
// playback, and disposing of files whose catalog rows were removed.
package assets

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/ostinato/internal/catalog"
	"github.com/MrWong99/ostinato/internal/effects"
)

// disposeConcurrency caps parallel file deletions during batch disposal.
const disposeConcurrency = 8

// ErrEscapesRoot is returned when an asset path resolves outside the media
// root directory.
var ErrEscapesRoot = errors.New("assets: path escapes media root")

// Manager owns the media root directory. All asset paths in the catalog are
// relative to it.
type Manager struct {
	root     string
	store    catalog.Store
	pipeline *effects.Pipeline
}

// NewManager creates a Manager rooted at dir, creating the directory if
// needed. Stored asset rows are written through store; uploads are
// normalised through pipeline.
func NewManager(dir string, store catalog.Store, pipeline *effects.Pipeline) (*Manager, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("assets: resolve media root %q: %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("assets: create media root %q: %w", abs, err)
	}
	return &Manager{root: abs, store: store, pipeline: pipeline}, nil
}

// Open resolves assetPath under the media root and opens it for reading,
// returning the stream together with the MIME type derived from the file
// extension. Paths that climb out of the root are rejected.
func (m *Manager) Open(assetPath string) (io.ReadCloser, string, error) {
	full, err := m.resolve(assetPath)
	if err != nil {
		return nil, "", err
	}

	ext := strings.TrimPrefix(filepath.Ext(full), ".")
	mimeType, ok := effects.MIMEForExtension(ext)
	if !ok {
		return nil, "", fmt.Errorf("assets: open %q: no MIME type for extension %q", assetPath, ext)
	}

	f, err := os.Open(full)
	if err != nil {
		return nil, "", fmt.Errorf("assets: open %q: %w", assetPath, err)
	}
	return f, mimeType, nil
}

// Ingest normalises an uploaded media stream and stores it as a new asset.
// The upload's declared MIME type selects the demuxer; the stored file is
// always Ogg/Opus at a normalised speech level. On success the registered
// [catalog.Asset] is returned; on any failure the partially written file is
// removed.
func (m *Manager) Ingest(ctx context.Context, upload io.Reader, declaredMIME string) (catalog.Asset, error) {
	normalized, err := m.pipeline.Normalize(ctx, upload, declaredMIME)
	if err != nil {
		return catalog.Asset{}, fmt.Errorf("assets: ingest: %w", err)
	}
	defer normalized.Close()

	name, err := m.uniqueName("ogg")
	if err != nil {
		return catalog.Asset{}, err
	}
	full := filepath.Join(m.root, name)

	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return catalog.Asset{}, fmt.Errorf("assets: ingest: create %q: %w", name, err)
	}

	if _, err := io.Copy(f, normalized); err != nil {
		f.Close()
		os.Remove(full)
		return catalog.Asset{}, fmt.Errorf("assets: ingest: normalize %q: %w", name, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(full)
		return catalog.Asset{}, fmt.Errorf("assets: ingest: close %q: %w", name, err)
	}

	id, err := generateID()
	if err != nil {
		os.Remove(full)
		return catalog.Asset{}, fmt.Errorf("assets: ingest: generate id: %w", err)
	}
	asset := catalog.Asset{ID: id, Path: name, MIME: "audio/ogg"}
	if err := m.store.CreateAsset(ctx, asset); err != nil {
		os.Remove(full)
		return catalog.Asset{}, fmt.Errorf("assets: ingest: register asset: %w", err)
	}

	slog.Info("assets: ingested upload",
		"asset_id", asset.ID,
		"path", asset.Path,
		"declared_mime", declaredMIME,
	)
	return asset, nil
}

// Dispose removes an asset's catalog row and its media file. Clips that
// referenced the asset are orphaned by the store, not deleted. A file that
// is already gone is not an error.
func (m *Manager) Dispose(ctx context.Context, assetID string) error {
	asset, err := m.store.GetAsset(ctx, assetID)
	if err != nil {
		return fmt.Errorf("assets: dispose %q: %w", assetID, err)
	}
	if err := m.store.DeleteAsset(ctx, assetID); err != nil {
		return fmt.Errorf("assets: dispose %q: %w", assetID, err)
	}

	full, err := m.resolve(asset.Path)
	if err != nil {
		return fmt.Errorf("assets: dispose %q: %w", assetID, err)
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("assets: dispose %q: remove file: %w", assetID, err)
	}
	return nil
}

// DisposeAll disposes the given assets concurrently, stopping at the first
// failure. Assets already disposed by an earlier partial run are skipped.
func (m *Manager) DisposeAll(ctx context.Context, assetIDs []string) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(disposeConcurrency)
	for _, id := range assetIDs {
		g.Go(func() error {
			if err := m.Dispose(ctx, id); err != nil {
				if errors.Is(err, catalog.ErrNotFound) {
					return nil
				}
				return err
			}
			return nil
		})
	}
	return g.Wait()
}

// resolve joins rel onto the media root, rejecting absolute paths and any
// path that climbs out of the root.
func (m *Manager) resolve(rel string) (string, error) {
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("%w: %q", ErrEscapesRoot, rel)
	}
	return filepath.Join(m.root, rel), nil
}

// uniqueName generates a random file name with the given extension that does
// not collide with an existing file under the media root.
func (m *Manager) uniqueName(ext string) (string, error) {
	for range 5 {
		id, err := generateID()
		if err != nil {
			return "", fmt.Errorf("assets: generate name: %w", err)
		}
		name := id + "." + ext
		if _, err := os.Stat(filepath.Join(m.root, name)); errors.Is(err, fs.ErrNotExist) {
			return name, nil
		}
	}
	return "", errors.New("assets: generate name: too many collisions")
}

// generateID produces a random 16-byte hex string using crypto/rand.
func generateID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

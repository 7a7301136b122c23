package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"
)

// FileStore keeps the snapshot history of each app in {baseDir}/{appID}.json.
type FileStore struct {
	baseDir string
	logger  zerolog.Logger
}

// HistoryStats summarizes an app's snapshot history.
type HistoryStats struct {
	AppID         string    `json:"app_id"`
	Snapshots     int       `json:"snapshots"`
	Oldest        time.Time `json:"oldest"`
	Newest        time.Time `json:"newest"`
	FileSizeBytes int64     `json:"file_size_bytes"`
}

// NewFileStore creates a file-backed store rooted at baseDir.
func NewFileStore(baseDir string, logger *zerolog.Logger) *FileStore {
	l := zerolog.Nop()
	if logger != nil {
		l = *logger
	}
	return &FileStore{baseDir: baseDir, logger: l}
}

// Path returns the history file of an app.
func (f *FileStore) Path(appID string) string {
	return filepath.Join(f.baseDir, safeName(appID)+".json")
}

// CorruptPath is where an unparseable history of an app is kept.
func (f *FileStore) CorruptPath(appID string) string {
	return f.Path(appID) + ".corrupt"
}

// History loads every snapshot of an app, oldest first. A missing file is
// an empty history.
func (f *FileStore) History(appID string) ([]Snapshot, error) {
	data, err := os.ReadFile(f.Path(appID))
	if os.IsNotExist(err) {
		return []Snapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot file: %w", err)
	}
	var snapshots []Snapshot
	if err := sonic.Unmarshal(data, &snapshots); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptHistory, f.Path(appID), err)
	}
	return snapshots, nil
}

// Save appends a snapshot to the app's history. A history that cannot be
// parsed is moved to CorruptPath and a new one is started.
func (f *FileStore) Save(_ context.Context, snapshot *Snapshot) error {
	if err := validate(snapshot); err != nil {
		return err
	}
	if err := os.MkdirAll(f.baseDir, 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	snapshots, err := f.History(snapshot.AppID)
	if errors.Is(err, ErrCorruptHistory) {
		aside := f.CorruptPath(snapshot.AppID)
		if err := os.Rename(f.Path(snapshot.AppID), aside); err != nil {
			return fmt.Errorf("failed to move corrupt snapshot history aside: %w", err)
		}
		f.logger.Warn().Err(err).Str("app_id", snapshot.AppID).Str("moved_to", aside).
			Msg("⚠️ corrupt snapshot history moved aside, starting fresh")
		snapshots = []Snapshot{}
	} else if err != nil {
		return err
	}
	snapshots = append(snapshots, *snapshot)
	if err := f.write(snapshot.AppID, snapshots); err != nil {
		return err
	}

	f.logger.Info().Str("path", f.Path(snapshot.AppID)).Str("app_id", snapshot.AppID).
		Int("snapshots", len(snapshots)).Msg("💾 saved snapshot")
	return nil
}

// Latest returns the most recent snapshot of an app.
func (f *FileStore) Latest(_ context.Context, appID string) (*Snapshot, error) {
	snapshots, err := f.History(appID)
	if err != nil {
		return nil, err
	}
	if len(snapshots) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, appID)
	}
	latest := snapshots[0]
	for _, s := range snapshots[1:] {
		if !s.GeneratedAt.Before(latest.GeneratedAt) {
			latest = s
		}
	}
	return &latest, nil
}

// Stats summarizes the history of an app.
func (f *FileStore) Stats(appID string) (*HistoryStats, error) {
	snapshots, err := f.History(appID)
	if err != nil {
		return nil, err
	}
	stats := &HistoryStats{AppID: appID, Snapshots: len(snapshots)}
	if len(snapshots) == 0 {
		return stats, nil
	}
	stats.Oldest = snapshots[0].GeneratedAt
	stats.Newest = snapshots[0].GeneratedAt
	for _, s := range snapshots {
		if s.GeneratedAt.Before(stats.Oldest) {
			stats.Oldest = s.GeneratedAt
		}
		if s.GeneratedAt.After(stats.Newest) {
			stats.Newest = s.GeneratedAt
		}
	}
	if info, err := os.Stat(f.Path(appID)); err == nil {
		stats.FileSizeBytes = info.Size()
	}
	return stats, nil
}

// Prune removes snapshots older than maxAge and reports how many went.
func (f *FileStore) Prune(appID string, maxAge time.Duration) (int, error) {
	snapshots, err := f.History(appID)
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().Add(-maxAge)
	kept := make([]Snapshot, 0, len(snapshots))
	for _, s := range snapshots {
		if s.GeneratedAt.After(cutoff) {
			kept = append(kept, s)
		}
	}
	removed := len(snapshots) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	if err := f.write(appID, kept); err != nil {
		return 0, err
	}
	f.logger.Info().Str("app_id", appID).Int("removed", removed).Msg("🧹 pruned snapshot history")
	return removed, nil
}

// ====================== Private Methods ======================

func (f *FileStore) write(appID string, snapshots []Snapshot) error {
	data, err := sonic.MarshalIndent(snapshots, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshots: %w", err)
	}
	if err := os.WriteFile(f.Path(appID), data, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot file: %w", err)
	}
	return nil
}

func safeName(id string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(`<>:"/\|?*`, r) || r < 0x20 {
			return '_'
		}
		return r
	}, id)
}

package storage

import (
	"context"
	"errors"
	"time"

	"appdocu/pkg"
)

// ErrNotFound is returned when no snapshot exists for an app.
var ErrNotFound = errors.New("snapshot not found")

// ErrCorruptHistory is returned when a snapshot history file cannot be parsed.
var ErrCorruptHistory = errors.New("corrupt snapshot history")

// Snapshot is the stored result of one documentation run.
type Snapshot struct {
	AppID       string           `json:"app_id"`
	AppName     string           `json:"app_name"`
	GeneratedAt time.Time        `json:"generated_at"`
	Info        pkg.AppInfo      `json:"info"`
	Dimensions  []pkg.Dimension  `json:"dimensions"`
	Measures    []pkg.Measure    `json:"measures"`
	Variables   []pkg.Variable   `json:"variables"`
	MasterItems []pkg.MasterItem `json:"master_items,omitempty"`
	Skipped     []string         `json:"skipped,omitempty"`
}

// Store keeps snapshots by app id.
type Store interface {
	Save(ctx context.Context, snapshot *Snapshot) error
	Latest(ctx context.Context, appID string) (*Snapshot, error)
}

func validate(snapshot *Snapshot) error {
	if snapshot == nil {
		return errors.New("snapshot cannot be nil")
	}
	if snapshot.AppID == "" {
		return errors.New("app ID cannot be empty")
	}
	return nil
}

// Package archive keeps point-in-time JSON snapshots of meets in blob
// storage. Snapshots are immutable; each Save writes a new key under
// meets/<meet id>/.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"swimeeter/internal/blob"
	"swimeeter/internal/core"
)

const (
	rootPrefix  = "meets/"
	contentType = "application/json"
	stampLayout = "20060102T150405.000000000Z"

	metaMeetID   = "meet-id"
	metaMeetName = "meet-name"
	metaHostID   = "host-id"
)

// ErrNotFound is returned when no snapshot matches.
var ErrNotFound = errors.New("archive: snapshot not found")

// Entry describes one stored snapshot.
type Entry struct {
	Key    string    `json:"key"`
	MeetID string    `json:"meet_id"`
	Taken  time.Time `json:"taken"`
	Size   int64     `json:"size_bytes"`
	ETag   string    `json:"etag,omitempty"`
	Driver string    `json:"driver"`
}

// Archive reads and writes meet snapshots in a blob store.
type Archive struct {
	store blob.Store
	now   func() time.Time
}

// Option configures an Archive.
type Option func(*Archive)

// WithClock overrides the clock used to name snapshots.
func WithClock(now func() time.Time) Option {
	return func(a *Archive) {
		if now != nil {
			a.now = now
		}
	}
}

// New returns an archive over store.
func New(store blob.Store, opts ...Option) *Archive {
	a := &Archive{store: store, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Save writes export as a new snapshot.
func (a *Archive) Save(ctx context.Context, export core.MeetExport) (Entry, error) {
	if export.Meet.ID == "" {
		return Entry{}, fmt.Errorf("archive: export has no meet id")
	}
	body, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return Entry{}, fmt.Errorf("encode meet %s: %w", export.Meet.ID, err)
	}
	taken := a.now().UTC()
	key := snapshotKey(export.Meet.ID, taken)
	info, err := a.store.Put(ctx, key, bytes.NewReader(body), blob.PutOptions{
		ContentType: contentType,
		Metadata: map[string]string{
			metaMeetID:   export.Meet.ID,
			metaMeetName: export.Meet.Name,
			metaHostID:   export.Meet.HostID,
		},
	})
	if err != nil {
		return Entry{}, fmt.Errorf("store snapshot %s: %w", key, err)
	}
	entry, _ := a.entry(info)
	return entry, nil
}

// List returns snapshots oldest first. An empty meetID lists every meet.
func (a *Archive) List(ctx context.Context, meetID string) ([]Entry, error) {
	prefix := rootPrefix
	if meetID != "" {
		prefix += meetID + "/"
	}
	infos, err := a.store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	entries := make([]Entry, 0, len(infos))
	for _, info := range infos {
		if e, ok := a.entry(info); ok {
			entries = append(entries, e)
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].Taken.Equal(entries[j].Taken) {
			return entries[i].Taken.Before(entries[j].Taken)
		}
		return entries[i].Key < entries[j].Key
	})
	return entries, nil
}

// Latest returns the newest snapshot of a meet.
func (a *Archive) Latest(ctx context.Context, meetID string) (Entry, error) {
	if meetID == "" {
		return Entry{}, fmt.Errorf("archive: meet id required")
	}
	entries, err := a.List(ctx, meetID)
	if err != nil {
		return Entry{}, err
	}
	if len(entries) == 0 {
		return Entry{}, fmt.Errorf("meet %s: %w", meetID, ErrNotFound)
	}
	return entries[len(entries)-1], nil
}

// Load decodes the snapshot stored at key.
func (a *Archive) Load(ctx context.Context, key string) (core.MeetExport, error) {
	if _, ok := parseKey(key); !ok {
		return core.MeetExport{}, fmt.Errorf("archive: %q is not a snapshot key", key)
	}
	_, rc, err := a.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return core.MeetExport{}, fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return core.MeetExport{}, err
	}
	defer func() { _ = rc.Close() }()
	var export core.MeetExport
	if err := json.NewDecoder(rc).Decode(&export); err != nil {
		return core.MeetExport{}, fmt.Errorf("decode snapshot %s: %w", key, err)
	}
	return export, nil
}

// Link returns a time-limited URL for the snapshot when the backend supports it.
func (a *Archive) Link(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if _, err := a.store.Head(ctx, key); err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return "", fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return "", err
	}
	return a.store.PresignURL(ctx, key, blob.SignedURLOptions{Method: "GET", Expiry: expiry})
}

// Prune deletes all but the newest keep snapshots of a meet and returns the
// removed keys.
func (a *Archive) Prune(ctx context.Context, meetID string, keep int) ([]string, error) {
	if meetID == "" {
		return nil, fmt.Errorf("archive: meet id required")
	}
	if keep < 0 {
		keep = 0
	}
	entries, err := a.List(ctx, meetID)
	if err != nil {
		return nil, err
	}
	var removed []string
	for i := 0; i < len(entries)-keep; i++ {
		if _, err := a.store.Delete(ctx, entries[i].Key); err != nil {
			return removed, fmt.Errorf("delete %s: %w", entries[i].Key, err)
		}
		removed = append(removed, entries[i].Key)
	}
	return removed, nil
}

func (a *Archive) entry(info blob.Info) (Entry, bool) {
	parsed, ok := parseKey(info.Key)
	if !ok {
		return Entry{}, false
	}
	parsed.Size = info.Size
	parsed.ETag = info.ETag
	parsed.Driver = string(a.store.Driver())
	return parsed, true
}

func snapshotKey(meetID string, taken time.Time) string {
	return rootPrefix + meetID + "/" + taken.Format(stampLayout) + ".json"
}

func parseKey(key string) (Entry, bool) {
	rest, ok := strings.CutPrefix(key, rootPrefix)
	if !ok {
		return Entry{}, false
	}
	meetID, name, ok := strings.Cut(rest, "/")
	if !ok || meetID == "" || strings.Contains(name, "/") {
		return Entry{}, false
	}
	stamp, ok := strings.CutSuffix(name, ".json")
	if !ok {
		return Entry{}, false
	}
	taken, err := time.Parse(stampLayout, stamp)
	if err != nil {
		return Entry{}, false
	}
	return Entry{Key: key, MeetID: meetID, Taken: taken}, true
}

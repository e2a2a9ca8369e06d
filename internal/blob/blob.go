// Package blob is the entry point to blob storage. Callers depend on Store and
// open a backend with Open; only this package imports the infra backends.
package blob

import (
	"context"
	"fmt"
	"time"

	"swimeeter/internal/blob/core"
	"swimeeter/internal/infra/blob/fs"
	memorystore "swimeeter/internal/infra/blob/memory"
	infraS3 "swimeeter/internal/infra/blob/s3"
)

type (
	Driver           = core.Driver
	PutOptions       = core.PutOptions
	SignedURLOptions = core.SignedURLOptions
	Info             = core.Info
	Store            = core.Store
	// S3Config configures the S3 backend.
	S3Config = infraS3.Config
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

var (
	ErrUnsupported = core.ErrUnsupported
	ErrNotFound    = core.ErrNotFound
	ErrExists      = core.ErrExists
)

// Config selects and locates a blob backend.
type Config struct {
	Driver Driver
	FSRoot string
	S3     S3Config
}

// Open constructs the backend named by cfg.Driver, defaulting to the filesystem.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", DriverFilesystem:
		return NewFilesystem(cfg.FSRoot)
	case DriverS3:
		return NewS3(ctx, cfg.S3)
	case DriverMemory:
		return NewMemory(nil), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", cfg.Driver)
	}
}

// NewFilesystem returns a store rooted at root (DefaultFSRoot when empty).
func NewFilesystem(root string) (Store, error) {
	store, err := fs.New(root)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// DefaultFSRoot is the filesystem root used when none is configured.
const DefaultFSRoot = fs.DefaultRoot

// NewMemory returns an in-memory store. A nil clock uses the wall clock.
func NewMemory(now func() time.Time) Store {
	return memorystore.New(memorystore.WithClock(now))
}

// NewS3 constructs an S3-backed store.
func NewS3(ctx context.Context, cfg S3Config) (Store, error) {
	store, err := infraS3.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// NewMockS3ForTests exposes the fake S3 bucket for cross-package tests.
func NewMockS3ForTests() Store { return infraS3.NewMockForTests() }

// Package statusstore selects a status-store backend from
// configuration. Concrete backends live in the subpackages.
package statusstore

import (
	"context"
	"fmt"

	"github.com/BranchIntl/miniworker/core"
	"github.com/BranchIntl/miniworker/statusstore/file"
	"github.com/BranchIntl/miniworker/statusstore/noop"
	"github.com/BranchIntl/miniworker/statusstore/redis"
)

// StoreType represents the type of status-store backend
type StoreType string

const (
	// File status store type (the default)
	File StoreType = "file"
	// Redis status store type
	Redis StoreType = "redis"
	// NoOp status store type
	NoOp StoreType = "noop"
)

// Config is a generic status-store configuration
type Config struct {
	Type      StoreType
	Dir       string // file backend: stats directory
	URI       string // redis backend: connection URI
	Namespace string // redis backend: key prefix
}

// NewStore creates a status store based on the configuration. Backends
// that hold connections are connected before being returned; callers
// should close them when they implement io.Closer.
func NewStore(ctx context.Context, config Config) (core.StatusStore, error) {
	switch config.Type {
	case File, "":
		return file.NewStore(config.Dir)

	case Redis:
		opts := redis.DefaultOptions()
		if config.URI != "" {
			opts.URI = config.URI
		}
		if config.Namespace != "" {
			opts.Namespace = config.Namespace
		}

		store := redis.NewStore(opts)
		if err := store.Connect(ctx); err != nil {
			return nil, err
		}
		return store, nil

	case NoOp:
		return noop.NewStore(), nil

	default:
		return nil, fmt.Errorf("unknown status store type: %s", config.Type)
	}
}

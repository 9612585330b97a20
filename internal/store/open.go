package store

import (
	"context"
	"fmt"
)

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
)

// Options selects and configures a backend.
type Options struct {
	Backend     string
	Dir         string
	DatabaseURL string
	MongoURI    string
	MongoDB     string
}

// Open builds the backend named by opts.Backend. Postgres and Mongo stores
// also implement io.Closer and a CheckReadiness(ctx) error method.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case BackendMemory:
		return NewMemory(), nil
	case BackendFile:
		return NewFile(opts.Dir)
	case BackendPostgres:
		return OpenPostgres(ctx, opts.DatabaseURL)
	case BackendMongo:
		return OpenMongo(ctx, opts.MongoURI, opts.MongoDB)
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}

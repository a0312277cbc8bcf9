package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/cbodonnell/platespotter/pkg/auth"
	"github.com/cbodonnell/platespotter/pkg/log"
)

type OpenOptions struct {
	// FirebaseCredentialsFile is used by firestore:// URLs
	FirebaseCredentialsFile string
}

// Open returns the repository selected by the URL scheme:
//
//	memory://
//	sqlite://path/to/file.db
//	postgres://... or postgresql://...
//	firestore://project-id
//
// An empty URL returns a nil repository, meaning sessions stay local.
func Open(ctx context.Context, url string, opts OpenOptions) (Repository, error) {
	if url == "" {
		log.Info("No database configured, sessions will be local only")
		return nil, nil
	}

	scheme, rest, ok := strings.Cut(url, "://")
	if !ok {
		return nil, fmt.Errorf("invalid database url %q: missing scheme", url)
	}

	switch scheme {
	case "memory":
		log.Info("Using in-memory repository")
		return NewMemoryRepository(), nil
	case "sqlite":
		if rest == "" {
			return nil, fmt.Errorf("invalid database url %q: missing path", url)
		}
		log.Info("Using sqlite repository at %s", rest)
		repo, err := NewSQLiteRepository(ctx, rest)
		if err != nil {
			return nil, err
		}
		return repo, nil
	case "postgres", "postgresql":
		log.Info("Using postgres repository")
		repo, err := NewPostgresRepository(ctx, url)
		if err != nil {
			return nil, err
		}
		return repo, nil
	case "firestore":
		log.Info("Using firestore repository for project %s", rest)
		app, err := auth.NewFirebaseApp(ctx, auth.FirebaseOptions{
			ProjectID:       rest,
			CredentialsFile: opts.FirebaseCredentialsFile,
		})
		if err != nil {
			return nil, err
		}
		repo, err := NewFirestoreRepository(ctx, app)
		if err != nil {
			return nil, err
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unsupported database scheme %q", scheme)
	}
}

package auth

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go"
	"google.golang.org/api/option"
)

type FirebaseOptions struct {
	// ProjectID is the Firebase project. It may be empty when the
	// credentials file names the project.
	ProjectID string
	// CredentialsFile is a service account key. When empty the application
	// default credentials are used.
	CredentialsFile string
}

// NewFirebaseApp initializes a Firebase app shared by the identity provider
// and the Firestore repository.
func NewFirebaseApp(ctx context.Context, opts FirebaseOptions) (*firebase.App, error) {
	var clientOpts []option.ClientOption
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}

	var cfg *firebase.Config
	if opts.ProjectID != "" {
		cfg = &firebase.Config{
			ProjectID: opts.ProjectID,
		}
	}

	app, err := firebase.NewApp(ctx, cfg, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing app: %w", err)
	}
	return app, nil
}

package providers

import (
	"context"
)

var _ AuthProvider = &StaticAuthProvider{}

// StaticAuthProvider accepts a fixed set of tokens. It is meant for local
// development and tests.
type StaticAuthProvider struct {
	tokens map[string]string
	// owner is returned for any non-empty token not in tokens
	owner string
}

type NewStaticAuthProviderOptions struct {
	// Tokens maps a token to the uid it identifies
	Tokens map[string]string
	// Owner, when set, is the uid of every other non-empty token
	Owner string
}

func NewStaticAuthProvider(opts NewStaticAuthProviderOptions) *StaticAuthProvider {
	tokens := make(map[string]string, len(opts.Tokens))
	for token, uid := range opts.Tokens {
		tokens[token] = uid
	}
	return &StaticAuthProvider{
		tokens: tokens,
		owner:  opts.Owner,
	}
}

func (p *StaticAuthProvider) VerifyToken(ctx context.Context, idToken string) (*TokenClaims, error) {
	if idToken == "" {
		return nil, ErrInvalidToken
	}
	if uid, ok := p.tokens[idToken]; ok {
		return &TokenClaims{UID: uid}, nil
	}
	if p.owner != "" {
		return &TokenClaims{UID: p.owner}, nil
	}
	return nil, ErrInvalidToken
}

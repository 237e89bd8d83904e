package hasher

import "context"

// Provider hashes and verifies passwords.
type Provider interface {
	Hash(ctx context.Context, plain string) (string, error)
	Compare(ctx context.Context, plain, hash string) (bool, error)
}

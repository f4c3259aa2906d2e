package ports

import "context"

type SecretReader interface {
	Get(ctx context.Context, key string) (string, error)
}

type SecretStore interface {
	SecretReader
	Put(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
}

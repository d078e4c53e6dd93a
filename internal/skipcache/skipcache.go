// Package skipcache implements the skip cache spec.md's glossary
// describes: a content-addressed store whose presence of a key for a job
// hash indicates the job previously succeeded and may be skipped. Three
// backend kinds are supported (spec.md §5): native-provider cache (the
// `local` backend below, sharing a path the provider's own cache action
// restores/saves), Redis, and S3-compatible object storage.
package skipcache

// Backend is the interface every skip-cache implementation satisfies.
// Per spec.md §5, writes are idempotent sentinel writes — concurrent
// writers racing on the same key are always safe because the value
// carries no state beyond "this key exists."
type Backend interface {
	Has(key string) (bool, error)
	Put(key string) error
}

// New constructs a Backend for the named kind ("local", "redis", "s3"),
// each carrying its own connection/path configuration.
func New(kind string, cfg Config) (Backend, error) {
	switch kind {
	case "", "local":
		return NewLocal(cfg.LocalDir), nil
	case "redis":
		return NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	case "s3":
		return NewS3(cfg.S3Endpoint, cfg.S3Bucket, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3UseSSL)
	default:
		return nil, &UnknownBackendError{Kind: kind}
	}
}

// Config carries the union of every backend's connection parameters; only
// the fields relevant to the selected kind are read.
type Config struct {
	LocalDir string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	S3Endpoint  string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3UseSSL    bool
}

// UnknownBackendError is returned by New for an unrecognized backend kind.
type UnknownBackendError struct{ Kind string }

func (e *UnknownBackendError) Error() string { return "skipcache: unknown backend kind " + e.Kind }

package config

// StorageConfig selects the token and profile backends. Empty values mean
// in-memory tokens and profiles over the data API.
type StorageConfig interface {
	GetDatabaseURL() string
	GetRedisURL() string
}

type Storage struct{}

var _ StorageConfig = Storage{}

func (Storage) GetDatabaseURL() string {
	return GetEnv("DATABASE_URL", "")
}

func (Storage) GetRedisURL() string {
	return GetEnv("REDIS_URL", "")
}

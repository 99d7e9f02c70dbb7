package di

import (
	"fmt"

	"github.com/aristath/thirteenf/internal/cache"
	"github.com/aristath/thirteenf/internal/clientdata"
	"github.com/aristath/thirteenf/internal/config"
	"github.com/aristath/thirteenf/internal/database"
	"github.com/rs/zerolog"
)

// InitializeStorage opens client_data.db, applies its schema and connects the response cache
func InitializeStorage(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	// client_data.db - OpenFIGI mapping cache (ephemeral, safe to delete)
	clientDataDB, err := database.New(database.Config{
		Path:    cfg.ClientDataPath(),
		Profile: database.ProfileCache,
		Name:    "client_data",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize client_data database: %w", err)
	}

	if err := clientDataDB.Migrate(); err != nil {
		clientDataDB.Close()
		return nil, fmt.Errorf("failed to migrate client_data database: %w", err)
	}

	container.ClientDataDB = clientDataDB
	container.ClientDataRepo = clientdata.NewRepository(clientDataDB.Conn())

	// Redis when configured and reachable, otherwise in-process memory
	container.ResponseCache = cache.New(cfg.RedisURL, log)

	log.Info().
		Str("client_data", clientDataDB.Path()).
		Str("response_cache", container.ResponseCache.Backend()).
		Msg("Storage initialized")

	return container, nil
}

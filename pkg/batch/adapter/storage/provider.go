package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/fx"

	storageconfig "github.com/tigerroll/weather-etl/pkg/batch/adapter/storage/config"
	config "github.com/tigerroll/weather-etl/pkg/batch/core/config"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/logger"
)

// ConnectionFactory opens a connection for a named storage configuration.
type ConnectionFactory func(ctx context.Context, cfg storageconfig.StorageConfig, name string) (StorageConnection, error)

// BaseProvider caches the connections of one storage type, keyed by connection name.
type BaseProvider struct {
	cfg         *config.Config
	storageType string
	factory     ConnectionFactory
	connections map[string]StorageConnection
	mu          sync.Mutex
}

// NewBaseProvider creates a provider that opens connections with factory.
func NewBaseProvider(cfg *config.Config, storageType string, factory ConnectionFactory) *BaseProvider {
	return &BaseProvider{
		cfg:         cfg,
		storageType: storageType,
		factory:     factory,
		connections: make(map[string]StorageConnection),
	}
}

func (p *BaseProvider) Type() string {
	return p.storageType
}

// GetConnection returns the cached connection for name, opening it on first use.
func (p *BaseProvider) GetConnection(name string) (StorageConnection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if conn, ok := p.connections[name]; ok {
		return conn, nil
	}
	storageCfg, ok := p.cfg.Surfin.Adapter.Storage[name]
	if !ok {
		return nil, fmt.Errorf("storage configuration '%s' not found in adapter.storage configs", name)
	}
	if storageCfg.Type != p.storageType {
		return nil, fmt.Errorf("storage config type mismatch for '%s': expected '%s', got '%s'", name, p.storageType, storageCfg.Type)
	}
	conn, err := p.factory(context.Background(), storageCfg, name)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage connection '%s': %w", p.storageType, name, err)
	}
	p.connections[name] = conn
	logger.Debugf("Opened %s storage connection '%s'.", p.storageType, name)
	return conn, nil
}

// CloseAll closes every cached connection.
func (p *BaseProvider) CloseAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var result *multierror.Error
	for name, conn := range p.connections {
		if err := conn.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close storage connection '%s': %w", name, err))
		}
		delete(p.connections, name)
	}
	return result.ErrorOrNil()
}

// ConnectionResolver dispatches a connection name to the provider registered for its type.
type ConnectionResolver struct {
	providers map[string]StorageProvider
	cfg       *config.Config
}

// ResolverParams holds the dependencies of NewConnectionResolver.
type ResolverParams struct {
	fx.In
	Providers []StorageProvider `group:"storage_providers"`
	Cfg       *config.Config
}

// NewConnectionResolver creates a ConnectionResolver over every provided StorageProvider.
func NewConnectionResolver(p ResolverParams) *ConnectionResolver {
	providers := make(map[string]StorageProvider, len(p.Providers))
	for _, provider := range p.Providers {
		providers[provider.Type()] = provider
	}
	return &ConnectionResolver{providers: providers, cfg: p.Cfg}
}

func (r *ConnectionResolver) ResolveStorageConnection(ctx context.Context, name string) (StorageConnection, error) {
	storageCfg, ok := r.cfg.Surfin.Adapter.Storage[name]
	if !ok {
		return nil, fmt.Errorf("storage connection '%s' not found in configuration", name)
	}
	provider, ok := r.providers[storageCfg.Type]
	if !ok {
		return nil, fmt.Errorf("no storage provider found for type '%s' (connection '%s')", storageCfg.Type, name)
	}
	return provider.GetConnection(name)
}

// CloseAll closes the connections of every provider.
func (r *ConnectionResolver) CloseAll() error {
	var result *multierror.Error
	for _, provider := range r.providers {
		if err := provider.CloseAll(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

var _ StorageConnectionResolver = (*ConnectionResolver)(nil)

// Module provides the StorageConnectionResolver and closes its connections on shutdown.
var Module = fx.Options(
	fx.Provide(NewConnectionResolver),
	fx.Provide(func(r *ConnectionResolver) StorageConnectionResolver { return r }),
	fx.Invoke(func(lc fx.Lifecycle, r *ConnectionResolver) {
		lc.Append(fx.Hook{OnStop: func(ctx context.Context) error { return r.CloseAll() }})
	}),
)

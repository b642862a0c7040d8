package cli

import (
	"context"
	"fmt"

	"github.com/custodia-labs/ragsync/internal/adapters/driven/embedding/local"
	"github.com/custodia-labs/ragsync/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/ragsync/internal/adapters/driven/storage/sqlite"
	vecmemory "github.com/custodia-labs/ragsync/internal/adapters/driven/vector/memory"
	"github.com/custodia-labs/ragsync/internal/adapters/driven/vector/qdrant"
	"github.com/custodia-labs/ragsync/internal/chunker"
	"github.com/custodia-labs/ragsync/internal/config"
	"github.com/custodia-labs/ragsync/internal/connectors/filesystem"
	"github.com/custodia-labs/ragsync/internal/connectors/mediawiki"
	"github.com/custodia-labs/ragsync/internal/core/domain"
	"github.com/custodia-labs/ragsync/internal/core/ports/driven"
	"github.com/custodia-labs/ragsync/internal/core/services"
	"github.com/custodia-labs/ragsync/internal/logger"
	"github.com/custodia-labs/ragsync/internal/normalizers"
	htmlnorm "github.com/custodia-labs/ragsync/internal/normalizers/html"
	"github.com/custodia-labs/ragsync/internal/normalizers/markdown"
	"github.com/custodia-labs/ragsync/internal/normalizers/plaintext"
)

// app holds the wired services for one command invocation.
type app struct {
	cfg      *config.Config
	sources  []domain.SourceInstance
	store    *sqlite.Store
	index    driven.VectorIndex
	embedder driven.EmbeddingService
	ingestor *services.Ingestor
	runStore driven.RunStore
}

// newConnectorFactory builds the factory with all known connector types.
func newConnectorFactory() *services.ConnectorFactory {
	factory := services.NewConnectorFactory()
	factory.Register(filesystem.Type, filesystem.Builder)
	factory.Register(mediawiki.Type, mediawiki.Builder)
	return factory
}

// buildApp loads the configuration and wires the full service graph.
// Invalid configuration is fatal here, before any run starts.
func buildApp(ctx context.Context) (*app, error) {
	factory := newConnectorFactory()

	cfg, err := config.Load(cfgPath, factory.SupportedTypes())
	if err != nil {
		return nil, err
	}

	store, err := sqlite.NewStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open metadata store: %w", err)
	}

	a := &app{
		cfg:      cfg,
		sources:  cfg.Instances(),
		store:    store,
		runStore: store.RunStore(),
	}

	a.embedder, err = buildEmbedder(cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	a.index, err = buildIndex(ctx, cfg, a.embedder.Dimensions())
	if err != nil {
		a.embedder.Close()
		store.Close()
		return nil, err
	}

	ch := chunker.New(
		chunker.WithChunkSize(cfg.Chunking.Size),
		chunker.WithOverlap(cfg.Chunking.Overlap),
	)

	registry := normalizers.NewRegistry()
	registry.Register(plaintext.New())
	registry.Register(markdown.New())
	registry.Register(htmlnorm.New())

	tracker := store.MetadataTracker()
	dedup := services.NewDedupEngine(tracker)
	vsync := services.NewVectorSync(tracker, a.index, a.embedder, ch)

	a.ingestor = services.NewIngestor(factory, registry, dedup, vsync, tracker, a.runStore)
	a.ingestor.SetHistoryKeep(cfg.History.Keep)

	logger.Debug("Configured %d source instance(s), embedder %s (%d dims)",
		len(a.sources), a.embedder.ModelName(), a.embedder.Dimensions())

	return a, nil
}

func buildEmbedder(cfg *config.Config) (driven.EmbeddingService, error) {
	switch cfg.Embedding.Provider {
	case "openai":
		return openai.NewEmbeddingService(openai.Config{
			APIKey:  cfg.Embedding.APIKey,
			BaseURL: cfg.Embedding.BaseURL,
			Model:   cfg.Embedding.Model,
		})
	default:
		return local.NewEmbeddingService(local.DefaultDimensions), nil
	}
}

func buildIndex(ctx context.Context, cfg *config.Config, dimensions int) (driven.VectorIndex, error) {
	switch cfg.Vector.Provider {
	case "qdrant":
		index := qdrant.NewIndex(qdrant.Config{
			URL:        cfg.Vector.URL,
			APIKey:     cfg.Vector.APIKey,
			Collection: cfg.Vector.Collection,
		})
		if err := index.Init(ctx, dimensions); err != nil {
			return nil, fmt.Errorf("init vector index: %w", err)
		}
		return index, nil
	default:
		return vecmemory.NewIndex(), nil
	}
}

// close releases all resources in reverse construction order.
func (a *app) close() {
	if a.index != nil {
		a.index.Close()
	}
	if a.embedder != nil {
		a.embedder.Close()
	}
	if a.store != nil {
		a.store.Close()
	}
}

// findSource resolves a source instance by name.
func (a *app) findSource(name string) (domain.SourceInstance, error) {
	for _, src := range a.sources {
		if src.Name == name {
			return src, nil
		}
	}
	return domain.SourceInstance{}, fmt.Errorf("%w: source %q", domain.ErrNotFound, name)
}

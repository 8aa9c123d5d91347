// faunaseed ingests reference data into Redis/Valkey: ecoregion polygons,
// species records, specimen image embeddings and prevalence priors. Species
// text descriptions are embedded through the configured OpenAI-compatible
// provider when an API key is set.
//
// Usage:
//
//	faunaseed -seed seed.json [-reset] [-skip-embed] [-batch-size 100] [-cache-ttl 720h]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	geom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/faunalens/faunalens/internal/config"
	"github.com/faunalens/faunalens/internal/db"
	dbRedis "github.com/faunalens/faunalens/internal/db/redis"
	"github.com/faunalens/faunalens/internal/domain"
	domeco "github.com/faunalens/faunalens/internal/domain/ecoregion"
	domspecies "github.com/faunalens/faunalens/internal/domain/species"
	logpkg "github.com/faunalens/faunalens/internal/logger"
	"github.com/faunalens/faunalens/internal/metrics"
	embcacherepo "github.com/faunalens/faunalens/internal/repository/embcache"
	ecoregionrepo "github.com/faunalens/faunalens/internal/repository/ecoregion"
	priorrepo "github.com/faunalens/faunalens/internal/repository/prior"
	speciesrepo "github.com/faunalens/faunalens/internal/repository/species"
	specimenrepo "github.com/faunalens/faunalens/internal/repository/specimen"
	openaiEmb "github.com/faunalens/faunalens/internal/transport/openai"
)

type flags struct {
	seedPath  string
	batchSize int
	reset     bool
	skipEmbed bool
	cacheTTL  time.Duration
}

func parseFlags() flags {
	f := flags{}
	flag.StringVar(&f.seedPath, "seed", "seed.json", "path to the seed data file")
	flag.IntVar(&f.batchSize, "batch-size", 100, "records per pipelined upsert")
	flag.BoolVar(&f.reset, "reset", false, "purge stored data and recreate the FT indexes before loading")
	flag.BoolVar(&f.skipEmbed, "skip-embed", false, "skip text-description embedding")
	flag.DurationVar(&f.cacheTTL, "cache-ttl", 0, "expiry for cached description embeddings (0 keeps them forever)")
	flag.Parse()
	return f
}

// seedFile is the on-disk ingest format.
type seedFile struct {
	Ecoregions []seedEcoregion               `json:"ecoregions"`
	Species    []seedSpecies                 `json:"species"`
	Specimens  []seedSpecimen                `json:"specimens"`
	Priors     map[string]map[string]float64 `json:"priors"`
}

type seedEcoregion struct {
	Code     string          `json:"code"`
	Name     string          `json:"name"`
	Biome    string          `json:"biome"`
	Realm    string          `json:"realm"`
	Geometry json.RawMessage `json:"geometry"`
}

type seedSpecies struct {
	ID                 string   `json:"id"`
	CommonName         string   `json:"common_name"`
	ScientificName     string   `json:"scientific_name"`
	Class              string   `json:"class"`
	ConservationStatus string   `json:"conservation_status"`
	EcoCodes           []string `json:"eco_codes"`
	Description        string   `json:"description"`
}

type seedSpecimen struct {
	ID        string    `json:"id"`
	SpeciesID string    `json:"species_id"`
	EcoCodes  []string  `json:"eco_codes"`
	Embedding []float32 `json:"embedding"`
}

func main() {
	f := parseFlags()

	_ = godotenv.Load()

	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := run(ctx, f, cfg, logger); err != nil {
		logger.Fatal("Seed failed", zap.Error(err))
	}
}

func run(ctx context.Context, f flags, cfg config.Config, logger *zap.Logger) error {
	start := time.Now()

	seed, err := loadSeed(f.seedPath)
	if err != nil {
		return err
	}
	logger.Info("Seed file loaded",
		zap.String("path", f.seedPath),
		zap.Int("ecoregions", len(seed.Ecoregions)),
		zap.Int("species", len(seed.Species)),
		zap.Int("specimens", len(seed.Specimens)),
		zap.Int("prior_tables", len(seed.Priors)),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
	})
	if err != nil {
		return fmt.Errorf("create store: %w", err)
	}
	defer store.Close()

	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		return fmt.Errorf("database not ready: %w", err)
	}

	if f.reset {
		if err := purgeData(ctx, store, logger); err != nil {
			return err
		}
	}

	if err := ensureIndexes(ctx, store, cfg, f.reset, logger); err != nil {
		return err
	}

	var embedder domain.Embedder
	if cfg.Embedding.APIKey != "" && !f.skipEmbed {
		embedder = openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			Provider:   cfg.Embedding.Provider,
			Logger:     logger,
		})
		embedder = embcacherepo.New(embedder, store, cfg.Embedding.Model, f.cacheTTL,
			metrics.EmbeddingCacheTotal, logger)
	}

	if err := stageEcoregions(ctx, ecoregionrepo.New(store), seed.Ecoregions, logger); err != nil {
		return err
	}
	if err := stageSpecies(ctx, speciesrepo.New(store), seed.Species, embedder, logger); err != nil {
		return err
	}
	if err := stageSpecimens(ctx, specimenrepo.New(store), seed.Specimens, cfg.Index.VectorDim, f.batchSize, logger); err != nil {
		return err
	}
	if err := stagePriors(ctx, priorrepo.New(store), seed.Priors, logger); err != nil {
		return err
	}

	logger.Info("Seed complete", zap.Duration("elapsed", time.Since(start)))
	return nil
}

func loadSeed(path string) (*seedFile, error) {
	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied path
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var seed seedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return &seed, nil
}

// purgeData deletes every stored faunalens key except cached description
// embeddings. Those key on model+text, so they stay valid across a reset and
// keep the reload from re-billing unchanged descriptions.
func purgeData(ctx context.Context, store db.Store, logger *zap.Logger) error {
	keys, err := store.Scan(ctx, domain.KeyPrefix+"*")
	if err != nil {
		return fmt.Errorf("scan keys: %w", err)
	}
	deleted := 0
	for _, key := range keys {
		if strings.HasPrefix(key, embcacherepo.KeyPrefix) {
			continue
		}
		if err := store.Del(ctx, key); err != nil {
			return fmt.Errorf("delete key %s: %w", key, err)
		}
		deleted++
	}
	logger.Info("Stored data purged", zap.Int("deleted", deleted))
	return nil
}

func ensureIndexes(ctx context.Context, store db.Store, cfg config.Config, reset bool, logger *zap.Logger) error {
	defs := []*db.IndexDefinition{
		specimenrepo.Index(cfg.Index.VectorDim, cfg.Index.HNSWM, cfg.Index.HNSWEFConstruct),
		speciesrepo.Index(),
		ecoregionrepo.Index(),
	}
	for _, def := range defs {
		if reset {
			if err := store.DropIndex(ctx, def.Name); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
				return fmt.Errorf("drop index %s: %w", def.Name, err)
			}
		}
		if err := store.CreateIndex(ctx, def); err != nil {
			if errors.Is(err, db.ErrIndexExists) {
				logger.Info("Index already exists", zap.String("index", def.Name))
				continue
			}
			return fmt.Errorf("create index %s: %w", def.Name, err)
		}
		logger.Info("Index created", zap.String("index", def.Name))
	}
	return nil
}

func stageEcoregions(ctx context.Context, repo *ecoregionrepo.Repo, seeds []seedEcoregion, logger *zap.Logger) error {
	regions := make([]domeco.Ecoregion, 0, len(seeds))
	for _, s := range seeds {
		var g geom.T
		if len(s.Geometry) > 0 {
			if err := geojson.Unmarshal(s.Geometry, &g); err != nil {
				return fmt.Errorf("ecoregion %s: parse geometry: %w", s.Code, err)
			}
		}
		eco, err := domeco.New(s.Code, s.Name, s.Biome, s.Realm, g)
		if err != nil {
			return fmt.Errorf("ecoregion %s: %w", s.Code, err)
		}
		regions = append(regions, eco)
	}
	if err := repo.UpsertBatch(ctx, regions); err != nil {
		return fmt.Errorf("upsert ecoregions: %w", err)
	}
	logger.Info("Ecoregions loaded", zap.Int("count", len(regions)))
	return nil
}

func stageSpecies(
	ctx context.Context, repo *speciesrepo.Repo, seeds []seedSpecies,
	embedder domain.Embedder, logger *zap.Logger,
) error {
	records := make([]domspecies.Record, 0, len(seeds))
	embedded := 0
	skipped := 0
	for _, s := range seeds {
		// Resume after an interrupted run: records already stored keep
		// their data and never reach the embedding provider again.
		present, err := repo.Exists(ctx, s.ID)
		if err != nil {
			return fmt.Errorf("species %s: %w", s.ID, err)
		}
		if present {
			skipped++
			continue
		}

		rec, err := domspecies.New(s.ID, s.CommonName, s.ScientificName,
			domspecies.Class(s.Class), s.ConservationStatus, s.EcoCodes)
		if err != nil {
			return fmt.Errorf("species %s: %w", s.ID, err)
		}

		if embedder != nil && s.Description != "" {
			result, err := embedder.Embed(ctx, s.Description)
			if err != nil {
				return fmt.Errorf("species %s: embed description: %w", s.ID, err)
			}
			rec = domspecies.Reconstruct(s.ID, s.CommonName, s.ScientificName,
				domspecies.Class(s.Class), s.ConservationStatus, s.EcoCodes, result.Embedding)
			embedded++
		}
		records = append(records, rec)
	}
	if err := repo.UpsertBatch(ctx, records); err != nil {
		return fmt.Errorf("upsert species: %w", err)
	}
	logger.Info("Species loaded",
		zap.Int("count", len(records)),
		zap.Int("embedded", embedded),
		zap.Int("skipped", skipped),
	)
	return nil
}

func stageSpecimens(
	ctx context.Context, repo *specimenrepo.Repo, seeds []seedSpecimen,
	vectorDim, batchSize int, logger *zap.Logger,
) error {
	if batchSize <= 0 {
		batchSize = 100
	}

	batch := make([]specimenrepo.Entry, 0, batchSize)
	loaded := 0
	for _, s := range seeds {
		embedding := domain.Embedding(s.Embedding)
		if err := embedding.Validate(vectorDim); err != nil {
			return fmt.Errorf("specimen %s: %w", s.ID, err)
		}
		batch = append(batch, specimenrepo.Entry{
			ID:        s.ID,
			SpeciesID: s.SpeciesID,
			EcoCodes:  s.EcoCodes,
			Embedding: embedding,
		})
		if len(batch) == batchSize {
			if err := repo.UpsertBatch(ctx, batch); err != nil {
				return fmt.Errorf("upsert specimens: %w", err)
			}
			loaded += len(batch)
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		if err := repo.UpsertBatch(ctx, batch); err != nil {
			return fmt.Errorf("upsert specimens: %w", err)
		}
		loaded += len(batch)
	}
	logger.Info("Specimens loaded", zap.Int("count", loaded))
	return nil
}

func stagePriors(
	ctx context.Context, repo *priorrepo.Repo,
	tables map[string]map[string]float64, logger *zap.Logger,
) error {
	for ecoCode, priors := range tables {
		if err := domeco.ValidateCode(ecoCode); err != nil {
			return fmt.Errorf("prior table %s: %w", ecoCode, err)
		}
		if err := repo.SetAll(ctx, ecoCode, priors); err != nil {
			return fmt.Errorf("prior table %s: %w", ecoCode, err)
		}
	}
	logger.Info("Priors loaded", zap.Int("tables", len(tables)))
	return nil
}

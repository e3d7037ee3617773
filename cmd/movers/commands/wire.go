package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/movers/internal/external/twse"
	"github.com/wonny/movers/internal/movers"
	"github.com/wonny/movers/internal/publish"
	"github.com/wonny/movers/internal/store"
	"github.com/wonny/movers/pkg/config"
	"github.com/wonny/movers/pkg/database"
	"github.com/wonny/movers/pkg/httputil"
	"github.com/wonny/movers/pkg/logger"
	"github.com/wonny/movers/pkg/redis"
)

// runOptions are per-invocation overrides of the loaded config
type runOptions struct {
	format     string
	date       time.Time
	out        string
	policyFile string
}

// runtime holds the wired pipeline and everything that must be closed
type runtime struct {
	cfg       *config.Config
	log       *logger.Logger
	snapCfg   movers.Config
	pipeline  *movers.Pipeline
	artifact  *store.FileStore
	store     *store.Chain
	history   *store.PostgresStore
	publisher *publish.KafkaPublisher
	closers   []func()
}

// newRuntime wires feed → pipeline → stores. Redis, Postgres and Kafka are
// optional: a backend that is configured but unreachable is skipped with a
// warning so the artifact is still produced.
func newRuntime(ctx context.Context, cfg *config.Config, log *logger.Logger, opts runOptions) (*runtime, error) {
	if opts.out != "" {
		cfg.Artifact.Path = opts.out
	}
	if opts.format != "" {
		cfg.TWSE.Format = opts.format
	}
	if opts.policyFile != "" {
		cfg.Snapshot.PolicyFile = opts.policyFile
	}

	snapCfg, err := movers.FromSettings(cfg.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("snapshot config: %w", err)
	}

	rt := &runtime{cfg: cfg, log: log, snapCfg: snapCfg}
	rt.artifact = store.NewFileStore(cfg.Artifact.Path)

	var mirrors []movers.Store
	if cfg.Redis.Enabled {
		client, err := redis.New(ctx, cfg)
		if err != nil {
			log.WithError(err).Warn("Redis unavailable, snapshot mirror disabled")
		} else {
			rt.closers = append(rt.closers, func() { client.Close() })
			mirrors = append(mirrors, store.NewRedisStore(client))
		}
	}
	if cfg.Database.Enabled() {
		db, err := database.New(ctx, cfg)
		if err != nil {
			log.WithError(err).Warn("Database unavailable, snapshot history disabled")
		} else {
			rt.closers = append(rt.closers, db.Close)
			history := store.NewPostgresStore(db.Pool)
			if err := history.EnsureSchema(ctx); err != nil {
				log.WithError(err).Warn("Snapshot schema unavailable, snapshot history disabled")
			} else {
				rt.history = history
				mirrors = append(mirrors, history)
			}
		}
	}
	rt.store = store.NewChain(log, rt.artifact, mirrors...)

	client := twse.NewClient(httputil.New(cfg, log), cfg.TWSE, log)
	if !opts.date.IsZero() {
		client.WithDate(opts.date)
	}

	pipeline, err := movers.NewPipeline(client, rt.store, snapCfg, movers.SystemClock{}, log)
	if err != nil {
		rt.Close()
		return nil, err
	}
	if cfg.Kafka.Enabled() {
		rt.publisher = publish.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		rt.closers = append(rt.closers, func() { rt.publisher.Close() })
		pipeline.WithPublisher(rt.publisher)
	}
	rt.pipeline = pipeline

	log.WithFields(map[string]interface{}{
		"artifact": cfg.Artifact.Path,
		"format":   cfg.TWSE.Format,
		"formula":  string(snapCfg.ChangeFormula),
		"top_n":    snapCfg.TopN,
		"mirrors":  len(mirrors),
		"kafka":    cfg.Kafka.Enabled(),
	}).Debug("Runtime initialized")

	return rt, nil
}

// Close releases backends in reverse order
func (r *runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
	r.closers = nil
}

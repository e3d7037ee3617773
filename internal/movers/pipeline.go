package movers

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/wonny/movers/pkg/logger"
)

// Fetcher retrieves one raw feed. Timeouts and retries are its own concern;
// any error it returns is treated as a failed run.
type Fetcher interface {
	Fetch(ctx context.Context) (*RawFeed, error)
}

// Store persists artifacts. LoadLast returns (nil, nil) when nothing has been stored.
type Store interface {
	LoadLast(ctx context.Context) (*MarketSnapshot, error)
	Save(ctx context.Context, snapshot *MarketSnapshot) error
}

// Publisher announces a stored snapshot. Publish failures never fail a run.
type Publisher interface {
	Publish(ctx context.Context, result *RunResult) error
}

// RunResult describes one pipeline invocation.
type RunResult struct {
	RunID    string
	State    State
	Snapshot *MarketSnapshot
	Rows     int   // rows that produced a change percent
	Rejected int   // rows excluded by row-scoped errors
	Err      error // run-scoped cause, nil when live
}

// Pipeline runs fetch → normalize → compute → rank → assemble → persist,
// substituting a degraded snapshot on any run-scoped failure.
// Runs are serialized so a store never sees interleaved saves.
// ⭐ SSOT: 스냅샷 생성은 이 파이프라인에서만
type Pipeline struct {
	mu        sync.Mutex
	fetcher   Fetcher
	store     Store
	assembler *Assembler
	cfg       Config
	fields    FieldMap
	publisher Publisher
	logger    *logger.Logger
}

// NewPipeline creates a pipeline. A nil clock uses the system clock.
func NewPipeline(fetcher Fetcher, store Store, cfg Config, clock Clock, log *logger.Logger) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid snapshot config: %w", err)
	}
	return &Pipeline{
		fetcher:   fetcher,
		store:     store,
		assembler: NewAssembler(cfg, clock),
		cfg:       cfg,
		fields:    DefaultFieldMap,
		logger:    log,
	}, nil
}

// WithFieldMap overrides the header mapping.
func (p *Pipeline) WithFieldMap(fm FieldMap) *Pipeline {
	p.fields = fm
	return p
}

// WithPublisher announces every stored snapshot through pub.
func (p *Pipeline) WithPublisher(pub Publisher) *Pipeline {
	p.publisher = pub
	return p
}

// Run executes one snapshot run. The returned error is non-nil only when the
// artifact could not be stored; degraded runs report their cause in RunResult.Err.
func (p *Pipeline) Run(ctx context.Context) (*RunResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	result := &RunResult{RunID: uuid.NewString()}
	ctx = WithRunID(ctx, result.RunID)
	log := p.logger.WithField("run_id", result.RunID)

	snapshot, err := p.compute(ctx, result, log)
	if err != nil {
		result.State = Classify(err)
		result.Err = err
		snapshot = p.degrade(ctx, err, log)
		log.WithError(err).WithField("state", result.State.String()).Warn("Snapshot degraded")
	} else {
		result.State = StateLive
	}
	result.Snapshot = snapshot

	if err := p.store.Save(ctx, snapshot); err != nil {
		return result, fmt.Errorf("save snapshot: %w", err)
	}

	log.WithFields(map[string]interface{}{
		"state":    result.State.String(),
		"gainers":  len(snapshot.Gainers),
		"losers":   len(snapshot.Losers),
		"rows":     result.Rows,
		"rejected": result.Rejected,
	}).Info("Snapshot stored")

	if p.publisher != nil {
		if err := p.publisher.Publish(ctx, result); err != nil {
			log.WithError(err).Warn("Failed to publish snapshot")
		}
	}

	return result, nil
}

func (p *Pipeline) compute(ctx context.Context, result *RunResult, log *logger.Logger) (*MarketSnapshot, error) {
	feed, err := p.fetcher.Fetch(ctx)
	if err != nil {
		return nil, asRunError(err)
	}
	// Past this point nothing blocks; a deadline that already expired during
	// the fetch is the only cancellation honoured.
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{Source: feedSource(feed), Err: err}
	}

	rows, rejected, err := NormalizeFeed(feed, p.cfg, p.fields)
	if err != nil {
		return nil, err
	}
	result.Rows = len(rows)
	result.Rejected = len(rejected)
	for _, rerr := range rejected {
		log.WithError(rerr).Debug("Row excluded")
	}

	gainers, losers := Rank(rows, p.cfg)
	if len(gainers) == 0 && len(losers) == 0 {
		return nil, fmt.Errorf("%s: %w", feedSource(feed), ErrNoUsableRows)
	}

	snapshot := p.assembler.Assemble(gainers, losers)
	return &snapshot, nil
}

func (p *Pipeline) degrade(ctx context.Context, cause error, log *logger.Logger) *MarketSnapshot {
	prev, err := p.store.LoadLast(ctx)
	if err != nil {
		log.WithError(err).Warn("Failed to load last snapshot, emitting placeholder")
		prev = nil
	}
	if IsPlaceholder(prev) {
		prev = nil
	}
	snapshot := p.assembler.Degrade(prev, cause)
	return &snapshot
}

// asRunError keeps typed feed errors and wraps everything else as a fetch failure.
func asRunError(err error) error {
	var (
		fetchErr     *FetchError
		emptyErr     *EmptyFeedError
		malformedErr *MalformedFeedError
	)
	if errors.As(err, &fetchErr) || errors.As(err, &emptyErr) || errors.As(err, &malformedErr) {
		return err
	}
	return &FetchError{Source: "feed", Err: err}
}

type runIDKey struct{}

// WithRunID attaches the run identifier so stores and publishers can tag records.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunIDFrom returns the run identifier attached by WithRunID, or "".
func RunIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

func feedSource(feed *RawFeed) string {
	if feed == nil || feed.Source == "" {
		return "feed"
	}
	return feed.Source
}

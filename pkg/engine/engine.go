// Package engine wires the memory subsystems into one facade: ingestion
// through segmentation into working memory, hybrid retrieval with priming
// and reconsolidation, outcome feedback, and the background consolidation
// orchestrator.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mnemos/mnemos/config"
	"github.com/mnemos/mnemos/pkg/consolidation"
	"github.com/mnemos/mnemos/pkg/logger"
	"github.com/mnemos/mnemos/pkg/memory"
	"github.com/mnemos/mnemos/pkg/metrics"
	"github.com/mnemos/mnemos/pkg/notify"
	"github.com/mnemos/mnemos/pkg/retrieval"
	"github.com/mnemos/mnemos/pkg/segment"
	"github.com/mnemos/mnemos/pkg/storage"
	"github.com/mnemos/mnemos/pkg/workingmem"
)

// State represents the lifecycle state of the engine.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Engine is the memory engine facade.
type Engine struct {
	cfg     *config.Config
	log     logger.Logger
	metrics *metrics.Manager
	clock   memory.Clock
	bus     *notify.Bus

	store     storage.Store
	ownsStore bool

	segmenter    *segment.Segmenter
	working      *workingmem.Set
	bm25         *retrieval.BM25Index
	vector       *retrieval.VectorIndex
	priming      *retrieval.PrimingTable
	retriever    *retrieval.Engine
	controller   *consolidation.Controller
	orchestrator *consolidation.Orchestrator
	embedder     retrieval.EmbeddingProvider
	scorer       retrieval.RelevanceScorer

	mu       sync.Mutex
	state    State
	lastZone workingmem.Zone
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// New builds an engine from configuration. Options supply the pluggable
// pieces: providers, logger, metrics, clock, store, and bus.
func New(cfg *config.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	e := &Engine{
		cfg:     cfg,
		log:     logger.Nop(),
		metrics: metrics.NoOpManager(),
		clock:   memory.SystemClock{},
		bus:     notify.NewBus(),
		state:   StateIdle,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.store == nil {
		store, owns, err := openStore(cfg.Storage)
		if err != nil {
			return nil, err
		}
		e.store = store
		e.ownsStore = owns
	}

	e.segmenter = segment.New(segment.Config{
		EntropyThreshold:    cfg.Segmenter.EntropyThreshold,
		MinEventSpacing:     cfg.Segmenter.MinEventSpacing,
		WindowSize:          cfg.Segmenter.WindowSize,
		ReferenceWindowSize: cfg.Segmenter.ReferenceWindowSize,
		CoherenceWindow:     cfg.Segmenter.CoherenceWindow,
		SurpriseWeight:      cfg.Segmenter.SurpriseWeight,
		KLWeight:            cfg.Segmenter.KLWeight,
		CoherenceWeight:     cfg.Segmenter.CoherenceWeight,
	})

	halfLives := make(map[workingmem.ContentType]time.Duration, len(cfg.WorkingMemory.HalfLives))
	for name, d := range cfg.WorkingMemory.HalfLives {
		halfLives[workingmem.ContentType(name)] = d
	}
	decay := workingmem.NewDecayCalculator(workingmem.DecayConfig{
		HalfLives:        halfLives,
		DefaultHalfLife:  cfg.WorkingMemory.DefaultHalfLife,
		LowMultiplier:    cfg.WorkingMemory.LowMultiplier,
		MediumMultiplier: cfg.WorkingMemory.MediumMultiplier,
		HighMultiplier:   cfg.WorkingMemory.HighMultiplier,
	})
	e.working = workingmem.NewSet(workingmem.SetConfig{
		Capacity:                 cfg.WorkingMemory.Capacity,
		OptimalMax:               cfg.WorkingMemory.OptimalMax,
		CautionCount:             cfg.WorkingMemory.CautionCount,
		NearCapacityCount:        cfg.WorkingMemory.NearCapacityCount,
		ArchivalDecayThreshold:   cfg.WorkingMemory.ArchivalDecayThreshold,
		ArchivalImportanceCutoff: cfg.WorkingMemory.ArchivalImportanceCutoff,
		DefaultDecayRate:         cfg.WorkingMemory.DefaultDecayRate,
	}, decay, e.clock)
	e.lastZone = e.working.Zone()

	e.bm25 = retrieval.NewBM25Index(cfg.Retrieval.BM25K1, cfg.Retrieval.BM25B)
	e.vector = retrieval.NewVectorIndex(cfg.Retrieval.VectorDimension)
	e.priming = retrieval.NewPrimingTable(retrieval.PrimingConfig{
		ShortWindow:  cfg.Priming.ShortWindow,
		MediumWindow: cfg.Priming.MediumWindow,
		LongWindow:   cfg.Priming.LongWindow,
		ShortBoost:   cfg.Priming.ShortBoost,
		MediumBoost:  cfg.Priming.MediumBoost,
		LongBoost:    cfg.Priming.LongBoost,
	}, e.clock)

	if e.embedder != nil {
		e.embedder = retrieval.NewLimitedEmbedder(e.embedder,
			cfg.Retrieval.EmbedRPS, cfg.Retrieval.EmbedBurst, cfg.Retrieval.EmbedTimeout)
	}
	scorer := e.scorer
	if scorer != nil {
		scorer = retrieval.NewLimitedScorer(scorer, cfg.Retrieval.ScoreTimeout)
	}
	reranker := retrieval.NewReranker(retrieval.RerankerConfig{
		VectorWeight:    cfg.Retrieval.VectorWeight,
		RelevanceWeight: cfg.Retrieval.RelevanceWeight,
		TopK:            cfg.Retrieval.RerankTopK,
	}, scorer)

	fuser := retrieval.NewFuser(cfg.Retrieval.RRFK)
	e.retriever = retrieval.NewEngine(e.bm25, e.vector, fuser, e.priming, reranker, e.embedder, e.log)

	e.controller = consolidation.NewController(consolidation.ControllerConfig{
		ReconsolidationWindow: cfg.Reconsolidation.Window,
		SuccessIncrement:      cfg.Reconsolidation.SuccessIncrement,
		FailureDecrement:      cfg.Reconsolidation.FailureDecrement,
		DeprecationFloor:      cfg.Reconsolidation.DeprecationFloor,
	}, e.store, e.store, e.clock, e.log)

	extractor := consolidation.NewExtractor(consolidation.ExtractorConfig{
		MinSampleSize:       cfg.Consolidation.MinSampleSize,
		ConfidenceThreshold: cfg.Consolidation.ConfidenceThreshold,
	})
	e.orchestrator = consolidation.NewOrchestrator(consolidation.OrchestratorConfig{
		Interval:  cfg.Consolidation.Interval,
		Lookback:  cfg.Consolidation.Lookback,
		MinEvents: cfg.Consolidation.MinEvents,
		Backoff:   cfg.Consolidation.Backoff,
	}, e.store, extractor, e.controller, e.clock, e.log, e.bus)

	return e, nil
}

func openStore(cfg config.StorageConfig) (storage.Store, bool, error) {
	switch cfg.Backend {
	case "", "memory":
		return storage.NewMemStore(), true, nil
	case "badger":
		store, err := storage.OpenBadger(cfg.Path)
		if err != nil {
			return nil, false, fmt.Errorf("open badger store: %w", err)
		}
		return store, true, nil
	default:
		return nil, false, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Start loads persisted priming rows and launches the background loops:
// the consolidation orchestrator and the working-memory decay sweep.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.state == StateRunning {
		e.mu.Unlock()
		return fmt.Errorf("engine is already running")
	}
	e.state = StateRunning
	loopCtx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.mu.Unlock()

	rows, err := e.store.ListPriming(ctx)
	if err != nil {
		e.log.Warn("loading priming rows failed", "error", err)
	} else {
		e.priming.Load(rows)
	}

	e.orchestrator.Start(loopCtx)

	runSub := e.bus.Subscribe(notify.SubjectConsolidationRun, 16)
	e.wg.Add(2)
	go func() {
		defer e.wg.Done()
		e.sweepLoop(loopCtx)
	}()
	go func() {
		defer e.wg.Done()
		e.recordRuns(loopCtx, runSub)
	}()

	e.log.Info("engine started",
		"storage", e.cfg.Storage.Backend,
		"capacity", e.cfg.WorkingMemory.Capacity,
	)
	return nil
}

// Stop halts the background loops, persists priming rows, and closes the
// store if the engine opened it.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	if e.state != StateRunning {
		e.mu.Unlock()
		return nil
	}
	e.state = StateStopped
	cancel := e.cancel
	e.mu.Unlock()

	e.orchestrator.Stop()
	cancel()
	e.wg.Wait()

	for _, row := range e.priming.Rows() {
		if err := e.store.PutPriming(ctx, row); err != nil {
			e.log.Warn("persisting priming row failed", "memory_id", row.MemoryID, "error", err)
		}
	}

	if e.ownsStore {
		if err := e.store.Close(); err != nil {
			return fmt.Errorf("close store: %w", err)
		}
	}
	e.log.Info("engine stopped")
	return nil
}

// sweepLoop periodically archives decayed working-memory items and purges
// expired priming rows.
func (e *Engine) sweepLoop(ctx context.Context) {
	interval := e.cfg.WorkingMemory.DecayInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := e.archiveDecayed(ctx); n > 0 {
				e.log.Debug("archived decayed items", "count", n)
			}
			if n := e.priming.Purge(); n > 0 {
				_, _ = e.store.DeleteExpiredPriming(ctx, e.clock.Now())
			}
		}
	}
}

// recordRuns feeds finished consolidation runs from the bus into the
// metrics manager.
func (e *Engine) recordRuns(ctx context.Context, sub *notify.Subscription) {
	defer sub.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-sub.C():
			var run memory.ConsolidationRun
			if err := msg.Decode(&run); err != nil {
				continue
			}
			e.metrics.RecordConsolidationRun(run.Status.String(), run.Duration)
			e.metrics.RecordPatternsMined(run.EntitiesCreated)
		}
	}
}

// archiveDecayed moves archivable working-memory items into long-term
// storage as unconsolidated records and indexes them for retrieval.
func (e *Engine) archiveDecayed(ctx context.Context) int {
	candidates := e.working.ItemsForArchiving()
	if len(candidates) == 0 {
		return 0
	}
	ids := make([]string, 0, len(candidates))
	for _, item := range candidates {
		ids = append(ids, item.ID)
	}

	archived := e.working.Archive(ids)
	for _, item := range archived {
		if _, err := e.remember(ctx, item.Content, "", item.Importance); err != nil {
			e.log.Warn("archiving working item failed", "item_id", item.ID, "error", err)
			continue
		}
		e.bus.Publish(notify.SubjectItemArchived, item)
	}
	e.metrics.RecordArchived(len(archived))
	e.metrics.SetWorkingItems(e.working.Len())
	e.noteZone()
	return len(archived)
}

// noteZone publishes and records a zone change if one occurred.
func (e *Engine) noteZone() workingmem.Zone {
	zone := e.working.Zone()
	e.mu.Lock()
	changed := zone != e.lastZone
	e.lastZone = zone
	e.mu.Unlock()
	if changed {
		e.metrics.RecordZoneChange(zone.String())
		e.bus.Publish(notify.SubjectZoneChanged, map[string]any{
			"zone":  zone.String(),
			"count": e.working.Len(),
		})
	}
	return zone
}

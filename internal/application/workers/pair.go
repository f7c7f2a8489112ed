package workers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aescanero/dualrate/pkg/ports"
	"go.uber.org/zap"
)

// ErrAlreadyStarted is returned by Start on a pair that was started before
var ErrAlreadyStarted = errors.New("worker pair already started")

// PairState represents the lifecycle of the pair
type PairState string

const (
	PairStateNotStarted PairState = "not_started"
	PairStateRunning    PairState = "running"
	PairStateCompleted  PairState = "completed"
	PairStateFailed     PairState = "failed"
)

// Config holds worker pair configuration
type Config struct {
	RunID        string
	FastInterval time.Duration
	// MaxEmits stops each worker after that many emits; 0 means never
	MaxEmits            uint64
	PinCPUs             bool
	FastCPU             int
	SlowCPU             int
	HealthCheckInterval time.Duration
	// Spawner defaults to a ThreadSpawner
	Spawner Spawner
}

// Pair runs the fast and the slow worker against one shared output sink
type Pair struct {
	cfg     Config
	sink    ports.OutputSink
	metrics ports.MetricsCollector
	logger  *zap.Logger
	health  *HealthMonitor
	spawner Spawner

	workers []*worker
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}

	mu    sync.RWMutex
	state PairState
}

// Specs returns the worker specs for cfg, fast first. The slow interval is
// always SlowFactor times the fast one.
func Specs(cfg Config) []Spec {
	fastCPU, slowCPU := NoCPU, NoCPU
	if cfg.PinCPUs {
		fastCPU, slowCPU = cfg.FastCPU, cfg.SlowCPU
	}

	return []Spec{
		{
			Identity: IdentityFast,
			Message:  FastMessage,
			Interval: cfg.FastInterval,
			CPU:      fastCPU,
		},
		{
			Identity: IdentitySlow,
			Message:  SlowMessage,
			Interval: cfg.FastInterval * SlowFactor,
			CPU:      slowCPU,
		},
	}
}

// NewPair creates a new worker pair. store may be nil, in which case the
// health monitor does not persist snapshots.
func NewPair(
	cfg Config,
	sink ports.OutputSink,
	metrics ports.MetricsCollector,
	store ports.StatusStore,
	logger *zap.Logger,
) *Pair {
	ctx, cancel := context.WithCancel(context.Background())

	spawner := cfg.Spawner
	if spawner == nil {
		spawner = NewThreadSpawner()
	}

	pair := &Pair{
		cfg:     cfg,
		sink:    sink,
		metrics: metrics,
		logger:  logger,
		spawner: spawner,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		state:   PairStateNotStarted,
	}

	for _, spec := range Specs(cfg) {
		pair.workers = append(pair.workers, newWorker(spec, pair))
	}

	pair.health = NewHealthMonitor(pair, cfg.HealthCheckInterval, store, logger)

	return pair
}

// Start launches the fast worker and then the slow worker.
//
// If a worker cannot be launched Start returns a *WorkerLaunchError at once.
// The remaining worker is not launched and a worker that is already running
// is left alone.
func (p *Pair) Start() error {
	p.mu.Lock()
	if p.state != PairStateNotStarted {
		p.mu.Unlock()
		return ErrAlreadyStarted
	}
	p.state = PairStateRunning
	p.mu.Unlock()

	p.logger.Info("starting worker pair",
		zap.String("run_id", p.cfg.RunID),
		zap.Duration("fast_interval", p.workers[0].spec.Interval),
		zap.Duration("slow_interval", p.workers[1].spec.Interval),
		zap.Uint64("max_emits", p.cfg.MaxEmits))

	for _, w := range p.workers {
		id := string(w.spec.Identity)
		p.metrics.SetSuspendInterval(id, w.spec.Interval)

		w.setStatus(WorkerStatusRunning)
		p.wg.Add(1)

		if err := p.spawner.Spawn(w.spec, func(threadID int) {
			w.run(p.ctx, threadID)
		}); err != nil {
			p.wg.Done()
			w.setStatus(WorkerStatusFailed)
			p.metrics.IncLaunchFailures(id)

			p.mu.Lock()
			p.state = PairStateFailed
			p.mu.Unlock()
			go p.wait()

			launchErr := newWorkerLaunchError(w.spec.Identity, err)
			p.logger.Error("failed to launch worker",
				zap.String("worker_id", id),
				zap.Int("code", launchErr.Code),
				zap.Error(err))
			return launchErr
		}
	}

	go p.wait()

	// Start health monitor
	p.health.Start()

	p.logger.Info("worker pair started", zap.Int("workers", len(p.workers)))
	return nil
}

// wait closes done once every launched worker has returned
func (p *Pair) wait() {
	p.wg.Wait()

	p.mu.Lock()
	if p.state == PairStateRunning {
		p.state = PairStateCompleted
	}
	p.mu.Unlock()

	close(p.done)
}

// Done returns a channel closed once both workers have finished
func (p *Pair) Done() <-chan struct{} {
	return p.done
}

// Await blocks until both workers have finished. Workers without an emit
// limit only finish on Shutdown, so by default this never returns.
func (p *Pair) Await() {
	<-p.done
}

// Shutdown asks the workers to stop and waits for them, bounded by ctx
func (p *Pair) Shutdown(ctx context.Context) error {
	p.logger.Info("shutting down worker pair")

	// Stop health monitor
	p.health.Stop()

	// Cancel context to signal workers to stop
	p.cancel()

	p.mu.RLock()
	state := p.state
	p.mu.RUnlock()
	if state == PairStateNotStarted {
		return nil
	}

	select {
	case <-p.done:
		p.logger.Info("worker pair shut down complete")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timeout: %w", ctx.Err())
	}
}

// State returns the lifecycle state of the pair
func (p *Pair) State() PairState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// RunID returns the id of this run
func (p *Pair) RunID() string {
	return p.cfg.RunID
}

// Health returns the pair's health monitor
func (p *Pair) Health() *HealthMonitor {
	return p.health
}

// GetStatus returns the status of both workers, fast first
func (p *Pair) GetStatus() []WorkerInfo {
	infos := make([]WorkerInfo, 0, len(p.workers))
	for _, w := range p.workers {
		infos = append(infos, w.info())
	}
	return infos
}

// Worker returns the status of a single worker
func (p *Pair) Worker(id Identity) (WorkerInfo, bool) {
	for _, w := range p.workers {
		if w.spec.Identity == id {
			return w.info(), true
		}
	}
	return WorkerInfo{}, false
}

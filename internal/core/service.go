package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RunTimeout is the maximum duration for a single run.
var RunTimeout = 5 * time.Minute

// ResultRetention is how long a finished run stays tracked and its archive
// stays downloadable.
var ResultRetention = 15 * time.Minute

// MaxUploadBytes is the maximum allowed CSV file size (50MB).
var MaxUploadBytes int64 = 50 * 1024 * 1024

// Sentinel errors for run lookup and download. Wrapped with run IDs at the
// call sites; match with errors.Is.
var (
	ErrRunNotFound        = errors.New("run not found")
	ErrRunNotFinished     = errors.New("run not finished")
	ErrArchiveUnavailable = errors.New("archive no longer available")
	ErrUnknownReport      = errors.New("unknown report")
	ErrNoFile             = errors.New("no file provided")
	ErrEmptyFile          = errors.New("empty file")
	ErrFileTooLarge       = errors.New("file too large")
	ErrBadFileType        = errors.New("unsupported file type")
)

// ServiceOptions configures a Service.
// Zero values fall back to the package-level defaults.
type ServiceOptions struct {
	MaxConcurrentRuns int           // parallel runs allowed (DefaultMaxConcurrentRuns)
	AcquireWait       time.Duration // wait for a free slot before rejecting (DefaultMaxWaitTime)
	RunTimeout        time.Duration // per-run processing deadline (RunTimeout)
	ResultRetention   time.Duration // how long finished runs stay tracked (ResultRetention)
	HistoryLimit      int           // recent runs kept in memory (DefaultHistoryLimit)
	MaxUploadBytes    int64         // upload size ceiling (MaxUploadBytes)
	Logger            *slog.Logger  // run diagnostics (slog.Default)
}

func (o ServiceOptions) withDefaults() ServiceOptions {
	if o.RunTimeout <= 0 {
		o.RunTimeout = RunTimeout
	}
	if o.ResultRetention <= 0 {
		o.ResultRetention = ResultRetention
	}
	if o.MaxUploadBytes <= 0 {
		o.MaxUploadBytes = MaxUploadBytes
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Service provides the core business logic for report-splitting runs.
type Service struct {
	opts    ServiceOptions
	limiter *RunLimiter
	logger  *slog.Logger
	history *runHistory

	mu   sync.RWMutex
	runs map[string]*activeRun
}

type activeRun struct {
	ID          string
	ReportKey   string
	GroupColumn string
	FileName    string
	ClientIP    string
	UserAgent   string
	StartedAt   time.Time

	Cancel func()
	Done   chan struct{}

	mu          sync.Mutex
	progress    RunProgress
	result      *RunResult
	archive     []byte
	archiveName string
	revoked     bool
	listeners   []chan RunProgress
}

// NewService creates a new Service instance.
func NewService(opts ServiceOptions) *Service {
	opts = opts.withDefaults()

	return &Service{
		opts:    opts,
		limiter: NewRunLimiter(opts.MaxConcurrentRuns, opts.AcquireWait),
		logger:  opts.Logger,
		history: newRunHistory(opts.HistoryLimit),
		runs:    make(map[string]*activeRun),
	}
}

// ListReports returns information about all registered reports.
func (s *Service) ListReports() []ReportDefinition {
	return All()
}

// StartRun begins an asynchronous run over one uploaded file.
// Returns the run ID immediately. Use SubscribeProgress to get updates.
func (s *Service) StartRun(ctx context.Context, req StartRunRequest) (string, error) {
	def, ok := Get(req.ReportKey)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownReport, req.ReportKey)
	}
	if req.Source == nil {
		return "", ErrNoFile
	}
	if !allowedFileName(req.FileName) {
		return "", fmt.Errorf("%w: %s", ErrBadFileType, req.FileName)
	}
	if req.Size > s.opts.MaxUploadBytes {
		return "", fmt.Errorf("%w: %d bytes (limit %d)", ErrFileTooLarge, req.Size, s.opts.MaxUploadBytes)
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return "", err
	}

	cfg := def.PipelineConfig()
	if req.GroupColumn != "" {
		cfg.GroupColumn = req.GroupColumn
	}

	runID := uuid.New().String()

	// Runs outlive the request; the deadline comes from the service, not
	// the caller's context.
	runCtx, cancel := context.WithTimeout(context.Background(), s.opts.RunTimeout)

	run := &activeRun{
		ID:          runID,
		ReportKey:   req.ReportKey,
		GroupColumn: cfg.GroupColumn,
		FileName:    req.FileName,
		ClientIP:    ClientIPFromContext(ctx),
		UserAgent:   UserAgentFromContext(ctx),
		StartedAt:   time.Now(),
		Cancel:      cancel,
		Done:        make(chan struct{}),
		progress: RunProgress{
			RunID:      runID,
			ReportKey:  req.ReportKey,
			Phase:      PhaseStarting,
			FileName:   req.FileName,
			BytesTotal: req.Size,
		},
	}

	s.mu.Lock()
	s.runs[runID] = run
	s.mu.Unlock()

	// Process in background
	go s.processRun(runCtx, run, cfg, req)

	return runID, nil
}

// allowedFileName accepts .csv and .txt uploads plus unnamed input.
// Only the extension is checked here; content problems surface later as
// parse errors.
func allowedFileName(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == "" || ext == ".csv" || ext == ".txt"
}

// SubscribeProgress returns a channel that receives progress updates.
// The channel is closed when the run completes. Subscribing to a finished
// run yields its final state followed by an immediate close.
func (s *Service) SubscribeProgress(runID string) (<-chan RunProgress, error) {
	run, err := s.lookup(runID)
	if err != nil {
		return nil, err
	}

	ch := make(chan RunProgress, 10)

	run.mu.Lock()
	ch <- run.progress
	select {
	case <-run.Done:
		close(ch)
	default:
		run.listeners = append(run.listeners, ch)
	}
	run.mu.Unlock()

	return ch, nil
}

// Status returns the run's current progress and, once finished, its result.
func (s *Service) Status(runID string) (RunStatus, error) {
	run, err := s.lookup(runID)
	if err != nil {
		return RunStatus{}, err
	}

	run.mu.Lock()
	defer run.mu.Unlock()

	return RunStatus{
		Progress: run.progress,
		Percent:  run.progress.Percent(),
		Result:   run.result,
	}, nil
}

// WaitResult blocks until the run completes, then returns its result.
func (s *Service) WaitResult(ctx context.Context, runID string) (*RunResult, error) {
	run, err := s.lookup(runID)
	if err != nil {
		return nil, err
	}

	select {
	case <-run.Done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	run.mu.Lock()
	defer run.mu.Unlock()
	return run.result, nil
}

// Archive returns the finished archive's bytes and download name.
// The archive is available from completion until the run is revoked or
// expires.
func (s *Service) Archive(runID string) ([]byte, string, error) {
	run, err := s.lookup(runID)
	if err != nil {
		return nil, "", err
	}

	run.mu.Lock()
	defer run.mu.Unlock()

	if run.result == nil {
		return nil, "", fmt.Errorf("%w: %s", ErrRunNotFinished, runID)
	}
	if run.result.Error != "" {
		return nil, "", fmt.Errorf("%w: run failed: %s", ErrArchiveUnavailable, run.result.Error)
	}
	if run.revoked || run.archive == nil {
		return nil, "", fmt.Errorf("%w: %s", ErrArchiveUnavailable, runID)
	}
	return run.archive, run.archiveName, nil
}

// Revoke discards the run's archive so it can no longer be downloaded.
// Revoking twice, or revoking an unknown or expired run, is a silent no-op.
func (s *Service) Revoke(runID string) {
	s.mu.RLock()
	run, ok := s.runs[runID]
	s.mu.RUnlock()
	if !ok {
		return
	}

	run.mu.Lock()
	already := run.revoked
	run.revoked = true
	run.archive = nil
	run.mu.Unlock()

	if !already {
		s.logger.Info("archive revoked", "run_id", runID)
	}
}

// ListRuns returns recent runs, newest first: in-flight runs ahead of the
// retained history of finished ones.
func (s *Service) ListRuns() []RunRecord {
	s.mu.RLock()
	active := make([]*activeRun, 0, len(s.runs))
	for _, run := range s.runs {
		active = append(active, run)
	}
	s.mu.RUnlock()

	records := make([]RunRecord, 0, len(active))
	for _, run := range active {
		run.mu.Lock()
		if run.result == nil {
			records = append(records, run.recordLocked())
		}
		run.mu.Unlock()
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].StartedAt.After(records[j].StartedAt)
	})

	return append(records, s.history.Recent()...)
}

// PurgeAll revokes every tracked archive, cancels in-flight runs, and
// clears the run history. Returns the number of runs affected.
func (s *Service) PurgeAll() int {
	s.mu.Lock()
	runs := s.runs
	s.runs = make(map[string]*activeRun)
	s.mu.Unlock()

	for _, run := range runs {
		run.Cancel()
		run.mu.Lock()
		run.revoked = true
		run.archive = nil
		run.mu.Unlock()
	}

	purged := len(runs) + s.history.Clear()
	s.logger.Warn("all runs purged", "count", purged)
	return purged
}

// ActiveRuns returns the number of runs currently processing.
func (s *Service) ActiveRuns() int {
	return s.limiter.ActiveCount()
}

// LimiterStatus reports the run limiter's current occupancy.
func (s *Service) LimiterStatus() RunLimiterStatus {
	return s.limiter.Status()
}

// WaitForRuns blocks until in-flight runs finish or the context is
// cancelled. Used during graceful shutdown.
func (s *Service) WaitForRuns(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

func (s *Service) lookup(runID string) (*activeRun, error) {
	s.mu.RLock()
	run, ok := s.runs[runID]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return run, nil
}

// cleanup removes the run from tracking after a delay.
func (s *Service) cleanup(runID string, delay time.Duration) {
	time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.runs, runID)
		s.mu.Unlock()
	})
}

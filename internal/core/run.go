package core

// run.go drives one run from uploaded bytes to a finished archive. The
// splitting itself lives in internal/pipeline; this file owns phase
// transitions, progress broadcast, and bookkeeping around the pipeline call.

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/reportkit/splitcsv/internal/pipeline"
)

// readChunkSize is the buffer size used while ingesting uploads.
const readChunkSize = 256 * 1024

// processRun executes one run to completion in the background.
func (s *Service) processRun(ctx context.Context, run *activeRun, cfg pipeline.Config, req StartRunRequest) {
	start := time.Now()

	defer s.limiter.Release()
	defer func() {
		run.finish()
		run.Cancel()
		s.cleanup(run.ID, s.opts.ResultRetention)
	}()

	logger := s.logger.With("run_id", run.ID, "report", run.ReportKey)
	logger.Info("run started", "file", run.FileName, "bytes", req.Size)

	data, err := s.readInput(ctx, run, req)
	if err != nil {
		s.failRun(run, start, err, logger)
		return
	}

	cfg.Logger = logger
	cfg.OnStage = func(st pipeline.Stage) {
		run.setPhase(stagePhase(st))
	}

	res, err := pipeline.Run(ctx, data, cfg)
	if err != nil {
		s.failRun(run, start, err, logger)
		return
	}

	folder := cfg.Folder
	if folder == "" {
		folder = pipeline.DefaultFolder
	}
	name := pipeline.ArchiveName(folder, time.Now())

	result := &RunResult{
		RunID:       run.ID,
		ReportKey:   run.ReportKey,
		GroupColumn: cfg.GroupColumn,
		FileName:    run.FileName,
		ArchiveName: name,
		ArchiveSize: len(res.Archive),
		Entries:     res.Entries,
		Stats:       res.Stats,
		DurationMs:  time.Since(start).Milliseconds(),
		CompletedAt: time.Now(),
	}

	run.complete(result, res.Archive, name)
	s.history.Add(run.record())

	logger.Info("run complete",
		"groups", res.Stats.Groups,
		"entries", len(res.Entries),
		"archive_bytes", len(res.Archive),
		"duration_ms", result.DurationMs,
	)
}

// readInput drains the request source into memory, reporting byte progress.
func (s *Service) readInput(ctx context.Context, run *activeRun, req StartRunRequest) ([]byte, error) {
	run.setPhase(PhaseReading)

	counter := NewCountingReader(req.Source, req.Size)

	var buf bytes.Buffer
	if req.Size > 0 && req.Size <= s.opts.MaxUploadBytes {
		buf.Grow(int(req.Size))
	}

	chunk := make([]byte, readChunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return nil, &pipeline.ResourceError{Op: "read", Err: err}
		}

		n, err := counter.Read(chunk)
		if n > 0 {
			if int64(buf.Len()+n) > s.opts.MaxUploadBytes {
				return nil, fmt.Errorf("%w: limit %d bytes", ErrFileTooLarge, s.opts.MaxUploadBytes)
			}
			buf.Write(chunk[:n])
			run.setBytesRead(counter.BytesRead, counter.Total)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &pipeline.ResourceError{Op: "read", Err: err}
		}
	}

	if buf.Len() == 0 {
		return nil, ErrEmptyFile
	}

	return buf.Bytes(), nil
}

// failRun records a terminal failure and broadcasts it.
func (s *Service) failRun(run *activeRun, start time.Time, err error, logger *slog.Logger) {
	logger.Error("run failed", "error", err)

	result := &RunResult{
		RunID:       run.ID,
		ReportKey:   run.ReportKey,
		GroupColumn: run.GroupColumn,
		FileName:    run.FileName,
		DurationMs:  time.Since(start).Milliseconds(),
		CompletedAt: time.Now(),
		Error:       err.Error(),
	}

	run.mu.Lock()
	run.result = result
	run.progress.Phase = PhaseFailed
	run.progress.Error = err.Error()
	run.notifyLocked()
	run.mu.Unlock()

	s.history.Add(run.record())
}

// stagePhase maps pipeline stages onto run phases.
func stagePhase(st pipeline.Stage) RunPhase {
	switch st {
	case pipeline.StageParse:
		return PhaseParsing
	case pipeline.StageGroup:
		return PhaseGrouping
	case pipeline.StageSerialize:
		return PhaseSerializing
	case pipeline.StageArchive:
		return PhaseArchiving
	}
	return PhaseStarting
}

// setPhase updates the run's phase and broadcasts to listeners.
func (run *activeRun) setPhase(phase RunPhase) {
	run.mu.Lock()
	run.progress.Phase = phase
	run.notifyLocked()
	run.mu.Unlock()
}

// setBytesRead updates read progress and broadcasts to listeners.
func (run *activeRun) setBytesRead(n, total int64) {
	run.mu.Lock()
	run.progress.BytesRead = n
	if total > 0 {
		run.progress.BytesTotal = total
	}
	run.notifyLocked()
	run.mu.Unlock()
}

// complete stores the result and archive and broadcasts the final state.
// A run revoked while still processing keeps its result but drops the
// archive bytes.
func (run *activeRun) complete(result *RunResult, archive []byte, name string) {
	run.mu.Lock()
	defer run.mu.Unlock()

	run.result = result
	run.progress.Phase = PhaseComplete
	if !run.revoked {
		run.archive = archive
		run.archiveName = name
	}
	run.notifyLocked()
}

// notifyLocked sends the current progress to all listeners.
// Callers must hold run.mu.
func (run *activeRun) notifyLocked() {
	for _, ch := range run.listeners {
		select {
		case ch <- run.progress:
		default:
			// Listener is slow, skip this update
		}
	}
}

// finish closes Done and all listener channels. Late subscribers observe
// the closed Done and receive a pre-closed channel instead of registering.
func (run *activeRun) finish() {
	run.mu.Lock()
	defer run.mu.Unlock()

	close(run.Done)
	for _, ch := range run.listeners {
		close(ch)
	}
	run.listeners = nil
}

// record snapshots the run for the history log.
func (run *activeRun) record() RunRecord {
	run.mu.Lock()
	defer run.mu.Unlock()
	return run.recordLocked()
}

// recordLocked builds the history record. Callers must hold run.mu.
func (run *activeRun) recordLocked() RunRecord {
	rec := RunRecord{
		RunID:     run.ID,
		ReportKey: run.ReportKey,
		FileName:  run.FileName,
		Status:    run.progress.Phase,
		ClientIP:  run.ClientIP,
		UserAgent: run.UserAgent,
		StartedAt: run.StartedAt,
	}
	if run.result != nil {
		rec.Groups = run.result.Stats.Groups
		rec.Rows = run.result.Stats.TotalRows
		rec.ArchiveSize = run.result.ArchiveSize
		rec.DurationMs = run.result.DurationMs
		rec.Error = run.result.Error
	}
	return rec
}

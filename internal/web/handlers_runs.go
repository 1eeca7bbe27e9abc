package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/reportkit/splitcsv/internal/core"
)

// readUploadedFile pulls the uploaded CSV out of the multipart form.
// The whole file is buffered here: runs outlive the request, so the service
// must never read from the request-scoped multipart stream.
func (s *Server) readUploadedFile(w http.ResponseWriter, r *http.Request) (data []byte, filename string, err error) {
	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		return nil, "", fmt.Errorf("parse upload form: %w", err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", core.ErrNoFile
	}
	defer file.Close()

	data, err = io.ReadAll(file)
	if err != nil {
		return nil, "", fmt.Errorf("read upload: %w", err)
	}

	return data, header.Filename, nil
}

// reportKeyFromForm returns the requested report, or the default one.
func reportKeyFromForm(r *http.Request) string {
	if key := r.FormValue("report"); key != "" {
		return key
	}
	return core.DefaultReportKey
}

// handleStartRun accepts a CSV upload and starts a run asynchronously.
// Responds 202 with the run ID; progress flows via /events and the finished
// archive via /download.
func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	data, filename, err := s.readUploadedFile(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	runID, err := s.service.StartRun(ctx, core.StartRunRequest{
		ReportKey:   reportKeyFromForm(r),
		GroupColumn: r.FormValue("group_column"),
		FileName:    filename,
		Source:      bytes.NewReader(data),
		Size:        int64(len(data)),
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSONStatus(w, http.StatusAccepted, map[string]string{"run_id": runID})
}

// handlePreview analyzes a CSV without building the archive: header, row
// counts, and the filename each group would get.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	data, _, err := s.readUploadedFile(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	result, err := s.service.AnalyzeFile(r.Context(), reportKeyFromForm(r), r.FormValue("group_column"), data)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, result)
}

// handleRunEvents streams run progress via Server-Sent Events.
// Supports resumption via the standard Last-Event-ID header (or the
// lastEventId query parameter) after reconnection.
func (s *Server) handleRunEvents(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	lastEventIDStr := r.Header.Get("Last-Event-ID")
	if lastEventIDStr == "" {
		lastEventIDStr = r.URL.Query().Get("lastEventId")
	}
	var lastEventID int
	if lastEventIDStr != "" {
		lastEventID, _ = strconv.Atoi(lastEventIDStr)
	}

	progressCh, err := s.service.SubscribeProgress(runID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	for {
		select {
		case progress, ok := <-progressCh:
			if !ok {
				// Channel closed, the run reached a terminal phase
				fmt.Fprintf(w, "event: complete\ndata: {}\n\n")
				flusher.Flush()
				return
			}

			// The percent doubles as the event ID: it only moves forward,
			// so clients resuming with Last-Event-ID skip stale updates
			currentPercent := progress.Percent()
			if lastEventIDStr != "" && currentPercent <= lastEventID {
				continue
			}

			data, _ := json.Marshal(progress)
			fmt.Fprintf(w, "id: %d\nevent: progress\ndata: %s\n\n", currentPercent, data)
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

// handleRunResult blocks until the run finishes and returns its result.
// Handy for clients that do not want to consume the event stream; the
// route timeout bounds the wait.
func (s *Server) handleRunResult(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	result, err := s.service.WaitResult(r.Context(), runID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, result)
}

// handleDownload serves the finished archive.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	data, name, err := s.service.Archive(runID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

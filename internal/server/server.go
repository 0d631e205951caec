package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"runtime/debug"
	"sync"

	"golang.org/x/sync/semaphore"

	spyglass "github.com/mgrier/spyglass"
	"github.com/mgrier/spyglass/internal/tree"
)

// Server dispatches protocol requests onto an engine. Scans of the same
// file are single-flight: a new scan supersedes and cancels the one in
// flight, and per-file commits happen in submission order. Queries run
// concurrently under a worker semaphore and honor cancel requests.
type Server struct {
	engine  *spyglass.Engine
	logger  *log.Logger
	sem     *semaphore.Weighted
	workers int

	mu       sync.Mutex
	inflight map[string]context.CancelFunc
	scans    map[string]*fileScan
}

// fileScan is one scan admission on a file. done closes when the scan
// finished (or was superseded), so the next scan of the same file can
// wait its turn and keep the commit order.
type fileScan struct {
	id     string
	prev   *fileScan
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithWorkers sets the concurrent request limit.
func WithWorkers(n int) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithLogger replaces the default stderr logger.
func WithLogger(l *log.Logger) ServerOption {
	return func(s *Server) {
		s.logger = l
	}
}

// New creates a Server around an engine.
func New(engine *spyglass.Engine, opts ...ServerOption) *Server {
	s := &Server{
		engine:   engine,
		logger:   log.New(os.Stderr, "spyglass-server: ", log.LstdFlags),
		workers:  4,
		inflight: make(map[string]context.CancelFunc),
		scans:    make(map[string]*fileScan),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.sem = semaphore.NewWeighted(int64(s.workers))
	return s
}

// Cancel cancels the in-flight request with the given id. Unknown ids
// are a no-op: the request may have already finished.
func (s *Server) Cancel(targetID string) {
	s.mu.Lock()
	cancel := s.inflight[targetID]
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (s *Server) register(id string, cancel context.CancelFunc) {
	s.mu.Lock()
	s.inflight[id] = cancel
	s.mu.Unlock()
}

func (s *Server) unregister(id string) {
	s.mu.Lock()
	delete(s.inflight, id)
	s.mu.Unlock()
}

// beginScan admits a scan on a file, superseding (cancelling) any scan
// currently admitted for it. Must be called in submission order; the
// returned flight serializes behind its predecessor.
func (s *Server) beginScan(ctx context.Context, file, id string) *fileScan {
	flightCtx, cancel := context.WithCancel(ctx)
	flight := &fileScan{
		id: id, ctx: flightCtx, cancel: cancel,
		done: make(chan struct{}),
	}
	s.mu.Lock()
	if prev := s.scans[file]; prev != nil {
		flight.prev = prev
		prev.cancel()
	}
	s.scans[file] = flight
	s.inflight[id] = cancel
	s.mu.Unlock()
	return flight
}

func (s *Server) endScan(file string, flight *fileScan) {
	close(flight.done)
	s.mu.Lock()
	if s.scans[file] == flight {
		delete(s.scans, file)
	}
	delete(s.inflight, flight.id)
	s.mu.Unlock()
}

// runScan executes an admitted scan. It waits for its predecessor on
// the same file so store commits land in submission order even when a
// superseded scan was already running.
func (s *Server) runScan(req Request, flight *fileScan) (resp Response) {
	defer s.endScan(req.File, flight)
	defer s.recoverPanic(req.ID, &resp)

	if flight.prev != nil {
		<-flight.prev.done
	}
	if err := s.sem.Acquire(flight.ctx, 1); err != nil {
		return Response{ID: req.ID, Status: StatusCancelled}
	}
	defer s.sem.Release(1)

	var t *tree.SymbolTree
	var err error
	if req.Language != "" {
		t, err = s.engine.ScanSource(flight.ctx, req.File, req.Language, []byte(req.Source))
	} else {
		t, err = s.engine.ScanFile(flight.ctx, req.File, []byte(req.Source))
	}
	if err != nil {
		return s.errorResponse(req.ID, err)
	}
	blobs := 0
	t.Walk(func(*tree.Blob) bool {
		blobs++
		return true
	})
	return Response{ID: req.ID, Status: StatusOK, Payload: ScanResult{
		File:     req.File,
		Language: t.Language,
		Blobs:    blobs,
		Failures: len(t.Failures),
	}}
}

// handleQuery executes one non-scan request under the semaphore.
func (s *Server) handleQuery(ctx context.Context, req Request) (resp Response) {
	defer s.recoverPanic(req.ID, &resp)

	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.register(req.ID, cancel)
	defer s.unregister(req.ID)

	if err := s.sem.Acquire(reqCtx, 1); err != nil {
		return Response{ID: req.ID, Status: StatusCancelled}
	}
	defer s.sem.Release(1)

	switch req.Type {
	case TypeDefinition:
		if req.Position == nil {
			return s.badRequest(req.ID, "definition needs a position")
		}
		loc, err := s.engine.JumpToDefinition(reqCtx, req.File, *req.Position)
		if err != nil {
			return s.errorResponse(req.ID, err)
		}
		return Response{ID: req.ID, Status: StatusOK, Payload: loc}

	case TypeComplete:
		if req.Position == nil {
			return s.badRequest(req.ID, "complete needs a position")
		}
		seq, err := s.engine.Complete(reqCtx, req.File, *req.Position, req.Prefix, req.Limit)
		if err != nil {
			return s.errorResponse(req.ID, err)
		}
		result := CompleteResult{Candidates: []spyglass.Candidate{}}
		for c := range seq {
			result.Candidates = append(result.Candidates, c)
		}
		return Response{ID: req.ID, Status: StatusOK, Payload: result}

	case TypeCallTip:
		if req.Position == nil {
			return s.badRequest(req.ID, "calltip needs a position")
		}
		tip, err := s.engine.CallTip(reqCtx, req.File, *req.Position)
		if err != nil {
			return s.errorResponse(req.ID, err)
		}
		return Response{ID: req.ID, Status: StatusOK, Payload: tip}

	case TypeSearch:
		locs, err := s.engine.SymbolSearch(reqCtx, req.Prefix, req.Limit)
		if err != nil {
			return s.errorResponse(req.ID, err)
		}
		if locs == nil {
			locs = []spyglass.Location{}
		}
		return Response{ID: req.ID, Status: StatusOK, Payload: SearchResult{Locations: locs}}

	case TypeRemove:
		s.engine.Remove(req.File)
		return Response{ID: req.ID, Status: StatusOK}

	default:
		return s.badRequest(req.ID, fmt.Sprintf("unknown request type %q", req.Type))
	}
}

// recoverPanic turns a handler panic into an internal-error response;
// one poisoned request must not take the server down.
func (s *Server) recoverPanic(id string, resp *Response) {
	if r := recover(); r != nil {
		s.logger.Printf("panic handling request %s: %v\n%s", id, r, debug.Stack())
		*resp = Response{ID: id, Status: StatusError, Error: &ErrorInfo{
			Code: CodeInternal, Message: fmt.Sprintf("internal error: %v", r),
		}}
	}
}

func (s *Server) badRequest(id, msg string) Response {
	return Response{ID: id, Status: StatusError, Error: &ErrorInfo{
		Code: CodeBadRequest, Message: msg,
	}}
}

// errorResponse maps engine errors to protocol errors.
func (s *Server) errorResponse(id string, err error) Response {
	if errors.Is(err, spyglass.ErrCancelled) || errors.Is(err, context.Canceled) {
		return Response{ID: id, Status: StatusCancelled}
	}
	info := &ErrorInfo{Code: CodeInternal, Message: err.Error()}
	var timeout *spyglass.ScanTimeoutError
	switch {
	case errors.Is(err, spyglass.ErrUnknownLanguage):
		info.Code = CodeUnknownLanguage
	case errors.Is(err, spyglass.ErrNotIndexed):
		info.Code = CodeNotIndexed
	case errors.As(err, &timeout):
		info.Code = CodeScanTimeout
	case errors.Is(err, spyglass.ErrUnresolved):
		info.Code = CodeUnresolved
	}
	if locs, ok := spyglass.AmbiguousLocations(err); ok {
		info.Code = CodeAmbiguous
		info.Candidates = locs
	}
	return Response{ID: id, Status: StatusError, Error: info}
}

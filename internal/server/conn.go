package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"sync"
)

// maxLine bounds one request line; whole-file scan sources ride inside
// a request, so this must comfortably exceed any source file.
const maxLine = 16 * 1024 * 1024

// respWriter serializes response lines onto a shared writer. Handlers
// finish out of order, so every write goes through one mutex.
type respWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func (w *respWriter) write(resp Response) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.enc.Encode(resp)
}

// Serve reads newline-delimited JSON requests from r and writes one
// response line per request to w, until r is exhausted or ctx ends.
// Requests dispatch concurrently; responses may interleave in any
// order. Serve returns after every in-flight request has answered.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	out := &respWriter{enc: json.NewEncoder(w)}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)

	var wg sync.WaitGroup
	defer wg.Wait()

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			if werr := out.write(s.badRequest(req.ID, fmt.Sprintf("malformed request: %v", err))); werr != nil {
				return werr
			}
			continue
		}
		if req.ID == "" {
			if werr := out.write(s.badRequest("", "request needs an id")); werr != nil {
				return werr
			}
			continue
		}

		switch req.Type {
		case TypeCancel:
			// Cancels act immediately, never queue behind the pool.
			s.Cancel(req.TargetID)
			if werr := out.write(Response{ID: req.ID, Status: StatusOK}); werr != nil {
				return werr
			}
		case TypeScan:
			// Admit in read order so same-file scans supersede correctly.
			flight := s.beginScan(ctx, req.File, req.ID)
			wg.Add(1)
			go func(req Request, flight *fileScan) {
				defer wg.Done()
				if err := out.write(s.runScan(req, flight)); err != nil {
					s.logger.Printf("write response %s: %v", req.ID, err)
				}
			}(req, flight)
		default:
			wg.Add(1)
			go func(req Request) {
				defer wg.Done()
				if err := out.write(s.handleQuery(ctx, req)); err != nil {
					s.logger.Printf("write response %s: %v", req.ID, err)
				}
			}(req)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read requests: %w", err)
	}
	return nil
}

// ListenAndServe accepts TCP connections on addr and serves each with
// its own session until ctx ends.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	s.logger.Printf("listening on %s", ln.Addr())

	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		wg.Add(1)
		go func(conn net.Conn) {
			defer wg.Done()
			defer conn.Close()
			if err := s.Serve(ctx, conn, conn); err != nil && ctx.Err() == nil {
				s.logger.Printf("session %s: %v", conn.RemoteAddr(), err)
			}
		}(conn)
	}
}

// Package cobble is a minimal networked key-value store: binary-framed PUT
// and GET over TCP, backed by a concurrent in-memory skiplist.
package cobble

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"cobble/internal/db"
	"cobble/internal/engine"
)

var _ ReadWriter = (*db.DB)(nil)

// Server accepts TCP connections and spawns one reader per connection.
// All accepted operations funnel into a single execution stage that owns
// the database.
type Server struct {
	ln     net.Listener
	db     *db.DB
	engine *engine.Engine
	log    *zap.Logger

	arenaSize uint

	readers errgroup.Group
	mu      sync.Mutex
	conns   map[net.Conn]struct{}
	closed  sync.Once
}

// New binds addr and returns a server ready to Serve.
func New(addr string, options ...Option) (*Server, error) {
	s := &Server{
		log:   zap.NewNop(),
		conns: make(map[net.Conn]struct{}),
	}
	for _, option := range options {
		option.apply(s)
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("cobble: failed to bind %s: %w", addr, err)
	}
	s.ln = ln
	s.db = db.New(s.arenaSize)
	s.engine = engine.New(s.db, s.log)

	return s, nil
}

// Addr returns the bound listen address.
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Serve runs the accept loop. It blocks until the listener is closed and
// returns nil on a clean shutdown. Accept errors on a live listener are
// logged and skipped.
func (s *Server) Serve() error {
	s.log.Info("serving", zap.Stringer("addr", s.ln.Addr()))

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.log.Warn("accept failed", zap.Error(err))
			continue
		}

		s.track(conn)
		s.readers.Go(func() error {
			defer s.untrack(conn)
			return s.engine.ServeConn(conn)
		})
	}
}

func (s *Server) track(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[conn] = struct{}{}
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
}

// Close stops the accept loop, closes every live connection, waits for the
// readers and the execution stage to drain, and releases the store.
func (s *Server) Close() error {
	var err error
	s.closed.Do(func() {
		err = s.ln.Close()

		s.mu.Lock()
		for conn := range s.conns {
			_ = conn.Close()
		}
		s.mu.Unlock()

		// Reader errors at shutdown are expected (their sockets were
		// just closed under them); they are not Close failures.
		if werr := s.readers.Wait(); werr != nil {
			s.log.Debug("reader exited with error", zap.Error(werr))
		}

		s.engine.Stop()
		if cerr := s.db.Close(); cerr != nil && err == nil {
			err = cerr
		}
		s.log.Info("closed")
	})
	return err
}

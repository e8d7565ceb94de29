// Package engine is the request pipeline between client connections and
// the database.
//
// Each connection gets a reader goroutine that parses operations and sends
// them, paired with a reply writer over the same socket, to a single
// executor goroutine. The executor is the only goroutine that mutates the
// database; funneling every operation through it is what serializes
// writes without a lock on the memtable interface.
package engine

import (
	"errors"
	"io"
	"net"

	"go.uber.org/zap"

	"cobble/internal/db"
	"cobble/internal/slice"
	"cobble/internal/wire"
)

// queueDepth bounds the operation channel. The channel is the natural
// flow-control seam: a burst beyond this depth blocks the connection
// readers, which in turn stops draining the client sockets.
const queueDepth = 1024

// Handle pairs one decoded operation with the writer that replies to the
// connection it arrived on.
type Handle struct {
	Op    wire.Operation
	Reply *wire.Writer
}

// Engine owns the executor goroutine and the channel feeding it.
type Engine struct {
	db      *db.DB
	handles chan Handle
	done    chan struct{}
	log     *zap.Logger
}

// New starts the executor and returns the engine. Stop must be called to
// shut the executor down.
func New(database *db.DB, log *zap.Logger) *Engine {
	e := &Engine{
		db:      database,
		handles: make(chan Handle, queueDepth),
		done:    make(chan struct{}),
		log:     log,
	}
	go e.run()
	return e
}

// run drains the handle channel in arrival order. Operations from one
// connection arrive in the order the client sent them; operations from
// different connections interleave in whatever order their readers won
// the channel.
func (e *Engine) run() {
	defer close(e.done)
	for h := range e.handles {
		e.apply(h)
	}
}

func (e *Engine) apply(h Handle) {
	switch h.Op.Method {
	case wire.MethodPut:
		// No acknowledgement frame; the client's next operation on the
		// same connection is already ordered after this write.
		if err := e.db.Put(h.Op.Key, h.Op.Value); err != nil {
			e.log.Error("write dropped", zap.Error(err))
		}

	case wire.MethodGet:
		value, ok := e.db.Get(h.Op.Key)
		if !ok {
			// A miss replies with the zero-length frame to keep the
			// reply stream framed.
			value = slice.Empty()
		}
		if err := h.Reply.WriteValue(value); err != nil {
			// The database is already consistent; only this reply is
			// lost.
			e.log.Warn("dropping reply", zap.Error(err))
		}
	}
}

// ServeConn runs the reader loop for one connection and blocks until the
// connection ends. It returns nil on a clean close and the terminating
// parse or transport error otherwise. The connection is closed on return.
func (e *Engine) ServeConn(conn net.Conn) error {
	defer func() {
		_ = conn.Close()
	}()

	log := e.log.With(zap.String("remote", conn.RemoteAddr().String()))
	log.Debug("connection open")

	parser := wire.NewParser(conn)
	reply := wire.NewWriter(conn)

	for {
		op, err := parser.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				log.Debug("connection closed")
				return nil
			}
			log.Debug("terminating connection", zap.Error(err))
			return err
		}

		select {
		case e.handles <- Handle{Op: op, Reply: reply}:
		case <-e.done:
			// Executor is gone; nothing can apply the operation.
			return errors.New("engine: executor stopped")
		}
	}
}

// Stop closes the operation channel and waits for the executor to drain
// it. All reader goroutines must have exited before Stop is called.
func (e *Engine) Stop() {
	close(e.handles)
	<-e.done
}

package cobble

import "go.uber.org/zap"

type Option interface {
	apply(*Server)
}

type optionFunc func(*Server)

func (f optionFunc) apply(s *Server) {
	f(s)
}

// WithLogger sets the server's logger. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return optionFunc(func(s *Server) {
		s.log = log
	})
}

// WithArenaSize sets the size in bytes of the arena backing the memtable.
// Zero selects the default. The store holds everything in this one arena;
// when it fills, further writes are dropped and logged.
func WithArenaSize(size uint) Option {
	return optionFunc(func(s *Server) {
		s.arenaSize = size
	})
}

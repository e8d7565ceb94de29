// Command cobbled runs the cobble key-value server.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	cobble "cobble/pkg"
)

func main() {
	addr := flag.String("addr", ":4000", "TCP listen address")
	arenaSize := flag.Uint("arena-size", 0, "memtable arena size in bytes (0 = default)")
	debug := flag.Bool("debug", false, "log at debug level")
	flag.Parse()

	var log *zap.Logger
	var err error
	if *debug {
		log, err = zap.NewDevelopment()
	} else {
		log, err = zap.NewProduction()
	}
	if err != nil {
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	srv, err := cobble.New(*addr,
		cobble.WithLogger(log),
		cobble.WithArenaSize(*arenaSize),
	)
	if err != nil {
		log.Fatal("startup failed", zap.Error(err))
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sig
		log.Info("shutting down", zap.Stringer("signal", s))
		if err := srv.Close(); err != nil {
			log.Warn("close failed", zap.Error(err))
		}
	}()

	if err := srv.Serve(); err != nil {
		log.Fatal("serve failed", zap.Error(err))
	}
}

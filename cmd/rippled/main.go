// Command rippled serves a Ripple application to websocket clients. It
// exists as a working end-to-end example: a small task list rendered by the
// runtime, one session per connected client.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-ripple/ripple/cmd/rippled/internal/config"
	"github.com/go-ripple/ripple/pkg/errors"
	"github.com/go-ripple/ripple/pkg/remote"
)

func main() {
	configDir := flag.String("config", ".", "directory containing ripple.yaml")
	addr := flag.String("addr", "", "listen address (overrides ripple.yaml)")
	flag.Parse()

	cfg, err := config.Resolve(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rippled: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	errors.SetHandler(&errors.LogHandler{Verbose: cfg.Verbose})

	host := remote.NewHost(taskApp(), nil)
	host.CheckOrigin(func(r *http.Request) bool { return true })

	mux := http.NewServeMux()
	mux.Handle(cfg.Path, host)
	srv := &http.Server{Addr: cfg.Addr, Handler: mux}

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		log.Println("rippled: shutting down")
		host.Shutdown()
		srv.Close()
	}()

	log.Printf("rippled: serving sessions on %s%s", cfg.Addr, cfg.Path)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		fmt.Fprintf(os.Stderr, "rippled: %v\n", err)
		os.Exit(1)
	}
}

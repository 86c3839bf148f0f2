package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/caddyserver/certmagic"

	"github.com/liveadstitch/ssai-core/cmd/ssai/app"
	"github.com/liveadstitch/ssai-core/pkg/collab/memchannelconfig"
	"github.com/liveadstitch/ssai-core/pkg/collab/memkv"
	"github.com/liveadstitch/ssai-core/pkg/collab/memqueue"
	"github.com/liveadstitch/ssai-core/pkg/collab/memstore"
	"github.com/liveadstitch/ssai-core/pkg/logging"
)

func main() {
	os.Exit(run())
}

func run() (exitCode int) {
	cfg, err := app.LoadConfig(os.Args)
	if err != nil {
		if strings.Contains(err.Error(), "help requested") {
			return 0
		}
		_, _ = fmt.Fprintf(os.Stderr, "Error loading config: %s\n", err.Error())
		return 1
	}

	err = logging.InitSlog(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error initializing logging: %s\n", err.Error())
		return 1
	}

	stopSignal := make(chan os.Signal, 1)
	signal.Notify(stopSignal, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	startIssue := make(chan struct{}, 1)
	stopServer := make(chan struct{}, 1)

	ctx, cancelBkg := context.WithCancel(context.Background())

	go func() {
		select {
		case <-startIssue:
		case <-stopSignal:
		}
		cancelBkg()
		stopServer <- struct{}{}
	}()

	// The channel-config/object-store/queue/KV collaborators are external to
	// this module (spec Non-goals). The in-memory fixtures below make
	// cmd/ssai runnable standalone for local testing and demos; a real
	// deployment builds its own app.Collaborators from production clients
	// and calls app.SetupServer directly instead of going through main().
	collaborators := app.Collaborators{
		ChannelConfigs: memchannelconfig.New(),
		ObjectStore:    memstore.New(),
		DurableKV:      memkv.New(),
		BeaconQueue:    memqueue.New(),
	}

	server, err := app.SetupServer(ctx, cfg, collaborators)
	if err != nil {
		_, prErr := fmt.Fprintf(os.Stderr, "Error setting up server: %s\n", err.Error())
		if prErr != nil {
			fmt.Print(prErr)
		}
		return 1
	}

	go func() {
		var err error

		switch {
		case cfg.Domains != "":
			domains := strings.Split(cfg.Domains, ",")
			err = certmagic.HTTPS(domains, server.Router)
		case cfg.CertPath != "" && cfg.KeyPath != "":
			err = http.ListenAndServeTLS(fmt.Sprintf(":%d", server.Cfg.Port), cfg.CertPath, cfg.KeyPath, server.Router)
		default:
			err = http.ListenAndServe(fmt.Sprintf(":%d", server.Cfg.Port), server.Router)
		}
		if err != nil && err != http.ErrServerClosed {
			slog.Default().Error(err.Error())
			exitCode = 1
			startIssue <- struct{}{}
		}
	}()

	<-stopServer
	slog.Default().Info("server stopped")

	return exitCode
}

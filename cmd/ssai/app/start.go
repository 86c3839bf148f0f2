package app

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/liveadstitch/ssai-core/internal"
	"github.com/liveadstitch/ssai-core/pkg/beacon"
	"github.com/liveadstitch/ssai-core/pkg/collab"
	"github.com/liveadstitch/ssai-core/pkg/coordinator"
	"github.com/liveadstitch/ssai-core/pkg/decision"
	"github.com/liveadstitch/ssai-core/pkg/logging"
)

// Collaborators bundles the external collaborator implementations the
// caller (main.go or a test harness) supplies; ChannelConfigs, ObjectStore,
// DurableKV, and BeaconQueue are provided by none of this module itself
// (spec's Non-goals: object-storage client details, admin CRUD API,
// deployment tooling) and must always be set. SCTE35 and Schedule are
// optional overrides: SetupServer leaves coordinator.NewCoordinator's
// built-in ManifestSCTE35Source and a nil Schedule in place when left zero.
type Collaborators struct {
	ChannelConfigs collab.ChannelConfigSource
	ObjectStore    collab.ObjectStore
	DurableKV      collab.DurableKV
	BeaconQueue    collab.Queue
	SCTE35         coordinator.SCTE35CueSource
	Schedule       coordinator.TimeScheduleSource
}

// SetupServer sets up the router, middleware, and core components, given
// koanf configuration, adapted from the teacher's SetupServer (start.go).
func SetupServer(ctx context.Context, cfg *ServerConfig, collabs Collaborators) (*Server, error) {
	logger := slog.Default()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logging.SlogMiddleWare(logger))
	r.Use(middleware.Recoverer)
	r.Use(NewPrometheusMiddleware())
	r.Use(addVersionAndCORSHeaders)

	if cfg.TimeoutS > 0 {
		r.Use(middleware.Timeout(time.Duration(cfg.TimeoutS) * time.Second))
	}

	var reqLimiter *IPRequestLimiter
	var err error
	if cfg.MaxRequests > 0 {
		reqLimiter, err = NewIPRequestLimiter(cfg.MaxRequests, time.Duration(cfg.ReqLimitInt)*time.Second,
			time.Now(), cfg.WhiteListBlocks, cfg.ReqLimitLog)
		if err != nil {
			return nil, fmt.Errorf("newIPLimiter: %w", err)
		}
		r.Use(NewLimiterMiddleware("SSAI-Core-Requests", reqLimiter))
	}

	auth, err := newBearerAuthFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("bearer auth setup: %w", err)
	}
	if auth.enabled() {
		r.Use(auth.middleware)
	}

	r.Mount("/metrics", promhttp.Handler())

	producer := beacon.NewProducer(collabs.BeaconQueue)
	decisionEng := decision.NewEngine(collabs.ObjectStore, http.DefaultClient)
	coord := coordinator.NewCoordinator(collabs.DurableKV, decisionEng, producer)
	if collabs.SCTE35 != nil {
		coord.SCTE35 = collabs.SCTE35
	}
	coord.Schedule = collabs.Schedule

	manualCues := newManualCueStore()
	coord.ManualCues = manualCues

	server := &Server{
		Router:       r,
		Cfg:          cfg,
		Coordinator:  coord,
		DecisionEng:  decisionEng,
		Producer:     producer,
		ChannelCfg:   newChannelConfigCache(collabs.ChannelConfigs, time.Duration(cfg.ChannelConfigTTLMs)*time.Millisecond),
		OriginClient: &http.Client{Timeout: time.Duration(cfg.TimeoutS) * time.Second},
		Auth:         auth,
		ManualCues:   manualCues,
		reqLimiter:   reqLimiter,
	}

	if err := server.Routes(ctx); err != nil {
		return nil, fmt.Errorf("routes: %w", err)
	}

	logger.Info("ssai-core starting", "version", internal.GetVersion(), "port", cfg.Port)
	return server, nil
}

func newBearerAuthFromConfig(cfg *ServerConfig) (*bearerAuth, error) {
	var pubKey *rsa.PublicKey
	if cfg.JWTPublicKeyPath != "" {
		raw, err := os.ReadFile(cfg.JWTPublicKeyPath)
		if err != nil {
			return nil, fmt.Errorf("read JWT public key: %w", err)
		}
		block, _ := pem.Decode(raw)
		if block == nil {
			return nil, fmt.Errorf("JWT public key is not valid PEM")
		}
		key, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse JWT public key: %w", err)
		}
		rsaKey, ok := key.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("JWT public key is not RSA")
		}
		pubKey = rsaKey
	}
	return newBearerAuth(pubKey, cfg.JWTHMACSecret), nil
}

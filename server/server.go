package server

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/indieinfra/plaza/config"
	"github.com/indieinfra/plaza/lifecycle"
	"github.com/indieinfra/plaza/server/handler/entity"
	"github.com/indieinfra/plaza/server/middleware"
	"github.com/indieinfra/plaza/server/resp"
	"github.com/indieinfra/plaza/server/state"
	"github.com/indieinfra/plaza/storage/document"
	documentfactory "github.com/indieinfra/plaza/storage/document/factory"
	"github.com/indieinfra/plaza/storage/media"
	mediafactory "github.com/indieinfra/plaza/storage/media/factory"
)

func initializeMediaStore(cfg *config.Media) (media.Store, error) {
	store, err := mediafactory.Create(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize media store: %w", err)
	}

	return store, nil
}

func initializeDocumentStore(cfg *config.Documents) (document.Store, error) {
	store, err := documentfactory.Create(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize document store: %w", err)
	}

	return store, nil
}

// NewState builds the stores, metrics and coordinator described by cfg.
func NewState(cfg *config.Config) (*state.PlazaState, error) {
	mediaStore, err := initializeMediaStore(&cfg.Media)
	if err != nil {
		return nil, err
	}

	documentStore, err := initializeDocumentStore(&cfg.Documents)
	if err != nil {
		return nil, err
	}

	policies, err := cfg.Media.BuildPolicies()
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	metrics, err := lifecycle.NewMetrics(registry)
	if err != nil {
		return nil, err
	}

	coordinator, err := lifecycle.New(lifecycle.Options{
		Media:             mediaStore,
		Documents:         documentStore,
		Policies:          policies,
		Namespace:         cfg.Media.Namespace,
		DefaultProfilePic: cfg.Media.DefaultProfilePic,
		Metrics:           metrics,
	})
	if err != nil {
		return nil, err
	}

	return &state.PlazaState{
		Cfg:         cfg,
		Documents:   documentStore,
		Coordinator: coordinator,
		Registry:    registry,
	}, nil
}

// NewHandler routes the entity API behind token validation. Health and metrics are open.
func NewHandler(st *state.PlazaState) http.Handler {
	authed := func(h http.Handler) http.Handler {
		return middleware.ValidateTokenMiddleware(st.Cfg, h)
	}

	mux := http.NewServeMux()
	mux.Handle("POST /v1/{kind}", authed(entity.HandleCreate(st)))
	mux.Handle("GET /v1/{kind}/{id}", authed(entity.HandleGet(st)))
	mux.Handle("DELETE /v1/{kind}/{id}", authed(entity.HandleDelete(st)))
	mux.Handle("PUT /v1/{kind}/{id}/media/{field}", authed(entity.HandleReplaceMedia(st)))
	mux.Handle("DELETE /v1/{kind}/{id}/media/{field}", authed(entity.HandleRemoveMedia(st)))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		resp.WriteOK(w, map[string]string{"status": "ok"})
	})
	mux.Handle("GET /metrics", promhttp.HandlerFor(st.Registry, promhttp.HandlerOpts{Registry: st.Registry}))

	return mux
}

func StartServer(cfg *config.Config) error {
	st, err := NewState(cfg)
	if err != nil {
		return err
	}

	bindAddress := fmt.Sprintf("%v:%v", cfg.Server.Address, cfg.Server.Port)
	srv := &http.Server{
		Addr:              bindAddress,
		Handler:           NewHandler(st),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("serving http requests on %q", bindAddress)
	return srv.ListenAndServe()
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/streamvibe/streamvibe/internal/api"
	"github.com/streamvibe/streamvibe/internal/config"
	"github.com/streamvibe/streamvibe/internal/gravatar"
	"github.com/streamvibe/streamvibe/internal/metrics"
	"github.com/streamvibe/streamvibe/internal/scheduler"
	"github.com/streamvibe/streamvibe/internal/store"
	"github.com/streamvibe/streamvibe/internal/token"
)

var errNotLoggedIn = errors.New("You are not logged in. Run streamvibe login first") //nolint:staticcheck

// app wires the stores of one command invocation.
type app struct {
	cfg       *config.Config
	tokens    token.Store
	registry  *prometheus.Registry
	client    *api.Client
	scheduler *scheduler.Scheduler
	session   *store.Session
	media     *store.Media
}

func newApp() (*app, error) {
	cfg, err := config.Load(rootCmdPersistentFlags.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if rootCmdPersistentFlags.LogLevel == "" && cfg.LogLevel != "" {
		setLogLevel(cfg.LogLevel)
	}
	if rootCmdPersistentFlags.Env != "" {
		cfg.Env = config.Env(strings.ToLower(strings.TrimSpace(rootCmdPersistentFlags.Env)))
		if cfg.BaseURL() == "" {
			return nil, fmt.Errorf("unknown environment %q", cfg.Env)
		}
	}
	if err := gravatar.Validate(cfg.Gravatar); err != nil {
		return nil, err
	}

	tokens, err := token.New(cfg.TokenStore)
	if err != nil {
		return nil, fmt.Errorf("failed to open token store: %w", err)
	}

	registry := prometheus.NewRegistry()
	client := api.New(cfg, tokens, api.WithMetrics(metrics.New(registry)))

	sched, err := scheduler.New()
	if err != nil {
		_ = tokens.Close()
		return nil, err
	}

	log.Debug("using backend", "env", cfg.Env, "url", client.BaseURL(), "token_store", cfg.TokenStore.Type)

	return &app{
		cfg:       cfg,
		tokens:    tokens,
		registry:  registry,
		client:    client,
		scheduler: sched,
		session:   store.NewSession(client, tokens, store.WithGravatar(cfg.Gravatar)),
		media: store.NewMedia(client,
			store.WithPageSize(cfg.PageSize),
			store.WithDebouncer(scheduler.NewDebouncer(sched, "search", cfg.SearchDebounce)),
		),
	}, nil
}

// Close stops background work and releases the token store.
func (a *app) Close() {
	if err := a.media.Close(); err != nil {
		log.Warn("failed to close media store", "error", err)
	}
	if err := a.scheduler.Stop(); err != nil {
		log.Warn("failed to stop scheduler", "error", err)
	}
	a.logRequestSummary()
	if err := a.tokens.Close(); err != nil {
		log.Warn("failed to close token store", "error", err)
	}
}

// restore rehydrates the session from the persisted token.
func (a *app) restore(ctx context.Context) error {
	return a.session.Restore(ctx)
}

// requireLogin restores the session and fails when nobody is logged in.
func (a *app) requireLogin(ctx context.Context) (*api.User, error) {
	if err := a.restore(ctx); err != nil {
		return nil, err
	}
	state := a.session.Snapshot()
	if !state.IsAuthenticated {
		return nil, errNotLoggedIn
	}
	return state.User, nil
}

// logRequestSummary logs the request counters gathered during the run.
func (a *app) logRequestSummary() {
	if log.GetLevel() > log.DebugLevel {
		return
	}
	families, err := a.registry.Gather()
	if err != nil {
		log.Debug("failed to gather metrics", "error", err)
		return
	}
	for _, family := range families {
		if family.GetName() != "streamvibe_client_requests_total" {
			continue
		}
		series := family.GetMetric()
		sort.Slice(series, func(i, j int) bool {
			return series[i].String() < series[j].String()
		})
		for _, m := range series {
			labels := make([]any, 0, 6)
			for _, l := range m.GetLabel() {
				labels = append(labels, l.GetName(), l.GetValue())
			}
			labels = append(labels, "count", m.GetCounter().GetValue())
			log.Debug("requests", labels...)
		}
	}
}

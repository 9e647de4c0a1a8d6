package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/HatiCode/kpiboard/cmd/kpiboard/metrics"
	"github.com/HatiCode/kpiboard/pkg/adapters"
	"github.com/HatiCode/kpiboard/pkg/cache"
	"github.com/HatiCode/kpiboard/pkg/history"
	"github.com/HatiCode/kpiboard/pkg/scheduler"
	"github.com/HatiCode/kpiboard/pkg/settings"
	"github.com/HatiCode/kpiboard/pkg/storage"
	"github.com/HatiCode/kpiboard/pkg/trend"
	"github.com/HatiCode/kpiboard/pkg/view"
)

// Options tunes a Dashboard.
type Options struct {
	Throttle     time.Duration
	Retention    time.Duration
	FetchTimeout time.Duration
	ChartWidth   int
	ChartHeight  int
	Location     *time.Location

	// Dedupe collapses overlapping refreshes into one fetch.
	Dedupe bool

	// Seed, when it carries an API URL, replaces the stored settings on Init.
	Seed settings.Settings

	// OnResult is called after every refresh with its outcome.
	OnResult func(err error)

	// NewAdapter builds the metrics source for the current settings.
	// Defaults to an HTTPAdapter sharing the dashboard's HTTP client.
	NewAdapter func(s settings.Settings) adapters.Adapter
}

// Dashboard is the running application: it owns the settings, refresh
// timer, response cache and MRR history, and pushes everything it learns to
// a view.Port.
type Dashboard struct {
	store   storage.Store
	history *history.Store
	cache   *cache.Cache
	view    view.Port
	state   *view.State
	metrics *metrics.Metrics
	logger  *slog.Logger
	sched   *scheduler.Scheduler
	client  *http.Client
	opts    Options
	now     func() time.Time
	group   singleflight.Group

	mu       sync.RWMutex
	settings settings.Settings
	lastErr  error
	runCtx   context.Context
}

// NewDashboard wires a dashboard on top of kv. port receives view updates;
// state is the recording port read back by State and may be part of port.
func NewDashboard(kv storage.Store, port view.Port, state *view.State, m *metrics.Metrics, logger *slog.Logger, opts Options) *Dashboard {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 10 * time.Second
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}

	d := &Dashboard{
		store: kv,
		history: history.NewStore(kv,
			history.WithRetention(opts.Retention),
			history.WithLocation(opts.Location),
			history.WithLogger(logger),
		),
		cache:    cache.New(kv, opts.Throttle),
		view:     port,
		state:    state,
		metrics:  m,
		logger:   logger,
		client:   &http.Client{Timeout: opts.FetchTimeout},
		opts:     opts,
		now:      time.Now,
		settings: settings.Defaults(),
		runCtx:   context.Background(),
	}
	if d.opts.NewAdapter == nil {
		d.opts.NewAdapter = func(s settings.Settings) adapters.Adapter {
			return &adapters.HTTPAdapter{URL: s.APIURL, APIKey: s.APIKey, HTTPClient: d.client}
		}
	}
	d.sched = scheduler.New(d.Refresh, logger)
	return d
}

// Init loads the settings and either shows the settings prompt or performs
// the first refresh and starts the auto refresh timer. ctx bounds the
// lifetime of the timer.
func (d *Dashboard) Init(ctx context.Context) error {
	d.mu.Lock()
	d.runCtx = ctx
	d.mu.Unlock()

	s, err := settings.Load(ctx, d.store)
	if err != nil {
		d.logger.Warn("failed to load settings, using defaults", "error", err)
		d.metrics.RecordError("settings", "load")
	}

	if d.opts.Seed.Configured() {
		seed := d.opts.Seed
		if seed.APIKey == "" {
			seed.APIKey = s.APIKey
		}
		saved, err := settings.Save(ctx, d.store, seed)
		if err != nil {
			return err
		}
		d.logger.Info("settings seeded from configuration", "api_url", saved.APIURL)
		s = saved
	}

	d.mu.Lock()
	d.settings = s
	d.mu.Unlock()

	if !s.Configured() {
		d.logger.Info("dashboard not configured, waiting for settings")
		d.view.SetLoading(false)
		d.view.SetSettingsVisible(true)
		d.flush()
		return nil
	}

	d.view.SetSettingsVisible(false)
	if err := d.Refresh(ctx); err != nil {
		d.logger.Error("initial refresh failed", "error", err)
	}
	d.sched.Start(ctx, s.Interval())
	return nil
}

// Refresh shows fresh KPIs: from the response cache inside the throttle
// window, otherwise from the metrics API. A failed fetch is shown in the
// view and returned.
//
// With Dedupe set, overlapping calls share one refresh. The shared refresh
// is detached from the caller's cancellation and bounded by FetchTimeout; a
// caller whose ctx ends stops waiting without affecting the others.
func (d *Dashboard) Refresh(ctx context.Context) error {
	if !d.opts.Dedupe {
		return d.refresh(ctx)
	}
	ch := d.group.DoChan("refresh", func() (any, error) {
		return nil, d.refresh(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dashboard) refresh(ctx context.Context) error {
	s := d.Settings()
	if !s.Configured() {
		d.view.SetLoading(false)
		d.flush()
		return nil
	}

	now := d.now()

	entry, hit, err := d.cache.Get(ctx, now)
	if err != nil {
		d.logger.Warn("response cache unreadable", "error", err)
		d.metrics.RecordError("cache", "read")
	}
	if hit {
		snap, err := adapters.DecodeSnapshot(entry.Body)
		if err == nil {
			d.logger.Debug("serving cached metrics", "fetched_at", entry.FetchedAt)
			d.show(ctx, snap, entry.FetchedAt, true, now)
			d.metrics.RecordCacheHit()
			d.metrics.RecordRefresh(metrics.ResultCached)
			d.setResult(nil)
			d.flush()
			return nil
		}
		d.logger.Warn("cached response unreadable, fetching", "error", err)
		d.metrics.RecordError("cache", "decode")
	}

	d.view.SetLoading(true)
	d.view.SetError(nil)
	d.flush()

	fetchCtx, cancel := context.WithTimeout(ctx, d.opts.FetchTimeout)
	defer cancel()

	adapter := d.opts.NewAdapter(s)
	start := time.Now()
	res, err := adapter.Fetch(fetchCtx)
	d.metrics.ObserveFetch(time.Since(start).Seconds())
	if err != nil {
		d.metrics.RecordFetchError()
		d.metrics.RecordRefresh(metrics.ResultError)
		d.metrics.RecordError("fetch", fetchReason(err))
		d.view.SetLoading(false)
		d.view.SetError(err)
		d.setResult(err)
		d.flush()
		return err
	}

	if err := d.cache.Put(ctx, res.Body, now); err != nil {
		d.logger.Warn("failed to cache response", "error", err)
		d.metrics.RecordError("cache", "write")
	}

	d.show(ctx, res.Snapshot, now, false, now)
	d.metrics.RecordRefresh(metrics.ResultFetched)
	d.setResult(nil)
	d.flush()

	d.logger.Debug("metrics refreshed",
		"adapter", adapter.Name(),
		"mrr", res.Snapshot.MRR,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// show pushes a snapshot to the view, records MRR and redraws the chart.
func (d *Dashboard) show(ctx context.Context, snap adapters.Snapshot, updated time.Time, stale bool, now time.Time) {
	for slot, value := range view.Values(snap) {
		d.view.SetMetric(slot, value)
	}
	for slot, caption := range view.Captions {
		d.view.SetCaption(slot, caption)
	}
	d.view.SetActivity(view.Insights(snap, now))
	d.view.SetLastUpdated(updated)
	d.view.SetStale(stale)
	d.view.SetLoading(false)
	d.view.SetError(nil)
	d.metrics.SetKPIs(kpiValues(snap))

	series, err := d.history.Ingest(ctx, snap.MRR, now)
	if err != nil {
		d.logger.Warn("mrr history degraded", "error", err)
		d.metrics.RecordError("history", historyReason(err))
	}
	d.metrics.SetHistorySamples(len(series))

	d.view.SetChart(trend.Render(series, trend.Options{
		Width:    d.opts.ChartWidth,
		Height:   d.opts.ChartHeight,
		Location: d.opts.Location,
	}))
}

// UpdateSettings validates and stores s, hides the settings prompt,
// refreshes and restarts the timer with the new interval. Only validation
// and storage failures are returned; a failed refresh shows in the view.
func (d *Dashboard) UpdateSettings(ctx context.Context, s settings.Settings) (settings.Settings, error) {
	saved, err := settings.Save(ctx, d.store, s)
	if err != nil {
		return saved, err
	}

	d.mu.Lock()
	d.settings = saved
	runCtx := d.runCtx
	d.mu.Unlock()

	d.logger.Info("settings updated",
		"api_url", saved.APIURL,
		"refresh_interval", saved.RefreshInterval,
	)

	d.view.SetSettingsVisible(false)
	if err := d.Refresh(ctx); err != nil {
		d.logger.Error("refresh after settings update failed", "error", err)
	}
	d.sched.Start(runCtx, saved.Interval())
	return saved, nil
}

// State returns what the view currently shows.
func (d *Dashboard) State() view.Snapshot {
	return d.state.Snapshot()
}

// History returns the retained MRR samples.
func (d *Dashboard) History(ctx context.Context) (history.Series, error) {
	return d.history.Read(ctx)
}

func (d *Dashboard) Settings() settings.Settings {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.settings
}

// Healthy returns the error of the last refresh.
func (d *Dashboard) Healthy() error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lastErr
}

// Close stops the auto refresh timer.
func (d *Dashboard) Close() {
	d.sched.Stop()
}

func (d *Dashboard) setResult(err error) {
	d.mu.Lock()
	d.lastErr = err
	d.mu.Unlock()

	if d.opts.OnResult != nil {
		d.opts.OnResult(err)
	}
}

func (d *Dashboard) flush() {
	if err := d.view.Flush(); err != nil {
		d.logger.Warn("view flush failed", "error", err)
	}
}

func kpiValues(s adapters.Snapshot) map[string]float64 {
	return map[string]float64{
		string(view.SlotActiveUsers):          s.ActiveUsers,
		string(view.SlotMRR):                  s.MRR,
		string(view.SlotActiveSubscriptions):  s.ActiveSubscriptions,
		string(view.SlotActiveTrials):         s.ActiveTrials,
		string(view.SlotNewCustomers):         s.NewCustomers,
		string(view.SlotRevenue):              s.Revenue,
		string(view.SlotUsersCreatedToday):    s.UsersCreatedToday,
		string(view.SlotUsersCreatedLastHour): s.UsersCreatedInLastHour,
	}
}

func fetchReason(err error) string {
	var statusErr *adapters.StatusError
	switch {
	case errors.As(err, &statusErr):
		return "status"
	case errors.Is(err, adapters.ErrMalformed):
		return "decode"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "transport"
	}
}

func historyReason(err error) string {
	switch {
	case errors.Is(err, history.ErrPersist):
		return "persist"
	case errors.Is(err, history.ErrCorrupt):
		return "corrupt"
	default:
		return "read"
	}
}

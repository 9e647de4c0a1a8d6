// Package history keeps a deduplicated, time-bounded record of one metric's
// hourly values.
//
// The series is stored as a single JSON blob under one key of a
// storage.Store. The Store in this package owns that blob exclusively; every
// ingest reads it, applies the new sample, prunes, sorts and writes it back
// whole. Two overlapping ingests race and the last write wins.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/HatiCode/kpiboard/pkg/storage"
)

const (
	// DefaultKey is the storage key holding the serialized series.
	DefaultKey = "history"

	// DefaultRetention is how far back samples are kept.
	DefaultRetention = 24 * time.Hour

	// MinRetention keeps at least the current hour bucket, which starts up
	// to an hour before the ingest time.
	MinRetention = time.Hour
)

var (
	// ErrCorrupt reports a stored blob that could not be decoded.
	// The series is treated as empty.
	ErrCorrupt = errors.New("history: stored series is corrupt")

	// ErrPersist reports a failed write of the updated series.
	ErrPersist = errors.New("history: persist failed")
)

// Sample is one retained observation.
type Sample struct {
	Hour  time.Time `json:"timestamp"`
	Value float64   `json:"value"`
}

// Series is a list of samples, ascending by Hour with one sample per hour.
type Series []Sample

// Latest returns the newest sample. ok is false for an empty series.
func (s Series) Latest() (Sample, bool) {
	if len(s) == 0 {
		return Sample{}, false
	}
	return s[len(s)-1], true
}

// Oldest returns the oldest retained sample.
func (s Series) Oldest() (Sample, bool) {
	if len(s) == 0 {
		return Sample{}, false
	}
	return s[0], true
}

// Values returns the sample values in order.
func (s Series) Values() []float64 {
	out := make([]float64, len(s))
	for i, smp := range s {
		out[i] = smp.Value
	}
	return out
}

// Store maintains the series for one metric.
type Store struct {
	kv        storage.Store
	key       string
	retention time.Duration
	loc       *time.Location
	logger    *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithKey overrides the storage key.
func WithKey(key string) Option {
	return func(s *Store) { s.key = key }
}

// WithRetention overrides the retention window. Non-positive values are
// ignored and positive values below MinRetention are raised to it.
func WithRetention(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.retention = max(d, MinRetention)
		}
	}
}

// WithLocation sets the time zone whose wall-clock hours define the buckets.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore creates a history store on top of kv.
func NewStore(kv storage.Store, opts ...Option) *Store {
	s := &Store{
		kv:        kv,
		key:       DefaultKey,
		retention: DefaultRetention,
		loc:       time.Local,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Retention returns the configured retention window.
func (s *Store) Retention() time.Duration { return s.retention }

// TruncateToHour returns the start of the wall-clock hour containing t in loc.
// Unlike time.Truncate this honours zones with non-hour offsets.
func TruncateToHour(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, loc)
}

// Ingest records value for the hour containing now.
//
// The returned series is always the computed result, even when err is
// non-nil: a corrupt or unreadable blob is replaced by an empty series
// (err wraps ErrCorrupt or the read error) and a failed write leaves the
// stored blob untouched (err wraps ErrPersist). Callers log the error and
// keep rendering with the series.
func (s *Store) Ingest(ctx context.Context, value float64, now time.Time) (Series, error) {
	hour := TruncateToHour(now, s.loc)

	series, readErr := s.Read(ctx)

	replaced := false
	for i := range series {
		if series[i].Hour.Equal(hour) {
			series[i].Value = value
			replaced = true
		}
	}
	if !replaced {
		series = append(series, Sample{Hour: hour, Value: value})
	}

	series = normalize(series, now.Add(-s.retention))

	var writeErr error
	if err := s.write(ctx, series); err != nil {
		writeErr = fmt.Errorf("%w: %w", ErrPersist, err)
	}

	s.logger.Debug("ingested history sample",
		"key", s.key,
		"hour", hour.Format(time.RFC3339),
		"value", value,
		"replaced", replaced,
		"samples", len(series),
	)

	return series, errors.Join(readErr, writeErr)
}

// Read loads the persisted series. The returned series is always usable;
// on a missing key it is empty and err is nil, on a read or decode failure
// it is empty and err describes what was recovered from.
func (s *Store) Read(ctx context.Context) (Series, error) {
	raw, found, err := s.kv.Get(ctx, s.key)
	if err != nil {
		return Series{}, fmt.Errorf("read history: %w", err)
	}
	if !found || raw == "" {
		return Series{}, nil
	}

	var series Series
	if err := json.Unmarshal([]byte(raw), &series); err != nil {
		return Series{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if series == nil {
		series = Series{}
	}
	return series, nil
}

func (s *Store) write(ctx context.Context, series Series) error {
	out := make(Series, len(series))
	for i, smp := range series {
		out[i] = Sample{Hour: smp.Hour.UTC(), Value: smp.Value}
	}
	data, err := json.Marshal(out)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, s.key, string(data))
}

// normalize drops samples older than cutoff, sorts ascending and collapses
// duplicate hours, keeping the value written last.
func normalize(series Series, cutoff time.Time) Series {
	kept := make(Series, 0, len(series))
	for _, smp := range series {
		if !smp.Hour.Before(cutoff) {
			kept = append(kept, smp)
		}
	}

	slices.SortStableFunc(kept, func(a, b Sample) int {
		return a.Hour.Compare(b.Hour)
	})

	out := kept[:0]
	for _, smp := range kept {
		if n := len(out); n > 0 && out[n-1].Hour.Equal(smp.Hour) {
			out[n-1] = smp
			continue
		}
		out = append(out, smp)
	}
	return out
}

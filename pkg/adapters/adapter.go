package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformed reports a response body that is not a JSON object.
var ErrMalformed = errors.New("malformed metrics response")

// Snapshot is one reading of the business KPIs. Fields absent from the
// response decode as 0.
type Snapshot struct {
	ActiveUsers            float64 `json:"active_users"`
	MRR                    float64 `json:"mrr"`
	ActiveSubscriptions    float64 `json:"active_subscriptions"`
	ActiveTrials           float64 `json:"active_trials"`
	NewCustomers           float64 `json:"new_customers"`
	Revenue                float64 `json:"revenue"`
	UsersCreatedToday      float64 `json:"users_created_today"`
	UsersCreatedInLastHour float64 `json:"users_created_in_last_hour"`
}

// Result is a decoded snapshot and the raw body it came from.
// The body is what gets cached.
type Result struct {
	Snapshot Snapshot
	Body     []byte
}

// Adapter is the interface every metrics source implements.
//
// Fetch is synchronous and must respect context cancellation and deadlines.
// It must never panic; transport, status and decode failures are returned
// as errors.
type Adapter interface {
	Fetch(ctx context.Context) (*Result, error)

	// Name returns a short identifier for logs and metrics, e.g. "http".
	Name() string
}

// DecodeSnapshot parses a metrics response body.
// The body must be a JSON object; null, arrays and scalars are ErrMalformed.
func DecodeSnapshot(body []byte) (Snapshot, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Snapshot{}, fmt.Errorf("%w: body is not a JSON object", ErrMalformed)
	}

	var s Snapshot
	if err := json.Unmarshal(body, &s); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return s, nil
}

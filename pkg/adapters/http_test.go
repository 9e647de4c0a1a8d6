package adapters

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPAdapter_Fetch(t *testing.T) {
	body := `{
        "active_users": 1520,
        "mrr": 48250.5,
        "active_subscriptions": 310,
        "active_trials": 42,
        "new_customers": 17,
        "revenue": 51000,
        "users_created_today": 12,
        "users_created_in_last_hour": 3
    }`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk_test" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}))
	defer server.Close()

	ad := &HTTPAdapter{URL: server.URL, APIKey: "sk_test"}
	res, err := ad.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	want := Snapshot{
		ActiveUsers:            1520,
		MRR:                    48250.5,
		ActiveSubscriptions:    310,
		ActiveTrials:           42,
		NewCustomers:           17,
		Revenue:                51000,
		UsersCreatedToday:      12,
		UsersCreatedInLastHour: 3,
	}
	if res.Snapshot != want {
		t.Errorf("Snapshot = %+v, want %+v", res.Snapshot, want)
	}
	if string(res.Body) != body {
		t.Error("Body should be the raw response")
	}
	if ad.Name() != "http" {
		t.Errorf("Name() = %q", ad.Name())
	}
}

func TestHTTPAdapter_NoKeyNoAuthHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Header["Authorization"]; ok {
			t.Error("Authorization header must not be sent without a key")
		}
		fmt.Fprint(w, `{"mrr": 10}`)
	}))
	defer server.Close()

	res, err := (&HTTPAdapter{URL: server.URL}).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if res.Snapshot.MRR != 10 || res.Snapshot.ActiveUsers != 0 {
		t.Errorf("Snapshot = %+v", res.Snapshot)
	}
}

func TestHTTPAdapter_StatusErrors(t *testing.T) {
	for _, code := range []int{http.StatusUnauthorized, http.StatusNotFound, http.StatusBadGateway} {
		t.Run(http.StatusText(code), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(code)
			}))
			defer server.Close()

			_, err := (&HTTPAdapter{URL: server.URL}).Fetch(context.Background())
			var se *StatusError
			if !errors.As(err, &se) {
				t.Fatalf("error = %v, want *StatusError", err)
			}
			if se.Code != code {
				t.Errorf("Code = %d, want %d", se.Code, code)
			}
		})
	}
}

func TestHTTPAdapter_Malformed(t *testing.T) {
	tests := []string{"<html>oops</html>", `[1,2,3]`, `{"mrr": "lots"}`, "", "null", " null\n", `"text"`, "42"}

	for _, body := range tests {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, body)
		}))

		_, err := (&HTTPAdapter{URL: server.URL}).Fetch(context.Background())
		if !errors.Is(err, ErrMalformed) {
			t.Errorf("body %q: error = %v, want ErrMalformed", body, err)
		}
		server.Close()
	}
}

func TestHTTPAdapter_Transport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := (&HTTPAdapter{URL: url}).Fetch(context.Background())
	if err == nil {
		t.Fatal("expected transport error")
	}
}

func TestHTTPAdapter_ContextTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := (&HTTPAdapter{URL: server.URL}).Fetch(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want deadline exceeded", err)
	}
}

func TestHTTPAdapter_RequiresURL(t *testing.T) {
	if _, err := (&HTTPAdapter{}).Fetch(context.Background()); err == nil {
		t.Error("expected error for empty URL")
	}
}

func TestDecodeSnapshot(t *testing.T) {
	s, err := DecodeSnapshot([]byte(`{"active_users": 5, "unknown": true}`))
	if err != nil {
		t.Fatalf("DecodeSnapshot() error = %v", err)
	}
	if s.ActiveUsers != 5 {
		t.Errorf("ActiveUsers = %v", s.ActiveUsers)
	}
}

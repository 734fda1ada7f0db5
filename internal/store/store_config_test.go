package store

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func openConfiguredStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "qbank.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestOpenUsesSingleWriterPoolByDefault(t *testing.T) {
	t.Setenv(maxOpenConnsEnvKey, "")
	t.Setenv(maxIdleConnsEnvKey, "")

	st := openConfiguredStore(t)
	if got := st.db.Stats().MaxOpenConnections; got != defaultMaxOpenConns {
		t.Fatalf("expected %d open connections, got %d", defaultMaxOpenConns, got)
	}

	var mode string
	if err := st.db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("read journal_mode: %v", err)
	}
	if !strings.EqualFold(mode, "wal") {
		t.Fatalf("expected WAL journal, got %q", mode)
	}
}

func TestOpenPoolFromEnv(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
	}{
		{name: "override", raw: "4", want: 4},
		{name: "not a number", raw: "many", want: defaultMaxOpenConns},
		{name: "zero", raw: "0", want: defaultMaxOpenConns},
		{name: "negative", raw: "-2", want: defaultMaxOpenConns},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(maxOpenConnsEnvKey, tt.raw)
			st := openConfiguredStore(t)
			if got := st.db.Stats().MaxOpenConnections; got != tt.want {
				t.Fatalf("expected %d open connections, got %d", tt.want, got)
			}
		})
	}
}

func TestConnLifetimeFromEnv(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Duration
	}{
		{raw: "", want: defaultConnMaxLifetime},
		{raw: "90", want: 90 * time.Second},
		{raw: "2m", want: 2 * time.Minute},
		{raw: "0s", want: defaultConnMaxLifetime},
		{raw: "later", want: defaultConnMaxLifetime},
	}
	for _, tt := range tests {
		t.Setenv(connMaxLifetimeEnvKey, tt.raw)
		if got := durationFromEnv(connMaxLifetimeEnvKey, defaultConnMaxLifetime); got != tt.want {
			t.Fatalf("%q: expected %v, got %v", tt.raw, tt.want, got)
		}
	}
}

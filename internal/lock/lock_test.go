package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestAcquireRecordsHolder(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "profiles", "main")

	l, err := Acquire(dir, "gcsearch")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	data, err := os.ReadFile(l.Path())
	if err != nil {
		t.Fatalf("read lock file: %v", err)
	}
	if !strings.HasPrefix(string(data), fmt.Sprintf("%d gcsearch ", os.Getpid())) {
		t.Errorf("lock file = %q, want pid and binary", data)
	}
	if got := parseHolder(string(data)); got.PID != os.Getpid() || got.Since.IsZero() {
		t.Errorf("recorded holder = %+v", got)
	}

	if err := l.Release(); err != nil {
		t.Errorf("Release() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, FileName)); !os.IsNotExist(err) {
		t.Errorf("lock file still present after Release: %v", err)
	}
}

func TestSecondAcquireNamesHolder(t *testing.T) {
	dir := t.TempDir()

	l1, err := Acquire(dir, "gcsearch")
	if err != nil {
		t.Fatalf("first Acquire() error = %v", err)
	}
	defer func() { _ = l1.Release() }()

	_, err = Acquire(dir, "gcsearch")
	var held *HeldError
	if !errors.As(err, &held) {
		t.Fatalf("expected HeldError, got %T: %v", err, err)
	}
	if held.Holder.PID != os.Getpid() || held.Holder.Binary != "gcsearch" {
		t.Errorf("holder = %+v", held.Holder)
	}
	if !strings.Contains(err.Error(), fmt.Sprintf("gcsearch (pid %d)", os.Getpid())) {
		t.Errorf("error = %q", err)
	}
}

func TestReacquireAfterRelease(t *testing.T) {
	dir := t.TempDir()

	l1, err := Acquire(dir, "gcsearch")
	if err != nil {
		t.Fatal(err)
	}
	if err := l1.Release(); err != nil {
		t.Fatal(err)
	}
	l2, err := Acquire(dir, "gcsearch")
	if err != nil {
		t.Fatalf("Acquire() after Release error = %v", err)
	}
	_ = l2.Release()
}

func TestReleaseNil(t *testing.T) {
	var l *Lock
	if err := l.Release(); err != nil {
		t.Errorf("nil Release() error = %v", err)
	}
}

func TestParseHolder(t *testing.T) {
	since := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tests := []struct {
		in   string
		want Holder
	}{
		{"42 gcsearch 2026-01-02T03:04:05Z\n", Holder{PID: 42, Binary: "gcsearch", Since: since}},
		{"7", Holder{PID: 7}},
		{"", Holder{}},
		{"abc gcsearch", Holder{Binary: "gcsearch"}},
	}
	for _, tt := range tests {
		got := parseHolder(tt.in)
		if got.PID != tt.want.PID || got.Binary != tt.want.Binary || !got.Since.Equal(tt.want.Since) {
			t.Errorf("parseHolder(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

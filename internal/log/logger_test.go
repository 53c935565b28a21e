package log

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func fixedFormatter(format string) Formatter {
	f := NewFormatter(format)
	f.now = func() time.Time {
		return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	}
	return f
}

func TestFormat(t *testing.T) {
	f := fixedFormatter("{ascTime}: [{level}] - {message}")
	got, err := f.Format(WARN, "hello")
	if err != nil {
		t.Fatal(err)
	}
	want := "2024-01-02T03:04:05Z: [WARN] - hello\n"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestFormatMissingMessage(t *testing.T) {
	f := NewFormatter("{level}")
	if _, err := f.Format(INFO, "x"); err == nil {
		t.Fatal("expected error for format without message")
	}
}

func TestLevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	l := WithSink(INFO, NewConsole(buf, fixedFormatter("[{level}] {message}")))
	l.Debug("hidden")
	l.Info("shown %d", 1)
	l.Error("bad")
	want := "[INFO] shown 1\n[ERROR] bad\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
		ok   bool
	}{
		{"error", ERROR, true},
		{"Warn", WARN, true},
		{"warning", WARN, true},
		{"VERBOSE", VERBOSE, true},
		{"loud", INFO, false},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err == nil) != tt.ok {
			t.Errorf("%s: unexpected error state %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("%s: got %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.log")
	l, err := DefaultLogger("file-sink-test", DEBUG, path, false)
	if err != nil {
		t.Fatal(err)
	}
	if FromName("file-sink-test") != l {
		t.Fatal("logger was not registered")
	}
	l.Debug("written")
	l.Close()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "[DEBUG] - written") {
		t.Fatalf("unexpected log contents %q", data)
	}
}

func TestNilLogger(t *testing.T) {
	var l *Logger
	l.Info("nothing happens")
	l.Close()
	if FromName("does-not-exist") == nil {
		t.Fatal("FromName returned nil")
	}
}

package diagnostics

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dirpx.dev/dlogd/internal/config"
)

func TestNew_StdoutOnly(t *testing.T) {
	l, err := New(config.Settings{DiagFormat: config.DiagFormatConsole})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer l.Close(context.Background())

	l.Info(context.Background(), "hello")
}

func TestNew_WritesToConfiguredFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "diag.log")

	l, err := New(config.Settings{
		DiagFormat: config.DiagFormatJSON,
		DiagFile:   path,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	l.Info(context.Background(), "starting up")
	if err := l.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), "starting up") {
		t.Fatalf("diag file content = %q, want it to contain the logged message", string(data))
	}
}

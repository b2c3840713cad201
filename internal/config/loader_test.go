package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeYAML(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o640); err != nil {
		t.Fatalf("WriteFile(%s): %v", name, err)
	}
}

func TestLoad_DefaultsOnly(t *testing.T) {
	dir := t.TempDir()

	s, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Host != "0.0.0.0" || s.Port != 9999 {
		t.Fatalf("unexpected defaults: host=%q port=%d", s.Host, s.Port)
	}
	if s.Protocol != ProtocolUDP {
		t.Fatalf("default protocol = %v, want ProtocolUDP", s.Protocol)
	}
	if s.Backpressure.String() != "discard" {
		t.Fatalf("default backpressure = %v, want discard", s.Backpressure)
	}
	if s.DiagFormat != DiagFormatConsole {
		t.Fatalf("default diagnostics.format = %v, want console", s.DiagFormat)
	}
	if s.DiagFile != "" {
		t.Fatalf("default diagnostics.file = %q, want empty (stdout only)", s.DiagFile)
	}
}

func TestLoad_DiagnosticsFileEnablesRotatingSink(t *testing.T) {
	dir := t.TempDir()
	writeYAML(t, dir, "default.yaml", "diagnostics:\n  file: "+filepath.Join(dir, "dlogd.diag.log")+"\n  format: json\n")

	s, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.DiagFile == "" {
		t.Fatalf("expected diagnostics.file to be set")
	}
	if s.DiagFormat != DiagFormatJSON {
		t.Fatalf("diagnostics.format = %v, want json", s.DiagFormat)
	}
}

func TestLoad_LocalOverridesDefault(t *testing.T) {
	dir := t.TempDir()
	writeYAML(t, dir, "default.yaml", "port: 9999\n")
	writeYAML(t, dir, "local.yaml", "port: 5555\n")

	s, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Port != 5555 {
		t.Fatalf("port = %d, want 5555 (local.yaml should win)", s.Port)
	}
}

func TestLoad_EnvOverridesFiles(t *testing.T) {
	dir := t.TempDir()
	writeYAML(t, dir, "default.yaml", "port: 9999\n")

	t.Setenv("DLOGD_PORT", "7777")

	s, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Port != 7777 {
		t.Fatalf("port = %d, want 7777 (env should win over files)", s.Port)
	}
}

func TestLoad_InvalidProtocolFails(t *testing.T) {
	dir := t.TempDir()
	writeYAML(t, dir, "default.yaml", "protocol: sctp\n")

	if _, err := Load(dir); err == nil {
		t.Fatalf("Load: expected error for invalid protocol, got nil")
	}
}

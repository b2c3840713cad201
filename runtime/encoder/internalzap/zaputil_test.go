package internalzap

import (
	"testing"

	afield "dirpx.dev/dlogd/apis/field"
	alevel "dirpx.dev/dlogd/apis/level"
	"go.uber.org/zap/zapcore"
)

func TestPickLineEnding(t *testing.T) {
	if got := PickLineEnding(nil); got != "\n" {
		t.Fatalf("PickLineEnding(nil) = %q, want \\n", got)
	}
	tr := true
	if got := PickLineEnding(&tr); got != "\n" {
		t.Fatalf("PickLineEnding(true) = %q, want \\n", got)
	}
	fa := false
	if got := PickLineEnding(&fa); got != "" {
		t.Fatalf("PickLineEnding(false) = %q, want empty", got)
	}
}

func TestNormalizeLineEnding(t *testing.T) {
	if got := string(NormalizeLineEnding([]byte("abc"), "\n")); got != "abc\n" {
		t.Fatalf("NormalizeLineEnding adds newline: got %q", got)
	}
	if got := string(NormalizeLineEnding([]byte("abc\n"), "\n")); got != "abc\n" {
		t.Fatalf("NormalizeLineEnding is idempotent: got %q", got)
	}
	if got := string(NormalizeLineEnding([]byte("abc\n"), "")); got != "abc" {
		t.Fatalf("NormalizeLineEnding strips newline: got %q", got)
	}
	if got := string(NormalizeLineEnding([]byte("abc"), "")); got != "abc" {
		t.Fatalf("NormalizeLineEnding leaves no-newline input alone: got %q", got)
	}
}

func TestMapAPIsLevel(t *testing.T) {
	cases := []struct {
		in   alevel.Level
		want zapcore.Level
	}{
		{alevel.Trace, zapcore.DebugLevel},
		{alevel.Debug, zapcore.DebugLevel},
		{alevel.Info, zapcore.InfoLevel},
		{alevel.Warn, zapcore.WarnLevel},
		{alevel.Error, zapcore.ErrorLevel},
		{alevel.Fatal, zapcore.FatalLevel},
	}
	for _, c := range cases {
		if got := MapAPIsLevel(c.in); got != c.want {
			t.Fatalf("MapAPIsLevel(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestFieldsToMap(t *testing.T) {
	fs := []afield.Field{
		{Key: "a", Value: 1},
		{Key: "b", Value: "x"},
		{Key: "a", Value: 2}, // duplicate key: later wins
	}
	m := FieldsToMap(fs)
	if m["a"] != 2 {
		t.Fatalf("m[a] = %v, want 2 (later duplicate should win)", m["a"])
	}
	if m["b"] != "x" {
		t.Fatalf("m[b] = %v, want x", m["b"])
	}
}

func TestFieldsToMap_Empty(t *testing.T) {
	if got := FieldsToMap(nil); got != nil {
		t.Fatalf("FieldsToMap(nil) = %v, want nil", got)
	}
}

func TestToZapFields_DeterministicOrder(t *testing.T) {
	m := map[string]any{"z": 1, "a": 2, "m": 3}
	fs := ToZapFields(m)
	if len(fs) != 3 {
		t.Fatalf("len(fs) = %d, want 3", len(fs))
	}
	if fs[0].Key != "a" || fs[1].Key != "m" || fs[2].Key != "z" {
		t.Fatalf("fields not sorted lexicographically: %v, %v, %v", fs[0].Key, fs[1].Key, fs[2].Key)
	}
}

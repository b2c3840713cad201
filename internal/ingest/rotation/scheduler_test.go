package rotation

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"dirpx.dev/dlogd/apis/ingest/command"
	"dirpx.dev/dlogd/apis/ingest/policy"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	sent []command.Command
}

func (f *fakeSender) Send(_ context.Context, cmd command.Command) error {
	f.sent = append(f.sent, cmd)
	return nil
}

func TestTrailingDigits(t *testing.T) {
	cases := []struct {
		in    string
		id    int
		hasID bool
	}{
		{"0", 0, true},
		{"12", 12, true},
		{"", 0, false},
		{"abc", 0, false},
		{"1a", 0, false},
	}
	for _, c := range cases {
		id, ok := trailingDigits(c.in)
		require.Equal(t, c.hasID, ok, "hasID for %q", c.in)
		require.Equal(t, c.id, id, "id for %q", c.in)
	}
}

func TestScheduler_ChooseTarget_NextNumericID(t *testing.T) {
	dir := t.TempDir()
	live := filepath.Join(dir, "app.log")

	for _, n := range []string{"app.log.0", "app.log.1", "app.log.3"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o640))
	}

	s := New(Options{
		Policy:      policy.ByDuration{Interval: time.Hour},
		LivePath:    live,
		MaxRetained: 10,
		Sender:      &fakeSender{},
	})

	got, err := s.chooseTarget()
	require.NoError(t, err)
	require.Equal(t, live+".4", got)
}

func TestScheduler_ChooseTarget_ReclaimsOldestAtCapacity(t *testing.T) {
	dir := t.TempDir()
	live := filepath.Join(dir, "app.log")

	names := []string{"app.log.0", "app.log.1", "app.log.2"}
	now := time.Now()
	for i, n := range names {
		p := filepath.Join(dir, n)
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o640))

		// app.log.1 is the oldest by mtime, regardless of its numeric id.
		mtime := now.Add(time.Duration(i) * time.Hour)
		if n == "app.log.1" {
			mtime = now.Add(-time.Hour)
		}
		require.NoError(t, os.Chtimes(p, mtime, mtime))
	}

	s := New(Options{
		Policy:      policy.ByDuration{Interval: time.Hour},
		LivePath:    live,
		MaxRetained: 3,
		Sender:      &fakeSender{},
	})

	got, err := s.chooseTarget()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "app.log.1"), got, "expected oldest-by-mtime reclaim")
}

func TestScheduler_Run_SendsRenameAndAdvancesLast(t *testing.T) {
	dir := t.TempDir()
	live := filepath.Join(dir, "app.log")

	sender := &fakeSender{}
	s := New(Options{
		Policy:      policy.ByDuration{Interval: time.Millisecond},
		LivePath:    live,
		MaxRetained: 10,
		Sender:      sender,
	})
	initial := s.last

	stop := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background(), stop) }()

	time.Sleep(20 * time.Millisecond)
	close(stop)

	require.NoError(t, <-done)
	require.True(t, s.last.After(initial), "expected last rotation time to advance after a send")
	require.NotEmpty(t, sender.sent, "expected at least one Rename command to be sent")
	for _, cmd := range sender.sent {
		require.Equal(t, command.Rename, cmd.Kind)
	}
}

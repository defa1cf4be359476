package ruleset

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestWatcherReloads(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	file := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(file, []byte("- name: quote\n  path: /quote\n"), 0o644))

	var mu sync.Mutex
	var got []RuleSet
	w, err := NewWatcher(file, func(rs RuleSet) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, rs)
	}, zap.NewNop())
	require.NoError(t, err)
	w.debounce = 10 * time.Millisecond

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.NoError(t, os.WriteFile(file, []byte("- name: quote\n  path: /quote\n- name: contact\n  path: /contact\n"), 0o644))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) > 0 && got[len(got)-1].Count() == len(Default())+2
	}, 5*time.Second, 20*time.Millisecond)
}

func TestWatcherKeepsRulesOnBadReload(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	file := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(file, []byte("- name: quote\n  path: /quote\n"), 0o644))

	calls := make(chan RuleSet, 4)
	w, err := NewWatcher(file, func(rs RuleSet) { calls <- rs }, nil)
	require.NoError(t, err)
	w.debounce = 10 * time.Millisecond
	require.NoError(t, w.Start(context.Background()))

	require.NoError(t, os.WriteFile(file, []byte("- name: [broken"), 0o644))
	time.Sleep(200 * time.Millisecond)
	w.Stop()

	assert.Empty(t, calls)
}

func TestWatcherStartMissingPath(t *testing.T) {
	defer goleak.VerifyNone(t)

	w, err := NewWatcher(filepath.Join(t.TempDir(), "nope.yaml"), nil, nil)
	require.NoError(t, err)
	assert.Error(t, w.Start(context.Background()))
	w.Stop()
}

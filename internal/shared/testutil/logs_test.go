package testutil

import (
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogRecorder(t *testing.T) {
	logger, rec := NewTestLogger(t)
	child := logger.With(slog.String("component", "pipeline"))

	logger.Info("run_start", slog.Int("stages", 3))
	child.Info("stage_completed", slog.String("stage", "merge"))
	child.Warn("stage_failed")

	require.Len(t, rec.Records(), 3)
	assert.Equal(t, 1, rec.Count("stage_completed"))
	got := rec.Find("stage_completed")[0]
	assert.Equal(t, "pipeline", got.Attrs["component"], "attributes from With are kept")
	assert.Equal(t, "merge", got.Attrs["stage"])
	assert.NotContains(t, rec.Find("run_start")[0].Attrs, "component")

	AssertLogged(t, rec, slog.LevelWarn, "failed")
	AssertNoErrors(t, rec)
}

func TestLogRecorder_Concurrent(t *testing.T) {
	logger, rec := NewTestLogger(t)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			logger.With(slog.Int("worker", n)).Info("estimate")
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 10, rec.Count("estimate"))
}

func TestMonthlyReturns(t *testing.T) {
	lines := MonthlyReturns(2019, 2020, "AAA", "BBB")
	require.Len(t, lines, 1+2*24)
	assert.Equal(t, "Date,Instrument,Total Return", lines[0])
	assert.Contains(t, lines[1], "2019-01-31,AAA,")
	assert.Contains(t, lines[24], "2020-12-31,AAA,")
	assert.Contains(t, lines[25], "2019-01-31,BBB,")

	path := WriteTable(t, t.TempDir(), "r.csv", lines...)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "2020-02-29,BBB,")
}

package collector

import (
	"context"
	"os"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Only one test in this package may raise a signal: a second delivery to an
// installed handler exits the process.
func TestSetupSignalHandler_InterruptsRun(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("signals are not supported on windows")
	}

	var archiveClosed atomic.Bool
	ctx := SetupSignalHandler(func(context.Context) {
		archiveClosed.Store(true)
	})
	require.NoError(t, ctx.Err())

	ids := []string{"NA1_1", "NA1_2", "NA1_3", "NA1_4", "NA1_5", "NA1_6"}
	proc := newFakeProcessor()
	proc.delay = 100 * time.Millisecond
	c := New(newFakeSource(ids...), proc, Config{Concurrency: 1})

	go func() {
		time.Sleep(50 * time.Millisecond)
		p, _ := os.FindProcess(os.Getpid())
		p.Signal(os.Interrupt)
	}()

	summary, err := c.Run(ctx, refs("GOLD", ids...))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, summary.Processed, len(ids), "run stops dispatching after the signal")
	assert.True(t, archiveClosed.Load())
}

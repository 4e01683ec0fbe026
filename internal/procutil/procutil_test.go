package procutil

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartAndTryWaitObservesExit(t *testing.T) {
	var out bytes.Buffer
	c, err := Start([]string{"/bin/sh", "-c", "echo hi; exit 3"}, t.TempDir(), &out)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	info, err := c.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, info.Code)
	assert.Contains(t, out.String(), "hi")

	polled, ok := c.TryWait()
	assert.True(t, ok)
	assert.Equal(t, 3, polled.Code)
}

func TestTryWaitFalseWhileRunning(t *testing.T) {
	var out bytes.Buffer
	c, err := Start([]string{"/bin/sh", "-c", "sleep 5"}, t.TempDir(), &out)
	require.NoError(t, err)
	defer c.Terminate(context.Background(), time.Second)

	_, ok := c.TryWait()
	assert.False(t, ok)
}

func TestTerminateEscalatesToKillOnTimeout(t *testing.T) {
	var out bytes.Buffer
	c, err := Start([]string{"/bin/sh", "-c", "trap '' TERM; sleep 30"}, t.TempDir(), &out)
	require.NoError(t, err)

	start := time.Now()
	info, err := c.Terminate(context.Background(), 200*time.Millisecond)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.NotEqual(t, 0, info.Code)
}

func TestTerminateGracefulExit(t *testing.T) {
	var out bytes.Buffer
	c, err := Start([]string{"/bin/sh", "-c", "trap 'exit 0' TERM; sleep 30 & wait"}, t.TempDir(), &out)
	require.NoError(t, err)

	info, err := c.Terminate(context.Background(), 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 0, info.Code)
}

func TestStartRejectsEmptyArgv(t *testing.T) {
	_, err := Start(nil, t.TempDir(), &bytes.Buffer{})
	require.Error(t, err)
}

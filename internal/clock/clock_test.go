package clock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVirtual_SleepAdvances(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	v := NewVirtual(start)

	require.NoError(t, v.Sleep(context.Background(), 250*time.Millisecond))
	require.NoError(t, v.Sleep(context.Background(), time.Second))

	assert.Equal(t, start.Add(1250*time.Millisecond), v.Now())
}

func TestVirtual_NegativeIgnored(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	v := NewVirtual(start)

	v.Advance(-time.Minute)

	assert.Equal(t, start, v.Now())
}

func TestVirtual_CanceledContext(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	v := NewVirtual(start)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := v.Sleep(ctx, time.Second)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, start, v.Now())
}

func TestReal_Sleep(t *testing.T) {
	var c Real
	before := c.Now()

	require.NoError(t, c.Sleep(context.Background(), 5*time.Millisecond))
	assert.GreaterOrEqual(t, c.Now().Sub(before), 5*time.Millisecond)
}

func TestReal_SleepCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Real{}.Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}

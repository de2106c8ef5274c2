package pacing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{in: "FORK", want: ModeFork},
		{in: "fork", want: ModeFork},
		{in: " Live ", want: ModeLive},
		{in: "", want: ModeLive},
		{in: "mainnet", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestDefaultIntervals(t *testing.T) {
	require.NoError(t, DefaultIntervals.Validate())

	fork := NewScheduler(ModeFork, DefaultIntervals)
	live := NewScheduler(ModeLive, DefaultIntervals)
	require.Equal(t, time.Second, fork.Interval())
	require.Equal(t, 3*time.Minute, live.Interval())
	require.Less(t, fork.Interval(), live.Interval())
	require.Equal(t, ModeFork, fork.Mode())
}

func TestIntervalsValidate(t *testing.T) {
	require.Error(t, Intervals{Fork: time.Second, Live: time.Second}.Validate())
	require.Error(t, Intervals{Fork: time.Minute, Live: time.Second}.Validate())
	require.Error(t, Intervals{Fork: 0, Live: time.Second}.Validate())
}

func TestWait(t *testing.T) {
	s := NewScheduler(ModeFork, Intervals{Fork: 20 * time.Millisecond, Live: time.Hour})

	start := time.Now()
	require.NoError(t, s.Wait(context.Background()))
	require.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestWaitCancelled(t *testing.T) {
	s := NewScheduler(ModeLive, Intervals{Fork: time.Millisecond, Live: time.Hour})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	require.ErrorIs(t, s.Wait(ctx), context.DeadlineExceeded)
	require.Less(t, time.Since(start), time.Minute)
}

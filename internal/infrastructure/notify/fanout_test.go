package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pothole-watch/internal/domain/entity"
)

type recordingNotifier struct {
	events []entity.ReportEvent
	err    error
}

func (r *recordingNotifier) Publish(ctx context.Context, event entity.ReportEvent) error {
	r.events = append(r.events, event)
	return r.err
}

func TestFanout_CallsEverySinkAndJoinsErrors(t *testing.T) {
	broken := &recordingNotifier{err: errors.New("broker down")}
	healthy := &recordingNotifier{}

	f := NewFanout(0)
	f.Add("nats", broken)
	f.Add("websocket", healthy)

	err := f.Publish(context.Background(), testEvent(3))
	require.ErrorContains(t, err, "nats: broker down")
	require.Len(t, broken.events, 1)
	require.Len(t, healthy.events, 1)
}

func TestFanout_Empty(t *testing.T) {
	require.NoError(t, NewFanout(0).Publish(context.Background(), testEvent(1)))
}

// hangingNotifier не отвечает, пока тест не завершится, и не смотрит на ctx
type hangingNotifier struct {
	release chan struct{}
}

func (h *hangingNotifier) Publish(ctx context.Context, event entity.ReportEvent) error {
	<-h.release
	return nil
}

func TestFanout_HungSinkDoesNotBlockPublish(t *testing.T) {
	hung := &hangingNotifier{release: make(chan struct{})}
	t.Cleanup(func() { close(hung.release) })
	healthy := &recordingNotifier{}

	f := NewFanout(50 * time.Millisecond)
	f.Add("telegram", hung)
	f.Add("websocket", healthy)

	started := time.Now()
	err := f.Publish(context.Background(), testEvent(5))
	require.Less(t, time.Since(started), 2*time.Second)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.ErrorContains(t, err, "telegram")
	require.NotContains(t, err.Error(), "websocket")
	require.Len(t, healthy.events, 1)
}

func TestFanout_IgnoresCallerCancellation(t *testing.T) {
	healthy := &recordingNotifier{}
	f := NewFanout(time.Second)
	f.Add("websocket", healthy)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, f.Publish(ctx, testEvent(6)))
	require.Len(t, healthy.events, 1)
}

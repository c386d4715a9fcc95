package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hamed0406/sshwatch/internal/domain"
	serrors "github.com/hamed0406/sshwatch/internal/errors"
	"github.com/hamed0406/sshwatch/internal/report"
	"github.com/hamed0406/sshwatch/internal/retry"
)

type sent struct {
	chatID int64
	text   string
}

// fakeSender fails the first failN sends to each chat.
type fakeSender struct {
	failN map[int64]int
	calls map[int64]int
	out   []sent
}

func (f *fakeSender) Send(ctx context.Context, chatID int64, text string) error {
	if f.calls == nil {
		f.calls = map[int64]int{}
	}
	f.calls[chatID]++
	if f.calls[chatID] <= f.failN[chatID] {
		return errors.New("network down")
	}
	f.out = append(f.out, sent{chatID, text})
	return nil
}

type staticSubs struct {
	subs []domain.Subscriber
	err  error
}

func (s staticSubs) Load(context.Context) ([]domain.Subscriber, error) { return s.subs, s.err }

func noSleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

func newTestBroadcaster(s Sender, subs []domain.Subscriber, logger *zap.Logger) *Broadcaster {
	b := NewBroadcaster(s, staticSubs{subs: subs}, report.Formatter{Location: time.UTC}, Config{Attempts: 3, Backoff: time.Second}, logger)
	b.policy.Sleep = noSleep
	return b
}

func down(comment string) domain.HostState {
	f := false
	return domain.HostState{
		Key:        domain.EndpointKey{LocalAddr: "127.0.0.1", LocalPort: 2201},
		Available:  &f,
		RemoteAddr: "10.0.0.5",
		RemotePort: 22,
		Comment:    comment,
	}
}

func TestDeliver_RetriesUntilSuccess(t *testing.T) {
	fs := &fakeSender{failN: map[int64]int{42: 2}}
	b := newTestBroadcaster(fs, nil, nil)

	require.NoError(t, b.Deliver(context.Background(), 42, "hi"))
	assert.Equal(t, 3, fs.calls[42])
	assert.Equal(t, []sent{{42, "hi"}}, fs.out)
}

func TestDeliver_GivesUpAfterAttempts(t *testing.T) {
	fs := &fakeSender{failN: map[int64]int{42: 10}}
	b := newTestBroadcaster(fs, nil, nil)

	err := b.Deliver(context.Background(), 42, "hi")
	require.Error(t, err)
	assert.Equal(t, 3, fs.calls[42])
	assert.True(t, serrors.IsCode(err, serrors.ErrTransport))
}

func TestDeliver_PermanentStopsEarly(t *testing.T) {
	calls := 0
	s := senderFunc(func(context.Context, int64, string) error {
		calls++
		return retry.Permanent(serrors.New(serrors.ErrTransport, "forbidden", ""))
	})
	b := newTestBroadcaster(s, nil, nil)

	require.Error(t, b.Deliver(context.Background(), 1, "x"))
	assert.Equal(t, 1, calls)
}

type senderFunc func(ctx context.Context, chatID int64, text string) error

func (f senderFunc) Send(ctx context.Context, chatID int64, text string) error {
	return f(ctx, chatID, text)
}

func TestNotify_FansOutPastFailures(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	fs := &fakeSender{failN: map[int64]int{2: 10}}
	subs := []domain.Subscriber{{ChatID: 1}, {ChatID: 2}, {ChatID: 3}}
	b := newTestBroadcaster(fs, subs, zap.New(core))

	err := b.Notify(context.Background(), down("db"))

	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 1)
	require.Len(t, fs.out, 2)
	assert.Equal(t, int64(1), fs.out[0].chatID)
	assert.Equal(t, int64(3), fs.out[1].chatID)
	assert.Equal(t,
		"Status of following hosts has been changed:\n⚠️ db (127.0.0.1:2201 -> 10.0.0.5:22, last seen: never)\n",
		fs.out[0].text)
	assert.Equal(t, 3, logs.FilterMessage("send_attempt_failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("send_failed").Len())
}

func TestNotify_SubscriberLoadError(t *testing.T) {
	fs := &fakeSender{}
	b := NewBroadcaster(fs, staticSubs{err: errors.New("gone")}, report.Formatter{}, Config{}, nil)

	require.Error(t, b.Notify(context.Background(), down("x")))
	assert.Empty(t, fs.out)
}

func TestAnnounce_MastersOnly(t *testing.T) {
	fs := &fakeSender{}
	subs := []domain.Subscriber{{ChatID: 1}, {ChatID: 2, Master: true}, {ChatID: 3}}
	b := newTestBroadcaster(fs, subs, nil)

	require.NoError(t, b.Announce(context.Background(), "✅ sshwatch started\n"))
	assert.Equal(t, []sent{{2, "✅ sshwatch started\n"}}, fs.out)
}

func TestDeliver_SpacesSends(t *testing.T) {
	fs := &fakeSender{}
	b := NewBroadcaster(fs, staticSubs{}, report.Formatter{}, Config{Delay: 50 * time.Millisecond}, nil)

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, b.Deliver(context.Background(), 1, "x"))
	}
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestDeliver_CanceledWhileThrottled(t *testing.T) {
	fs := &fakeSender{}
	b := NewBroadcaster(fs, staticSubs{}, report.Formatter{}, Config{Delay: time.Hour}, nil)
	require.NoError(t, b.Deliver(context.Background(), 1, "first"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.Error(t, b.Deliver(ctx, 1, "second"))
	assert.Len(t, fs.out, 1)
}

func TestMasters(t *testing.T) {
	assert.Nil(t, Masters([]domain.Subscriber{{ChatID: 1}}))
	assert.Equal(t, []domain.Subscriber{{ChatID: 2, Master: true}},
		Masters([]domain.Subscriber{{ChatID: 1}, {ChatID: 2, Master: true}}))
}

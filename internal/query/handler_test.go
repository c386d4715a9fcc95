package query

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamed0406/sshwatch/internal/domain"
	"github.com/hamed0406/sshwatch/internal/report"
	"github.com/hamed0406/sshwatch/internal/repo/memory"
	"github.com/hamed0406/sshwatch/internal/telegram"
)

type reply struct {
	chatID int64
	text   string
}

type fakeReplier struct {
	got []reply
	err error
}

func (f *fakeReplier) Deliver(_ context.Context, chatID int64, text string) error {
	f.got = append(f.got, reply{chatID, text})
	return f.err
}

func TestIsStatusRequest(t *testing.T) {
	h := NewHandler(memory.New(), &fakeReplier{}, report.Formatter{}, "SSHWatch_bot", nil)

	cases := []struct {
		name string
		msg  telegram.Message
		want bool
	}{
		{"private", telegram.Message{ChatType: "private", Text: "/status"}, true},
		{"private padded", telegram.Message{ChatType: "private", Text: "  /status \n"}, true},
		{"private with bot", telegram.Message{ChatType: "private", Text: "/status@SSHWatch_bot"}, false},
		{"private other", telegram.Message{ChatType: "private", Text: "/start"}, false},
		{"group", telegram.Message{ChatType: "group", Text: "/status@SSHWatch_bot"}, true},
		{"supergroup case", telegram.Message{ChatType: "supergroup", Text: "/status@sshwatch_BOT"}, true},
		{"group bare", telegram.Message{ChatType: "group", Text: "/status"}, false},
		{"group other bot", telegram.Message{ChatType: "group", Text: "/status@other_bot"}, false},
		{"channel", telegram.Message{ChatType: "channel", Text: "/status"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, h.IsStatusRequest(tc.msg))
		})
	}
}

func TestHandle_EmptyStoreRepliesHeaderOnly(t *testing.T) {
	r := &fakeReplier{}
	h := NewHandler(memory.New(), r, report.Formatter{}, "bot", nil)

	h.Handle(context.Background(), telegram.Message{ChatID: 9, ChatType: "private", Text: "/status"})

	require.Len(t, r.got, 1)
	assert.Equal(t, reply{9, "Current status:\n"}, r.got[0])
}

func TestHandle_RendersSnapshotInOrder(t *testing.T) {
	store := memory.New()
	now := time.Date(2025, 8, 18, 12, 0, 0, 0, time.UTC)
	store.Update(domain.Endpoint{
		Key:        domain.EndpointKey{LocalAddr: "127.0.0.1", LocalPort: 2201},
		RemoteAddr: "10.0.0.5", RemotePort: 22, Comment: "web",
	}, true, now)
	store.Update(domain.Endpoint{
		Key:        domain.EndpointKey{LocalAddr: "127.0.0.1", LocalPort: 2202},
		RemoteAddr: "10.0.0.6", RemotePort: 22, Comment: "db",
	}, false, now)

	r := &fakeReplier{}
	h := NewHandler(store, r, report.Formatter{Location: time.UTC}, "bot", nil)
	h.Handle(context.Background(), telegram.Message{ChatID: -5, ChatType: "group", Text: "/status@bot"})

	require.Len(t, r.got, 1)
	assert.Equal(t, "Current status:\n"+
		"✅ web (127.0.0.1:2201 -> 10.0.0.5:22, last seen: 2025-08-18 12:00:00)\n"+
		"⚠️ db (127.0.0.1:2202 -> 10.0.0.6:22, last seen: never)\n",
		r.got[0].text)
}

func TestHandle_IgnoresOtherMessages(t *testing.T) {
	r := &fakeReplier{}
	h := NewHandler(memory.New(), r, report.Formatter{}, "bot", nil)

	h.Handle(context.Background(), telegram.Message{ChatID: 1, ChatType: "private", Text: "hello"})
	assert.Empty(t, r.got)
}

func manyEndpoints(n int) *memory.Store {
	store := memory.New()
	now := time.Date(2025, 8, 18, 12, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		store.Update(domain.Endpoint{
			Key:        domain.EndpointKey{LocalAddr: "127.0.0.1", LocalPort: 2000 + i},
			RemoteAddr: "10.0.0.5", RemotePort: 22, Comment: "host with a fairly long description",
		}, i%3 != 0, now)
	}
	return store
}

func TestHandle_SplitsLongReplies(t *testing.T) {
	r := &fakeReplier{}
	h := NewHandler(manyEndpoints(150), r, report.Formatter{Location: time.UTC}, "bot", nil)
	h.Handle(context.Background(), telegram.Message{ChatID: 9, ChatType: "private", Text: "/status"})

	require.Greater(t, len(r.got), 1)
	var joined strings.Builder
	for _, m := range r.got {
		assert.Equal(t, int64(9), m.chatID)
		assert.LessOrEqual(t, len([]rune(m.text)), telegram.MaxMessageLength)
		joined.WriteString(m.text)
	}
	assert.Equal(t, h.Render(), joined.String())
	assert.True(t, strings.HasPrefix(r.got[0].text, "Current status:\n"))
}

func TestHandle_StopsAfterFailedPart(t *testing.T) {
	r := &fakeReplier{err: errors.New("bad request")}
	h := NewHandler(manyEndpoints(20), r, report.Formatter{}, "bot", nil)
	h.maxLen = 200

	h.Handle(context.Background(), telegram.Message{ChatID: 9, ChatType: "private", Text: "/status"})
	assert.Len(t, r.got, 1)
}

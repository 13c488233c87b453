package chat_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citychat/citychat/internal/chat"
)

const noticeWait = 2 * time.Second

type fakeProvider struct {
	mu       sync.Mutex
	calls    int
	locality string
	err      error
	// gate, when set, blocks the lookup until closed or the context ends.
	gate chan struct{}
}

func (p *fakeProvider) Lookup(ctx context.Context, lat, lon float64) (string, error) {
	p.mu.Lock()
	p.calls++
	locality, err, gate := p.locality, p.err, p.gate
	p.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return locality, err
}

func (p *fakeProvider) set(locality string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.locality, p.err = locality, err
}

func (p *fakeProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type joinedNotice struct {
	to    chat.SessionID
	room  chat.RoomID
	count int
}

type countNotice struct {
	to    []chat.SessionID
	count int
}

type errorNotice struct {
	to  chat.SessionID
	err error
}

type captureNotifier struct {
	joined chan joinedNotice
	counts chan countNotice
	errs   chan errorNotice
}

func newCaptureNotifier() *captureNotifier {
	return &captureNotifier{
		joined: make(chan joinedNotice, 16),
		counts: make(chan countNotice, 16),
		errs:   make(chan errorNotice, 16),
	}
}

func (n *captureNotifier) JoinedRoom(to chat.SessionID, room chat.RoomID, count int) {
	n.joined <- joinedNotice{to: to, room: room, count: count}
}

func (n *captureNotifier) CountChanged(to []chat.SessionID, count int) {
	n.counts <- countNotice{to: to, count: count}
}

func (n *captureNotifier) SessionError(to chat.SessionID, err error) {
	n.errs <- errorNotice{to: to, err: err}
}

func (n *captureNotifier) waitJoined(t *testing.T) joinedNotice {
	t.Helper()
	select {
	case notice := <-n.joined:
		return notice
	case <-time.After(noticeWait):
		t.Fatal("timed out waiting for joined_room notice")
		return joinedNotice{}
	}
}

func (n *captureNotifier) waitCount(t *testing.T) countNotice {
	t.Helper()
	select {
	case notice := <-n.counts:
		return notice
	case <-time.After(noticeWait):
		t.Fatal("timed out waiting for user_count_update notice")
		return countNotice{}
	}
}

func (n *captureNotifier) waitError(t *testing.T) errorNotice {
	t.Helper()
	select {
	case notice := <-n.errs:
		return notice
	case <-time.After(noticeWait):
		t.Fatal("timed out waiting for error notice")
		return errorNotice{}
	}
}

type sessionFixture struct {
	registry *chat.Registry
	provider *fakeProvider
	notifier *captureNotifier
	manager  *chat.Manager
}

func newSessionFixture() *sessionFixture {
	registry := chat.NewRegistry(discardLogger())
	provider := &fakeProvider{}
	notifier := newCaptureNotifier()
	manager := chat.NewManager(registry, provider, notifier, time.Second, discardLogger())
	return &sessionFixture{
		registry: registry,
		provider: provider,
		notifier: notifier,
		manager:  manager,
	}
}

// joinSession submits coordinates and waits for the join to commit.
func (f *sessionFixture) joinSession(t *testing.T, sess *chat.Session, lat, lon float64) joinedNotice {
	t.Helper()
	require.NoError(t, sess.SubmitCoordinates(context.Background(), lat, lon))
	notice := f.notifier.waitJoined(t)
	require.Equal(t, sess.ID(), notice.to)
	f.notifier.waitCount(t)
	return notice
}

func TestInvalidCoordinatesNeverReachProvider(t *testing.T) {
	f := newSessionFixture()
	sess := f.manager.Create()

	err := sess.SubmitCoordinates(context.Background(), 200, 10)
	assert.ErrorIs(t, err, chat.ErrInvalidCoordinate)
	assert.Equal(t, 0, f.provider.callCount(), "geocoder must not be called for invalid input")
	assert.Equal(t, chat.StateConnected, sess.State())
}

func TestGeocodeFailureKeepsSessionRetryable(t *testing.T) {
	f := newSessionFixture()
	f.provider.set("", fmt.Errorf("geocoder unreachable"))
	sess := f.manager.Create()

	require.NoError(t, sess.SubmitCoordinates(context.Background(), 48.85, 2.35))

	notice := f.notifier.waitError(t)
	assert.Equal(t, sess.ID(), notice.to)
	assert.ErrorIs(t, notice.err, chat.ErrLocationUnavailable)
	assert.Equal(t, chat.StateConnected, sess.State())

	// The session can retry after a failure.
	f.provider.set("Paris", nil)
	joined := f.joinSession(t, sess, 48.85, 2.35)
	assert.Equal(t, chat.RoomID("paris"), joined.room)
	assert.Equal(t, 1, joined.count)
}

func TestMissingLocalityFallsBackToUnknownCity(t *testing.T) {
	f := newSessionFixture()
	f.provider.set("", nil)
	sess := f.manager.Create()

	joined := f.joinSession(t, sess, 0, 0)
	assert.Equal(t, chat.FallbackRoom, joined.room)
}

func TestDisconnectDuringGeocodeDiscardsJoin(t *testing.T) {
	f := newSessionFixture()
	gate := make(chan struct{})
	f.provider.gate = gate
	f.provider.set("Paris", nil)
	sess := f.manager.Create()

	require.NoError(t, sess.SubmitCoordinates(context.Background(), 48.85, 2.35))
	sess.Disconnect()
	close(gate)

	select {
	case notice := <-f.notifier.joined:
		t.Fatalf("late geocode result committed a join: %+v", notice)
	case <-time.After(100 * time.Millisecond):
	}
	assert.Equal(t, chat.StateDisconnected, sess.State())
	assert.Equal(t, 0, f.registry.MemberCount("paris"))
}

func TestSendMessageBeforeJoinFails(t *testing.T) {
	f := newSessionFixture()
	sess := f.manager.Create()

	_, _, err := sess.SendMessage("hello")
	assert.ErrorIs(t, err, chat.ErrNotJoined)
}

func TestSendMessageValidation(t *testing.T) {
	f := newSessionFixture()
	f.provider.set("Berlin", nil)
	sess := f.manager.Create()
	f.joinSession(t, sess, 52.52, 13.40)

	_, _, err := sess.SendMessage("   ")
	assert.ErrorIs(t, err, chat.ErrMessageEmpty)

	long := make([]byte, chat.MaxMessageLength+1)
	for i := range long {
		long[i] = 'a'
	}
	_, _, err = sess.SendMessage(string(long))
	assert.ErrorIs(t, err, chat.ErrMessageTooLong)

	msg, recipients, err := sess.SendMessage("  hallo  ")
	require.NoError(t, err)
	assert.Equal(t, "hallo", msg.Text)
	assert.Equal(t, []chat.SessionID{sess.ID()}, recipients)
}

func TestSubmitWhileJoinedOrResolvingRejected(t *testing.T) {
	f := newSessionFixture()
	f.provider.set("Berlin", nil)
	sess := f.manager.Create()
	f.joinSession(t, sess, 52.52, 13.40)

	err := sess.SubmitCoordinates(context.Background(), 48.85, 2.35)
	assert.ErrorIs(t, err, chat.ErrAlreadyJoined)
}

func TestSubmitAfterDisconnectRejected(t *testing.T) {
	f := newSessionFixture()
	sess := f.manager.Create()
	sess.Disconnect()

	err := sess.SubmitCoordinates(context.Background(), 48.85, 2.35)
	assert.ErrorIs(t, err, chat.ErrSessionClosed)
}

func TestDisconnectIsIdempotent(t *testing.T) {
	f := newSessionFixture()
	f.provider.set("Berlin", nil)
	a := f.manager.Create()
	b := f.manager.Create()
	f.joinSession(t, a, 52.52, 13.40)
	f.joinSession(t, b, 52.52, 13.40)

	room, remaining, count := a.Disconnect()
	assert.Equal(t, chat.RoomID("berlin"), room)
	assert.Equal(t, []chat.SessionID{b.ID()}, remaining)
	assert.Equal(t, 1, count)

	room, remaining, count = a.Disconnect()
	assert.Equal(t, chat.RoomID(""), room)
	assert.Nil(t, remaining)
	assert.Equal(t, 0, count)
	assert.Equal(t, 1, f.registry.MemberCount("berlin"), "second disconnect must not decrement")
}

func TestNewYorkScenario(t *testing.T) {
	f := newSessionFixture()
	f.provider.set("New York ", nil)

	a := f.manager.Create()
	b := f.manager.Create()

	joinedA := f.joinSession(t, a, 40.71, -74.00)
	assert.Equal(t, chat.RoomID("new-york"), joinedA.room)
	assert.Equal(t, 1, joinedA.count)

	joinedB := f.joinSession(t, b, 40.72, -73.99)
	assert.Equal(t, chat.RoomID("new-york"), joinedB.room)
	assert.Equal(t, 2, joinedB.count)
	assert.Equal(t, 2, f.registry.MemberCount("new-york"))

	msg, recipients, err := a.SendMessage("hi")
	require.NoError(t, err)
	assert.Equal(t, "hi", msg.Text)
	assert.False(t, msg.SentAt.IsZero())
	assert.ElementsMatch(t, []chat.SessionID{a.ID(), b.ID()}, recipients,
		"both members, sender included, receive the message")

	_, _, count := a.Disconnect()
	assert.Equal(t, 1, count)
	assert.Equal(t, 1, f.registry.MemberCount("new-york"))

	_, _, count = b.Disconnect()
	assert.Equal(t, 0, count)
	assert.Equal(t, 0, f.registry.MemberCount("new-york"), "emptied room is deleted")
}

func TestManagerLifecycle(t *testing.T) {
	f := newSessionFixture()

	sess := f.manager.Create()
	assert.NotEmpty(t, sess.ID())
	assert.Equal(t, 1, f.manager.Count())

	got, err := f.manager.Get(sess.ID())
	require.NoError(t, err)
	assert.Same(t, sess, got)

	other := f.manager.Create()
	assert.NotEqual(t, sess.ID(), other.ID(), "session ids are unique per connection")

	sess.Disconnect()
	f.manager.Remove(sess.ID())
	_, err = f.manager.Get(sess.ID())
	assert.ErrorIs(t, err, chat.ErrSessionNotFound)
	assert.Equal(t, 1, f.manager.Count())
}

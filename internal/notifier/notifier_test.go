package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingTransport struct {
	mu       sync.Mutex
	name     string
	failures int
	err      error
	sent     []Message
	attempts int
}

func (r *recordingTransport) Name() string { return r.name }

func (r *recordingTransport) Send(_ context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts++
	if r.failures > 0 {
		r.failures--
		return r.err
	}
	r.sent = append(r.sent, msg)
	return nil
}

func newTestDispatcher(transports ...Transport) *Dispatcher {
	d := New(true, transports...)
	d.retryDelay = time.Millisecond
	return d
}

func TestRemindersDueOncePerDay(t *testing.T) {
	r := NewReminders()
	require.NoError(t, r.Set("a", "Vitamins", "08:00"))
	require.NoError(t, r.Set("b", "Stretch", "20:30"))
	assert.Error(t, r.Set("c", "Broken", "8am"))

	morning := time.Date(2026, 10, 15, 7, 59, 0, 0, time.UTC)
	assert.Empty(t, r.Due(morning))

	due := r.Due(morning.Add(2 * time.Minute))
	require.Len(t, due, 1)
	assert.Equal(t, "Vitamins", due[0].Name)
	assert.Empty(t, r.Due(morning.Add(time.Hour)), "fires once per day")

	evening := time.Date(2026, 10, 15, 21, 0, 0, 0, time.UTC)
	due = r.Due(evening)
	require.Len(t, due, 1)
	assert.Equal(t, "b", due[0].HabitID)

	nextDay := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	assert.Len(t, r.Due(nextDay), 1)
}

func TestRemindersSetAndRemove(t *testing.T) {
	r := NewReminders()
	require.NoError(t, r.Set("a", "Read", "21:00"))
	require.NoError(t, r.Set("b", "Walk", "07:00"))
	require.NoError(t, r.Set("a", "Read more", "21:00"))

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, "Walk", list[0].Name)
	assert.Equal(t, "Read more", list[1].Name)

	r.Remove("a")
	r.Remove("missing")
	assert.Len(t, r.List(), 1)
}

func TestDispatcherScheduleAndCancel(t *testing.T) {
	d := newTestDispatcher()
	require.NoError(t, d.ScheduleReminder("h1", "Journal", "22:00"))
	assert.Len(t, d.Reminders().List(), 1)
	require.NoError(t, d.CancelReminder("h1"))
	assert.Empty(t, d.Reminders().List())
}

func TestDispatcherRetriesAndBroadcasts(t *testing.T) {
	flaky := &recordingTransport{name: "flaky", failures: 2, err: errors.New("timeout")}
	steady := &recordingTransport{name: "steady"}
	d := newTestDispatcher(flaky, steady)

	require.NoError(t, d.SendMilestone("Reading", 7))

	assert.Equal(t, 3, flaky.attempts)
	require.Len(t, flaky.sent, 1)
	assert.Contains(t, flaky.sent[0].Body, "Reading")
	assert.Contains(t, flaky.sent[0].Body, "7 days")
	assert.Len(t, steady.sent, 1)
}

func TestDispatcherFailsWhenNoTransportDelivers(t *testing.T) {
	down := &recordingTransport{name: "down", failures: 10, err: errors.New("unreachable")}
	d := newTestDispatcher(down)

	err := d.SendMilestone("Reading", 14)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "down")
	assert.Equal(t, 3, down.attempts)
}

func TestDispatcherSkipsRetryWhenTrayIsAbsent(t *testing.T) {
	tray := &recordingTransport{name: "tray", failures: 10, err: ErrTrayNotRunning}
	d := newTestDispatcher(tray)

	assert.ErrorIs(t, d.SendMilestone("Reading", 30), ErrTrayNotRunning)
	assert.Equal(t, 1, tray.attempts)
}

func TestDispatcherDisabled(t *testing.T) {
	rec := &recordingTransport{name: "rec"}
	d := New(false, rec)
	require.NoError(t, d.SendMilestone("Reading", 7))
	assert.Zero(t, rec.attempts)
}

func TestFireDue(t *testing.T) {
	rec := &recordingTransport{name: "rec"}
	d := newTestDispatcher(rec)
	require.NoError(t, d.ScheduleReminder("h1", "Meditation", "06:30"))

	now := time.Date(2026, 10, 15, 6, 45, 0, 0, time.UTC)
	assert.Equal(t, 1, d.FireDue(context.Background(), now))
	assert.Equal(t, 0, d.FireDue(context.Background(), now))
	require.Len(t, rec.sent, 1)
	assert.Equal(t, "Time for Meditation", rec.sent[0].Body)
	assert.Equal(t, "reminder-h1", rec.sent[0].Tag)
}

func writeSubscriptions(t *testing.T, subs []webpush.Subscription) string {
	path := filepath.Join(t.TempDir(), "subscriptions.json")
	data, err := json.Marshal(subs)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

func stubPush(t *testing.T, status func(endpoint string) int) *[]string {
	old := sendPushFunc
	t.Cleanup(func() { sendPushFunc = old })

	var mu sync.Mutex
	var endpoints []string
	sendPushFunc = func(_ context.Context, _ []byte, s *webpush.Subscription, o *webpush.Options) (*http.Response, error) {
		mu.Lock()
		endpoints = append(endpoints, s.Endpoint)
		mu.Unlock()
		return &http.Response{StatusCode: status(s.Endpoint), Body: io.NopCloser(strings.NewReader(""))}, nil
	}
	return &endpoints
}

var testVAPID = VAPID{Subject: "mailto:me@example.com", PublicKey: "pub", PrivateKey: "priv"}

func TestNewWebPushTransportRequiresKeys(t *testing.T) {
	_, err := NewWebPushTransport(VAPID{PublicKey: "pub"}, "subs.json")
	assert.Error(t, err)
	_, err = NewWebPushTransport(testVAPID, "")
	assert.Error(t, err)
}

func TestWebPushSend(t *testing.T) {
	path := writeSubscriptions(t, []webpush.Subscription{
		{Endpoint: "https://push.example.com/ok", Keys: webpush.Keys{P256dh: "k", Auth: "a"}},
		{Endpoint: "https://push.example.com/gone", Keys: webpush.Keys{P256dh: "k", Auth: "a"}},
	})
	endpoints := stubPush(t, func(endpoint string) int {
		if strings.HasSuffix(endpoint, "gone") {
			return http.StatusGone
		}
		return http.StatusCreated
	})

	wp, err := NewWebPushTransport(testVAPID, path)
	require.NoError(t, err)

	require.NoError(t, wp.Send(context.Background(), Message{Title: "t", Body: "b"}), "one delivery is enough")
	assert.Len(t, *endpoints, 2)
}

func TestWebPushSendAllFail(t *testing.T) {
	path := writeSubscriptions(t, []webpush.Subscription{{Endpoint: "https://push.example.com/x"}})
	stubPush(t, func(string) int { return http.StatusForbidden })

	wp, err := NewWebPushTransport(testVAPID, path)
	require.NoError(t, err)
	assert.Error(t, wp.Send(context.Background(), Message{Title: "t"}))

	empty := writeSubscriptions(t, []webpush.Subscription{})
	wp, err = NewWebPushTransport(testVAPID, empty)
	require.NoError(t, err)
	assert.Error(t, wp.Send(context.Background(), Message{Title: "t"}))
}

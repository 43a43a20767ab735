package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/csi-attendance-api/internal/models"
	appErrors "github.com/noah-isme/csi-attendance-api/pkg/errors"
	"github.com/noah-isme/csi-attendance-api/pkg/jobs"
	"github.com/noah-isme/csi-attendance-api/pkg/push"
)

type senderStub struct {
	mu      sync.Mutex
	fail    map[string]bool
	sent    []push.Message
	attempt int
}

func (s *senderStub) Send(_ context.Context, msg push.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempt++
	if s.fail[msg.RecipientID] {
		return errors.New("unregistered topic")
	}
	s.sent = append(s.sent, msg)
	return nil
}

func newNotificationFixture(t *testing.T, sender *senderStub) (*fixture, *NotificationService) {
	t.Helper()
	f := newFixture(t, enforced)
	return f, NewNotificationService(f.store.Classes, f.store.Notifications, sender, nil, 2, nil, nil)
}

func TestNotificationSend(t *testing.T) {
	sender := &senderStub{}
	f, svc := newNotificationFixture(t, sender)
	ctx := context.Background()

	n, err := svc.Send(ctx, SendNotificationRequest{RecipientID: "S1", Title: "Hi", Body: "Welcome", Payload: map[string]string{"k": "v"}})
	require.NoError(t, err)
	assert.Contains(t, n.ID, "ntf_")
	assert.False(t, n.IsRead)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "v", sender.sent[0].Data["k"])

	stored, err := f.store.Notifications.FindByID(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "S1", stored.RecipientID)
}

func TestNotificationSendFailurePersistsNothing(t *testing.T) {
	sender := &senderStub{fail: map[string]bool{"S1": true}}
	_, svc := newNotificationFixture(t, sender)
	ctx := context.Background()

	_, err := svc.Send(ctx, SendNotificationRequest{RecipientID: "S1", Title: "Hi", Body: "Welcome"})
	requireCode(t, err, appErrors.ErrInternal)

	items, _, err := svc.List(ctx, "S1", 1, 0)
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = svc.Send(ctx, SendNotificationRequest{RecipientID: "S1"})
	requireCode(t, err, appErrors.ErrValidation)
}

func TestNotificationBroadcastCollectsFailures(t *testing.T) {
	sender := &senderStub{fail: map[string]bool{"S2": true}}
	f, svc := newNotificationFixture(t, sender)
	ctx := context.Background()
	class := f.seedClass(t, "P1", "S1", "S2", "S3")

	result, err := svc.Broadcast(ctx, class.ID, BroadcastRequest{Title: "Quiz", Body: "Tomorrow", Payload: map[string]string{"room": "B2"}})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Recipients)
	assert.Equal(t, 2, result.Sent)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "S2", result.Failed[0].RecipientID)
	assert.NotEmpty(t, result.Failed[0].Reason)

	assert.Equal(t, 3, sender.attempt)
	for _, msg := range sender.sent {
		assert.Equal(t, class.ID, msg.Data["classId"])
		assert.Equal(t, "B2", msg.Data["room"])
	}
}

func TestNotificationBroadcastErrors(t *testing.T) {
	f, svc := newNotificationFixture(t, &senderStub{})
	ctx := context.Background()

	_, err := svc.Broadcast(ctx, "cls_missing", BroadcastRequest{Title: "t", Body: "b"})
	requireCode(t, err, appErrors.ErrNotFound)

	empty := f.seedClass(t, "P1")
	_, err = svc.Broadcast(ctx, empty.ID, BroadcastRequest{Title: "t", Body: "b"})
	requireCode(t, err, appErrors.ErrValidation)

	_, err = svc.Broadcast(ctx, empty.ID, BroadcastRequest{})
	requireCode(t, err, appErrors.ErrValidation)
}

func TestNotificationListAndMarkRead(t *testing.T) {
	_, svc := newNotificationFixture(t, &senderStub{})
	ctx := context.Background()

	var last *models.Notification
	for i := 0; i < 3; i++ {
		n, err := svc.Send(ctx, SendNotificationRequest{RecipientID: "S1", Title: "t", Body: "b"})
		require.NoError(t, err)
		last = n
	}

	items, pagination, err := svc.List(ctx, "S1", 1, 2)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, 3, pagination.TotalCount)
	assert.Equal(t, 2, pagination.PageSize)

	_, pagination, err = svc.List(ctx, "S1", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultNotificationLimit, pagination.PageSize)

	_, err = svc.MarkRead(ctx, last.ID, "S2")
	requireCode(t, err, appErrors.ErrForbidden)

	read, err := svc.MarkRead(ctx, last.ID, "S1")
	require.NoError(t, err)
	assert.True(t, read.IsRead)
	require.NotNil(t, read.ReadAt)

	_, err = svc.MarkRead(ctx, "ntf_missing", "")
	requireCode(t, err, appErrors.ErrNotFound)
}

type dispatcherStub struct {
	jobs []jobs.Job
}

func (d *dispatcherStub) TryEnqueue(job jobs.Job) error {
	d.jobs = append(d.jobs, job)
	return nil
}

func TestSessionStartNotificationFlow(t *testing.T) {
	sender := &senderStub{}
	f, svc := newNotificationFixture(t, sender)
	dispatcher := &dispatcherStub{}
	f.sessions.notifier = NewQueueNotifier(dispatcher)
	class := f.seedClass(t, "P1", "S1", "S2")

	session := f.start(t, class.ID, "P1")
	require.Len(t, dispatcher.jobs, 1)
	assert.Equal(t, SessionStartedJob, dispatcher.jobs[0].Type)

	worker := NewSessionNotifyWorker(svc, nil)
	require.NoError(t, worker.Handle(context.Background(), dispatcher.jobs[0]))
	require.Len(t, sender.sent, 2)
	assert.Equal(t, session.ID, sender.sent[0].Data["sessionId"])
}

func TestSessionNotifyWorkerSkipsEmptyRoster(t *testing.T) {
	sender := &senderStub{}
	f, svc := newNotificationFixture(t, sender)
	class := f.seedClass(t, "P1")
	worker := NewSessionNotifyWorker(svc, nil)

	err := worker.Handle(context.Background(), jobs.Job{ID: "sess_1", Type: SessionStartedJob, Payload: models.Session{ID: "sess_1", ClassID: class.ID}})
	assert.NoError(t, err)
	assert.NoError(t, worker.Handle(context.Background(), jobs.Job{ID: "bad", Payload: "nope"}))
	assert.Empty(t, sender.sent)
}

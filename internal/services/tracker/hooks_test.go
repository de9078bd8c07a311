package tracker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mo-amir99/elearning-server-go/pkg/logger"
)

type blockingMailer struct {
	release chan struct{}
	started chan string

	mu   sync.Mutex
	sent []string
}

func newBlockingMailer() *blockingMailer {
	return &blockingMailer{release: make(chan struct{}), started: make(chan string, 8)}
}

func (m *blockingMailer) SendCourseCompleted(_ context.Context, to, _, courseName string, _ int) error {
	m.started <- to
	<-m.release
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, to+"|"+courseName)
	return nil
}

func (m *blockingMailer) sentTo() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sent...)
}

func completedEvent(email string) Event {
	return Event{
		Result:  Result{CourseID: uuid.New(), CourseCompleted: true},
		Learner: Learner{ID: uuid.New(), Email: email, FullName: "Finn Finisher"},
	}
}

func TestEmailHookCloseWaitsForInFlightSends(t *testing.T) {
	mailer := newBlockingMailer()
	hook := NewEmailHook(mailer, testPolicy, logger.Discard())

	hook.AfterChange(context.Background(), completedEvent("finn@example.com"))
	select {
	case <-mailer.started:
	case <-time.After(time.Second):
		t.Fatal("email was not sent")
	}

	short, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, hook.Close(short), context.DeadlineExceeded)

	close(mailer.release)
	require.NoError(t, hook.Close(context.Background()))
	assert.Equal(t, []string{"finn@example.com|your course"}, mailer.sentTo())
}

func TestEmailHookSkipsAfterClose(t *testing.T) {
	mailer := newBlockingMailer()
	close(mailer.release)
	hook := NewEmailHook(mailer, testPolicy, logger.Discard())

	require.NoError(t, hook.Close(context.Background()))
	hook.AfterChange(context.Background(), completedEvent("late@example.com"))

	require.NoError(t, hook.Close(context.Background()))
	assert.Empty(t, mailer.sentTo())
}

func TestEmailHookIgnoresUnfinishedCourses(t *testing.T) {
	mailer := newBlockingMailer()
	close(mailer.release)
	hook := NewEmailHook(mailer, testPolicy, logger.Discard())

	evt := completedEvent("finn@example.com")
	evt.Result.CourseCompleted = false
	hook.AfterChange(context.Background(), evt)
	hook.AfterChange(context.Background(), completedEvent(""))

	require.NoError(t, hook.Close(context.Background()))
	assert.Empty(t, mailer.sentTo())
}

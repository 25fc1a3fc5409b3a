package notification_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/tigerroll/chunkflow/pkg/batch/core/domain/model"
	"github.com/tigerroll/chunkflow/pkg/batch/listener/notification"
)

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) NotifyJobCompletion(ctx context.Context, execution *model.JobExecution) {
	m.Called(ctx, execution)
}

func TestListener_NotifiesAfterJob(t *testing.T) {
	notifier := new(mockNotifier)
	l := notification.NewListener(notifier)
	je := model.NewJobExecution("importUserJob", model.NewJobParameters())

	notifier.On("NotifyJobCompletion", mock.Anything, je).Once()
	l.BeforeJob(context.Background(), je)
	l.AfterJob(context.Background(), je)

	notifier.AssertExpectations(t)
}

func TestSummary(t *testing.T) {
	je := model.NewJobExecution("importUserJob", model.NewJobParameters())
	je.MarkAsStarted()
	step1 := model.NewStepExecution("s1", je, "step1")
	step1.ReadCount, step1.WriteCount, step1.SkipCount = 6, 5, 1
	export := model.NewStepExecution("s2", je, "exportPeople")
	export.ReadCount, export.WriteCount = 5, 5
	je.MarkAsFailed(errors.New("upload failed"))

	summary := notification.Summary(je)
	assert.Contains(t, summary, "Job 'importUserJob'")
	assert.Contains(t, summary, "Status: FAILED")
	assert.Contains(t, summary, "Read: 11, Written: 10, Skipped: 1, Failures: 1")
}

func TestLogNotifier(t *testing.T) {
	je := model.NewJobExecution("importUserJob", model.NewJobParameters())
	je.MarkAsStarted()
	je.MarkAsCompleted()
	assert.NotPanics(t, func() {
		notification.NewLogNotifier().NotifyJobCompletion(context.Background(), je)
	})
}

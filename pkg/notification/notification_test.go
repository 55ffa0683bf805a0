package notification_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/atsflow/atsflow/pkg/mocks"
	"github.com/atsflow/atsflow/pkg/models"
	"github.com/atsflow/atsflow/pkg/notification"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestResilient_RetriesUntilSuccess(t *testing.T) {
	next := &mocks.MockCommunicator{}
	violation := &models.Violation{ID: "v-1"}

	next.On("SendAlert", mock.Anything, []string{"a@example.com"}, violation).Return(errors.New("unavailable")).Twice()
	next.On("SendAlert", mock.Anything, []string{"a@example.com"}, violation).Return(nil).Once()

	r := notification.NewResilient(next, testLogger(),
		notification.WithMaxRetries(3),
		notification.WithInitialInterval(time.Millisecond),
	)

	err := r.SendAlert(t.Context(), []string{"a@example.com"}, violation)
	require.NoError(t, err)
	next.AssertNumberOfCalls(t, "SendAlert", 3)
}

func TestResilient_GivesUpAfterMaxRetries(t *testing.T) {
	next := &mocks.MockCommunicator{}
	next.On("SendWorkflowEmail", mock.Anything, "tpl", "cand", mock.Anything).Return(errors.New("smtp down"))

	r := notification.NewResilient(next, testLogger(),
		notification.WithMaxRetries(2),
		notification.WithInitialInterval(time.Millisecond),
	)

	err := r.SendWorkflowEmail(t.Context(), "tpl", "cand", nil)
	require.EqualError(t, err, "smtp down")
	next.AssertNumberOfCalls(t, "SendWorkflowEmail", 3)
}

func TestResilient_AppliesPerAttemptTimeout(t *testing.T) {
	next := &mocks.MockCommunicator{}
	next.On("SendEscalation", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			<-ctx.Done()
		}).
		Return(context.DeadlineExceeded)

	r := notification.NewResilient(next, testLogger(),
		notification.WithTimeout(10*time.Millisecond),
		notification.WithMaxRetries(0),
	)

	err := r.SendEscalation(t.Context(), nil, &models.Violation{ID: "v-1"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFanout_JoinsAlertErrors(t *testing.T) {
	ok := &mocks.MockCommunicator{}
	failing := &mocks.MockCommunicator{}
	violation := &models.Violation{ID: "v-1"}

	ok.On("SendAlert", mock.Anything, mock.Anything, violation).Return(nil)
	failing.On("SendAlert", mock.Anything, mock.Anything, violation).Return(errors.New("webhook 500"))

	fanout := notification.NewFanout(nil, ok, failing)

	err := fanout.SendAlert(t.Context(), nil, violation)
	require.ErrorContains(t, err, "webhook 500")
	ok.AssertExpectations(t)

	err = fanout.SendWorkflowEmail(t.Context(), "tpl", "cand", nil)
	require.ErrorIs(t, err, notification.ErrNoEmailSender)
}

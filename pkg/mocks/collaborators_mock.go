package mocks

import (
	"context"

	"github.com/atsflow/atsflow/pkg/models"
	"github.com/atsflow/atsflow/pkg/protocol"
	"github.com/stretchr/testify/mock"
)

// MockCommunicator is a mock implementation of protocol.Communicator interface.
type MockCommunicator struct {
	mock.Mock
}

func (m *MockCommunicator) SendAlert(ctx context.Context, recipients []string, violation *models.Violation) error {
	args := m.Called(ctx, recipients, violation)

	return args.Error(0)
}

func (m *MockCommunicator) SendEscalation(ctx context.Context, recipients []string, violation *models.Violation) error {
	args := m.Called(ctx, recipients, violation)

	return args.Error(0)
}

func (m *MockCommunicator) SendWorkflowEmail(ctx context.Context, templateID, recipientID string, payload map[string]any) error {
	args := m.Called(ctx, templateID, recipientID, payload)

	return args.Error(0)
}

// MockStageMover is a mock implementation of protocol.StageMover interface.
type MockStageMover struct {
	mock.Mock
}

func (m *MockStageMover) MoveStage(ctx context.Context, applicationID, stageID string) error {
	args := m.Called(ctx, applicationID, stageID)

	return args.Error(0)
}

// MockTagMutator is a mock implementation of protocol.TagMutator interface.
type MockTagMutator struct {
	mock.Mock
}

func (m *MockTagMutator) AddTag(ctx context.Context, entityType, entityID, tag string) error {
	args := m.Called(ctx, entityType, entityID, tag)

	return args.Error(0)
}

func (m *MockTagMutator) RemoveTag(ctx context.Context, entityType, entityID, tag string) error {
	args := m.Called(ctx, entityType, entityID, tag)

	return args.Error(0)
}

// MockFieldUpdater is a mock implementation of protocol.FieldUpdater interface.
type MockFieldUpdater struct {
	mock.Mock
}

func (m *MockFieldUpdater) UpdateField(ctx context.Context, entityType, entityID, field string, value any) error {
	args := m.Called(ctx, entityType, entityID, field, value)

	return args.Error(0)
}

// MockUserAssigner is a mock implementation of protocol.UserAssigner interface.
type MockUserAssigner struct {
	mock.Mock
}

func (m *MockUserAssigner) AssignUser(ctx context.Context, entityType, entityID, userID, role string) error {
	args := m.Called(ctx, entityType, entityID, userID, role)

	return args.Error(0)
}

// MockTaskCreator is a mock implementation of protocol.TaskCreator interface.
type MockTaskCreator struct {
	mock.Mock
}

func (m *MockTaskCreator) CreateTask(ctx context.Context, task protocol.Task) error {
	args := m.Called(ctx, task)

	return args.Error(0)
}

// MockNotifier is a mock implementation of protocol.Notifier interface.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, notification protocol.Notification) error {
	args := m.Called(ctx, notification)

	return args.Error(0)
}

package mocks

import (
	"context"

	"github.com/atsflow/atsflow/pkg/models"
	"github.com/atsflow/atsflow/pkg/persistence"
	"github.com/atsflow/atsflow/pkg/persistence/memory"
	"github.com/stretchr/testify/mock"
)

// MockWorkflowRepository is a mock implementation of persistence.WorkflowRepository interface.
type MockWorkflowRepository struct {
	mock.Mock
}

func (m *MockWorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	args := m.Called(ctx, workflow)

	return args.Error(0)
}

func (m *MockWorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) List(ctx context.Context, organizationID string) ([]*models.Workflow, error) {
	args := m.Called(ctx, organizationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) ListActiveByTrigger(
	ctx context.Context,
	organizationID string,
	triggerType models.TriggerType,
) ([]*models.Workflow, error) {
	args := m.Called(ctx, organizationID, triggerType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

// MockRuleRepository is a mock implementation of persistence.RuleRepository interface.
type MockRuleRepository struct {
	mock.Mock
}

func (m *MockRuleRepository) Save(ctx context.Context, rule *models.SLARule) error {
	args := m.Called(ctx, rule)

	return args.Error(0)
}

func (m *MockRuleRepository) GetByID(ctx context.Context, id string) (*models.SLARule, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.SLARule), args.Error(1)
}

func (m *MockRuleRepository) List(ctx context.Context, organizationID string) ([]*models.SLARule, error) {
	args := m.Called(ctx, organizationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.SLARule), args.Error(1)
}

func (m *MockRuleRepository) ListActive(ctx context.Context) ([]*models.SLARule, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.SLARule), args.Error(1)
}

func (m *MockRuleRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

// MockPersistence is a mock implementation of persistence.Persistence
// interface. Workflow and rule repositories are mocks; the others are backed
// by an in-memory store.
type MockPersistence struct {
	mock.Mock

	workflowRepo *MockWorkflowRepository
	ruleRepo     *MockRuleRepository
	fallback     *memory.Persistence
}

// NewMockPersistence creates a new MockPersistence with all mock repositories.
func NewMockPersistence() *MockPersistence {
	return &MockPersistence{
		workflowRepo: &MockWorkflowRepository{},
		ruleRepo:     &MockRuleRepository{},
		fallback:     memory.NewPersistence(),
	}
}

// GetMockWorkflowRepository returns the underlying mock workflow repository for setting up expectations.
func (m *MockPersistence) GetMockWorkflowRepository() *MockWorkflowRepository {
	return m.workflowRepo
}

func (m *MockPersistence) GetMockRuleRepository() *MockRuleRepository {
	return m.ruleRepo
}

func (m *MockPersistence) WorkflowRepository() persistence.WorkflowRepository {
	return m.workflowRepo
}

func (m *MockPersistence) RuleRepository() persistence.RuleRepository {
	return m.ruleRepo
}

func (m *MockPersistence) ViolationRepository() persistence.ViolationRepository {
	return m.fallback.ViolationRepository()
}

func (m *MockPersistence) ExecutionRepository() persistence.ExecutionRepository {
	return m.fallback.ExecutionRepository()
}

func (m *MockPersistence) ScheduledStepRepository() persistence.ScheduledStepRepository {
	return m.fallback.ScheduledStepRepository()
}

func (m *MockPersistence) PipelineRepository() persistence.PipelineRepository {
	return m.fallback.PipelineRepository()
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

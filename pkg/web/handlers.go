package web

import (
	"net/http"
	"time"

	"github.com/atsflow/atsflow/pkg/registry"
	"github.com/atsflow/atsflow/pkg/services"
	"github.com/atsflow/atsflow/pkg/sla"
	"github.com/atsflow/atsflow/pkg/workflow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	workflowService *services.Workflow
	ruleService     *services.Rule
	engine          *workflow.Engine
	monitor         *sla.Monitor
	validator       *validator.Validate
	registry        *registry.Registry
}

func NewAPIHandlers(
	workflowService *services.Workflow,
	ruleService *services.Rule,
	engine *workflow.Engine,
	monitor *sla.Monitor,
	validator *validator.Validate,
	registry *registry.Registry,
) *APIHandlers {
	return &APIHandlers{
		workflowService: workflowService,
		ruleService:     ruleService,
		engine:          engine,
		monitor:         monitor,
		validator:       validator,
		registry:        registry,
	}
}

// Register mounts every API route on router.
func (h *APIHandlers) Register(router fiber.Router) {
	router.Post("/triggers", h.Trigger)

	e := router.Group("/executions")
	e.Get("/", h.ListExecutions)
	e.Get("/:id", h.GetExecution)
	e.Post("/:id/cancel", h.CancelExecution)

	w := router.Group("/workflows")
	w.Get("/", h.GetWorkflows)
	w.Post("/", h.CreateWorkflow)
	w.Get("/:id", h.GetWorkflow)
	w.Patch("/:id", h.UpdateWorkflow)
	w.Delete("/:id", h.DeleteWorkflow)
	w.Post("/:id/activate", h.ActivateWorkflow)
	w.Post("/:id/deactivate", h.DeactivateWorkflow)

	s := router.Group("/sla")
	s.Get("/rules", h.GetRules)
	s.Post("/rules", h.CreateRule)
	s.Get("/rules/:id", h.GetRule)
	s.Patch("/rules/:id", h.UpdateRule)
	s.Delete("/rules/:id", h.DeleteRule)

	s.Get("/violations", h.GetViolations)
	s.Get("/violations/:id", h.GetViolation)
	s.Post("/violations/:id/acknowledge", h.AcknowledgeViolation)
	s.Post("/violations/:id/resolve", h.ResolveViolation)

	s.Post("/scans/compliance", h.RunComplianceScan)
	s.Post("/scans/escalation", h.RunEscalationScan)

	router.Get("/health", h.HealthCheck)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	registryCheck, regOk := h.registry.HealthCheck()
	repositoryCheck, repOk := h.workflowService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "atsflow API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if regOk && repOk {
		status = "healthy"
		message = "atsflow API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"registry":   registryCheck,
			"repository": repositoryCheck,
		},
		"actions":   h.registry.ActionTypes(),
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) Trigger(c fiber.Ctx) error {
	var req TriggerRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	executions, err := h.engine.TriggerWorkflows(c.Context(),
		req.OrganizationID, req.TriggerType, req.EntityType, req.EntityID, req.Payload)
	if err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(TriggerResponse{Executions: executions})
}

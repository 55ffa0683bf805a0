package web

import (
	"errors"

	"github.com/atsflow/atsflow/pkg/persistence"
	"github.com/atsflow/atsflow/pkg/services"
	"github.com/atsflow/atsflow/pkg/sla"
	"github.com/atsflow/atsflow/pkg/workflow"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, problemType, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType(problemType).
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func conflict(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(409).
		WithInstance(c.Path()).
		WithType("conflict").
		WithDetail(err.Error())

	return c.Status(fiber.StatusConflict).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleServiceError maps service, engine and persistence errors to problems.
func handleServiceError(c fiber.Ctx, err error) error {
	switch {
	case services.IsValidationError(err):
		return badRequest(c, err.Error())

	case services.IsConflictError(err),
		errors.Is(err, sla.ErrInvalidTransition),
		errors.Is(err, workflow.ErrExecutionFinished),
		errors.Is(err, workflow.ErrConcurrentUpdate):
		return conflict(c, err)

	case persistence.IsWorkflowNotFound(err):
		return notFound(c, "workflow_not_found", "workflow not found")

	case persistence.IsRuleNotFound(err):
		return notFound(c, "sla_rule_not_found", "sla rule not found")

	case persistence.IsViolationNotFound(err):
		return notFound(c, "violation_not_found", "violation not found")

	case persistence.IsExecutionNotFound(err):
		return notFound(c, "execution_not_found", "workflow execution not found")

	default:
		return internalError(c, err)
	}
}

package web

import (
	"strconv"

	"github.com/atsflow/atsflow/pkg/models"
	"github.com/atsflow/atsflow/pkg/persistence"
	"github.com/gofiber/fiber/v3"
)

func (h *APIHandlers) GetRules(c fiber.Ctx) error {
	rules, err := h.ruleService.List(c.Context(), c.Query("organization_id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"rules":       rules,
		"total_count": len(rules),
	})
}

func (h *APIHandlers) GetRule(c fiber.Ctx) error {
	rule, err := h.ruleService.FetchByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(rule)
}

func (h *APIHandlers) CreateRule(c fiber.Ctx) error {
	var req CreateRuleRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.ruleService.Create(c.Context(), req.ToRule())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateRule(c fiber.Ctx) error {
	id := c.Params("id")

	var req UpdateRuleRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	existing, err := h.ruleService.FetchByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	req.Apply(existing)

	updated, err := h.ruleService.Update(c.Context(), id, existing)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteRule(c fiber.Ctx) error {
	err := h.ruleService.Delete(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetViolations(c fiber.Ctx) error {
	filter, err := parseViolationFilter(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	violations, err := h.monitor.ListViolations(c.Context(), filter)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"violations":  violations,
		"total_count": len(violations),
	})
}

func parseViolationFilter(c fiber.Ctx) (persistence.ViolationFilter, error) {
	filter := persistence.ViolationFilter{
		OrganizationID: c.Query("organization_id"),
		RuleID:         c.Query("rule_id"),
		Status:         models.ViolationStatus(c.Query("status")),
	}

	if escalatedStr := c.Query("escalated"); escalatedStr != "" {
		escalated, err := strconv.ParseBool(escalatedStr)
		if err != nil {
			return filter, err
		}

		filter.Escalated = &escalated
	}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return filter, err
		}

		filter.Limit = limit
	}

	return filter, nil
}

func (h *APIHandlers) GetViolation(c fiber.Ctx) error {
	violation, err := h.monitor.GetViolation(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(violation)
}

func (h *APIHandlers) AcknowledgeViolation(c fiber.Ctx) error {
	var req AcknowledgeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	violation, err := h.monitor.AcknowledgeViolation(c.Context(), c.Params("id"), req.UserID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(violation)
}

func (h *APIHandlers) ResolveViolation(c fiber.Ctx) error {
	var req ResolveRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	violation, err := h.monitor.ResolveViolation(c.Context(), c.Params("id"), req.UserID, req.Notes)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(violation)
}

func (h *APIHandlers) RunComplianceScan(c fiber.Ctx) error {
	report, err := h.monitor.RunComplianceScan(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(report)
}

func (h *APIHandlers) RunEscalationScan(c fiber.Ctx) error {
	report, err := h.monitor.RunEscalationScan(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(report)
}

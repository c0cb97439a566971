package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ticketops/helpdesk/internal/api/dto"
	"github.com/ticketops/helpdesk/internal/observability"
	"github.com/ticketops/helpdesk/internal/service"
	apperrors "github.com/ticketops/helpdesk/pkg/util"
)

// AgentsHandler serves the agent performance dashboard and manual sweep
// triggers for operators.
type AgentsHandler struct {
	assignment *service.AssignmentService
	escalation *service.EscalationService
	metrics    *observability.Metrics
}

// NewAgentsHandler constructs handler.
func NewAgentsHandler(assignment *service.AssignmentService, escalation *service.EscalationService, metrics *observability.Metrics) *AgentsHandler {
	return &AgentsHandler{assignment: assignment, escalation: escalation, metrics: metrics}
}

// Loads GET /agents/loads — every active agent with their weighted load.
func (h *AgentsHandler) Loads(c *fiber.Ctx) error {
	loads, err := h.assignment.AgentLoads(c.UserContext())
	if err != nil {
		return apperrors.MapError(err)
	}
	items := make([]dto.AgentLoadResponse, 0, len(loads))
	for _, entry := range loads {
		items = append(items, dto.AgentLoadResponse{
			AgentID:      entry.Agent.ID,
			Username:     entry.Agent.Username,
			WeightedLoad: entry.Load,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// Load GET /agents/:id/load — a single agent's weighted load.
func (h *AgentsHandler) Load(c *fiber.Ctx) error {
	agentID := c.Params("id")
	if agentID == "" {
		return apperrors.NewValidationError("agent id required", nil)
	}
	load, err := h.assignment.WeightedLoad(c.UserContext(), agentID)
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": dto.AgentLoadResponse{AgentID: agentID, WeightedLoad: load}})
}

// RunOverdueSweep POST /sweeps/overdue.
func (h *AgentsHandler) RunOverdueSweep(c *fiber.Ctx) error {
	processed, err := h.escalation.RunOverdueSweep(c.UserContext())
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": dto.SweepResponse{Processed: processed}})
}

// RunAssignmentSweep POST /sweeps/assignment.
func (h *AgentsHandler) RunAssignmentSweep(c *fiber.Ctx) error {
	processed, err := h.assignment.RunAssignmentSweep(c.UserContext())
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": dto.SweepResponse{Processed: processed}})
}

// Metrics GET /metrics — counter snapshot for the dashboard.
func (h *AgentsHandler) Metrics(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.metrics.Snapshot()})
}

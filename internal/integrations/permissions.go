// Package integrations holds the production adapters for the orchestrator's
// external collaborators: role-based permissions, the farm directory client,
// and the payment rail client.
package integrations

import (
	"context"

	"github.com/agyemangopoku/farmlink-backend/internal/fulfillment"
	"github.com/agyemangopoku/farmlink-backend/pkg/db/models"
)

// Actor roles carried in the JWT role claim.
const (
	RoleProcurementOfficer = "procurement_officer"
	RoleFinanceOfficer     = "finance_officer"
	RoleInspector          = "inspector"
	RoleFarmAgent          = "farm_agent"
	RoleAdmin              = "admin"
)

// RolePermissions authorizes operations from the actor's role claim. Farm
// agent tokens carry the farm's directory id as the actor id, so an agent
// may only act on assignments addressed to its own farm.
type RolePermissions struct{}

// NewRolePermissions builds the role-based authorizer.
func NewRolePermissions() RolePermissions {
	return RolePermissions{}
}

func (RolePermissions) CanManageOrder(_ context.Context, actor fulfillment.Actor, order *models.Order) bool {
	switch actor.Role {
	case RoleProcurementOfficer, RoleFinanceOfficer, RoleAdmin:
		return true
	}
	return order != nil && order.CreatedByID == actor.ID
}

func (RolePermissions) CanActOnAssignment(_ context.Context, actor fulfillment.Actor, assignment *models.Assignment) bool {
	switch actor.Role {
	case RoleProcurementOfficer, RoleInspector, RoleAdmin:
		return true
	case RoleFarmAgent:
		return assignment != nil && assignment.FarmID == actor.ID
	}
	return false
}

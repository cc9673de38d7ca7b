package auth

import (
	"slices"

	"github.com/emporia-labs/emporia-backend/internal/apperror"
	"github.com/emporia-labs/emporia-backend/internal/model"
)

type Action int

const (
	ProductCreate Action = iota
	ProductUpdate
	ProductDelete
	CategoryCreate
	CategoryUpdate
	CategoryDelete
)

var actionNames = map[Action]string{
	ProductCreate:  "product:create",
	ProductUpdate:  "product:update",
	ProductDelete:  "product:delete",
	CategoryCreate: "category:create",
	CategoryUpdate: "category:update",
	CategoryDelete: "category:delete",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return "unknown"
}

// PermissionMap lists the roles allowed to perform each action. Actions
// missing from the map are denied to everyone.
var PermissionMap = map[Action][]model.Role{
	ProductCreate:  {model.RoleAdmin, model.RoleManager},
	ProductUpdate:  {model.RoleAdmin, model.RoleManager},
	ProductDelete:  {model.RoleAdmin},
	CategoryCreate: {model.RoleAdmin, model.RoleManager},
	CategoryUpdate: {model.RoleAdmin, model.RoleManager},
	CategoryDelete: {model.RoleAdmin},
}

func CanPerform(role model.Role, action Action) bool {
	return slices.Contains(PermissionMap[action], role)
}

// Authorize fails with an AuthenticationError when there is no principal and
// an AuthorizationError when its role may not perform action.
func Authorize(p *Principal, action Action) error {
	if p == nil {
		return apperror.AuthenticationError{Msg: "Unauthorized"}
	}
	if !CanPerform(p.Role, action) {
		return apperror.AuthorizationError{}
	}
	return nil
}

// RequireRole is Authorize for endpoints gated by role rather than action.
func RequireRole(p *Principal, roles ...model.Role) error {
	if p == nil {
		return apperror.AuthenticationError{Msg: "Unauthorized"}
	}
	if !slices.Contains(roles, p.Role) {
		return apperror.AuthorizationError{}
	}
	return nil
}

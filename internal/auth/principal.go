package auth

import (
	"context"

	"github.com/google/uuid"
)

type Role string

const (
	RoleTeamMember     Role = "team_member"
	RoleTeamLead       Role = "team_lead"
	RoleProjectManager Role = "project_manager"
	RoleAdmin          Role = "admin"
	RoleDataEntry      Role = "data_entry"
)

// Valid сообщает, известна ли роль системе
func (r Role) Valid() bool {
	switch r {
	case RoleTeamMember, RoleTeamLead, RoleProjectManager, RoleAdmin, RoleDataEntry:
		return true
	}
	return false
}

// Principal - действующий пользователь запроса
type Principal struct {
	UserID uuid.UUID
	Role   Role
	Name   string
}

// CanAssign - может ли пользователь раздавать задачи
func (p Principal) CanAssign() bool {
	switch p.Role {
	case RoleTeamLead, RoleProjectManager, RoleAdmin:
		return true
	}
	return false
}

// CanActFor - может ли пользователь менять элементы, назначенные userID
func (p Principal) CanActFor(userID uuid.UUID) bool {
	if p.Role == RoleDataEntry {
		return false
	}
	if p.UserID == userID {
		return true
	}
	return p.CanAssign()
}

// SeesAll - видит ли пользователь задачи и метрики всей команды
func (p Principal) SeesAll() bool {
	return p.CanAssign()
}

// CanEditRegistry - может ли пользователь заводить линии и оборудование
func (p Principal) CanEditRegistry() bool {
	return p.Role == RoleDataEntry || p.CanAssign()
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

package identity

import (
	"fmt"
	"strings"
)

// Role is a closed set of staff role labels.
//
// Roles are compared structurally through their privilege level, not by ad
// hoc string membership: every role maps to a numeric rank used for
// authorization comparisons.
type Role string

const (
	RoleCliente    Role = "CLIENTE"
	RoleVendedor   Role = "VENDEDOR"
	RoleFinanceiro Role = "FINANCEIRO"
	RoleGerente    Role = "GERENTE"
	RoleAdmin      Role = "ADMIN"
)

// privilege ranks; higher means more authority.
var rolePrivilege = map[Role]int{
	RoleCliente:    0,
	RoleVendedor:   1,
	RoleFinanceiro: 2,
	RoleGerente:    3,
	RoleAdmin:      4,
}

// ParseRole validates a role label.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := rolePrivilege[r]; !ok {
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidInput, s)
	}
	return r, nil
}

// ParseRoles validates a list of role labels.
func ParseRoles(ss []string) ([]Role, error) {
	if len(ss) == 0 {
		return nil, fmt.Errorf("%w: at least one role required", ErrInvalidInput)
	}
	out := make([]Role, 0, len(ss))
	for _, s := range ss {
		r, err := ParseRole(s)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Privilege returns the numeric rank of a role. Unknown roles rank zero.
func (r Role) Privilege() int {
	return rolePrivilege[r]
}

// MaxPrivilege returns the highest privilege level among roles.
// An empty set ranks zero.
func MaxPrivilege(roles []Role) int {
	maxLvl := 0
	for _, r := range roles {
		if lvl := r.Privilege(); lvl > maxLvl {
			maxLvl = lvl
		}
	}
	return maxLvl
}

// HasAny reports whether any of roles is present in set.
func HasAny(roles []Role, set []Role) bool {
	for _, r := range roles {
		for _, s := range set {
			if r == s {
				return true
			}
		}
	}
	return false
}

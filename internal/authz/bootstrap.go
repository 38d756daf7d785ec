package authz

import (
	"fmt"

	"github.com/altruria/storefront/internal/constants"
)

// 受控资源
const (
	ObjectCheckoutPage   = "/checkout"
	ObjectCheckoutSubmit = "/checkout/submit"
	ObjectProfile        = "/me"
	ObjectOrderHistory   = "/me/orders"
)

// RoleSeed 预置角色定义
type RoleSeed struct {
	Role     string
	Inherits []string
	Policies []Policy
}

// BuiltinRoleSeeds 预置角色矩阵：会员继承游客，游客继承匿名
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role: constants.RoleAnonymous,
			Policies: []Policy{
				{Object: "/products", Action: "GET"},
				{Object: "/products/*", Action: "GET"},
				{Object: "/cart", Action: "GET"},
				{Object: "/cart/*", Action: "*"},
				{Object: "/checkout/prepare", Action: "POST"},
				{Object: "/auth/*", Action: "POST"},
				{Object: "/notifications", Action: "GET"},
			},
		},
		{
			Role:     constants.RoleGuest,
			Inherits: []string{constants.RoleAnonymous},
			Policies: []Policy{
				{Object: ObjectCheckoutPage, Action: "GET"},
				{Object: "/checkout/state", Action: "GET"},
			},
		},
		{
			Role:     constants.RoleMember,
			Inherits: []string{constants.RoleGuest},
			Policies: []Policy{
				{Object: ObjectCheckoutSubmit, Action: "POST"},
				{Object: ObjectProfile, Action: "*"},
				{Object: ObjectOrderHistory, Action: "GET"},
			},
		},
	}
}

// BootstrapBuiltinRoles 初始化预置角色与默认策略，重复执行不会产生重复策略
func (s *Service) BootstrapBuiltinRoles() error {
	if s == nil || s.enforcer == nil {
		return fmt.Errorf("authz service unavailable")
	}

	changed := false
	for _, seed := range BuiltinRoleSeeds() {
		role, err := NormalizeRole(seed.Role)
		if err != nil {
			return err
		}

		for _, parent := range seed.Inherits {
			parentRole, err := NormalizeRole(parent)
			if err != nil {
				return err
			}
			added, err := s.enforcer.AddNamedGroupingPolicy("g", role, parentRole)
			if err != nil {
				return fmt.Errorf("link role inheritance failed: %w", err)
			}
			if added {
				changed = true
			}
		}

		for _, policy := range seed.Policies {
			action := NormalizeAction(policy.Action)
			if action == "" {
				return fmt.Errorf("builtin policy action is required")
			}
			added, err := s.enforcer.AddPolicy(role, NormalizeObject(policy.Object), action)
			if err != nil {
				return fmt.Errorf("add builtin policy failed: %w", err)
			}
			if added {
				changed = true
			}
		}
	}

	if changed {
		return s.reload()
	}
	return nil
}

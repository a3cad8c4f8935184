package auth

import (
	"fmt"

	"github.com/casbin/casbin/v2"
)

// CasbinService wraps the RBAC enforcer guarding the admin surface.
type CasbinService struct {
	E *casbin.Enforcer
}

// NewCasbinService loads the model and the file-backed policy.
func NewCasbinService(modelPath, policyPath string) (*CasbinService, error) {
	e, err := casbin.NewEnforcer(modelPath, policyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to build casbin enforcer: %w", err)
	}
	return &CasbinService{E: e}, nil
}

package authz

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors
var (
	ErrUnknownResource = errors.New("unknown resource type")
	ErrUnknownAction   = errors.New("unknown action")
)

// Resource is a closed enumeration of the business resource types the
// permission table knows about. Anything outside this set evaluates to deny.
type Resource string

const (
	ResourceVehicle      Resource = "vehicle"
	ResourceGarage       Resource = "garage"
	ResourceIntervention Resource = "intervention"
	ResourceInvoice      Resource = "invoice"
	ResourceReference    Resource = "reference"
)

// Action is a closed enumeration of per-resource CRUD actions.
type Action string

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// TenantAction is a closed enumeration of tenant-scoped management actions.
type TenantAction string

const (
	TenantActionManageUsers    TenantAction = "manage_users"
	TenantActionManageSettings TenantAction = "manage_settings"
	TenantActionAdmin          TenantAction = "tenant_admin"
	TenantActionSuperAdmin     TenantAction = "tenant_super_admin"
)

// ResourceAction pairs a resource type with an action.
type ResourceAction struct {
	Resource Resource
	Action   Action
}

func (ra ResourceAction) String() string {
	return string(ra.Resource) + ":" + string(ra.Action)
}

// ParseResource validates a resource tag
func ParseResource(s string) (Resource, error) {
	switch Resource(s) {
	case ResourceVehicle, ResourceGarage, ResourceIntervention, ResourceInvoice, ResourceReference:
		return Resource(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownResource, s)
}

// ParseAction validates an action name
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionRead, ActionCreate, ActionUpdate, ActionDelete:
		return Action(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

// ParseResourceAction parses a "resource:action" grant string.
// Unknown resources or actions are errors; callers treat them as deny.
func ParseResourceAction(s string) (ResourceAction, error) {
	res, act, ok := strings.Cut(s, ":")
	if !ok {
		return ResourceAction{}, fmt.Errorf("%w: %q", ErrUnknownAction, s)
	}
	resource, err := ParseResource(res)
	if err != nil {
		return ResourceAction{}, err
	}
	action, err := ParseAction(act)
	if err != nil {
		return ResourceAction{}, err
	}
	return ResourceAction{Resource: resource, Action: action}, nil
}

// ParseTenantAction validates a tenant-scoped action name
func ParseTenantAction(s string) (TenantAction, error) {
	switch TenantAction(s) {
	case TenantActionManageUsers, TenantActionManageSettings, TenantActionAdmin, TenantActionSuperAdmin:
		return TenantAction(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

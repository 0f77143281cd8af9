package workflow

import (
	"fmt"
	"strings"

	appErrors "github.com/noah-isme/gift-approval-api/pkg/errors"
)

// DefaultModule is the permission-map key guarding the gift approval core.
const DefaultModule = "gift-approval"

// bulkUpdateRoles is the role allow-list for bulk updates and their rollback.
var bulkUpdateRoles = map[Tab][]Role{
	TabProcessing: {RoleMKTOps, RoleManager, RoleAdmin},
	TabKAMProof:   {RoleKAM, RoleAdmin},
	TabAudit:      {RoleAudit, RoleAdmin},
}

var importRoles = []Role{RoleKAM, RoleAdmin}

// ValidateActor rejects missing or malformed identity input.
func ValidateActor(actor *Actor) error {
	if actor == nil {
		return appErrors.Clone(appErrors.ErrValidation, "actor is required")
	}
	if strings.TrimSpace(actor.ID) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "actor id is required")
	}
	if !actor.Role.Valid() {
		return appErrors.WithDetails(
			appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("actor role %q is not recognised", actor.Role)),
			map[string]interface{}{"role": actor.Role},
		)
	}
	if actor.Permissions == nil {
		return appErrors.Clone(appErrors.ErrValidation, "actor permissions are required")
	}
	return nil
}

// Gate enforces capability and role membership. It never consults record state.
type Gate struct {
	module string
}

// NewGate builds a gate for the given permission module. Empty selects DefaultModule.
func NewGate(module string) Gate {
	if strings.TrimSpace(module) == "" {
		module = DefaultModule
	}
	return Gate{module: module}
}

// Module returns the permission-map key the gate checks.
func (g Gate) Module() string {
	return g.module
}

// AuthorizeTransition checks VIEW and EDIT on the module, then the tab role list.
// A tab without registered transitions is an illegal transition for any action.
func (g Gate) AuthorizeTransition(actor *Actor, tab Tab, action Action) error {
	if err := ValidateActor(actor); err != nil {
		return err
	}
	if err := g.requireCapabilities(actor, CapView, CapEdit); err != nil {
		return err
	}
	roles, ok := TabRoles[tab]
	if !ok {
		return appErrors.WithDetails(
			appErrors.Clone(appErrors.ErrIllegalTransition, fmt.Sprintf("action %q is not available on tab %q", action, tab)),
			map[string]interface{}{"tab": tab, "action": action, "allowedStatuses": []Status{}},
		)
	}
	return requireRole(actor, roles, fmt.Sprintf("tab %s", tab))
}

// AuthorizeCreate gates individual request creation.
func (g Gate) AuthorizeCreate(actor *Actor) error {
	if err := ValidateActor(actor); err != nil {
		return err
	}
	if err := requireRole(actor, importRoles, "gift request creation"); err != nil {
		return err
	}
	return g.requireCapabilities(actor, CapView, CapAdd)
}

// AuthorizeImport gates bulk creation: KAM or ADMIN holding IMPORT and ADD.
func (g Gate) AuthorizeImport(actor *Actor) error {
	if err := ValidateActor(actor); err != nil {
		return err
	}
	if err := requireRole(actor, importRoles, "bulk import"); err != nil {
		return err
	}
	return g.requireCapabilities(actor, CapImport, CapAdd)
}

// AuthorizeBulkUpdate gates bulk updates on a tab.
func (g Gate) AuthorizeBulkUpdate(actor *Actor, tab Tab) error {
	if err := ValidateActor(actor); err != nil {
		return err
	}
	roles, ok := bulkUpdateRoles[tab]
	if !ok {
		return appErrors.WithDetails(
			appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("bulk update is not supported for tab %q", tab)),
			map[string]interface{}{"tab": tab},
		)
	}
	if err := requireRole(actor, roles, fmt.Sprintf("bulk update on tab %s", tab)); err != nil {
		return err
	}
	return g.requireCapabilities(actor, CapEdit)
}

// AuthorizeRollback gates compensating rollbacks. Import batches need the import
// rights, update batches the bulk update rights of their tab.
func (g Gate) AuthorizeRollback(actor *Actor, tab Tab) error {
	if tab == TabImport {
		if err := ValidateActor(actor); err != nil {
			return err
		}
		if err := requireRole(actor, importRoles, "import rollback"); err != nil {
			return err
		}
		return g.requireCapabilities(actor, CapImport)
	}
	return g.AuthorizeBulkUpdate(actor, tab)
}

// AuthorizeRead requires VIEW on the module.
func (g Gate) AuthorizeRead(actor *Actor) error {
	if err := ValidateActor(actor); err != nil {
		return err
	}
	return g.requireCapabilities(actor, CapView)
}

func (g Gate) requireCapabilities(actor *Actor, caps ...Capability) error {
	for _, c := range caps {
		if !actor.Permissions.Has(g.module, c) {
			return appErrors.WithDetails(
				appErrors.Clone(appErrors.ErrPermissionDenied, fmt.Sprintf("missing %s permission on %s", c, g.module)),
				map[string]interface{}{"missingPermission": string(c), "module": g.module},
			)
		}
	}
	return nil
}

func requireRole(actor *Actor, allowed []Role, scope string) error {
	if actor.Role == RoleAdmin {
		return nil
	}
	for _, r := range allowed {
		if r == actor.Role {
			return nil
		}
	}
	names := make([]string, len(allowed))
	for i, r := range allowed {
		names[i] = string(r)
	}
	return appErrors.WithDetails(
		appErrors.Clone(appErrors.ErrPermissionDenied,
			fmt.Sprintf("role %s is not allowed for %s (requires one of: %s)", actor.Role, scope, strings.Join(names, ", "))),
		map[string]interface{}{"missingRole": names, "role": string(actor.Role)},
	)
}

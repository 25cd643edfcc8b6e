package session

import (
	"slices"

	"github.com/towerops/fieldtrack/internal/models"
)

// Capability represents an authorized action.
type Capability string

const (
	CapSitesView      Capability = "sites:view"
	CapSitesManage    Capability = "sites:manage"
	CapFuelLog        Capability = "fuel:log"
	CapMaintenanceLog Capability = "maintenance:log"
	CapReportsView    Capability = "reports:view"
	CapUsersManage    Capability = "users:manage"
	CapSyncManage     Capability = "sync:manage"
	capWildcard       Capability = "*"
)

// RoleCapabilities maps roles to allowed capabilities. The wildcard grants
// everything.
var RoleCapabilities = map[models.Role][]Capability{
	models.RoleAdmin: {
		capWildcard,
	},
	models.RoleSupervisor: {
		CapSitesView,
		CapSitesManage,
		CapFuelLog,
		CapMaintenanceLog,
		CapReportsView,
		CapSyncManage,
	},
	models.RoleTechnician: {
		CapSitesView,
		CapFuelLog,
		CapMaintenanceLog,
	},
}

// HasRole reports whether the session's role ranks at or above r.
func (m *Manager) HasRole(r models.Role) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return false
	}
	return m.session.User.Role.AtLeast(r)
}

// Can reports whether the session's role grants the capability.
func (m *Manager) Can(c Capability) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return false
	}

	caps, ok := RoleCapabilities[m.session.User.Role]
	if !ok {
		return false
	}
	return slices.Contains(caps, capWildcard) || slices.Contains(caps, c)
}

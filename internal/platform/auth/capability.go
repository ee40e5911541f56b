package auth

// Capability is a single named permission checked by services and route
// guards. Capabilities decouple authorization decisions from role names:
// roles are resolved into capabilities once at the request boundary.
type Capability string

const (
	CapCaseRead             Capability = "case.read"
	CapCaseWrite            Capability = "case.write"
	CapCaseDelete           Capability = "case.delete"
	CapScheduleElevated     Capability = "schedule.elevated"
	CapInventoryRead        Capability = "inventory.read"
	CapInventoryWrite       Capability = "inventory.write"
	CapRequirementsWrite    Capability = "requirements.write"
	CapRequirementsOverride Capability = "requirements.override"
	CapChecklistWrite       Capability = "checklist.write"
	CapCatalogWrite         Capability = "catalog.write"
	CapReadinessRead        Capability = "readiness.read"
)

// CapabilitySet is the resolved permission set for one caller.
type CapabilitySet map[Capability]bool

func (s CapabilitySet) Has(cap Capability) bool {
	return s[cap]
}

func (s CapabilitySet) add(caps ...Capability) {
	for _, c := range caps {
		s[c] = true
	}
}

// roleGrants maps each known role to the capabilities it confers. Unknown
// roles grant nothing.
var roleGrants = map[string][]Capability{
	"admin": {
		CapCaseRead, CapCaseWrite, CapCaseDelete, CapScheduleElevated,
		CapInventoryRead, CapInventoryWrite,
		CapRequirementsWrite, CapRequirementsOverride,
		CapChecklistWrite, CapCatalogWrite, CapReadinessRead,
	},
	"scheduler": {
		CapCaseRead, CapCaseWrite, CapScheduleElevated,
		CapRequirementsWrite, CapReadinessRead,
	},
	"surgeon": {
		CapCaseRead, CapCaseWrite,
		CapRequirementsWrite, CapRequirementsOverride,
		CapChecklistWrite, CapReadinessRead,
	},
	"nurse": {
		CapCaseRead,
		CapInventoryRead, CapInventoryWrite,
		CapChecklistWrite, CapReadinessRead,
	},
	"inventory_tech": {
		CapInventoryRead, CapInventoryWrite, CapCatalogWrite,
	},
	"viewer": {
		CapCaseRead, CapInventoryRead, CapReadinessRead,
	},
}

// ResolveCapabilities computes the union of the capabilities granted by the
// given roles. It is the only place role names are interpreted.
func ResolveCapabilities(roles []string) CapabilitySet {
	set := make(CapabilitySet)
	for _, role := range roles {
		if grants, ok := roleGrants[role]; ok {
			set.add(grants...)
		}
	}
	return set
}

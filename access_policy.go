package auth

import (
	"sort"
)

// Operation names a protected action
type Operation string

const (
	OpAuthMe Operation = "auth.me"

	OpUsersList       Operation = "users.list"
	OpUsersApprove    Operation = "users.approve"
	OpUsersUpdateRole Operation = "users.update_role"
	OpUsersDelete     Operation = "users.delete"

	OpRequestsList   Operation = "requests.list"
	OpRequestsReject Operation = "requests.reject"

	OpAgentsList   Operation = "agents.list"
	OpAgentsCreate Operation = "agents.create"
	OpAgentsUpdate Operation = "agents.update"
	OpAgentsDelete Operation = "agents.delete"

	OpInstallationsList   Operation = "installations.list"
	OpInstallationsCreate Operation = "installations.create"
	OpInstallationsUpdate Operation = "installations.update"
	OpInstallationsDelete Operation = "installations.delete"

	OpElementsList              Operation = "elements.list"
	OpElementsGet               Operation = "elements.get"
	OpElementsCreate            Operation = "elements.create"
	OpElementsUpdate            Operation = "elements.update"
	OpElementsDelete            Operation = "elements.delete"
	OpElementsRecordMaintenance Operation = "elements.record_maintenance"
	OpElementsRecordFault       Operation = "elements.record_fault"

	OpAssignmentsList   Operation = "assignments.list"
	OpAssignmentsUpdate Operation = "assignments.update"

	OpCatalogRead Operation = "catalog.read"
)

// AccessPolicy maps each protected operation to the roles allowed to run it.
// It is the single place where route authorization is declared.
type AccessPolicy map[Operation]RoleSet

// DefaultAccessPolicy returns the policy for every route the server mounts
func DefaultAccessPolicy() AccessPolicy {
	adminOnly := RolesOf(RoleAdmin)
	editors := RolesOf(RoleAdmin, RoleSupervisor)
	anyone := AnyAuthenticated()

	return AccessPolicy{
		OpAuthMe: anyone,

		OpUsersList:       adminOnly,
		OpUsersApprove:    adminOnly,
		OpUsersUpdateRole: adminOnly,
		OpUsersDelete:     adminOnly,

		OpRequestsList:   adminOnly,
		OpRequestsReject: adminOnly,

		OpAgentsList:   anyone,
		OpAgentsCreate: editors,
		OpAgentsUpdate: editors,
		OpAgentsDelete: adminOnly,

		OpInstallationsList:   anyone,
		OpInstallationsCreate: editors,
		OpInstallationsUpdate: editors,
		OpInstallationsDelete: adminOnly,

		OpElementsList:              anyone,
		OpElementsGet:               anyone,
		OpElementsCreate:            editors,
		OpElementsUpdate:            editors,
		OpElementsDelete:            adminOnly,
		OpElementsRecordMaintenance: editors,
		OpElementsRecordFault:       editors,

		OpAssignmentsList:   anyone,
		OpAssignmentsUpdate: editors,

		OpCatalogRead: anyone,
	}
}

// Lookup returns the role set for op
func (p AccessPolicy) Lookup(op Operation) (RoleSet, bool) {
	set, ok := p[op]
	return set, ok
}

// Clone returns a copy that can be extended without touching the original
func (p AccessPolicy) Clone() AccessPolicy {
	out := make(AccessPolicy, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Operations lists the declared operations in a stable order
func (p AccessPolicy) Operations() []Operation {
	ops := make([]Operation, 0, len(p))
	for op := range p {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i] < ops[j] })
	return ops
}

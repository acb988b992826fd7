package mongo

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/electrix/tracker/internal/core/domain"
)

// caller is the identity a gateway acts for. The row-level rules below are
// the only isolation between client companies, so every repository method
// consults them.
type caller struct {
	userID  string
	profile *domain.Profile
}

// role is empty for identities without an active profile.
func (c caller) role() domain.Role {
	if c.profile == nil || !c.profile.Active {
		return ""
	}
	return c.profile.Role
}

func (c caller) isStaff() bool { return c.role().IsStaff() }

func (c caller) isSupervisor() bool { return c.role() == domain.RoleSupervisor }

// canReadProfile: everyone reads their own profile (even when inactive, so
// the application can tell a disabled account apart); staff read all.
func (c caller) canReadProfile(id string) bool {
	return id == c.userID || c.isStaff()
}

// profileFilter narrows profile listings.
func (c caller) profileFilter() bson.M {
	if c.isStaff() {
		return bson.M{}
	}
	return bson.M{"_id": c.userID}
}

// canInsertProfile: an identity may create its own profile once; a
// supervisor may create any.
func (c caller) canInsertProfile(id string) bool {
	return id == c.userID || c.isSupervisor()
}

func (c caller) canManageProfiles() bool { return c.isSupervisor() }

func (c caller) canWriteRecords() bool { return c.isStaff() }

// clientFilter narrows client listings. A cliente only ever sees the company
// whose RUT equals its own. ok is false when nothing is visible.
func (c caller) clientFilter(rut string) (bson.M, bool) {
	switch {
	case c.isStaff():
		if rut == "" {
			return bson.M{}, true
		}
		return bson.M{"rut": rut}, true
	case c.role() == domain.RoleClient && c.profile.RUT != "":
		if rut != "" && rut != c.profile.RUT {
			return nil, false
		}
		return bson.M{"rut": c.profile.RUT}, true
	default:
		return nil, false
	}
}

// transactionFilter: supervisors see the whole ledger, workers only
// expenses, everyone else nothing.
func (c caller) transactionFilter() (bson.M, bool) {
	switch c.role() {
	case domain.RoleSupervisor:
		return bson.M{}, true
	case domain.RoleWorker:
		return bson.M{"type": string(domain.TransactionExpense)}, true
	default:
		return nil, false
	}
}

func (c caller) canWriteTransaction(t domain.TransactionType) bool {
	switch c.role() {
	case domain.RoleSupervisor:
		return true
	case domain.RoleWorker:
		return t == domain.TransactionExpense
	default:
		return false
	}
}

package mongo

import (
	"testing"

	"github.com/electrix/tracker/internal/core/domain"
)

func callerWith(role domain.Role, rut string, active bool) caller {
	return caller{
		userID:  "me",
		profile: &domain.Profile{ID: "me", Role: role, RUT: rut, Active: active},
	}
}

func TestPolicy_ClientSeesOnlyOwnCompany(t *testing.T) {
	c := callerWith(domain.RoleClient, "12.345.678-5", true)

	f, ok := c.clientFilter("")
	if !ok || f["rut"] != "12.345.678-5" {
		t.Fatalf("expected filter on own RUT, got %v %v", f, ok)
	}
	if _, ok := c.clientFilter("9.876.543-3"); ok {
		t.Fatalf("a client must not select another company")
	}
	if c.canWriteRecords() {
		t.Fatalf("clients are read-only")
	}
}

func TestPolicy_ClientWithoutRUTSeesNothing(t *testing.T) {
	if _, ok := callerWith(domain.RoleClient, "", true).clientFilter(""); ok {
		t.Fatalf("a client without RUT must see nothing")
	}
}

func TestPolicy_StaffSeesAllClients(t *testing.T) {
	f, ok := callerWith(domain.RoleWorker, "", true).clientFilter("")
	if !ok || len(f) != 0 {
		t.Fatalf("expected unfiltered selection, got %v %v", f, ok)
	}
}

func TestPolicy_InactiveHasNoRole(t *testing.T) {
	c := callerWith(domain.RoleSupervisor, "", false)
	if c.isStaff() || c.canManageProfiles() || c.canWriteRecords() {
		t.Fatalf("inactive identities must have no privileges")
	}
	if !c.canReadProfile("me") {
		t.Fatalf("an inactive identity still reads its own profile")
	}
	if c.canReadProfile("other") {
		t.Fatalf("an inactive identity must not read other profiles")
	}
}

func TestPolicy_Transactions(t *testing.T) {
	sup := callerWith(domain.RoleSupervisor, "", true)
	worker := callerWith(domain.RoleWorker, "", true)
	client := callerWith(domain.RoleClient, "1-9", true)

	if f, ok := sup.transactionFilter(); !ok || len(f) != 0 {
		t.Fatalf("supervisor sees the whole ledger, got %v %v", f, ok)
	}
	if f, ok := worker.transactionFilter(); !ok || f["type"] != "gasto" {
		t.Fatalf("worker sees only expenses, got %v %v", f, ok)
	}
	if _, ok := client.transactionFilter(); ok {
		t.Fatalf("clients see no transactions")
	}
	if worker.canWriteTransaction(domain.TransactionIncome) || !worker.canWriteTransaction(domain.TransactionExpense) {
		t.Fatalf("worker may only record expenses")
	}
}

func TestPolicy_ProfileInsert(t *testing.T) {
	fresh := caller{userID: "new"}
	if !fresh.canInsertProfile("new") {
		t.Fatalf("a new identity may create its own profile")
	}
	if fresh.canInsertProfile("other") {
		t.Fatalf("a new identity must not create other profiles")
	}
	if !callerWith(domain.RoleSupervisor, "", true).canInsertProfile("other") {
		t.Fatalf("a supervisor may create any profile")
	}
}

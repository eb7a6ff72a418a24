// Package testutil holds helpers shared by the Freightport test suites.
package testutil

import (
	"testing"
	"time"

	"github.com/freightport/backend/internal/domain/shared"
	"github.com/google/uuid"
)

var testNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// NewTestUUID derives a stable UUID from seed
func NewTestUUID(seed string) uuid.UUID {
	return uuid.NewSHA1(testNamespace, []byte(seed))
}

// CustomerActor returns a customer of companyID with a stable user ID
func CustomerActor(username string, companyID uuid.UUID) shared.Actor {
	return shared.Actor{
		UserID:    NewTestUUID("user:" + username),
		Username:  username,
		Role:      shared.RoleCustomer,
		CompanyID: &companyID,
	}
}

// StaffActor returns an ADMIN or OPERATOR actor
func StaffActor(username string, role shared.Role) shared.Actor {
	return shared.Actor{
		UserID:   NewTestUUID("user:" + username),
		Username: username,
		Role:     role,
	}
}

// WaitFor polls condition every 10ms until it holds or timeout passes
func WaitFor(t *testing.T, timeout time.Duration, condition func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		if condition() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(10 * time.Millisecond)
	}
}

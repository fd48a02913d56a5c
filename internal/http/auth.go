package httpapi

import (
	"context"
	"net/http"
	"sync"
)

// actorHeader carries the authenticated actor id, injected by the auth layer
// in front of this service (the auth layer itself is out of scope here).
const actorHeader = "X-User-Id"

// Authorizer is the external auth collaborator reduced to the one question
// this subsystem asks: does this actor own this tenant.
type Authorizer interface {
	Owns(ctx context.Context, actorID, tenantID string) (bool, error)
}

// StaticAuthorizer holds tenant ownership in memory. Dev wiring seeds it; a
// production deployment substitutes the real auth service behind the same
// interface.
type StaticAuthorizer struct {
	mu     sync.RWMutex
	owners map[string]string // tenantID -> owning actorID
}

func NewStaticAuthorizer() *StaticAuthorizer {
	return &StaticAuthorizer{owners: map[string]string{}}
}

func (a *StaticAuthorizer) Grant(tenantID, actorID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.owners[tenantID] = actorID
}

func (a *StaticAuthorizer) Owns(_ context.Context, actorID, tenantID string) (bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	owner, ok := a.owners[tenantID]
	return ok && owner == actorID, nil
}

func actorID(r *http.Request) string {
	return r.Header.Get(actorHeader)
}

package rbac

import (
	"context"
	"net/http"
	"sync"
)

type stubStore struct {
	mu        sync.Mutex
	perms     map[string][]string
	roles     map[string][]string
	err       error
	panicMsg  string
	permCalls int
	roleCalls int
}

func newStubStore() *stubStore {
	return &stubStore{perms: map[string][]string{}, roles: map[string][]string{}}
}

func (s *stubStore) LookupPermissionsForUser(ctx context.Context, userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.permCalls++
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	if s.err != nil {
		return nil, s.err
	}
	perms, ok := s.perms[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]string(nil), perms...), nil
}

func (s *stubStore) LookupRolesForUser(ctx context.Context, userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roleCalls++
	if s.err != nil {
		return nil, s.err
	}
	roles, ok := s.roles[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]string(nil), roles...), nil
}

func (s *stubStore) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.permCalls + s.roleCalls
}

type stubRecorder struct {
	mu       sync.Mutex
	hits     int
	misses   int
	failures int
	allowed  int
	denied   int
}

func (r *stubRecorder) ObserveCacheLookup(hit bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if hit {
		r.hits++
	} else {
		r.misses++
	}
}

func (r *stubRecorder) ObserveResolveFailure() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures++
}

func (r *stubRecorder) ObserveDecision(allowed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if allowed {
		r.allowed++
	} else {
		r.denied++
	}
}

func headerIdentity(r *http.Request) (string, bool) {
	id := r.Header.Get("X-Test-User")
	return id, id != ""
}

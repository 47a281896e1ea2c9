// Package registry keeps the live backend sessions of the process, keyed by
// connection id.
package registry

import (
	"sort"
	"sync"

	"github.com/EcoPowerHub/tsdesk/pkg/db"
)

// Default is the process-wide registry. It starts empty; entries are added on
// connect and removed on disconnect or abandoned at exit.
var Default = New()

// Registry maps connection ids to services. The lock only guards the map:
// lookups hand back the shared service so calls on it run outside the lock.
type Registry struct {
	lock     sync.Mutex
	services map[string]db.Service
}

func New() *Registry {
	return &Registry{services: make(map[string]db.Service)}
}

// Insert stores svc under id, replacing and returning any previous entry.
func (r *Registry) Insert(id string, svc db.Service) (db.Service, bool) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.services == nil {
		r.services = make(map[string]db.Service)
	}
	prev, ok := r.services[id]
	r.services[id] = svc
	return prev, ok
}

func (r *Registry) Lookup(id string) (db.Service, bool) {
	r.lock.Lock()
	defer r.lock.Unlock()
	svc, ok := r.services[id]
	return svc, ok
}

// Remove deletes id and reports whether it was present.
func (r *Registry) Remove(id string) bool {
	_, ok := r.Take(id)
	return ok
}

// Take deletes id and returns the service that was stored under it.
func (r *Registry) Take(id string) (db.Service, bool) {
	r.lock.Lock()
	defer r.lock.Unlock()
	svc, ok := r.services[id]
	if ok {
		delete(r.services, id)
	}
	return svc, ok
}

// IDs returns the connected ids in sorted order.
func (r *Registry) IDs() []string {
	r.lock.Lock()
	ids := make([]string, 0, len(r.services))
	for id := range r.services {
		ids = append(ids, id)
	}
	r.lock.Unlock()
	sort.Strings(ids)
	return ids
}

func (r *Registry) Len() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return len(r.services)
}

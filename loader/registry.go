package loader

import (
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
)

// DefaultCallbackPrefix prefixes every generated callback name.
const DefaultCallbackPrefix = "onFinishLoadWebAssembly_"

// Registry owns the pending jobs of one Loader, keyed by callback name.
// Names come from a counter that only grows, so a name is never handed out
// twice and a removed entry is never revisited. Safe for concurrent use.
type Registry struct {
	jobs    map[string]*Job
	prefix  string
	counter atomic.Uint64
	mu      sync.Mutex
}

// NewRegistry creates an empty registry. An empty prefix selects
// DefaultCallbackPrefix.
func NewRegistry(prefix string) *Registry {
	if prefix == "" {
		prefix = DefaultCallbackPrefix
	}
	return &Registry{
		jobs:   make(map[string]*Job),
		prefix: prefix,
	}
}

// Next returns a callback name that has never been returned before.
func (r *Registry) Next() string {
	n := r.counter.Add(1) - 1
	return r.prefix + strconv.FormatUint(n, 10)
}

// Insert registers job under its callback name. It reports false, leaving
// the registry unchanged, when the name is already pending.
func (r *Registry) Insert(job *Job) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobs[job.callbackName]; exists {
		return false
	}
	r.jobs[job.callbackName] = job
	return true
}

// Take removes and returns the job registered under name.
func (r *Registry) Take(name string) (*Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[name]
	if ok {
		delete(r.jobs, name)
	}
	return job, ok
}

// Len returns the number of pending jobs.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

// Names returns the callback names of all pending jobs, sorted.
func (r *Registry) Names() []string {
	r.mu.Lock()
	names := make([]string, 0, len(r.jobs))
	for name := range r.jobs {
		names = append(names, name)
	}
	r.mu.Unlock()
	sort.Strings(names)
	return names
}

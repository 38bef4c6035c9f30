package loader

import (
	"context"
	"errors"
	"sync"

	"github.com/reglet-dev/packload/domain/entities"
)

// ErrContinuationSet is returned by Then when a continuation was already registered.
var ErrContinuationSet = errors.New("job continuation already registered")

// JobState is the lifecycle state of a Job.
type JobState string

const (
	// JobPending means the request was sent and no reply has resolved it.
	JobPending JobState = "pending"
	// JobResolved means the continuation has been handed the compiled module.
	JobResolved JobState = "resolved"
)

// Job is one in-flight module load.
type Job struct {
	module       *entities.CompiledModule
	then         func(*entities.CompiledModule)
	done         chan struct{}
	callbackName string
	url          string
	mu           sync.Mutex
	resolved     bool
}

func newJob(callbackName, url string) *Job {
	return &Job{
		callbackName: callbackName,
		url:          url,
		done:         make(chan struct{}),
	}
}

// CallbackName returns the name the worker reply is correlated by.
func (j *Job) CallbackName() string {
	return j.callbackName
}

// URL returns the locator the job was created for.
func (j *Job) URL() string {
	return j.url
}

// State returns the current lifecycle state.
func (j *Job) State() JobState {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.resolved {
		return JobResolved
	}
	return JobPending
}

// Then registers the continuation that receives the compiled module. It may
// be registered once. If the job already resolved, fn runs immediately on the
// calling goroutine; otherwise it runs on the goroutine that resolves the job.
func (j *Job) Then(fn func(*entities.CompiledModule)) error {
	j.mu.Lock()
	if j.then != nil {
		j.mu.Unlock()
		return ErrContinuationSet
	}
	j.then = fn
	resolved, mod := j.resolved, j.module
	j.mu.Unlock()

	if resolved && fn != nil {
		fn(mod)
	}
	return nil
}

// Done is closed when the job resolves.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the job resolves or ctx ends. A ctx that ends only stops
// this wait; the job itself stays pending.
func (j *Job) Wait(ctx context.Context) (*entities.CompiledModule, error) {
	select {
	case <-j.done:
		j.mu.Lock()
		defer j.mu.Unlock()
		return j.module, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// resolve records mod, wakes waiters, and runs the continuation once.
// The registry guarantees it is called at most once per job.
func (j *Job) resolve(mod *entities.CompiledModule) {
	j.mu.Lock()
	j.module = mod
	j.resolved = true
	fn := j.then
	close(j.done)
	j.mu.Unlock()

	if fn != nil {
		fn(mod)
	}
}

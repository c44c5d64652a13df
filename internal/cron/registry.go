package cron

import "context"

// Job represents a scheduled task that runs inside the cron worker.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry tracks registered cron jobs. Job names must be unique because
// they become metric labels.
type Registry struct {
	seen map[string]struct{}
	jobs []Job
}

// NewRegistry builds a registry preloaded with the provided jobs.
func NewRegistry(jobs ...Job) *Registry {
	registry := &Registry{seen: map[string]struct{}{}}
	for _, job := range jobs {
		registry.Register(job)
	}
	return registry
}

// Register adds a job, ignoring nil entries and duplicate names.
func (r *Registry) Register(job Job) {
	if job == nil {
		return
	}
	if r.seen == nil {
		r.seen = map[string]struct{}{}
	}
	if _, dup := r.seen[job.Name()]; dup {
		return
	}
	r.seen[job.Name()] = struct{}{}
	r.jobs = append(r.jobs, job)
}

// Jobs returns the registered jobs in the order they were added.
func (r *Registry) Jobs() []Job {
	jobs := make([]Job, len(r.jobs))
	copy(jobs, r.jobs)
	return jobs
}

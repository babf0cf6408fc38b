package cron

import (
	"context"
	"fmt"
	"strings"
)

// Job is a unit of scheduled work run by the cron worker, such as the
// calendar resync sweep.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry holds the worker's jobs keyed by name. Jobs run in registration
// order so the resync sweep always precedes anything registered after it.
type Registry struct {
	order  []Job
	byName map[string]Job
}

// NewRegistry builds a registry from jobs, rejecting blank or repeated names.
// Nil jobs are skipped.
func NewRegistry(jobs ...Job) (*Registry, error) {
	registry := &Registry{byName: make(map[string]Job, len(jobs))}
	for _, job := range jobs {
		if err := registry.Register(job); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// Register adds job under its name.
func (r *Registry) Register(job Job) error {
	if job == nil {
		return nil
	}
	name := strings.TrimSpace(job.Name())
	if name == "" {
		return fmt.Errorf("cron job name required")
	}
	if r.byName == nil {
		r.byName = map[string]Job{}
	}
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("cron job %q already registered", name)
	}
	r.byName[name] = job
	r.order = append(r.order, job)
	return nil
}

// Job looks up a registered job by name.
func (r *Registry) Job(name string) (Job, bool) {
	job, ok := r.byName[strings.TrimSpace(name)]
	return job, ok
}

// Names lists job names in run order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.order))
	for _, job := range r.order {
		names = append(names, job.Name())
	}
	return names
}

// Jobs returns a copy of the registered jobs in run order.
func (r *Registry) Jobs() []Job {
	jobs := make([]Job, len(r.order))
	copy(jobs, r.order)
	return jobs
}

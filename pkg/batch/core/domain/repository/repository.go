// Package repository defines the persistence boundary for job and step execution state.
package repository

// JobRepository aggregates the execution persistence operations used by the engine.
// The engine calls it synchronously at job start, after each chunk commit, at step end and at job end.
type JobRepository interface {
	JobExecution
	StepExecution

	// Close releases the resources held by the repository.
	Close() error
}

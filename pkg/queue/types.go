package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/tenantguard/pkg/carrier"
)

// DefaultQueueName is used when no queue is specified.
const DefaultQueueName = "default"

// TaskStatus represents the lifecycle state of a task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Priority represents task priority (0-100, higher is more important).
type Priority int8

const (
	PriorityMin     Priority = 0
	PriorityLow     Priority = 25
	PriorityMedium  Priority = 50
	PriorityHigh    Priority = 75
	PriorityMax     Priority = 100
	PriorityDefault Priority = PriorityMedium
)

// Valid checks if the priority is within valid range.
func (p Priority) Valid() bool {
	return p >= PriorityMin && p <= PriorityMax
}

// Task is one unit of asynchronous work. Tenant is the context envelope
// captured at enqueue time; the worker restores it before the handler runs,
// so handlers operate under the same tenant scoping as the request that
// produced the task.
type Task struct {
	ID          uuid.UUID     `json:"id"`
	Queue       string        `json:"queue"`
	TaskName    string        `json:"task_name"`
	Payload     []byte        `json:"payload,omitempty"`
	Tenant      carrier.Token `json:"tenant,omitzero"`
	Status      TaskStatus    `json:"status"`
	Priority    Priority      `json:"priority"`
	RetryCount  int8          `json:"retry_count"`
	MaxRetries  int8          `json:"max_retries"`
	ScheduledAt time.Time     `json:"scheduled_at"`
	LockedUntil *time.Time    `json:"locked_until,omitempty"`
	LockedBy    *uuid.UUID    `json:"locked_by,omitempty"`
	ProcessedAt *time.Time    `json:"processed_at,omitempty"`
	Error       *string       `json:"error,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

// DeadTask is a task that exhausted its retries, parked for manual
// inspection and requeueing. The tenant envelope is preserved so a requeued
// task still runs under its original tenant.
type DeadTask struct {
	ID         uuid.UUID     `json:"id"`
	TaskID     uuid.UUID     `json:"task_id"`
	Queue      string        `json:"queue"`
	TaskName   string        `json:"task_name"`
	Payload    []byte        `json:"payload,omitempty"`
	Tenant     carrier.Token `json:"tenant,omitzero"`
	Priority   Priority      `json:"priority"`
	Error      string        `json:"error"`
	RetryCount int8          `json:"retry_count"`
	FailedAt   time.Time     `json:"failed_at"`
	CreatedAt  time.Time     `json:"created_at"`
}

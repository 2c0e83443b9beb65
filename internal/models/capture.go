package models

import (
	"time"

	"github.com/google/uuid"
)

type Capture struct {
	ID             uuid.UUID `json:"id" db:"id"`
	OrganizationID uuid.UUID `json:"organization_id" db:"organization_id"`
	UserID         uuid.UUID `json:"user_id" db:"user_id"`
	Body           string    `json:"body" db:"body"`
	Processed      bool      `json:"processed" db:"processed"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

type TaskStatus string

const (
	TaskTodo  TaskStatus = "todo"
	TaskDoing TaskStatus = "doing"
	TaskDone  TaskStatus = "done"
)

type Task struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	OrganizationID uuid.UUID  `json:"organization_id" db:"organization_id"`
	UserID         uuid.UUID  `json:"user_id" db:"user_id"`
	CaptureID      *uuid.UUID `json:"capture_id,omitempty" db:"capture_id"`
	Title          string     `json:"title" db:"title"`
	Notes          string     `json:"notes,omitempty" db:"notes"`
	Status         TaskStatus `json:"status" db:"status"`
	DueAt          *time.Time `json:"due_at,omitempty" db:"due_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

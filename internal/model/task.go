package model

import (
	"strings"
	"time"
)

type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusDone       Status = "done"
)

// Columns lists the board columns in display order.
var Columns = []Status{StatusTodo, StatusInProgress, StatusDone}

func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

type Assignee string

const (
	AssigneeMe   Assignee = "me"
	AssigneeClaw Assignee = "claw"
)

const DefaultTitle = "New Task"

type Task struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	AssignedTo  Assignee  `json:"assigned_to"`
	Priority    string    `json:"priority"`
	Tags        []string  `json:"tags"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Clone returns a copy that does not share the tags slice.
func (t Task) Clone() Task {
	if t.Tags != nil {
		t.Tags = append([]string(nil), t.Tags...)
	}
	return t
}

// TaskDraft is the user input for a new task. The store assigns id and timestamps.
type TaskDraft struct {
	Title       string   `json:"title" validate:"max=500"`
	Description string   `json:"description,omitempty"`
	Status      Status   `json:"status,omitempty" validate:"omitempty,oneof=todo in-progress done"`
	AssignedTo  Assignee `json:"assigned_to,omitempty" validate:"omitempty,oneof=me claw"`
	Priority    string   `json:"priority,omitempty" validate:"max=32"`
	Tags        []string `json:"tags,omitempty" validate:"dive,required,max=64"`
}

// WithDefaults fills the fields a freshly added card starts with.
func (d TaskDraft) WithDefaults() TaskDraft {
	if strings.TrimSpace(d.Title) == "" {
		d.Title = DefaultTitle
	}
	if d.Status == "" {
		d.Status = StatusTodo
	}
	if d.AssignedTo == "" {
		d.AssignedTo = AssigneeMe
	}
	return d
}

// Record renders the draft as a store row.
func (d TaskDraft) Record() map[string]any {
	rec := map[string]any{
		"title":       d.Title,
		"status":      string(d.Status),
		"assigned_to": string(d.AssignedTo),
	}
	if d.Description != "" {
		rec["description"] = d.Description
	}
	if d.Priority != "" {
		rec["priority"] = d.Priority
	}
	if d.Tags != nil {
		rec["tags"] = append([]string(nil), d.Tags...)
	}
	return rec
}

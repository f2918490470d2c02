package model

import "time"

// TaskPatch carries the fields of a partial update. Nil fields are left untouched.
type TaskPatch struct {
	Title       *string   `json:"title,omitempty" validate:"omitempty,max=500"`
	Description *string   `json:"description,omitempty"`
	Status      *Status   `json:"status,omitempty" validate:"omitempty,oneof=todo in-progress done"`
	AssignedTo  *Assignee `json:"assigned_to,omitempty" validate:"omitempty,oneof=me claw"`
	Priority    *string   `json:"priority,omitempty" validate:"omitempty,max=32"`
	Tags        *[]string `json:"tags,omitempty"`
}

func StatusPatch(s Status) TaskPatch {
	return TaskPatch{Status: &s}
}

func TitlePatch(title string) TaskPatch {
	return TaskPatch{Title: &title}
}

func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil &&
		p.AssignedTo == nil && p.Priority == nil && p.Tags == nil
}

// Apply merges the set fields into t and stamps updated_at.
func (p TaskPatch) Apply(t *Task, now time.Time) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.AssignedTo != nil {
		t.AssignedTo = *p.AssignedTo
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Tags != nil {
		t.Tags = append([]string(nil), (*p.Tags)...)
	}
	t.UpdatedAt = now
}

// Record renders only the set fields, plus updated_at, as a store row.
func (p TaskPatch) Record(now time.Time) map[string]any {
	rec := map[string]any{"updated_at": now.UTC().Format(time.RFC3339Nano)}
	if p.Title != nil {
		rec["title"] = *p.Title
	}
	if p.Description != nil {
		rec["description"] = *p.Description
	}
	if p.Status != nil {
		rec["status"] = string(*p.Status)
	}
	if p.AssignedTo != nil {
		rec["assigned_to"] = string(*p.AssignedTo)
	}
	if p.Priority != nil {
		rec["priority"] = *p.Priority
	}
	if p.Tags != nil {
		rec["tags"] = append([]string(nil), (*p.Tags)...)
	}
	return rec
}

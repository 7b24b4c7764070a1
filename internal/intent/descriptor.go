package intent

import (
	"encoding/json"
	"fmt"
)

// Descriptor is one element of a plan batch. It identifies a task by
// (parent context, name) and asserts its desired fields.
//
// parent_id is tri-state on the wire: absent means "auto-parent to the
// current focus on create, leave unchanged on update"; an integer means
// reparent to that task; an explicit null means root. HasParent records
// whether the key was present at all.
type Descriptor struct {
	Name      string       `json:"name" validate:"required"`
	Status    Status       `json:"status,omitempty" validate:"omitempty,oneof=todo doing done"`
	Spec      *string      `json:"spec,omitempty"`
	Priority  Priority     `json:"priority,omitempty" validate:"omitempty,oneof=critical high medium low"`
	ParentID  *int64       `json:"parent_id,omitempty"`
	HasParent bool         `json:"-"`
	Children  []Descriptor `json:"children,omitempty" validate:"dive"`
}

// descriptorAlias avoids UnmarshalJSON recursion.
type descriptorAlias Descriptor

// UnmarshalJSON decodes a descriptor while recording whether parent_id
// was present, so that "absent" and "null" stay distinguishable.
func (d *Descriptor) UnmarshalJSON(data []byte) error {
	var alias descriptorAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*d = Descriptor(alias)
	_, d.HasParent = raw["parent_id"]
	return nil
}

// PlanRequest is the stdin payload of the plan command.
type PlanRequest struct {
	Tasks []Descriptor `json:"tasks" validate:"required,min=1,dive"`
}

// ParsePlanRequest decodes and structurally checks a plan payload.
func ParsePlanRequest(data []byte) (*PlanRequest, error) {
	var req PlanRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, Wrap(TagInvalidJSON, err, "plan input is not valid JSON: %v", err)
	}
	if len(req.Tasks) == 0 {
		return nil, E(TagInvalidJSON, "plan input contains no tasks")
	}
	return &req, nil
}

// Flatten returns all descriptors in the request in depth-first order,
// parents before their children.
func (r *PlanRequest) Flatten() []*Descriptor {
	var out []*Descriptor
	var walk func(ds []Descriptor)
	walk = func(ds []Descriptor) {
		for i := range ds {
			out = append(out, &ds[i])
			walk(ds[i].Children)
		}
	}
	walk(r.Tasks)
	return out
}

// PlanAction reports what the evaluator did with one descriptor.
type PlanAction string

const (
	ActionCreated PlanAction = "created"
	ActionUpdated PlanAction = "updated"
)

// DescriptorResult is the per-descriptor entry of a plan report.
type DescriptorResult struct {
	Name        string     `json:"name"`
	ID          int64      `json:"id"`
	Action      PlanAction `json:"action"`
	Status      Status     `json:"status"`
	Diagnostics []string   `json:"diagnostics,omitempty"`
}

// PlanReport is the output of one plan batch.
type PlanReport struct {
	Results       []DescriptorResult `json:"results"`
	CurrentTaskID *int64             `json:"current_task_id,omitempty"`
}

func (r *PlanReport) String() string {
	return fmt.Sprintf("plan: %d descriptors applied", len(r.Results))
}

package intent

// TaskRef is the short form of a task used in snapshot listings.
type TaskRef struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	Status   Status   `json:"status"`
	Priority Priority `json:"priority,omitempty"`
}

// WorkspaceStats counts tasks by status across the whole project.
type WorkspaceStats struct {
	Todo  int `json:"todo"`
	Doing int `json:"doing"`
	Done  int `json:"done"`
	Total int `json:"total"`
}

// Snapshot is the session-restore payload assembled by the status
// projector: the focused task plus its neighborhood and recent events.
type Snapshot struct {
	FocusedTask    *Task          `json:"focused_task"`
	Ancestors      []TaskRef      `json:"ancestors"`
	Siblings       []TaskRef      `json:"siblings"`
	Children       []TaskRef      `json:"children"`
	RecentEvents   []Event        `json:"recent_events"`
	WorkspaceStats WorkspaceStats `json:"workspace_stats"`
	NotFound       bool           `json:"not_found,omitempty"`
}

// HitKind tags a search result as a task or event hit.
type HitKind string

const (
	HitTask  HitKind = "task"
	HitEvent HitKind = "event"
)

// SearchHit is one entry of a merged search result set.
type SearchHit struct {
	Kind    HitKind `json:"kind"`
	ID      int64   `json:"id"`
	TaskID  int64   `json:"task_id"`
	Name    string  `json:"name,omitempty"`
	Status  Status  `json:"status,omitempty"`
	LogType LogType `json:"log_type,omitempty"`
	Snippet string  `json:"snippet"`
	Field   string  `json:"field,omitempty"`
}

// SearchPage is a paginated merged search response.
type SearchPage struct {
	Hits        []SearchHit `json:"hits"`
	TotalTasks  int         `json:"total_tasks"`
	TotalEvents int         `json:"total_events"`
	HasMore     bool        `json:"has_more"`
	Limit       int         `json:"limit"`
	Offset      int         `json:"offset"`
}

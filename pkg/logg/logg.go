package logg

// Field names shared by every component logger.
const (
	Layer     = "layer"
	Operation = "op"
	TaskID    = "task_id"
	Action    = "action"
	URL       = "url"
	Selector  = "selector"
	Rule      = "rule"
	PauseID   = "pause_id"
	TraceID   = "trace_id"
	Took      = "took"
)

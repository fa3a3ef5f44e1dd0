package attention

// Context is the experiment state an operator sets during a session: the
// current driving stage and whether the driver is busy with a secondary
// task. The aggregator reads it at the moment each event is fed.
type Context struct {
	stage     string
	taskBusy  bool
	taskCount int
}

// SetStage sets the driving stage label. An empty label stops aggregation.
func (c *Context) SetStage(label string) {
	c.stage = label
}

// SetTaskBusy sets the task-busy flag and reports whether it changed. The
// task counter increments on every false to true change.
func (c *Context) SetTaskBusy(busy bool) bool {
	if busy == c.taskBusy {
		return false
	}
	c.taskBusy = busy
	if busy {
		c.taskCount++
	}
	return true
}

// Stage returns the current stage label, "" when unset.
func (c *Context) Stage() string { return c.stage }

// TaskBusy reports whether the driver is currently on a secondary task.
func (c *Context) TaskBusy() bool { return c.taskBusy }

// TaskCount returns how many tasks have been started this session.
func (c *Context) TaskCount() int { return c.taskCount }

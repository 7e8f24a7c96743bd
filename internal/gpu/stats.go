package gpu

// Stats counts GPU work since the last BeginFrame.
type Stats struct {
	DrawCalls      int
	PipelineBinds  int
	BindGroupBinds int
	Uploads        int
	UploadBytes    uint64
}

// StateChanges returns the number of pipeline and bind group switches.
func (s Stats) StateChanges() int {
	return s.PipelineBinds + s.BindGroupBinds
}

// Stats returns the counters of the current or last frame.
func (c *Context) Stats() Stats { return c.stats }

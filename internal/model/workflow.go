package model

// Workflow is a named collection of jobs, plus optional dynamic-setup and
// output-filename overrides. Workflow names are unique within a Config;
// job identifiers are unique within a Workflow.
type Workflow struct {
	Name           string          `yaml:"-"`
	Dynamic        bool            `yaml:"dynamic,omitempty"`
	OutputFilename string          `yaml:"output_filename,omitempty"`
	Stages         []string        `yaml:"stages,omitempty"` // ordering; empty = single implicit stage
	Jobs           map[string]*Job `yaml:"jobs"`
}

// StageOf returns the stage a job belongs to, or "" if stages aren't used.
func (w *Workflow) StageOf(jobID string) string {
	j, ok := w.Jobs[jobID]
	if !ok {
		return ""
	}
	return j.Stage
}

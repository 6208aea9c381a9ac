package runner

import "context"

// Recorder is a Runner that records commands instead of executing them.
type Recorder struct {
	Commands []Cmd
	// OutputFunc supplies Output results; nil returns "".
	OutputFunc func(Cmd) (string, error)
	// RunFunc, when set, is called for every Run after recording.
	RunFunc func(Cmd) error
}

// Run records c.
func (r *Recorder) Run(_ context.Context, c Cmd) error {
	r.Commands = append(r.Commands, c)
	if r.RunFunc != nil {
		return r.RunFunc(c)
	}
	return nil
}

// Output records c and returns OutputFunc's result.
func (r *Recorder) Output(_ context.Context, c Cmd) (string, error) {
	r.Commands = append(r.Commands, c)
	if r.OutputFunc != nil {
		return r.OutputFunc(c)
	}
	return "", nil
}

// Lines returns the recorded commands rendered as shell lines.
func (r *Recorder) Lines() []string {
	out := make([]string, 0, len(r.Commands))
	for _, c := range r.Commands {
		out = append(out, c.String())
	}
	return out
}

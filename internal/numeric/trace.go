package numeric

// Iterate is a single snapshot of an iterative solver, suitable for
// persisting and replaying in discussion.
type Iterate struct {
	K        int       `json:"k"`
	X        []float64 `json:"x"`
	F        float64   `json:"f"`
	GradNorm float64   `json:"grad_norm,omitempty"`
	Step     float64   `json:"step,omitempty"`
}

// TraceRecorder receives one Iterate per solver iteration. Recorders must
// not retain the X slice without copying; solvers are free to reuse it.
type TraceRecorder func(it Iterate)

// Trace accumulates iterates. Its Record method copies X, so a *Trace can
// be handed to any solver as a TraceRecorder.
type Trace struct {
	Iterates []Iterate `json:"iterates"`
}

// Record appends a copy of it to the trace.
func (t *Trace) Record(it Iterate) {
	x := make([]float64, len(it.X))
	copy(x, it.X)
	it.X = x
	t.Iterates = append(t.Iterates, it)
}

// Len returns the number of recorded iterates.
func (t *Trace) Len() int { return len(t.Iterates) }

// Last returns the most recent iterate. It panics on an empty trace.
func (t *Trace) Last() Iterate { return t.Iterates[len(t.Iterates)-1] }

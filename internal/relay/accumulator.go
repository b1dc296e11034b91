package relay

// ToolCallFragment is one partial tool-call record carried by a stream
// delta. The vendor scatters a logical call across many fragments sharing
// the same index; argument JSON arrives piecemeal and must be concatenated
// in arrival order.
type ToolCallFragment struct {
	Index    int    `json:"index"`
	ID       string `json:"id,omitempty"`
	Type     string `json:"type,omitempty"`
	Function struct {
		Name      string `json:"name,omitempty"`
		Arguments string `json:"arguments,omitempty"`
	} `json:"function"`
}

// ToolCall is a fully accumulated call, ready for argument parsing once the
// stream ends.
type ToolCall struct {
	Index     int
	ID        string
	Type      string
	Name      string
	Arguments string
}

// maxToolCallIndex bounds fragment indices so a malformed stream cannot
// force an arbitrarily large allocation. Real completions carry a handful
// of parallel calls at most.
const maxToolCallIndex = 63

// Accumulator merges tool-call fragments by index. It is owned by a single
// relay run and discarded with it.
type Accumulator struct {
	// Indexed directly by the fragment's index; the slice grows to fit.
	// Nil entries are indices never seen.
	calls []*ToolCall
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Add merges one fragment. id and type overwrite when present, the function
// name takes the last non-empty value, and argument text is appended to the
// running string. Fragments with an index outside [0, maxToolCallIndex] are
// ignored.
func (a *Accumulator) Add(frag ToolCallFragment) {
	if frag.Index < 0 || frag.Index > maxToolCallIndex {
		return
	}
	for len(a.calls) <= frag.Index {
		a.calls = append(a.calls, nil)
	}
	call := a.calls[frag.Index]
	if call == nil {
		call = &ToolCall{Index: frag.Index}
		a.calls[frag.Index] = call
	}

	if frag.ID != "" {
		call.ID = frag.ID
	}
	if frag.Type != "" {
		call.Type = frag.Type
	}
	if frag.Function.Name != "" {
		call.Name = frag.Function.Name
	}
	call.Arguments += frag.Function.Arguments
}

// Calls returns the accumulated calls ordered by index.
func (a *Accumulator) Calls() []ToolCall {
	var out []ToolCall
	for _, call := range a.calls {
		if call != nil {
			out = append(out, *call)
		}
	}
	return out
}

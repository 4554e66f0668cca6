package domain

import (
	"encoding/json"
	"time"
)

// Message is one turn in the conversation sent to the model.
// Messages form an ordered sequence that is only ever appended to.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	// ToolCalls is set on assistant messages that request tool invocations.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	// ToolCallID links a tool-role message back to the request it answers.
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// ToolCall is an instruction from the model to invoke a named tool.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Citation is one search-result attribution returned by a tool.
type Citation struct {
	URL           string `json:"url"`
	Title         string `json:"title,omitempty"`
	Author        string `json:"author,omitempty"`
	PublishedDate string `json:"publishedDate,omitempty"`
	Text          string `json:"text,omitempty"`
}

// SourceTypeWebSearch is the only source type produced today.
const SourceTypeWebSearch = "web_search_results"

// Source is the display-ready projection of a Citation.
type Source struct {
	Name     string            `json:"name"`
	Type     string            `json:"type"`
	URLs     []string          `json:"urls"`
	Document string            `json:"-"`
	Metadata map[string]string `json:"-"`
}

// MarshalJSON encodes the source in the shape chat frontends expect:
// {"source": {...}, "document": [...], "metadata": [...]}.
func (s Source) MarshalJSON() ([]byte, error) {
	type head struct {
		Name string   `json:"name"`
		Type string   `json:"type"`
		URLs []string `json:"urls"`
	}
	return json.Marshal(struct {
		Source   head                `json:"source"`
		Document []string            `json:"document"`
		Metadata []map[string]string `json:"metadata"`
	}{
		Source:   head{Name: s.Name, Type: s.Type, URLs: s.URLs},
		Document: []string{s.Document},
		Metadata: []map[string]string{s.Metadata},
	})
}

// UnmarshalJSON decodes the wire shape produced by MarshalJSON.
func (s *Source) UnmarshalJSON(b []byte) error {
	var wire struct {
		Source struct {
			Name string   `json:"name"`
			Type string   `json:"type"`
			URLs []string `json:"urls"`
		} `json:"source"`
		Document []string            `json:"document"`
		Metadata []map[string]string `json:"metadata"`
	}
	if err := json.Unmarshal(b, &wire); err != nil {
		return err
	}
	*s = Source{Name: wire.Source.Name, Type: wire.Source.Type, URLs: wire.Source.URLs}
	if len(wire.Document) > 0 {
		s.Document = wire.Document[0]
	}
	if len(wire.Metadata) > 0 {
		s.Metadata = wire.Metadata[0]
	}
	return nil
}

// RunState names a state of the orchestration loop.
type RunState string

const (
	StateInit       RunState = "INIT"
	StateModelCall1 RunState = "MODEL_CALL_1"
	StateToolPhase  RunState = "TOOL_PHASE"
	StateModelCall2 RunState = "MODEL_CALL_2"
	StateDone       RunState = "DONE"
	StateError      RunState = "ERROR"
)

// Result is the terminal output of one orchestration run.
type Result struct {
	RunID     string     `json:"run_id"`
	FinalText string     `json:"final_text"`
	Citations []Citation `json:"citations"`
	State     RunState   `json:"state"`
	// Trace lists every state the run passed through, in order.
	Trace    []RunState `json:"trace,omitempty"`
	Finished time.Time  `json:"finished"`
}

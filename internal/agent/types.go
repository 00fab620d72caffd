package agent

// MessageKind classifies agent stream messages. Classification is decided
// at the runner boundary so consumers never inspect message shapes.
type MessageKind string

const (
	KindSystem    MessageKind = "system"
	KindAssistant MessageKind = "assistant"
	KindTool      MessageKind = "tool"
	KindResult    MessageKind = "result"
	KindError     MessageKind = "error"
)

// SubtypeSuccess on a result message is the explicit success signal.
const SubtypeSuccess = "success"

// Message is one progress item from an agent stream.
type Message struct {
	Kind    MessageKind
	Subtype string
	// Text is the human-readable rendering of the message.
	Text string
	// Result carries the final textual result on a terminal result message.
	Result string
}

// IsSuccess reports whether the message is the explicit success signal.
func (m Message) IsSuccess() bool {
	return m.Kind == KindResult && m.Subtype == SubtypeSuccess
}

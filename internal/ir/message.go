package ir

// MessageContext is everything a custom message can refer to.
type MessageContext struct {
	Service   string
	Namespace Namespace
	Attribute string
	Value     any
	Option    string
	Code      string
	Reason    string
	Meta      map[string]any
}

// Message is either a literal text or a function building the text from the
// failure context. The zero Message means "use the default template".
type Message struct {
	text string
	fn   func(MessageContext) string
}

// Text returns a literal message.
func Text(s string) Message {
	return Message{text: s}
}

// MessageFunc returns a message built per failure.
func MessageFunc(fn func(MessageContext) string) Message {
	return Message{fn: fn}
}

// IsZero reports whether no custom message was given.
func (m Message) IsZero() bool {
	return m.fn == nil && m.text == ""
}

// Render produces the message text for c.
func (m Message) Render(c MessageContext) string {
	if m.fn != nil {
		return m.fn(c)
	}
	return m.text
}

// OptionValue is the normalized form of every option value: the value itself
// plus an optional custom message.
type OptionValue struct {
	Value   any
	Message Message
}

// Literal wraps a bare option value.
func Literal(v any) OptionValue {
	return OptionValue{Value: v}
}

// WithMessage wraps an option value with a custom message.
func WithMessage(v any, m Message) OptionValue {
	return OptionValue{Value: v, Message: m}
}

package dream

import "time"

// Message is one turn of a conversation.
type Message struct {
	Role      Role
	Content   string
	ImagePath string // Optional image attached to a user message.
	Timestamp time.Time
}

// HasImage reports whether the message carries an image attachment.
func (m Message) HasImage() bool {
	return m.ImagePath != ""
}

// Request carries model selection and generation parameters for one send.
type Request struct {
	Model       string
	Messages    []Message
	MaxTokens   int      // 0 = endpoint default
	Temperature *float64 // nil = endpoint default
}

// Temperature returns a pointer to t, for use in Request literals.
func Temperature(t float64) *float64 {
	return &t
}

package orchestration

import (
	"time"

	"github.com/jinzhu/copier"
	"github.com/koscakluka/ema-lens/core/transport"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	ID        uint64
	Role      Role
	Content   string
	Timestamp time.Time
	HasImage  bool
	// IsError marks a failed turn. An error message is only ever the last
	// message of the conversation.
	IsError     bool
	IsRetryable bool
}

// conversation is the ordered message log of a session. It is only mutated
// while holding the orchestrator lock.
type conversation struct {
	messages []Message
	lastID   uint64
}

func (c *conversation) append(msg Message) Message {
	c.lastID++
	msg.ID = c.lastID
	c.messages = append(c.messages, msg)
	return msg
}

// popTrailingError removes the last message if it is an error and reports
// whether it did.
func (c *conversation) popTrailingError() bool {
	if len(c.messages) == 0 || !c.messages[len(c.messages)-1].IsError {
		return false
	}
	c.messages = c.messages[:len(c.messages)-1]
	return true
}

// window returns up to n of the latest non-error messages, oldest first.
func (c *conversation) window(n int) []Message {
	if n <= 0 {
		return nil
	}

	window := make([]Message, 0, n)
	for i := len(c.messages) - 1; i >= 0 && len(window) < n; i-- {
		if c.messages[i].IsError {
			continue
		}
		window = append(window, c.messages[i])
	}
	for i, j := 0, len(window)-1; i < j; i, j = i+1, j-1 {
		window[i], window[j] = window[j], window[i]
	}
	return window
}

func (c *conversation) reset() {
	c.messages = nil
}

func (c *conversation) snapshot() []Message {
	snapshot := make([]Message, len(c.messages))
	copy(snapshot, c.messages)
	return snapshot
}

func contextMessages(messages []Message) ([]transport.ContextMessage, error) {
	contextMessages := []transport.ContextMessage{}
	if len(messages) == 0 {
		return contextMessages, nil
	}
	if err := copier.Copy(&contextMessages, messages); err != nil {
		return nil, err
	}
	return contextMessages, nil
}

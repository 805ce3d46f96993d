package models

// Conversation is an ordered list of messages for a single request.
// It is not safe for concurrent use.
type Conversation struct {
	messages []Message
}

// NewConversation creates an empty conversation
func NewConversation() *Conversation {
	return &Conversation{}
}

// NewConversationWith creates a conversation holding a system prompt followed by a user prompt.
// An empty system prompt is skipped.
func NewConversationWith(systemPrompt, userMessage string) *Conversation {
	c := NewConversation()
	if systemPrompt != "" {
		c.AddMessage(NewSystemMessage(systemPrompt))
	}
	c.AddMessage(NewUserMessage(userMessage))
	return c
}

// AddMessage appends a message. Role ordering is not enforced.
func (c *Conversation) AddMessage(m Message) {
	c.messages = append(c.messages, m)
}

// Messages returns the messages in turn order.
// The returned slice shares storage with the conversation; copy it before mutating.
func (c *Conversation) Messages() []Message {
	return c.messages
}

// Len returns the number of messages
func (c *Conversation) Len() int {
	return len(c.messages)
}

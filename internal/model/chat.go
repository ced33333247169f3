package model

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// MessageState - состояние локального сообщения при оптимистичной отправке.
type MessageState string

const (
	MessageStatePending    MessageState = "pending"
	MessageStateCommitted  MessageState = "committed"
	MessageStateRolledBack MessageState = "rolled_back"
)

// DefaultSessionTitle - заголовок сессии без единого сообщения пользователя.
const DefaultSessionTitle = "New Chat"

type ChatSession struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	LastMessage string    `json:"last_message"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ChatMessage struct {
	ID        string       `json:"id"`
	Role      Role         `json:"role"`
	Content   string       `json:"content"`
	Timestamp time.Time    `json:"timestamp"`
	State     MessageState `json:"state"`
}

package chatlog

import (
	"errors"
	"time"
)

// ErrInvalidSender is returned when a log entry names a sender other than user or bot.
var ErrInvalidSender = errors.New("sender must be user or bot")

// Sender identifies which side of the conversation wrote a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Valid reports whether s is one of the known senders.
func (s Sender) Valid() bool {
	return s == SenderUser || s == SenderBot
}

// Entry is one message in a student's transcript.
type Entry struct {
	ID        int64     `json:"id"`
	StudentID int64     `json:"student_id"`
	Sender    Sender    `json:"sender"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"timestamp"`
}

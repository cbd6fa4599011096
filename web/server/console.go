package server

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/df07/go-scene-synth/pkg/core"
)

// ConsoleMessage represents a console message with timestamp
type ConsoleMessage struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"` // "info", "warning", "error"
}

// WebLogger implements core.Logger by sending messages to a console channel
type WebLogger struct {
	requestID   string
	consoleChan chan<- ConsoleMessage
}

// NewWebLogger creates a new web logger for a single request
func NewWebLogger(requestID string, consoleChan chan<- ConsoleMessage) core.Logger {
	return &WebLogger{
		requestID:   requestID,
		consoleChan: consoleChan,
	}
}

// Printf implements core.Logger interface
func (wl *WebLogger) Printf(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)

	log.Printf("[%s] %s", wl.requestID, strings.TrimRight(message, "\n"))

	// Non-blocking: a full console drops the message
	if wl.consoleChan != nil {
		select {
		case wl.consoleChan <- ConsoleMessage{
			Message:   message,
			Timestamp: time.Now(),
			Level:     levelOf(message),
		}:
		default:
		}
	}
}

func levelOf(message string) string {
	switch {
	case strings.HasPrefix(message, "Error"):
		return "error"
	case strings.HasPrefix(message, "Warning"):
		return "warning"
	default:
		return "info"
	}
}

// Package model contains the JSON bodies rendered by the webhook API.
package model

import (
	"time"

	"github.com/hookbox/hookbox/pkg/storage"
)

// JSONHealthV1 is the health check body.
type JSONHealthV1 struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp"`
	Error     string `json:"error,omitempty"`
}

// JSONIngestResultV1 acknowledges a stored webhook payload.
type JSONIngestResultV1 struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	EmailID string `json:"email_id"`
}

// JSONEmailListV1 is a page of stored emails.
type JSONEmailListV1 struct {
	Success bool             `json:"success"`
	Count   int              `json:"count"`
	Emails  []*storage.Email `json:"emails"`
}

// JSONEmailV1 wraps a single stored email.
type JSONEmailV1 struct {
	Success bool           `json:"success"`
	Email   *storage.Email `json:"email"`
}

// JSONMonitorEventV1 is one monitor websocket frame.
type JSONMonitorEventV1 struct {
	ID         string    `json:"id"`
	From       string    `json:"from"`
	To         []string  `json:"to"`
	Subject    string    `json:"subject"`
	ReceivedAt time.Time `json:"received_at"`
}

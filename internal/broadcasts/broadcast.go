// Package broadcasts implements the broadcast dispatcher. A broadcast is one
// rendered outbound message tied to exactly one request; repeat attempts for
// the same request accumulate as immutable versioned rows.
package broadcasts

import (
	"time"

	"github.com/google/uuid"
)

// Broadcast represents one prepared and committed outbound message.
type Broadcast struct {
	ID                  uuid.UUID  `json:"id"`
	RequestID           uuid.UUID  `json:"request_id"`
	MessageText         string     `json:"message_text"`
	TargetGroup         string     `json:"target_group"`
	Version             int        `json:"version"`
	GeneratedAt         time.Time  `json:"generated_at"`
	ConfirmedProviderID *uuid.UUID `json:"confirmed_provider_id"`
}

// PrepareCommand identifies the request and template to render.
type PrepareCommand struct {
	RequestID   uuid.UUID `json:"request_id"`
	TemplateID  uuid.UUID `json:"template_id"`
	TargetGroup string    `json:"target_group"`
}

// Preview is the rendered message text before commit. Nothing is persisted.
type Preview struct {
	RequestID   uuid.UUID `json:"request_id"`
	MessageText string    `json:"message_text"`
	TargetGroup string    `json:"target_group"`
	Version     int       `json:"version"`
}

// CommitCommand persists a broadcast and moves its request to Broadcasted.
type CommitCommand struct {
	RequestID   uuid.UUID `json:"request_id"`
	MessageText string    `json:"message_text"`
	TargetGroup string    `json:"target_group"`
}

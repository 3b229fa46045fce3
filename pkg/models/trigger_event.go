package models

import "time"

// TriggerEventType tags the source kind of a trigger event. The set is open
// for extension; these are the built-in variants.
type TriggerEventType string

const (
	TriggerEventSchedule TriggerEventType = "schedule"
	TriggerEventEmail    TriggerEventType = "email"
	TriggerEventWebhook  TriggerEventType = "webhook"
)

// TriggerEvent is delivered to a trigger callback exactly once per firing.
// Events are ephemeral and not persisted.
type TriggerEvent struct {
	Type      TriggerEventType `json:"type"`
	Timestamp time.Time        `json:"timestamp"`
	Data      map[string]any   `json:"data,omitempty"`
}

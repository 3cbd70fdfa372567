package domain

import (
	"sort"
	"time"
)

// History item discriminants
const (
	HistoryTypeMessage = "message"
	HistoryTypeCall    = "call"
)

// HistoryItem is one entry of a conversation's merged timeline. Exactly
// one of Message or Call is set, indicated by Type; Timestamp is the
// common ordering key, computed at construction time for both variants.
type HistoryItem struct {
	Type      string           `json:"type"`
	Timestamp time.Time        `json:"timestamp"`
	Message   *MessageResponse `json:"message,omitempty"`
	Call      *Call            `json:"call,omitempty"`
}

// NewMessageHistoryItem wraps a message as a history entry.
func NewMessageHistoryItem(m *MessageResponse) HistoryItem {
	return HistoryItem{Type: HistoryTypeMessage, Timestamp: m.Timestamp, Message: m}
}

// NewCallHistoryItem wraps a call as a history entry, ordered by its
// start time.
func NewCallHistoryItem(c *Call) HistoryItem {
	return HistoryItem{Type: HistoryTypeCall, Timestamp: c.StartedAt, Call: c}
}

// SortHistory orders items by timestamp ascending. The sort is stable so
// entries with equal timestamps keep their insertion order.
func SortHistory(items []HistoryItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Timestamp.Before(items[j].Timestamp)
	})
}

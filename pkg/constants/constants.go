// Package constants defines application-wide constants for timeouts, limits, and durations.
package constants

import "time"

// Time-related constants
const (
	// DefaultTimeout is the default timeout for remote API calls
	DefaultTimeout = 30 * time.Second

	// MediaUploadTimeout is the timeout for multipart media uploads
	MediaUploadTimeout = 60 * time.Second

	// WebSocketPingInterval is the interval for signaling WebSocket ping/pong
	WebSocketPingInterval = 60 * time.Second

	// WebSocketWriteTimeout is the per-frame write deadline on the signaling socket
	WebSocketWriteTimeout = 10 * time.Second

	// WebSocketHandshakeTimeout is the dial timeout for the signaling socket
	WebSocketHandshakeTimeout = 10 * time.Second
)

// Retry constants (cache refresh and conversation list fetch)
const (
	// DefaultRetryAttempts is the bounded number of attempts per refresh
	DefaultRetryAttempts = 3

	// DefaultRetryDelay is the fixed delay between attempts
	DefaultRetryDelay = 2 * time.Second
)

// Reaction constants
const (
	// DefaultDebounceWindow collapses rapid reaction toggles into one submit
	DefaultDebounceWindow = 500 * time.Millisecond
)

// Cache constants
const (
	// CacheNamespace prefixes every durable cache key
	CacheNamespace = "flchat:"

	// ConversationsKey stores the cached conversation summary list
	ConversationsKey = CacheNamespace + "conversations"

	// MessagesKeyPrefix plus a conversation id stores that conversation's message list
	MessagesKeyPrefix = CacheNamespace + "messages:"
)

// Pagination constants
const (
	// DefaultPageSize is the default number of messages per page
	DefaultPageSize = 20

	// MaxPageSize is the maximum number of messages per page
	MaxPageSize = 100
)

// Call constants
const (
	// MaxCallDuration is the maximum allowed call duration (24 hours)
	MaxCallDuration = 24 * time.Hour

	// CallTickInterval is the duration counter tick while connected
	CallTickInterval = 1 * time.Second
)

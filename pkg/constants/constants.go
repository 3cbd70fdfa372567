// Package constants defines application-wide constants for timeouts, limits, and durations.
package constants

import "time"

// Time-related constants
const (
	// DefaultTimeout is the default timeout for most operations
	DefaultTimeout = 30 * time.Second

	// WebSocketPingInterval is the interval for WebSocket keepalive pings.
	// Must be shorter than WebSocketPongTimeout.
	WebSocketPingInterval = 54 * time.Second

	// WebSocketPongTimeout is how long a connection may go without a pong
	// before the read side gives up
	WebSocketPongTimeout = 60 * time.Second

	// WebSocketWriteTimeout bounds a single outbound frame write
	WebSocketWriteTimeout = 10 * time.Second

	// AuthHandshakeTimeout bounds the Connecting state: a socket that has
	// not authenticated within this window is closed.
	AuthHandshakeTimeout = 10 * time.Second

	// GracefulShutdownTimeout is the timeout for graceful server shutdown
	GracefulShutdownTimeout = 30 * time.Second
)

// WebSocket close codes (application range 4000-4999)
const (
	// CloseAuthFailure is sent when the connection credential is missing,
	// malformed or expired. Distinct from the transport's standard codes.
	CloseAuthFailure = 4001
)

// JWT-related constants
const (
	// AccessTokenExpiry is the default access token lifetime
	AccessTokenExpiry = 15 * time.Minute
)

// Database connection constants
const (
	// MaxConnLifetime is the maximum lifetime of a database connection
	MaxConnLifetime = 1 * time.Hour

	// MaxConnIdleTime is the maximum idle time for a database connection
	MaxConnIdleTime = 30 * time.Minute

	// HealthCheckPeriod is the interval between database health checks
	HealthCheckPeriod = 1 * time.Minute
)

// Presence constants
const (
	// PresenceTTL is how long a presence entry survives without refresh
	PresenceTTL = 5 * time.Minute
)

// Pagination constants
const (
	// DefaultPageSize is the default number of items per page
	DefaultPageSize = 50

	// MaxPageSize is the maximum number of items per page
	MaxPageSize = 200
)

// Message constants
const (
	// MaxMessageLength is the maximum allowed message length
	MaxMessageLength = 10000

	// MaxAttachmentSize is the maximum allowed attachment size in bytes (50MB)
	MaxAttachmentSize = 50 * 1024 * 1024

	// MaxInboundFrameSize bounds a single inbound WebSocket frame
	MaxInboundFrameSize = 64 * 1024

	// WebSocketSendBuffer is the per-connection outbound queue depth
	WebSocketSendBuffer = 256
)

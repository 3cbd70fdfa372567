package ws

import (
	"context"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"telecare-backend/internal/domain"
	"telecare-backend/pkg/constants"
	apperrors "telecare-backend/pkg/errors"
	"telecare-backend/pkg/jwt"
	"telecare-backend/pkg/logger"
)

// UserLoader resolves an authenticated user id to its current record
type UserLoader interface {
	GetByID(ctx context.Context, userID int64) (*domain.User, error)
}

// RevocationChecker reports whether a token id has been revoked
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Authenticator validates the token a WebSocket handshake carries in
// its query string. It is read-only: a failed check leaves no state
// behind.
type Authenticator struct {
	jwtManager *jwt.JWTManager
	revocation RevocationChecker
	users      UserLoader
}

// NewAuthenticator creates an authenticator
func NewAuthenticator(jwtManager *jwt.JWTManager, revocation RevocationChecker, users UserLoader) *Authenticator {
	return &Authenticator{
		jwtManager: jwtManager,
		revocation: revocation,
		users:      users,
	}
}

// TokenFromQuery extracts the token parameter from a raw query string.
// The scan tolerates unrelated parameters in any order and returns an
// empty string when no token parameter is present.
func TokenFromQuery(rawQuery string) string {
	for _, param := range strings.Split(rawQuery, "&") {
		if value, ok := strings.CutPrefix(param, "token="); ok {
			return value
		}
	}
	return ""
}

// Authenticate validates a token and returns the identity it belongs
// to, loaded fresh from the user store. Repeated calls with the same
// valid token return the same identity.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, apperrors.UnauthorizedError("missing token")
	}

	claims, err := a.jwtManager.ValidateToken(token)
	if err != nil {
		return nil, apperrors.InvalidTokenError("invalid or expired token")
	}

	if a.revocation != nil {
		revoked, err := a.revocation.IsRevoked(ctx, claims.ID)
		if err != nil {
			logger.Warn("revocation check failed", zap.Error(err))
			return nil, apperrors.UnauthorizedError("token verification unavailable")
		}
		if revoked {
			return nil, apperrors.InvalidTokenError("token has been revoked")
		}
	}

	user, err := a.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, apperrors.UnauthorizedError("unknown user")
	}

	return user, nil
}

// closeUnauthorized terminates a handshake that failed authentication
// with the reserved application close code. The connection never joins
// a room.
func closeUnauthorized(conn *websocket.Conn) {
	deadline := time.Now().Add(constants.WebSocketWriteTimeout)
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(constants.CloseAuthFailure, "authentication failed"),
		deadline)
	conn.Close()
}

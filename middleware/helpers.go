package middleware

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v4"
)

const jwtClaimUserID = "user_id"

// GetUserIDFromContext extracts the authenticated actor's id from the JWT
// claims a prior Authenticate call stashed in the request context. Every
// mutating handler uses this as the actorID passed into its service call,
// so organizer checks happen against the token, never a client-supplied
// field.
func GetUserIDFromContext(ctx context.Context) (int, error) {
	claims, ok := ctx.Value(userContextKey).(jwt.MapClaims)
	if !ok {
		return 0, errors.New("user claims not found in context")
	}

	raw, ok := claims[jwtClaimUserID]
	if !ok {
		return 0, fmt.Errorf("missing '%s' claim in token", jwtClaimUserID)
	}

	switch v := raw.(type) {
	case float64:
		id := int(v)
		if float64(id) != v || id <= 0 {
			return 0, fmt.Errorf("invalid user id claim: %v", v)
		}
		return id, nil
	case string:
		id, err := strconv.Atoi(v)
		if err != nil || id <= 0 {
			return 0, fmt.Errorf("invalid user id claim: %q", v)
		}
		return id, nil
	default:
		return 0, fmt.Errorf("unsupported type for user id claim: %T", raw)
	}
}

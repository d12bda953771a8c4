package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ActorTokenPayload captures the data available when minting a JWT.
type ActorTokenPayload struct {
	ActorID uuid.UUID
	Role    string
	JTI     string
}

// ActorTokenClaims represents the typed JWT issued to callers.
type ActorTokenClaims struct {
	ActorID uuid.UUID `json:"actor_id"`
	Role    string    `json:"role"`
	jwt.RegisteredClaims
}

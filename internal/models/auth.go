package models

import "github.com/golang-jwt/jwt/v5"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin  UserRole = "ADMIN"
	RoleParent UserRole = "PARENT"
	RoleSystem UserRole = "SYSTEM"
)

// JWTClaims represents the access token payload issued by the identity service.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	FamilyID string   `json:"family_id,omitempty"`
	Role     UserRole `json:"role"`
	jwt.RegisteredClaims
}

// Actor is the authenticated caller as seen by services.
type Actor struct {
	UserID   string
	FamilyID string
	Role     UserRole
}

// CanAccessFamily reports whether the actor may act on a family's children.
func (a Actor) CanAccessFamily(familyID string) bool {
	if a.Role == RoleAdmin {
		return true
	}
	return a.FamilyID != "" && a.FamilyID == familyID
}

// ActorFromClaims converts token claims into an Actor.
func ActorFromClaims(claims *JWTClaims) Actor {
	if claims == nil {
		return Actor{}
	}
	return Actor{UserID: claims.UserID, FamilyID: claims.FamilyID, Role: claims.Role}
}

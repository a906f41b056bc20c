package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/haikarthick/OnlineDoctorConsultation-sub002/internal/models"
)

const (
	// tokenIssuer identifies tokens minted by this API.
	tokenIssuer = "consultation-api"
	// tokenAudience scopes tokens to the consultation platform clients.
	tokenAudience = "consultation-clients"
)

var (
	ErrInvalidToken = errors.New("invalid token")
)

// Claims are the platform's JWT claims: the user identity plus their role
// (veterinarian, client, admin), which gates the consultation endpoints.
type Claims struct {
	UserID uuid.UUID   `json:"user_id"`
	Email  string      `json:"email"`
	Role   models.Role `json:"role"`
	jwt.RegisteredClaims
}

// JWTService mints and validates consultation API tokens (HS256).
type JWTService struct {
	secret      []byte
	expireHours int
}

// NewJWTService creates a JWT service.
func NewJWTService(secret string, expireHours int) *JWTService {
	return &JWTService{
		secret:      []byte(secret),
		expireHours: expireHours,
	}
}

// Generate creates a token for the user. The role must be one of the
// platform roles; anything else never reaches a signed token.
func (s *JWTService) Generate(userID uuid.UUID, email string, role models.Role) (string, error) {
	if !role.Valid() {
		return "", ErrInvalidToken
	}
	claims := Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Audience:  jwt.ClaimStrings{tokenAudience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(s.expireHours) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ID:        uuid.New().String(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Validate parses the token and returns its claims. Tokens from another
// issuer or audience, or carrying a role the platform does not know, are
// rejected the same as a bad signature.
func (s *JWTService) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{},
		func(t *jwt.Token) (interface{}, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || !claims.Role.Valid() {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

package auth

import (
	"time"

	"chat-relay/domain"

	"github.com/golang-jwt/jwt/v5"
)

// CustomClaims defines the structure of the data stored inside the JWT.
// Projects lists the project IDs the identity collaborator has granted
// the user at token issuance time.
type CustomClaims struct {
	UserID      string   `json:"user_id"`
	DisplayName string   `json:"display_name"`
	Projects    []string `json:"projects"`
	jwt.RegisteredClaims
}

// TokenManager signs and validates the opaque bearer tokens presented
// at connection establishment. The secret comes from configuration, a
// stand-in for the external identity collaborator's key material.
type TokenManager struct {
	key      []byte
	issuer   string
	duration time.Duration
}

func NewTokenManager(secret, issuer string, duration time.Duration) *TokenManager {
	return &TokenManager{key: []byte(secret), issuer: issuer, duration: duration}
}

// Generate creates a signed JWT for a specific user.
func (t *TokenManager) Generate(userID, displayName string, projects []string) (string, error) {
	now := time.Now()
	claims := &CustomClaims{
		UserID:      userID,
		DisplayName: displayName,
		Projects:    projects,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(t.duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    t.issuer,
		},
	}

	// HS256: HMAC with SHA256, symmetric key shared with the issuer.
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.key)
}

// Validate parses and validates the signature and expiration of a JWT
// string. A rejected token terminates the connection before any room
// state is created.
func (t *TokenManager) Validate(tokenString string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return t.key, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*CustomClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrSignatureInvalid
}

// GrantedProjects converts the raw claim values to typed project IDs.
func (c *CustomClaims) GrantedProjects() []domain.ProjectID {
	projects := make([]domain.ProjectID, 0, len(c.Projects))
	for _, p := range c.Projects {
		projects = append(projects, domain.ProjectID(p))
	}
	return projects
}

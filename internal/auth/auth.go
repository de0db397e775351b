// Package auth turns bearer tokens into booking sessions.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"mentorship-service/internal/booking"
)

const sessionKey = "session"

var ErrInvalidToken = errors.New("invalid token")

// Claims is the JWT payload: the subject is the user id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator accepts HS256 JWTs signed with the configured secret and,
// for development, static tokens of the form "token:role:userID".
type Authenticator struct {
	secret []byte
	static map[string]booking.Session
}

func New(secret, staticTokens string) (*Authenticator, error) {
	a := &Authenticator{
		secret: []byte(strings.TrimSpace(secret)),
		static: make(map[string]booking.Session),
	}
	for _, entry := range strings.Split(staticTokens, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) != 3 || parts[0] == "" || parts[2] == "" {
			return nil, fmt.Errorf("static token %q: want token:role:userID", entry)
		}
		role := booking.Role(parts[1])
		if !validRole(role) {
			return nil, fmt.Errorf("static token %q: unknown role %q", entry, parts[1])
		}
		a.static[parts[0]] = booking.Session{UserID: parts[2], Role: role}
	}
	return a, nil
}

// Authenticate resolves a raw bearer token.
func (a *Authenticator) Authenticate(tokenStr string) (booking.Session, error) {
	if len(a.secret) > 0 {
		var claims Claims
		_, err := jwt.ParseWithClaims(tokenStr, &claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrTokenMalformed
			}
			return a.secret, nil
		}, jwt.WithLeeway(5*time.Second))
		if err == nil {
			role := booking.Role(claims.Role)
			if claims.Subject == "" || !validRole(role) {
				return booking.Session{}, ErrInvalidToken
			}
			return booking.Session{UserID: claims.Subject, Role: role}, nil
		}
	}

	if sess, ok := a.static[tokenStr]; ok {
		return sess, nil
	}
	return booking.Session{}, ErrInvalidToken
}

// Middleware rejects requests without a valid bearer token and stores the
// session for SessionFrom.
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}
		parts := strings.Fields(auth)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}

		sess, err := a.Authenticate(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(sessionKey, sess)
		c.Next()
	}
}

func SessionFrom(c *gin.Context) (booking.Session, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return booking.Session{}, false
	}
	sess, ok := v.(booking.Session)
	return sess, ok
}

func validRole(r booking.Role) bool {
	return r == booking.RoleMentor || r == booking.RoleMentee
}

package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	TokenTypeUser  = "user"
	TokenTypeAdmin = "admin"

	RoleSuperAdmin = "super_admin"

	PermissionOrders   = "orders"
	PermissionProducts = "products"

	principalKey = "principal"
)

// Principal is the authenticated caller taken from a verified token.
type Principal struct {
	ID          primitive.ObjectID
	Type        string
	Role        string
	Permissions []string
}

func (p Principal) Can(permission string) bool {
	if p.Role == RoleSuperAdmin {
		return true
	}
	for _, granted := range p.Permissions {
		if granted == permission {
			return true
		}
	}
	return false
}

type claims struct {
	PrincipalID string   `json:"id"`
	Type        string   `json:"type"`
	Role        string   `json:"role,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token for p. Login lives in another service; this
// exists for tooling and tests.
func IssueToken(secret string, p Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		PrincipalID: p.ID.Hex(),
		Type:        p.Type,
		Role:        p.Role,
		Permissions: p.Permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString([]byte(secret))
}

func parsePrincipal(header, secret string) (Principal, error) {
	raw := strings.TrimSpace(header)
	if raw == "" {
		return Principal{}, errors.New("missing token")
	}

	parts := strings.Split(raw, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return Principal{}, errors.New("invalid token format")
	}

	var c claims
	token, err := jwt.ParseWithClaims(parts[1], &c, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))
	if err != nil || !token.Valid {
		return Principal{}, errors.New("invalid token")
	}

	id, err := primitive.ObjectIDFromHex(c.PrincipalID)
	if err != nil {
		return Principal{}, errors.New("invalid id claim")
	}
	return Principal{ID: id, Type: c.Type, Role: c.Role, Permissions: c.Permissions}, nil
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}

// AuthGuard accepts only tokens of the given type and stores the principal on
// the gin context.
func AuthGuard(secret, tokenType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		// Browsers cannot set headers on a websocket handshake.
		if header == "" && websocket.IsWebSocketUpgrade(c.Request) {
			if token := c.Query("token"); token != "" {
				header = "Bearer " + token
			}
		}
		p, err := parsePrincipal(header, secret)
		if err != nil {
			zap.L().Debug("token rejected", zap.String("path", c.FullPath()), zap.Error(err))
			abort(c, http.StatusUnauthorized, "unauthorized")
			return
		}
		if p.Type != tokenType {
			abort(c, http.StatusForbidden, "forbidden")
			return
		}
		c.Set(principalKey, p)
		c.Next()
	}
}

func UserAuth(secret string) gin.HandlerFunc {
	return AuthGuard(secret, TokenTypeUser)
}

func AdminAuth(secret string) gin.HandlerFunc {
	return AuthGuard(secret, TokenTypeAdmin)
}

// RequirePermission must run after AdminAuth. super_admin passes every check.
func RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := CurrentPrincipal(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "unauthorized")
			return
		}
		if !p.Can(permission) {
			zap.L().Info("permission denied",
				zap.String("admin_id", p.ID.Hex()),
				zap.String("permission", permission),
			)
			abort(c, http.StatusForbidden, "insufficient permissions")
			return
		}
		c.Next()
	}
}

func CurrentPrincipal(c *gin.Context) (Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	return p, ok
}

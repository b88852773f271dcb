package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"coiportal/internal/model"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const actorKey contextKey = "actor"

// Claims carried by portal tokens
type Claims struct {
	Role model.Role `json:"role"`
	jwt.RegisteredClaims
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	SecretKey string
	// DevHeaders accepts X-User-ID and X-Role instead of a token
	DevHeaders bool
}

// NewJWTConfig creates a new JWT config
func NewJWTConfig(secretKey string, devHeaders bool) *JWTConfig {
	if secretKey == "" {
		secretKey = "default-secret-key-change-in-production" // Default for development
	}
	return &JWTConfig{SecretKey: secretKey, DevHeaders: devHeaders}
}

// Issue signs a token for actor
func (c *JWTConfig) Issue(actor model.Actor, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: actor.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(c.SecretKey))
}

// Parse validates a token and returns its actor
func (c *JWTConfig) Parse(tokenString string) (model.Actor, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(c.SecretKey), nil
	})
	if err != nil || !token.Valid {
		return model.Actor{}, errors.New("invalid token")
	}
	return actorFrom(claims.Subject, claims.Role)
}

func actorFrom(id string, role model.Role) (model.Actor, error) {
	if id == "" {
		return model.Actor{}, errors.New("missing subject")
	}
	switch role {
	case "":
		role = model.RoleUser
	case model.RoleUser, model.RoleManager, model.RoleAdmin:
	default:
		return model.Actor{}, errors.New("unknown role")
	}
	return model.Actor{ID: id, Role: role}, nil
}

// Authenticate resolves the caller of r
func (c *JWTConfig) Authenticate(r *http.Request) (model.Actor, error) {
	if c.DevHeaders {
		if id := r.Header.Get("X-User-ID"); id != "" {
			return actorFrom(id, model.Role(r.Header.Get("X-Role")))
		}
	}

	tokenString := r.URL.Query().Get("token")
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return model.Actor{}, errors.New("invalid authorization header")
		}
		tokenString = parts[1]
	}
	if tokenString == "" {
		return model.Actor{}, errors.New("missing credentials")
	}
	return c.Parse(tokenString)
}

// Middleware creates a JWT authentication middleware
func (c *JWTConfig) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := c.Authenticate(r)
		if err != nil {
			writeUnauthorized(w, err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}

// RequireRole rejects callers whose role is not listed
func RequireRole(roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := GetActor(r.Context())
			for _, role := range roles {
				if actor.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"error":"forbidden","code":"FORBIDDEN","message":"insufficient role"}`))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"unauthorized","code":"UNAUTHORIZED","message":"` + strings.ReplaceAll(msg, `"`, `'`) + `"}`))
}

// WithActor stores actor in ctx
func WithActor(ctx context.Context, actor model.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// GetActor extracts the caller from context
func GetActor(ctx context.Context) model.Actor {
	if actor, ok := ctx.Value(actorKey).(model.Actor); ok {
		return actor
	}
	return model.Actor{}
}

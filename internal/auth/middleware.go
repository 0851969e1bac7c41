package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	apperrors "writehub/internal/errors"
	"writehub/internal/metrics"
	"writehub/internal/model"
)

const (
	userContextKey    = "user"
	failureContextKey = "auth_failure"
)

// Failure reasons, used in log fields and metric labels.
const (
	ReasonMissingToken = "missing_token"
	ReasonInvalidToken = "invalid_token"
	ReasonRevokedToken = "revoked_token"
	ReasonUserNotFound = "user_not_found"
	ReasonLookupFailed = "lookup_failed"
)

var errTokenMissing = errors.New("no token")

// UserLookup resolves a user id to a stored user.
type UserLookup interface {
	GetUser(ctx context.Context, id uuid.UUID) (*model.User, error)
}

// Middleware resolves request identities from session tokens.
type Middleware struct {
	jwt        *JWTService
	tokens     TokenStoreInterface
	users      UserLookup
	cookieName string
	log        logrus.FieldLogger
	metrics    metrics.Recorder
}

// NewMiddleware builds the auth middleware chain.
func NewMiddleware(jwtService *JWTService, tokens TokenStoreInterface, users UserLookup, cookieName string, log logrus.FieldLogger, rec metrics.Recorder) *Middleware {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Middleware{
		jwt:        jwtService,
		tokens:     tokens,
		users:      users,
		cookieName: cookieName,
		log:        log,
		metrics:    rec,
	}
}

// Protect requires a valid token whose user still exists.
func (m *Middleware) Protect() echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:     userContextKey,
		TokenLookup:    m.tokenLookup(),
		ParseTokenFunc: m.resolve,
		ErrorHandler: func(c echo.Context, err error) error {
			reason := m.failureReason(c)
			m.record(c, reason, err)
			switch reason {
			case ReasonUserNotFound:
				return echo.NewHTTPError(http.StatusUnauthorized, "Not authorized, user not found")
			case ReasonMissingToken:
				return echo.NewHTTPError(http.StatusUnauthorized, "Not authorized, no token")
			case ReasonLookupFailed:
				return echo.NewHTTPError(http.StatusInternalServerError, "Server error").SetInternal(err)
			default:
				return echo.NewHTTPError(http.StatusUnauthorized, "Not authorized, token failed")
			}
		},
	})
}

// IsLoggedIn resolves an identity when possible and never blocks the request.
func (m *Middleware) IsLoggedIn() echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:     userContextKey,
		TokenLookup:    m.tokenLookup(),
		ParseTokenFunc: m.resolve,
		ErrorHandler: func(c echo.Context, err error) error {
			if reason := m.failureReason(c); reason != ReasonMissingToken {
				m.record(c, reason, err)
			}
			c.Set(userContextKey, nil)
			return nil
		},
		ContinueOnIgnoredError: true,
	})
}

// Authorize allows the request through only for identities holding one of roles.
// It must run after Protect or IsLoggedIn.
func Authorize(roles ...model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, ok := CurrentUser(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "Not authorized")
			}
			if !user.HasRole(roles...) {
				return echo.NewHTTPError(http.StatusForbidden,
					fmt.Sprintf("User role %s is not authorized to access this route", user.Role))
			}
			return next(c)
		}
	}
}

// CurrentUser returns the identity resolved for this request, if any.
func CurrentUser(c echo.Context) (*model.User, bool) {
	user, ok := c.Get(userContextKey).(*model.User)
	return user, ok && user != nil
}

// ExtractToken returns the candidate token: the session cookie first, then
// the bearer header. Empty when neither is present.
func (m *Middleware) ExtractToken(c echo.Context) string {
	if cookie, err := c.Cookie(m.cookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

func (m *Middleware) tokenLookup() string {
	return "cookie:" + m.cookieName + ",header:" + echo.HeaderAuthorization + ":Bearer "
}

// resolve turns a raw token into the stored user. The returned value is what
// echo-jwt stores under the context key.
func (m *Middleware) resolve(c echo.Context, raw string) (interface{}, error) {
	if raw == "" {
		return nil, errTokenMissing
	}

	claims, err := m.jwt.Verify(raw)
	if err != nil {
		c.Set(failureContextKey, ReasonInvalidToken)
		return nil, err
	}

	ctx := c.Request().Context()
	if revoked, _ := m.tokens.IsRevoked(ctx, claims.ID); revoked {
		c.Set(failureContextKey, ReasonRevokedToken)
		return nil, ErrInvalidToken
	}

	userID, _ := claims.UserUUID()
	user, err := m.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			c.Set(failureContextKey, ReasonUserNotFound)
		} else {
			c.Set(failureContextKey, ReasonLookupFailed)
		}
		return nil, err
	}
	return user, nil
}

// failureReason reports why resolve failed. When resolve never recorded a
// reason, no usable token was presented.
func (m *Middleware) failureReason(c echo.Context) string {
	if reason, ok := c.Get(failureContextKey).(string); ok && reason != "" {
		return reason
	}
	return ReasonMissingToken
}

func (m *Middleware) record(c echo.Context, reason string, err error) {
	m.metrics.RecordAuthFailure(reason)
	if m.log == nil {
		return
	}
	entry := m.log.WithFields(logrus.Fields{
		"reason": reason,
		"path":   c.Path(),
	}).WithError(err)
	if reason == ReasonLookupFailed {
		entry.Warn("auth middleware could not load user")
		return
	}
	entry.Debug("auth middleware rejected credential")
}

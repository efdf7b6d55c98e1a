package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"slices"

	"hotel/config"
	"hotel/infras/jwt"
	"hotel/infras/otel"
	"hotel/permissions"
	"hotel/shared/constant"
	"hotel/shared/failure"
	"hotel/transport/http/response"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

type contextKey string

// internalCallKey marks requests that carried a valid API key. They bypass staff
// authentication, role and branch checks.
const internalCallKey contextKey = "internal_call"

// Auth authenticates the caller, either as staff through a bearer token or as an
// internal service through the API key header.
type Auth interface {
	Auth(http.Handler) http.Handler
	APIKey(http.Handler) http.Handler
}

// Role authorizes an authenticated staff member for the matched route.
type Role interface {
	RBAC(http.Handler) http.Handler
	BranchAccess(http.Handler) http.Handler
}

type AuthRole interface {
	Auth
	Role
}

type authRoleImpl struct {
	jwtService jwt.JWT
	otel       otel.Otel
	permission *permissions.PermissionData
	cfg        *config.Config
}

func NewAuthRoleMiddleware(jwtService jwt.JWT, otel otel.Otel, permissions *permissions.PermissionData, cfg *config.Config) AuthRole {
	return &authRoleImpl{
		jwtService: jwtService,
		otel:       otel,
		permission: permissions,
		cfg:        cfg,
	}
}

func isInternalCall(ctx context.Context) bool {
	internal, _ := ctx.Value(internalCallKey).(bool)

	return internal
}

// reject answers the request with err and records it on the scope.
func reject(writer http.ResponseWriter, scope otel.Scope, err error, attrs map[string]any) {
	scope.TraceError(err)

	if len(attrs) > 0 {
		scope.SetAttributes(attrs)
	}

	response.WithError(writer, err)
}

func tokenFailure(err error) error {
	switch {
	case errors.Is(err, jwt.ErrExpiredToken):
		return failure.Unauthorized("Token has expired")
	case errors.Is(err, jwt.ErrInvalidToken):
		return failure.Unauthorized("Invalid token")
	default:
		return failure.Unauthorized("Token validation failed")
	}
}

// Auth validates the staff access token and puts its claims on the request context.
// Routes the permission table marks as public pass through untouched.
func (m *authRoleImpl) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		ctx := request.Context()
		_, scope := m.otel.NewScope(ctx, constant.OtelHandlerScopeName, "auth.middleware")
		defer scope.End()

		path := routePattern(request)

		if isInternalCall(ctx) || (m.permission != nil && m.permission.FindPermissions(path, request.Method).Skip) {
			next.ServeHTTP(writer, request)

			return
		}

		scope.SetAttributes(map[string]any{
			"middleware.type": "auth",
			"http.path":       path,
			"http.method":     request.Method,
		})

		token, err := jwt.ExtractTokenFromHeader(request.Header.Get(constant.RequestHeaderAuthorization))
		if err != nil {
			reject(writer, scope, failure.Unauthorized(err.Error()), nil)

			return
		}

		claims, err := m.jwtService.ValidateToken(token)
		if err != nil {
			reject(writer, scope, tokenFailure(err), nil)

			return
		}

		if claims.StaffID == "" || claims.Role == "" {
			log.Error().Str("staffID", claims.StaffID).Str("role", claims.Role).Msg("JWT claims are incomplete")
			reject(writer, scope, failure.Unauthorized("Invalid token claims"), nil)

			return
		}

		ctx = context.WithValue(ctx, constant.ContextKeyUserID, claims.StaffID)
		ctx = context.WithValue(ctx, constant.ContextKeyUserRole, claims.Role)
		ctx = context.WithValue(ctx, constant.ContextKeyBranch, claims.Branch)
		ctx = context.WithValue(ctx, constant.ContextKeyTokenID, claims.ID)

		next.ServeHTTP(writer, request.WithContext(ctx))
	})
}

// RBAC checks the caller's role against the roles allowed for the matched route.
// It runs after Auth. Without a permission table every request is refused.
func (m *authRoleImpl) RBAC(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		ctx := request.Context()
		_, scope := m.otel.NewScope(ctx, constant.OtelHandlerScopeName, "rbac.middleware")
		defer scope.End()

		if isInternalCall(ctx) {
			next.ServeHTTP(writer, request)

			return
		}

		if m.permission == nil {
			reject(writer, scope, failure.ForbiddenError, map[string]any{"reason": "no_permission_table"})

			return
		}

		route := m.permission.FindPermissions(routePattern(request), request.Method)
		if m.permission.Skip || route.Skip {
			next.ServeHTTP(writer, request)

			return
		}

		role, _ := ctx.Value(constant.ContextKeyUserRole).(string)

		if len(route.Permissions) > 0 && !slices.Contains(route.Permissions, role) {
			reject(writer, scope, failure.ForbiddenError, map[string]any{
				"user_role":     role,
				"allowed_roles": route.Permissions,
				"reason":        "role_not_allowed",
			})

			return
		}

		next.ServeHTTP(writer, request)
	})
}

// BranchAccess keeps staff inside the branch named by the route's slug. Admins and
// staff tokens without a branch may act on every branch.
func (m *authRoleImpl) BranchAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		ctx := request.Context()
		_, scope := m.otel.NewScope(ctx, constant.OtelHandlerScopeName, "branch_access.middleware")
		defer scope.End()

		role, _ := ctx.Value(constant.ContextKeyUserRole).(string)
		branch, _ := ctx.Value(constant.ContextKeyBranch).(string)
		slug := chi.URLParam(request, constant.RequestParamSlug)

		if isInternalCall(ctx) || role == constant.RoleAdmin || branch == "" || branch == slug {
			next.ServeHTTP(writer, request)

			return
		}

		reject(writer, scope, failure.ForbiddenError, map[string]any{
			"staff_branch": branch,
			"branch":       slug,
			"reason":       "branch_not_allowed",
		})
	})
}

// APIKey lets internal services call staff routes with the shared key. A request
// without the header continues as a client call; a wrong key is refused.
func (m *authRoleImpl) APIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		ctx := request.Context()
		_, scope := m.otel.NewScope(ctx, constant.OtelHandlerScopeName, "api_key.middleware")
		defer scope.End()

		key := request.Header.Get(constant.RequestHeaderAPIKey)
		if key == "" {
			scope.SetAttribute("http.source", "client")
			next.ServeHTTP(writer, request.WithContext(context.WithValue(ctx, internalCallKey, false)))

			return
		}

		scope.SetAttribute("http.source", "internal")

		expected := m.cfg.App.APIKey
		if expected == "" || subtle.ConstantTimeCompare([]byte(key), []byte(expected)) != 1 {
			reject(writer, scope, failure.ForbiddenError, map[string]any{"reason": "invalid_api_key"})

			return
		}

		next.ServeHTTP(writer, request.WithContext(context.WithValue(ctx, internalCallKey, true)))
	})
}

// routePattern resolves the request to the chi pattern the permissions file is keyed by.
func routePattern(request *http.Request) string {
	rctx := chi.RouteContext(request.Context())
	if rctx == nil {
		return request.URL.Path
	}

	return rctx.Routes.Find(chi.NewRouteContext(), request.Method, request.URL.Path)
}

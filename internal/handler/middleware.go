package handler

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/boddenberg/pj-gestao-bfa-go/internal/domain"
	"github.com/boddenberg/pj-gestao-bfa-go/internal/service"
)

type contextKey string

const (
	tenantKey contextKey = "tenant"
	claimsKey contextKey = "claims"
)

// filialHeader selects the branch when the token is company-wide.
const filialHeader = "X-Filial-ID"

// JWTAuthMiddleware validates Bearer tokens and injects the tenant scope
// into the context. A token without filial_id may act on any branch of its
// company, chosen per request with the X-Filial-ID header.
func JWTAuthMiddleware(authSvc *service.AuthService, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("auth: missing token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "Token de autenticação não fornecido")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				logger.Warn("auth: invalid token format",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "Formato de token inválido")
				return
			}

			claims, err := authSvc.ValidateAccessToken(parts[1])
			if err != nil {
				logger.Warn("auth: invalid or expired token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
					zap.Error(err),
				)
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}

			tenant := domain.Tenant{EmpresaID: claims.EmpresaID, FilialID: claims.FilialID}
			if requested := strings.TrimSpace(r.Header.Get(filialHeader)); requested != "" {
				if claims.FilialID != "" && requested != claims.FilialID {
					logger.Warn("auth: branch outside token scope",
						zap.String("user_id", claims.Sub),
						zap.String("filial_id", requested),
					)
					writeError(w, http.StatusForbidden, "Filial não permitida para este usuário")
					return
				}
				tenant.FilialID = requested
			}

			ctx := context.WithValue(r.Context(), tenantKey, tenant)
			ctx = context.WithValue(ctx, claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TenantFromContext returns the tenant scope of the authenticated request.
// The zero Tenant is returned for anonymous requests.
func TenantFromContext(ctx context.Context) domain.Tenant {
	t, _ := ctx.Value(tenantKey).(domain.Tenant)
	return t
}

// ClaimsFromContext returns the validated token claims, if any.
func ClaimsFromContext(ctx context.Context) *service.JWTClaims {
	c, _ := ctx.Value(claimsKey).(*service.JWTClaims)
	return c
}

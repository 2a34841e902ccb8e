package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/boddenberg/pj-gestao-bfa-go/internal/domain"
	"github.com/boddenberg/pj-gestao-bfa-go/internal/service"
)

// ============================================================
// Autenticação
// ============================================================

func authLoginHandler(authSvc *service.AuthService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auth/login")
		defer span.End()

		var req domain.LoginRequest
		if !decodeBody(w, r, &req) {
			return
		}

		resp, err := authSvc.Login(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

// authMeHandler echoes the scope of the current token.
func authMeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := ClaimsFromContext(r.Context())
		if claims == nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		tenant := TenantFromContext(r.Context())
		writeJSON(w, http.StatusOK, map[string]string{
			"userId":    claims.Sub,
			"empresaId": tenant.EmpresaID,
			"filialId":  tenant.FilialID,
			"papel":     claims.Papel,
		})
	}
}

package api

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

const authRealm = `Basic realm="vcapture API"`

var (
	errNoCredentials  = errors.New("authentication required")
	errBadCredentials = errors.New("invalid credentials format")
)

// requestCredentials extracts user and password from the Authorization
// header or, for EventSource clients that cannot set headers, from a
// base64 "auth" query parameter.
func requestCredentials(ctx huma.Context) (string, string, error) {
	encoded := ""
	if header := ctx.Header("Authorization"); header != "" {
		scheme, value, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Basic") {
			return "", "", errBadCredentials
		}
		encoded = value
	} else {
		encoded = ctx.Query("auth")
	}
	if encoded == "" {
		return "", "", errNoCredentials
	}

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", "", errBadCredentials
	}
	user, pass, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return "", "", errBadCredentials
	}
	return user, pass, nil
}

func equalSecret(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// basicAuthMiddleware rejects requests to secured operations that do not
// carry the configured credentials.
func (s *Server) basicAuthMiddleware(username, password string) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if op := ctx.Operation(); op != nil && len(op.Security) == 0 {
			next(ctx)
			return
		}

		user, pass, err := requestCredentials(ctx)
		if err == nil && !(equalSecret(user, username) && equalSecret(pass, password)) {
			err = errors.New("invalid credentials")
		}
		if err != nil {
			ctx.SetHeader("WWW-Authenticate", authRealm)
			huma.WriteErr(s.api, ctx, http.StatusUnauthorized, err.Error())
			return
		}
		next(ctx)
	}
}

package middleware

import (
	"context"
	"net/http"
	"strings"

	"google.golang.org/api/idtoken"

	"github.com/angelmondragon/ctp-segment-connector/api/responses"
	pkgerrors "github.com/angelmondragon/ctp-segment-connector/pkg/errors"
	"github.com/angelmondragon/ctp-segment-connector/pkg/logger"
)

// TokenValidator checks a Google-signed OIDC token against an audience.
type TokenValidator func(ctx context.Context, token, audience string) (*idtoken.Payload, error)

// PushAuth verifies the OIDC token Pub/Sub attaches to authenticated push requests.
// An empty audience disables the check. A nil validator uses idtoken.Validate.
func PushAuth(audience string, validate TokenValidator, logg *logger.Logger) func(http.Handler) http.Handler {
	audience = strings.TrimSpace(audience)
	if validate == nil {
		validate = idtoken.Validate
	}
	return func(next http.Handler) http.Handler {
		if audience == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing bearer token"))
				return
			}

			payload, err := validate(ctx, token, audience)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid push token"))
				return
			}

			if logg != nil && payload != nil {
				if email, ok := payload.Claims["email"].(string); ok {
					ctx = logg.WithField(ctx, "push_principal", email)
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

package chi

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docsearch/internal/domain"
	"github.com/kailas-cloud/docsearch/internal/logger"
)

// UserIDHeader carries the caller identity. It is trusted as authenticated upstream.
const UserIDHeader = "user_id"

type userIDKey struct{}

// RequireUserID rejects requests without a non-blank user_id header and
// stores the trimmed value in the request context.
func RequireUserID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := strings.TrimSpace(r.Header.Get(UserIDHeader))
			if userID == "" {
				writeError(w, http.StatusBadRequest, CodeMissingUserID, domain.ErrMissingUserID.Error())
				return
			}
			ctx := context.WithValue(r.Context(), userIDKey{}, userID)
			ctx = logger.With(ctx, zap.String("user_id", userID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext returns the identity stored by RequireUserID.
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey{}).(string)
	return id
}

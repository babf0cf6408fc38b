package middleware

import (
	"net/http"

	"github.com/angelmondragon/gearstage-backend/api/validators"
	"github.com/angelmondragon/gearstage-backend/pkg/logger"
)

// ActorHeader names the caller recorded as a site's creator. The API has no login; the
// header is informational only.
const ActorHeader = "X-Actor"

const maxActorLength = 120

// Actor copies the X-Actor header into the request context and log fields.
func Actor(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := validators.SanitizeString(r.Header.Get(ActorHeader), maxActorLength)
			if actor == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := WithActor(r.Context(), actor)
			if logg != nil {
				ctx = logg.WithActor(ctx, actor)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

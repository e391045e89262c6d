package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	// lastSeenUpdateThreshold is the minimum time between lastSeen updates for a user
	lastSeenUpdateThreshold = 5 * time.Minute
)

// lastSeenCache holds the last update time for each user to implement throttling
var lastSeenCache = sync.Map{}

// lastSeenMiddleware updates the user's lastSeen timestamp for authenticated requests.
// It uses a 5-minute throttle to reduce database load and performs updates asynchronously.
func (a *API) lastSeenMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("X-User-Id")
		if userID != "" {
			now := time.Now()
			shouldUpdate := true
			if prev, ok := lastSeenCache.Load(userID); ok {
				if lastUpdate, ok := prev.(time.Time); ok && now.Sub(lastUpdate) < lastSeenUpdateThreshold {
					shouldUpdate = false
				}
			}

			if shouldUpdate {
				// Store before updating so concurrent requests don't pile up.
				lastSeenCache.Store(userID, now)

				go func(uid string, timestamp time.Time) {
					ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()

					objID, err := primitive.ObjectIDFromHex(uid)
					if err != nil {
						log.Error().Err(err).Str("userId", uid).Msg("failed to parse user ID for lastSeen update")
						return
					}
					_, err = a.database.UserService.UpdateUser(ctx, objID, bson.M{"lastSeen": timestamp})
					if err != nil {
						log.Error().Err(err).Str("userId", uid).Msg("failed to update lastSeen timestamp")
						// Retry on the next request.
						lastSeenCache.Delete(uid)
					}
				}(userID, now)
			}
		}

		next.ServeHTTP(w, r)
	})
}

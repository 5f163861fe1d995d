package middleware

import (
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	stdlib "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/hongminglow/timecard-be/internal/http/respond"
)

// NewIPRateLimiter returns middleware that limits by client IP.
// rateFormatted uses the limiter syntax ("20-M", "1000-H"); empty disables limiting.
// When redisClient is non-nil the counters are shared across instances.
func NewIPRateLimiter(rateFormatted string, redisClient *redis.Client) (func(http.Handler) http.Handler, error) {
	if rateFormatted == "" {
		return noopMiddleware, nil
	}
	rate, err := limiter.NewRateFromFormatted(rateFormatted)
	if err != nil {
		return nil, fmt.Errorf("parse rate %q: %w", rateFormatted, err)
	}

	var store limiter.Store
	if redisClient != nil {
		store, err = sredis.NewStoreWithOptions(redisClient, limiter.StoreOptions{Prefix: "timecard_auth_limit"})
		if err != nil {
			return nil, fmt.Errorf("create redis limiter store: %w", err)
		}
	} else {
		store = memory.NewStore()
	}

	instance := limiter.New(store, rate)
	mw := stdlib.NewMiddleware(instance, stdlib.WithLimitReachedHandler(limitReached))
	return mw.Handler, nil
}

func limitReached(w http.ResponseWriter, r *http.Request) {
	respond.Error(w, http.StatusTooManyRequests, respond.CodeRateLimited, "rate limit exceeded")
}

func noopMiddleware(next http.Handler) http.Handler {
	return next
}

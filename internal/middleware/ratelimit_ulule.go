package middleware

import (
	"net/http"

	"github.com/apocalipssi/docanalyzer/internal/request"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	stdlibmw "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
)

const defaultRatelimitRate = "5-S"

// AuthRateLimit returns middleware that uses ulule/limiter with Redis as
// the shared counter store. Uses request.ClientIP for the limit key.
// Intended for the auth routes, which are the brute-force target.
func AuthRateLimit(redisClient *redis.Client, rateStr string) (func(http.Handler) http.Handler, error) {
	if rateStr == "" {
		rateStr = defaultRatelimitRate
	}

	rate, err := limiter.NewRateFromFormatted(rateStr)
	if err != nil {
		return nil, err
	}

	store, err := redisstore.NewStoreWithOptions(redisClient, limiter.StoreOptions{
		Prefix: "docanalyzer:ratelimit",
	})
	if err != nil {
		return nil, err
	}

	instance := limiter.New(store, rate)
	mw := stdlibmw.NewMiddleware(instance,
		stdlibmw.WithKeyGetter(func(r *http.Request) string {
			return request.ClientIP(r)
		}),
	)

	return mw.Handler, nil
}

package debouncexredis

import "github.com/Abraxas-365/debouncex/pkg/errx"

var redisErrors = errx.NewRegistry("DEBOUNCE_REDIS")

var (
	ErrMGet        = redisErrors.Register("MGET", errx.TypeExternal, 0, "Redis batch get failed")
	ErrUnexpected  = redisErrors.Register("UNEXPECTED_VALUE", errx.TypeInternal, 0, "Redis returned a value of an unexpected type")
	ErrKeyNotFound = redisErrors.Register("NOT_FOUND", errx.TypeNotFound, 0, "Key not found in Redis")
)

package debouncexredis

var (
	Dedupe   = dedupe
	ToValues = toValues
)

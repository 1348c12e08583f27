package debouncexpg

func Arrange[V any](keys []string, rows []V, keyOf func(V) string) []*V {
	return arrange(keys, rows, keyOf)
}

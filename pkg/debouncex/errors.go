package debouncex

import "github.com/Abraxas-365/debouncex/pkg/errx"

var debounceErrors = errx.NewRegistry("DEBOUNCE")

var (
	ErrProducerPanic = debounceErrors.Register("PRODUCER_PANIC", errx.TypeInternal, 0, "Debounced function panicked")
	ErrResultCount   = debounceErrors.Register("RESULT_COUNT", errx.TypeInternal, 0, "Batch function returned a result count different from its input")
)

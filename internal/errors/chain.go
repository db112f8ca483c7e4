package errors

import (
	"fmt"
	"strings"
)

// Chain flattens err into its causal chain, outermost layer first.
// Each element is the context that layer added, not the accumulated
// message, so operators see one sentence per layer.
func Chain(err error) []string {
	var chain []string
	for err != nil {
		if app, ok := err.(*appError); ok {
			chain = append(chain, app.selfMessage())
		} else {
			chain = append(chain, err.Error())
			// Foreign errors already render their wrapped causes
			// inline; stop here to avoid duplicated tails.
			break
		}
		err = Unwrap(err)
	}

	return chain
}

// FormatChain renders the numbered cause chain sent to monitor
// clients when a snapshot read fails.
func FormatChain(err error) string {
	var b strings.Builder
	b.WriteString("Error chain:\n")
	for i, msg := range Chain(err) {
		fmt.Fprintf(&b, "[%d]: %s\n", i, msg)
	}

	return b.String()
}

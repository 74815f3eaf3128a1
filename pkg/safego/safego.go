package safego

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/televault/televault/internal/domain"
)

// Execute runs fn in a new goroutine, recovering any panic and
// logging it with the given name and a stack trace. Background
// refresh tasks are fire-and-forget; a panic in one must never take
// the process down.
func Execute(ctx context.Context, logger domain.Logger, goroutineName string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logCtx := ctx
				if ctx.Err() != nil {
					logCtx = context.Background()
				}
				logger.Error(logCtx, fmt.Sprintf("Panic recovered in goroutine: %s", goroutineName),
					"panic_info", fmt.Sprintf("%v", r),
					"stacktrace", string(debug.Stack()),
				)
			}
		}()
		fn()
	}()
}

package repository

import "context"

// Test-only bridge so external tests (package repository_test) can reach
// unexported helpers without an import cycle through infrastructure/memory.
var NewDeferredInvalidation = newDeferredInvalidation

func (d *deferredInvalidation) Keys() []string { return d.keys() }

func (d *deferredInvalidation) Flush(ctx context.Context) error { return d.flush(ctx) }

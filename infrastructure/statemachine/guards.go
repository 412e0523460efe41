package statemachine

import (
	"github.com/felixgeelhaar/statekit"
)

// guardHasNext allows ADVANCE only when the next step is registered.
// Guards receive the context by value, so the guard receives *Context directly.
func guardHasNext(ctx *Context, _ statekit.Event) bool {
	if ctx == nil || ctx.Agent == nil {
		return false
	}
	next, ok := ctx.Agent.PeekNext()
	if !ok {
		return false
	}
	return ctx.Registry == nil || ctx.Registry.Has(next)
}

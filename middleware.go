package instructagent

import (
	"context"
	"fmt"
	"log"
	"time"
)

// ──────────────────────────────────────────────
// Middleware — onion pipeline around agent turns
// ──────────────────────────────────────────────
//
// Each middleware wraps the next layer and may short-circuit by returning
// without calling next. The first registered middleware runs outermost.
//
// Usage:
//
//	agent.Use(func(next TurnFunc) TurnFunc {
//	    return func(tc *TurnContext) (*TurnResult, error) {
//	        log.Println("before")
//	        result, err := next(tc)
//	        log.Println("after")
//	        return result, err
//	    }
//	})

// TurnContext flows through the pipeline for one user turn.
type TurnContext struct {
	Ctx       context.Context
	Agent     *InstructAgent
	SessionID string
	Input     string
	// Extra is an arbitrary map for middleware to attach data.
	Extra map[string]interface{}
}

// TurnFunc produces the turn result for a context.
type TurnFunc func(tc *TurnContext) (*TurnResult, error)

// TurnMiddleware wraps a TurnFunc.
type TurnMiddleware func(next TurnFunc) TurnFunc

// MiddlewarePipeline builds and executes an onion-model call chain.
type MiddlewarePipeline struct {
	middlewares []TurnMiddleware
}

// NewMiddlewarePipeline creates an empty pipeline.
func NewMiddlewarePipeline() *MiddlewarePipeline {
	return &MiddlewarePipeline{}
}

// Use appends a middleware to the pipeline.
func (p *MiddlewarePipeline) Use(mw TurnMiddleware) {
	p.middlewares = append(p.middlewares, mw)
}

// Len returns the number of registered middlewares.
func (p *MiddlewarePipeline) Len() int {
	return len(p.middlewares)
}

// Execute runs the full pipeline ending with core.
func (p *MiddlewarePipeline) Execute(tc *TurnContext, core TurnFunc) (*TurnResult, error) {
	if tc.Extra == nil {
		tc.Extra = make(map[string]interface{})
	}
	chain := core
	for i := len(p.middlewares) - 1; i >= 0; i-- {
		chain = p.middlewares[i](chain)
	}
	return chain(tc)
}

// RecoveryMiddleware converts a panicking turn (a misbehaving Lua handler,
// typically) into an error instead of a crash.
func RecoveryMiddleware() TurnMiddleware {
	return func(next TurnFunc) TurnFunc {
		return func(tc *TurnContext) (result *TurnResult, err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("[Middleware] Recovered panic in turn for session %s: %v", tc.SessionID, r)
					result = nil
					err = fmt.Errorf("turn panicked: %v", r)
				}
			}()
			return next(tc)
		}
	}
}

// TurnLogMiddleware logs one line per completed turn.
func TurnLogMiddleware() TurnMiddleware {
	return func(next TurnFunc) TurnFunc {
		return func(tc *TurnContext) (*TurnResult, error) {
			start := time.Now()
			result, err := next(tc)
			elapsed := time.Since(start).Round(time.Millisecond)
			if err != nil {
				log.Printf("[Middleware] Turn session=%s failed after %s: %v", tc.SessionID, elapsed, err)
				return result, err
			}
			log.Printf("[Middleware] Turn session=%s done in %s (%d iterations, %d tool calls, %s)",
				tc.SessionID, elapsed, result.TotalTurns, result.ToolCallsCount, result.StoppedReason)
			return result, err
		}
	}
}

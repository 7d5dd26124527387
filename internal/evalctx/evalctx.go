// Copyright 2024 Mike Carlton
// Released under terms of the MIT License:
//   http://www.opensource.org/licenses/mit-license.php

// Package evalctx defines the evaluation context shared by the evaluator
// and builtin packages. It lives apart from both to avoid an import cycle:
// evaluator needs builtin (to dispatch built-in calls) and builtin needs
// the context shape (to read previous results, currency rates, etc.)
// without needing to call back into evaluator except through the narrow
// Apply function type.
package evalctx

import (
	"fmt"
	"time"

	"calcnote/internal/datetime"
	"calcnote/internal/dimension"
	"calcnote/internal/value"
)

// MaxRecursion bounds user function call depth.
const MaxRecursion = 1024

// Context carries everything evaluation needs beyond the AST node itself.
type Context struct {
	Vars value.Environment

	// PreviousResults holds, in order, the results of the contiguous run of
	// evaluated lines immediately before this one, for the aggregate
	// functions (total/sum/average/agg). The `prev` identifier falls back to
	// its last entry when no `prev` variable is in scope.
	PreviousResults []value.Value

	Rates      dimension.RateFunc
	SystemLoc  *time.Location
	Clock      datetime.TimeSource
	Debug      bool
	TraceSteps []string

	// Env, Stdin and CliArg are host-supplied inputs exposed to notebook
	// expressions via the env()/arg() builtins.
	Env     map[string]string
	Stdin   string
	CliArg  string

	depth int
}

// Child returns a copy of ctx suitable for entering a nested call: same
// globals, independent recursion counter tracking, fresh local Vars.
func (c *Context) Child(vars value.Environment) (*Context, error) {
	if c.depth+1 > MaxRecursionFor(c) {
		return nil, ErrMaxRecursion
	}
	child := &Context{
		Vars:            vars,
		PreviousResults: c.PreviousResults,
		Rates:           c.Rates,
		SystemLoc:       c.SystemLoc,
		Clock:           c.Clock,
		Debug:           c.Debug,
		Env:             c.Env,
		Stdin:           c.Stdin,
		CliArg:          c.CliArg,
		depth:           c.depth + 1,
	}
	return child, nil
}

// MaxRecursionFor exists so tests can shrink the limit; production code
// always gets MaxRecursion.
var MaxRecursionFor = func(c *Context) int { return MaxRecursion }

// ErrMaxRecursion is returned by Child when the recursion cap is exceeded.
var ErrMaxRecursion = recursionError{}

type recursionError struct{}

func (recursionError) Error() string { return "maximum recursion depth exceeded" }

// Trace appends a debug trace line when Debug is enabled (the --trace/--debug
// CLI flags).
func (c *Context) Trace(format string, args ...interface{}) {
	if !c.Debug {
		return
	}
	c.TraceSteps = append(c.TraceSteps, fmt.Sprintf(format, args...))
}

// Copyright 2024 Mike Carlton
// Released under terms of the MIT License:
//   http://www.opensource.org/licenses/mit-license.php

// Package notebook implements the incremental recomputation engine: an
// ordered list of lines, each evaluated in order against a cumulative
// environment, with recomputation triggered from the earliest changed line
// and propagated forward until the end of the line list.
package notebook

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"calcnote/internal/calcerr"
	"calcnote/internal/datetime"
	"calcnote/internal/dimension"
	"calcnote/internal/evalctx"
	"calcnote/internal/evaluator"
	"calcnote/internal/parser"
	"calcnote/internal/value"
)

// LineState is one notebook line's stored content and last computation.
type LineState struct {
	ID                string
	Text              string
	Result            value.Value
	HasResult         bool
	IsComment         bool
	IsMarkdown        bool
	Error             string
	AssignedVariables value.Environment
}

// Engine owns the ordered line list and the cumulative environment that
// results from replaying every line's assignments in order.
type Engine struct {
	lines []LineState
	env   value.Environment

	Rates     dimension.RateFunc
	SystemLoc *time.Location
	Clock     datetime.TimeSource
	Debug     bool
	HostEnv   map[string]string
	Stdin     string
	CliArg    string
}

// New constructs an Engine with a single empty line: a notebook is never
// truly empty, so there's always at least one line to edit.
func New() *Engine {
	e := &Engine{
		lines: []LineState{{ID: newID(), Text: "", IsComment: true}},
		env:   value.Environment{},
		Clock: datetime.RealClock(),
	}
	return e
}

func newID() string {
	return uuid.NewString()
}

// GetLines returns a read-only snapshot of the line list.
func (e *Engine) GetLines() []LineState {
	out := make([]LineState, len(e.lines))
	copy(out, e.lines)
	return out
}

// GetVariables returns a read-only snapshot of the cumulative environment.
func (e *Engine) GetVariables() value.Environment {
	return e.env.Clone()
}

// UpdateLine overwrites line i's text and recomputes from i if the text
// actually changed.
func (e *Engine) UpdateLine(i int, text string) error {
	if i < 0 || i >= len(e.lines) {
		return calcerr.New(calcerr.KindUnexpectedToken, "line index %d out of range", i)
	}
	if e.lines[i].Text == text {
		return nil
	}
	e.lines[i].Text = text
	e.recomputeFrom(i)
	return nil
}

// LineEdit is one entry of a batch UpdateLines call.
type LineEdit struct {
	Index int
	Text  string
}

// UpdateLines applies a batch of edits and recomputes once from the
// smallest changed index.
func (e *Engine) UpdateLines(edits []LineEdit) error {
	smallest := -1
	for _, ed := range edits {
		if ed.Index < 0 || ed.Index >= len(e.lines) {
			return calcerr.New(calcerr.KindUnexpectedToken, "line index %d out of range", ed.Index)
		}
		if e.lines[ed.Index].Text == ed.Text {
			continue
		}
		e.lines[ed.Index].Text = ed.Text
		if smallest == -1 || ed.Index < smallest {
			smallest = ed.Index
		}
	}
	if smallest >= 0 {
		e.recomputeFrom(smallest)
	}
	return nil
}

// InsertLine inserts a new empty line at i (clamped to the valid range) and
// recomputes from max(0, i).
func (e *Engine) InsertLine(i int) {
	if i < 0 {
		i = 0
	}
	if i > len(e.lines) {
		i = len(e.lines)
	}
	e.lines = append(e.lines, LineState{})
	copy(e.lines[i+1:], e.lines[i:])
	e.lines[i] = LineState{ID: newID(), Text: "", IsComment: true}
	e.recomputeFrom(i)
}

// DeleteLine removes line i, maintaining at least one line, and recomputes
// from max(0, i).
func (e *Engine) DeleteLine(i int) error {
	if i < 0 || i >= len(e.lines) {
		return calcerr.New(calcerr.KindUnexpectedToken, "line index %d out of range", i)
	}
	if len(e.lines) == 1 {
		e.lines[0] = LineState{ID: newID(), Text: "", IsComment: true}
		e.recomputeFrom(0)
		return nil
	}
	e.lines = append(e.lines[:i], e.lines[i+1:]...)
	e.recomputeFrom(i)
	return nil
}

// recomputeFrom replays lines [0,k) to rebuild the cumulative environment
// and the previousResults/prev chain entering line k, then re-evaluates
// every line from k onward in order, each against its own deep-cloned view
// of the variables accumulated so far.
func (e *Engine) recomputeFrom(k int) {
	cumulative := value.Environment{}
	for j := 0; j < k; j++ {
		for name, v := range e.lines[j].AssignedVariables {
			cumulative[name] = value.DeepClone(v)
		}
	}

	var previousResults []value.Value
	// seed previousResults with the contiguous block of results immediately
	// preceding line k; markdown placeholders are skipped, comments end it.
	for j := k - 1; j >= 0; j-- {
		if e.lines[j].IsMarkdown {
			continue
		}
		if e.lines[j].IsComment || !e.lines[j].HasResult {
			break
		}
		previousResults = append([]value.Value{e.lines[j].Result}, previousResults...)
	}
	var prev value.Value
	havePrev := len(previousResults) > 0
	if havePrev {
		prev = previousResults[len(previousResults)-1]
	} else {
		for j := k - 1; j >= 0; j-- {
			if e.lines[j].HasResult && !e.lines[j].IsComment && !e.lines[j].IsMarkdown {
				prev = e.lines[j].Result
				havePrev = true
				break
			}
		}
	}

	for j := k; j < len(e.lines); j++ {
		line := &e.lines[j]
		trimmed := strings.TrimSpace(line.Text)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			*line = LineState{ID: line.ID, Text: line.Text, IsComment: true}
			previousResults = nil
			continue
		}

		perLineVars := cumulative.Clone()
		if havePrev {
			perLineVars["prev"] = value.DeepClone(prev)
		}

		node, err := parser.ParseLine(trimmed)
		if err == nil {
			entering := cumulative.Clone()
			ctx := &evalctx.Context{
				Vars:            perLineVars,
				PreviousResults: previousResults,
				Rates:           e.Rates,
				SystemLoc:       e.resolveSystemLoc(),
				Clock:           e.clockOrDefault(),
				Debug:           e.Debug,
				Env:             e.HostEnv,
				Stdin:           e.Stdin,
				CliArg:          e.CliArg,
			}
			result, evalErr := evaluator.Eval(node, ctx)
			if evalErr == nil {
				delta := diffAssigned(entering, ctx.Vars)
				*line = LineState{
					ID: line.ID, Text: line.Text,
					Result: result, HasResult: true,
					AssignedVariables: delta,
				}
				for name, v := range delta {
					cumulative[name] = value.DeepClone(v)
				}
				if !isSilent(result) {
					previousResults = append(previousResults, result)
					prev = result
					havePrev = true
				} else {
					previousResults = nil
				}
				continue
			}
			err = evalErr
		}

		if e.Debug {
			*line = LineState{ID: line.ID, Text: line.Text, Error: err.Error()}
			previousResults = nil
		} else {
			// A failing line outside debug mode renders as a markdown
			// placeholder showing its own text rather than an error, and
			// contributes nothing to prev/previousResults/the environment;
			// the previousResults window runs on past it as if it were absent.
			*line = LineState{ID: line.ID, Text: line.Text, IsMarkdown: true, Result: value.Markdown(line.Text)}
		}
	}

	e.env = cumulative
}

// isSilent reports whether a result should not participate in prev/
// previousResults chaining (markdown-producing lines act like comments for
// chaining purposes even though they carry a result).
func isSilent(v value.Value) bool {
	return v.Kind == value.KindMarkdown
}

// diffAssigned returns every variable in after whose value differs from (or
// is absent from) before. `prev` is never tracked as an assignment.
func diffAssigned(before, after value.Environment) value.Environment {
	delta := value.Environment{}
	for name, v := range after {
		if name == "prev" {
			continue
		}
		if priorV, ok := before[name]; !ok || !value.Equal(priorV, v) {
			delta[name] = value.DeepClone(v)
		}
	}
	return delta
}

func (e *Engine) clockOrDefault() datetime.TimeSource {
	if e.Clock != nil {
		return e.Clock
	}
	return datetime.RealClock()
}

func (e *Engine) resolveSystemLoc() *time.Location {
	if e.SystemLoc != nil {
		return e.SystemLoc
	}
	return time.Local
}

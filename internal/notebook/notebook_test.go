// Copyright 2024 Mike Carlton
// Released under terms of the MIT License:
//   http://www.opensource.org/licenses/mit-license.php

package notebook

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"calcnote/internal/datetime"
)

func newEngineWithLines(t *testing.T, lines []string) *Engine {
	t.Helper()
	eng := New()
	eng.SystemLoc = time.UTC
	eng.Clock = datetime.FixedClock{At: time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)}
	edits := make([]LineEdit, len(lines))
	for i, l := range lines {
		if i > 0 {
			eng.InsertLine(i)
		}
		edits[i] = LineEdit{Index: i, Text: l}
	}
	require.NoError(t, eng.UpdateLines(edits))
	return eng
}

func TestAggregateChainSum(t *testing.T) {
	eng := newEngineWithLines(t, []string{"10", "20", "30", "agg | sum"})
	states := eng.GetLines()
	last := states[len(states)-1]
	require.True(t, last.HasResult)
	require.Equal(t, "60", last.Result.Num.Text('f'))
}

func TestMarkdownLineIsSkippedByAggregateWindow(t *testing.T) {
	eng := newEngineWithLines(t, []string{"10", "20", "**bold**", "agg | sum"})
	states := eng.GetLines()
	markdownLine := states[2]
	require.True(t, markdownLine.IsMarkdown)
	last := states[3]
	require.True(t, last.HasResult)
	require.Equal(t, "30", last.Result.Num.Text('f'))
}

func TestAssignmentPersistsAcrossLines(t *testing.T) {
	eng := newEngineWithLines(t, []string{"x = 5", "x * 2"})
	states := eng.GetLines()
	require.Equal(t, "10", states[1].Result.Num.Text('f'))
}

func TestUpdateLineRecomputesDownstream(t *testing.T) {
	eng := newEngineWithLines(t, []string{"x = 5", "x * 2"})
	require.NoError(t, eng.UpdateLine(0, "x = 100"))
	states := eng.GetLines()
	require.Equal(t, "200", states[1].Result.Num.Text('f'))
}

func TestDeleteLineMaintainsAtLeastOne(t *testing.T) {
	eng := newEngineWithLines(t, []string{"1 + 1"})
	require.NoError(t, eng.DeleteLine(0))
	require.Len(t, eng.GetLines(), 1)
}

func TestCommentLineDoesNotAssign(t *testing.T) {
	eng := newEngineWithLines(t, []string{"# a note", "5 + 5"})
	states := eng.GetLines()
	require.True(t, states[0].IsComment)
	require.Empty(t, states[0].AssignedVariables)
	require.Equal(t, "10", states[1].Result.Num.Text('f'))
}

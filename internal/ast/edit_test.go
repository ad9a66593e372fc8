package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madappgang/metav/internal/position"
)

func TestEditPlanOpsSortsByFileThenStartByte(t *testing.T) {
	plan := NewEditPlan()
	plan.Remove(rng("b.v", 5, 10))
	plan.Remove(rng("a.v", 20, 30))
	plan.Remove(rng("a.v", 5, 10))

	ops := plan.Ops()
	require.Len(t, ops, 3)
	f0, s0, _, _ := FileSpan(ops[0])
	f1, s1, _, _ := FileSpan(ops[1])
	f2, s2, _, _ := FileSpan(ops[2])
	assert.Equal(t, "a.v", f0)
	assert.Equal(t, 5, s0)
	assert.Equal(t, "a.v", f1)
	assert.Equal(t, 20, s1)
	assert.Equal(t, "b.v", f2)
	assert.Equal(t, 5, s2)
}

func TestEditPlanOpsInsertSortsBeforeRemoveAtSameByte(t *testing.T) {
	plan := NewEditPlan()
	plan.Remove(rng("a.v", 10, 20))
	plan.InsertRaw(frame("a.v", 10), "wire x;")

	ops := plan.Ops()
	require.Len(t, ops, 2)
	_, ok := ops[0].(InsertOp)
	assert.True(t, ok, "insert should sort before remove at the same start byte")
	_, ok = ops[1].(RemoveOp)
	assert.True(t, ok)
}

func TestEditPlanOpsTiesFallBackToRegistrationOrder(t *testing.T) {
	plan := NewEditPlan()
	plan.InsertRaw(frame("a.v", 10), "first")
	plan.InsertRaw(frame("a.v", 10), "second")

	ops := plan.Ops()
	require.Len(t, ops, 2)
	assert.Equal(t, "first", ops[0].(InsertOp).Payload)
	assert.Equal(t, "second", ops[1].(InsertOp).Payload)
}

func TestEditPlanOpsDropsUnresolvableSpans(t *testing.T) {
	plan := NewEditPlan()
	// A macro-rooted stack with no file frame underneath never resolves.
	plan.Insert(position.Stack{{Kind: position.FrameMacro, Name: "M"}}, RawText("x"))
	assert.Empty(t, plan.Ops())
}

func TestDeleteOpFileSpan(t *testing.T) {
	plan := NewEditPlan()
	plan.Delete(rng("a.v", 3, 9))
	ops := plan.Ops()
	require.Len(t, ops, 1)
	f, s, e, ok := FileSpan(ops[0])
	require.True(t, ok)
	assert.Equal(t, "a.v", f)
	assert.Equal(t, 3, s)
	assert.Equal(t, 9, e)
	assert.Contains(t, ops[0].(DeleteOp).String(), "delete a.v:3-9")
}

func TestInsertOpString(t *testing.T) {
	plan := NewEditPlan()
	plan.InsertRaw(frame("a.v", 7), "wire y;")
	ops := plan.Ops()
	require.Len(t, ops, 1)
	assert.Contains(t, ops[0].(InsertOp).String(), "insert a.v:7")
}

func TestInsertNodeRendersViaPrint(t *testing.T) {
	plan := NewEditPlan()
	w := NewWire(rng("a.v", 0, 10), plan, nil, []Node{id("x", 0)})
	plan2 := NewEditPlan()
	plan2.InsertNode(frame("a.v", 0), w)
	ops := plan2.Ops()
	require.Len(t, ops, 1)
	assert.Equal(t, "wire x;", ops[0].(InsertOp).Payload)
}

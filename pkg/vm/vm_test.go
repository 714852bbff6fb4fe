package vm_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autocorr/sloth/pkg/builtins"
	"github.com/autocorr/sloth/pkg/value"
	"github.com/autocorr/sloth/pkg/vm"
	"github.com/autocorr/sloth/pkg/vmerrors"
)

func newMachine() *vm.VirtualMachine {
	return vm.New(builtins.Primitives())
}

func run(t *testing.T, src string) *vm.VirtualMachine {
	t.Helper()
	machine := newMachine()
	machine.ReadInput(src)
	require.NoError(t, machine.Run())
	return machine
}

func TestIntegerArithmetic(t *testing.T) {
	m := run(t, "2 3 + 4 *")
	assert.Equal(t, []value.Value{value.Integer(20)}, m.DataItems())
}

func TestDivisionAlwaysYieldsFloat(t *testing.T) {
	m := run(t, "10 4 /")
	assert.Equal(t, []value.Value{value.Float(2.5)}, m.DataItems())
}

func TestFloorDivisionYieldsInteger(t *testing.T) {
	m := run(t, "10 4 //")
	assert.Equal(t, []value.Value{value.Integer(2)}, m.DataItems())
}

func TestSwapDupRot(t *testing.T) {
	m := run(t, "1 2 swap")
	assert.Equal(t, []value.Value{value.Integer(2), value.Integer(1)}, m.DataItems())

	m = run(t, "1 dup")
	assert.Equal(t, []value.Value{value.Integer(1), value.Integer(1)}, m.DataItems())

	m = run(t, "1 2 3 rot")
	assert.Equal(t, []value.Value{value.Integer(2), value.Integer(3), value.Integer(1)}, m.DataItems())
}

func TestColonDefinitionAndCall(t *testing.T) {
	m := run(t, ": square dup * ; 5 square")
	assert.Equal(t, []value.Value{value.Integer(25)}, m.DataItems())
}

func TestNestedDefinedWordCalls(t *testing.T) {
	// inc2 calls the defined word inc twice, so each call enters and leaves
	// its own frame inside inc2's.
	m := run(t, ": inc 1 + ; : inc2 inc inc ; 5 inc2")
	assert.Equal(t, []value.Value{value.Integer(7)}, m.DataItems())
}

func TestHeapStoreIncrementAndFetch(t *testing.T) {
	m := run(t, "5 10 ! 3 10 +! 10 @")
	assert.Equal(t, []value.Value{value.Integer(8)}, m.DataItems())
}

func TestHeapFetchOnUninitializedAddressErrors(t *testing.T) {
	m := newMachine()
	m.ReadInput("42 @")
	err := m.Run()
	assert.Error(t, err)
}

func TestAndOrPreserveOperandIdentity(t *testing.T) {
	m := run(t, "0 5 and")
	assert.Equal(t, []value.Value{value.Integer(0)}, m.DataItems())

	m = run(t, "3 5 and")
	assert.Equal(t, []value.Value{value.Integer(5)}, m.DataItems())

	m = run(t, "0 7 or")
	assert.Equal(t, []value.Value{value.Integer(7)}, m.DataItems())
}

func TestDoesCreatesWordWithAttachedBehavior(t *testing.T) {
	// Classic does> idiom: `adder` builds words that each close over a
	// stored value and add it to whatever they're later called with.
	m := run(t, `
		: adder create , does> + ;
		10 adder add10
		5 add10
	`)
	assert.Equal(t, []value.Value{value.Integer(15)}, m.DataItems())
}

func TestExitUnwindsOnlyInnermostFrame(t *testing.T) {
	m := run(t, ": inner 1 exit 2 ; : outer inner 99 ; outer")
	assert.Equal(t, []value.Value{value.Integer(1), value.Integer(99)}, m.DataItems())
}

func TestByePropagatesAsErrBye(t *testing.T) {
	m := newMachine()
	m.ReadInput("bye")
	err := m.Run()
	assert.True(t, errors.Is(err, vmerrors.ErrBye{}))
}

func TestRevertUndoesFailedLine(t *testing.T) {
	m := newMachine()
	m.ReadInput("1 2 +")
	require.NoError(t, m.Run())
	before := append([]value.Value(nil), m.DataItems()...)

	m.ReadInput("undefined-word")
	err := m.Run()
	require.Error(t, err)
	m.Revert()

	assert.Equal(t, before, m.DataItems())
	_, ok := m.Dict().Lookup("undefined-word")
	assert.False(t, ok)
}

func TestRedefiningAWordReplacesItsBinding(t *testing.T) {
	m := run(t, ": foo 1 ; : foo 2 ; foo")
	assert.Equal(t, []value.Value{value.Integer(2)}, m.DataItems())
}

func TestImmediateWordRunsDuringCompilation(t *testing.T) {
	// `(` immediate comment word must not end up compiled into the
	// definition; the word should compile cleanly and run normally.
	m := run(t, ": add1 ( n -- n+1 ) 1 + ; 4 add1")
	assert.Equal(t, []value.Value{value.Integer(5)}, m.DataItems())
}

// Package vm implements the VirtualMachine described in spec.md sections 3,
// 4.3, and 4.4: top-level interpretation of a character stream into compiled
// or immediately-executed operations, and execution of defined words.
package vm

import (
	"errors"
	"fmt"

	"github.com/autocorr/sloth/pkg/charstream"
	"github.com/autocorr/sloth/pkg/dictionary"
	"github.com/autocorr/sloth/pkg/value"
	"github.com/autocorr/sloth/pkg/vmerrors"
)

// VirtualMachine is one interpreter instance: a character stream feeding a
// read-eval loop, three stacks, a dictionary, and a heap of named variables.
// A module import constructs a second, throwaway VirtualMachine over the
// imported file and merges its dictionary into the importer's (spec.md
// section 4.6); nothing here depends on where the stream's text came from.
//
// IP plays a dual role exactly as in the original: while a definition is
// being compiled, Compile advances it by one per compiled op (ops appended
// through `,` do not move it), and while a defined word is executing it is
// the read cursor that the execution loop advances. Enter and Exit
// save/restore it on the return stack across nested calls.
type VirtualMachine struct {
	Stream *charstream.CharStream
	dict   *dictionary.Dictionary

	data   *Stack[value.Value]
	ret    *Stack[value.Value] // dual duty: enter/exit IP saves, and >r/r>/i
	frames *Stack[*dictionary.DefinedWord]

	IP int

	heap map[value.Value]value.Value

	// compiling is true between `:` and `;` (the negation of the original's
	// "immediate" flag, renamed to match the conventional Forth STATE
	// sense: true while compiling, false while interpreting).
	compiling bool

	// backup is the most recent make_backup snapshot, restored wholesale by
	// revert on a runtime error (spec.md section 4.3, "Line-level backup").
	backup *VirtualMachine

	// Warn is set alongside dictionary.Dictionary.Warn at construction; it is
	// a separate flag, and `toggle-warnings` flips only the dictionary's.
	Warn bool

	// ModuleLoader resolves a module name to a VirtualMachine that has
	// already been run to completion over that module's source (pkg/module
	// sets this after New, since file search belongs there, not here).
	ModuleLoader func(name string) (*VirtualMachine, error)
}

// New returns a VirtualMachine seeded with primitives, ready to read text via
// ReadInput/Run. primitives is the shared template registered by
// pkg/builtins; New copies it per-VM so importing a module or spawning a
// sandboxed sub-interpreter never lets one VM's redefinitions leak into
// another's.
func New(primitives map[string]dictionary.Word) *VirtualMachine {
	d := dictionary.New(primitives)
	return &VirtualMachine{
		Stream: charstream.New(""),
		dict:   d,
		data:   NewStack[value.Value]("data stack"),
		ret:    NewStack[value.Value]("return stack"),
		frames: NewStack[*dictionary.DefinedWord]("frame stack"),
		heap:   make(map[value.Value]value.Value),
		Warn:   true,
	}
}

// ReadInput snapshots the VM (so a failing line can be reverted) and then
// appends text to the VM's input stream without disturbing its read
// cursor, the mechanism a REPL uses to feed one line at a time into a VM
// that may be mid-definition. Mirrors
// original_source/sloth/core.py's read_input, which calls make_backup
// before every stream.write for exactly this reason.
func (vm *VirtualMachine) ReadInput(text string) {
	vm.MakeBackup()
	vm.Stream.Write(text)
}

// Run drains the stream, parsing and handling one symbol at a time, until
// end of stream or a non-recoverable signal. It returns vmerrors.ErrBye
// verbatim when `bye` was executed, so callers (cmd/sloth) can translate
// that into a process exit without Run itself knowing what "exit" means.
//
// On any other error, the caller (the REPL loop) is expected to call Revert
// before the next ReadInput so the failed line's partial effects are undone;
// Run does not revert on its own, since a batch `run` of a whole file wants
// the error to simply abort the file.
func (vm *VirtualMachine) Run() error {
	for {
		sym, err := vm.NextSymbol()
		if errors.Is(err, charstream.ErrEndOfStream) {
			return nil
		}
		if err != nil {
			return err
		}
		op, err := vm.ParseSymbol(sym)
		if err != nil {
			return err
		}
		if !vm.compiling {
			if err := vm.HandleOp(op); err != nil {
				return vm.handleTopLevelErr(err)
			}
			continue
		}
		if ref, ok := op.(value.WordRef); ok && ref.Word.Immediate() {
			if err := vm.HandleOp(op); err != nil {
				return vm.handleTopLevelErr(err)
			}
			continue
		}
		if err := vm.Compile(op); err != nil {
			return err
		}
	}
}

func (vm *VirtualMachine) handleTopLevelErr(err error) error {
	if errors.Is(err, vmerrors.ErrBye{}) {
		return err
	}
	var we vmerrors.WordExit
	if errors.As(err, &we) {
		// exit at the top level has nothing to unwind; ignore.
		return nil
	}
	return err
}

// NextSymbol reads the next whitespace-delimited symbol from the stream.
func (vm *VirtualMachine) NextSymbol() (string, error) {
	return vm.Stream.NextWord()
}

// ParseSymbol resolves a symbol to a Value: a numeric literal, a dictionary
// word reference, or vmerrors.UndefinedSymbol (spec.md section 4.2).
func (vm *VirtualMachine) ParseSymbol(sym string) (value.Value, error) {
	if IsNumericLiteral(sym) {
		return ParseNumericLiteral(sym)
	}
	if w, ok := vm.dict.Lookup(sym); ok {
		return value.WordRef{Word: w}, nil
	}
	return nil, vmerrors.UndefinedSymbol{Symbol: sym}
}

// Compile appends op to the word currently being defined and advances IP by
// one. `here` and branch-offset patching work from len(code), not IP, and
// words that append through `,` (such as std.sloth's `if`) lengthen the code
// without moving IP, so IP and len(code) can differ during compilation.
func (vm *VirtualMachine) Compile(op value.Value) error {
	cur, ok := vm.CurrentWord()
	if !ok {
		return vmerrors.ContextError{Detail: "compile: no word being defined"}
	}
	cur.Append(op)
	vm.IP++
	return nil
}

// HandleOp executes op if it is a word reference, otherwise pushes it as a
// literal onto the data stack. This is the single dispatch point every
// built-in, defined word, and the top-level loop funnels through.
func (vm *VirtualMachine) HandleOp(op value.Value) error {
	ref, ok := op.(value.WordRef)
	if !ok {
		vm.data.Push(op)
		return nil
	}
	if dw, ok := ref.Word.(*dictionary.DefinedWord); ok {
		return vm.runDefinedWord(dw)
	}
	return ref.Word.(dictionary.Word).Call(vm)
}

// runDefinedWord executes w's compiled code vector one operation at a time,
// saving/restoring IP on the return stack across the call (spec.md section
// 4.4).
//
// A vmerrors.WordExit raised by `exit` or `does>` unwinds only this frame:
// it is caught here and treated as a clean return, never propagated to the
// caller. Any other error skips Exit/frame-pop entirely and propagates raw
// out of Run() — full recovery is make_backup/revert's job, not a per-frame
// unwind, matching the original's unguarded propagation out of __call__.
func (vm *VirtualMachine) runDefinedWord(w *dictionary.DefinedWord) error {
	vm.frames.Push(w)
	vm.Enter()
	for {
		op, err := w.At(vm.IP)
		if err != nil {
			break // ran off the end of the code vector: ordinary return
		}
		if err := vm.HandleOp(op); err != nil {
			var we vmerrors.WordExit
			if errors.As(err, &we) {
				break
			}
			return err
		}
		vm.IP++
	}
	if err := vm.Exit(); err != nil {
		return err
	}
	_, err := vm.frames.Pop()
	return err
}

// Enter saves the current IP on the return stack and resets IP to 0, for
// entry into a definition's body (by `:` or by a defined word's call).
func (vm *VirtualMachine) Enter() {
	vm.ret.Push(value.Integer(vm.IP))
	vm.IP = 0
}

// Exit restores IP from the return stack, for leaving a definition's body
// (by `;` or by a defined word's execution loop finishing).
func (vm *VirtualMachine) Exit() error {
	v, err := vm.ret.Pop()
	if err != nil {
		return err
	}
	n, ok := v.(value.Integer)
	if !ok {
		return vmerrors.ContextError{Detail: "exit: return stack corrupted"}
	}
	vm.IP = int(n)
	return nil
}

// NextCompiledInstr peeks (without advancing IP) at the slot following the
// current instruction in the currently-executing word's code vector. Used
// by `branch`, `0branch`, and `[']` to read an inline operand compiled
// immediately after themselves.
func (vm *VirtualMachine) NextCompiledInstr() (value.Value, error) {
	f, err := vm.frames.Top()
	if err != nil {
		return nil, vmerrors.ContextError{Detail: `"next": not inside a definition`}
	}
	op, err := f.At(vm.IP + 1)
	if err != nil {
		return nil, vmerrors.CodeOutOfBounds{Detail: "end of word code on next"}
	}
	return op, nil
}

// CurrentWord returns Dict().LastWord() when it is a defined word: the most
// recently inserted dictionary entry regardless of call depth, which is not
// necessarily the innermost word on the frame stack (see FrameWord). Used by
// `,`, `w!`, `w@`, `here`, `does>` (as the target of the splice),
// `immediate`, `hidden`, and doc/stack-effect attachment, as the original
// does with vm.last_word, even while executing (not compiling) other code.
func (vm *VirtualMachine) CurrentWord() (*dictionary.DefinedWord, bool) {
	w := vm.dict.LastWord()
	if w == nil {
		return nil, false
	}
	dw, ok := w.(*dictionary.DefinedWord)
	return dw, ok
}

// FrameWord returns the word at the top of the frame stack (the word whose
// code is currently executing), used by `does>` and `next_compiled_instr`.
func (vm *VirtualMachine) FrameWord() (*dictionary.DefinedWord, bool) {
	w, err := vm.frames.Top()
	if err != nil {
		return nil, false
	}
	return w, true
}

// Dict implements dictionary.Executor.
func (vm *VirtualMachine) Dict() *dictionary.Dictionary { return vm.dict }

func (vm *VirtualMachine) PushData(v value.Value)                { vm.data.Push(v) }
func (vm *VirtualMachine) PopData() (value.Value, error)         { return vm.data.Pop() }
func (vm *VirtualMachine) TopData() (value.Value, error)         { return vm.data.Top() }
func (vm *VirtualMachine) SetTopData(v value.Value) error        { return vm.data.SetTop(v) }
func (vm *VirtualMachine) DataAt(n int) (value.Value, error)     { return vm.data.At(n) }
func (vm *VirtualMachine) SetDataAt(n int, v value.Value) error  { return vm.data.SetAt(n, v) }
func (vm *VirtualMachine) DataLen() int                          { return vm.data.Len() }
func (vm *VirtualMachine) DataItems() []value.Value               { return vm.data.Items() }
func (vm *VirtualMachine) ClearData()                             { vm.data.Clear() }

func (vm *VirtualMachine) PushReturn(v value.Value)        { vm.ret.Push(v) }
func (vm *VirtualMachine) PopReturn() (value.Value, error) { return vm.ret.Pop() }
func (vm *VirtualMachine) TopReturn() (value.Value, error) { return vm.ret.Top() }
func (vm *VirtualMachine) ReturnLen() int                  { return vm.ret.Len() }
func (vm *VirtualMachine) ReturnItems() []value.Value       { return vm.ret.Items() }
func (vm *VirtualMachine) ClearReturn()                    { vm.ret.Clear() }

func (vm *VirtualMachine) NextWord() (string, error) { return vm.Stream.NextWord() }
func (vm *VirtualMachine) NextChar() (rune, error)   { return vm.Stream.NextChar() }
func (vm *VirtualMachine) WriteStream(text string)   { vm.Stream.Write(text) }

func (vm *VirtualMachine) HeapGet(key value.Value) (value.Value, bool) {
	v, ok := vm.heap[key]
	return v, ok
}
func (vm *VirtualMachine) HeapSet(key value.Value, v value.Value) { vm.heap[key] = v }
func (vm *VirtualMachine) HeapEach(fn func(k, v value.Value)) {
	for k, v := range vm.heap {
		fn(k, v)
	}
}

func (vm *VirtualMachine) Compiling() bool     { return vm.compiling }
func (vm *VirtualMachine) SetCompiling(b bool) { vm.compiling = b }

func (vm *VirtualMachine) GetIP() int     { return vm.IP }
func (vm *VirtualMachine) SetIP(ip int)   { vm.IP = ip }

// MakeBackup snapshots every piece of mutable VM state so Revert can restore
// it exactly, including dictionary entries mutated in place by `,`/`w!`/
// `does>` (spec.md section 4.3, "Line-level backup", and the testable
// property that a reverted line leaves the VM indistinguishable from before
// it ran).
func (vm *VirtualMachine) MakeBackup() {
	vm.backup = &VirtualMachine{
		Stream:    vm.Stream.Clone(),
		dict:      vm.dict.Clone(),
		data:      vm.data.Clone(),
		ret:       vm.ret.Clone(),
		frames:    vm.frames.Clone(),
		IP:        vm.IP,
		heap:      cloneHeap(vm.heap),
		compiling: vm.compiling,
		Warn:      vm.Warn,
	}
}

// Revert restores the VM to its last MakeBackup snapshot. It is a no-op if
// no backup has been taken yet.
func (vm *VirtualMachine) Revert() {
	if vm.backup == nil {
		return
	}
	b := vm.backup
	vm.Stream = b.Stream.Clone()
	vm.dict = b.dict.Clone()
	vm.data = b.data.Clone()
	vm.ret = b.ret.Clone()
	vm.frames = b.frames.Clone()
	vm.IP = b.IP
	vm.heap = cloneHeap(b.heap)
	vm.compiling = b.compiling
	vm.Warn = b.Warn
}

func cloneHeap(h map[value.Value]value.Value) map[value.Value]value.Value {
	cp := make(map[value.Value]value.Value, len(h))
	for k, v := range h {
		cp[k] = v
	}
	return cp
}

// ImportModule merges every non-hidden entry of sub's dictionary into vm's,
// per spec.md section 4.6. sub is expected to already have been Run() to
// completion over the module's source text by the caller (pkg/module),
// which also resolves the file search path; VirtualMachine itself knows
// nothing about the filesystem.
func (vm *VirtualMachine) ImportModule(sub *VirtualMachine) {
	vm.dict.Merge(sub.dict)
}

// Import implements dictionary.Executor for the `import` primitive: it
// resolves name via ModuleLoader and merges the result's dictionary.
func (vm *VirtualMachine) Import(name string) error {
	if vm.ModuleLoader == nil {
		return vmerrors.ModuleNotFound{Name: name}
	}
	sub, err := vm.ModuleLoader(name)
	if err != nil {
		return err
	}
	vm.ImportModule(sub)
	return nil
}

// Bye is a convenience for the `bye` built-in.
func (vm *VirtualMachine) Bye() error { return vmerrors.ErrBye{} }

var _ dictionary.Executor = (*VirtualMachine)(nil)

// DumpState renders a short human summary of the data stack, for the `.s`
// and REPL prompt-echo conventions.
func (vm *VirtualMachine) DumpState() string {
	items := vm.data.Items()
	out := "<" + itoa(len(items)) + "> "
	for _, it := range items {
		out += it.String() + " "
	}
	return out
}

func itoa(n int) string { return fmt.Sprintf("%d", n) }

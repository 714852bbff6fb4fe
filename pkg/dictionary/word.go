// Package dictionary implements the callable dictionary entry (Word) and
// the name-to-word mapping (Dictionary) described in spec.md section 3.
package dictionary

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/autocorr/sloth/pkg/value"
)

// Executor is the full surface a built-in word's host function needs: stack
// access, the dictionary itself, the character stream, the heap, and the
// compile/interpret mode flag. pkg/vm's *VirtualMachine implements it;
// pkg/dictionary and pkg/builtins depend only on this interface, never on
// pkg/vm, which is what keeps pkg/vm -> pkg/dictionary -> pkg/builtins free
// of an import cycle back to pkg/vm.
type Executor interface {
	// HandleOp executes a single compiled operation: calls it if it is a
	// value.WordRef, otherwise pushes it as a literal.
	HandleOp(op value.Value) error

	// Data stack.
	PushData(value.Value)
	PopData() (value.Value, error)
	TopData() (value.Value, error)
	SetTopData(value.Value) error
	DataAt(n int) (value.Value, error)
	SetDataAt(n int, v value.Value) error
	DataLen() int
	DataItems() []value.Value

	// Return stack, exposed for `>r`/`r>`/`i`.
	PushReturn(value.Value)
	PopReturn() (value.Value, error)
	TopReturn() (value.Value, error)
	ReturnLen() int
	ReturnItems() []value.Value
	ClearReturn()
	ClearData()

	// CurrentWord returns the dictionary's last_word (the most recently
	// created word) when it is a DefinedWord, used by `,`, `w!`, `w@`,
	// `here`, `does>`, `immediate`, `hidden`, and `("`/docstring attachment.
	// ok is false when no word has been created yet or last_word is a
	// built-in.
	CurrentWord() (w *DefinedWord, ok bool)

	// Dict exposes the dictionary for lookup/insert by `:`, `create`, `'`,
	// `help`, and `words`.
	Dict() *Dictionary

	// Character stream, for `word`, parsing words, and comment/doc skipping.
	NextWord() (string, error)
	NextChar() (rune, error)
	WriteStream(text string)

	// Heap (variable storage) for `!`/`@`/`+!`/`-!`/`.m`. Keyed by Value, not
	// string: addresses are whatever the program pushes (usually an
	// Integer, sometimes a Symbol).
	HeapGet(key value.Value) (value.Value, bool)
	HeapSet(key value.Value, v value.Value)
	HeapEach(fn func(k, v value.Value))

	// Compiling reports whether the VM is currently compiling a definition;
	// SetCompiling is used by `:` and `;`.
	Compiling() bool
	SetCompiling(bool)

	// GetIP/SetIP expose the instruction pointer for `branch`/`0branch`.
	GetIP() int
	SetIP(int)

	// Enter/Exit save/restore IP on the return stack, for `:`/`;` and a
	// defined word's own call/return.
	Enter()
	Exit() error

	// NextCompiledInstr peeks at the slot following the current instruction
	// in the innermost executing word's code, for `branch`/`0branch`/`[']`.
	NextCompiledInstr() (value.Value, error)

	// FrameWord is the word whose code is currently executing (the frame
	// stack's top), used by `does>`.
	FrameWord() (w *DefinedWord, ok bool)

	// Import loads and merges a module by name, per spec.md section 4.6.
	Import(name string) error
}

// Word is a named, callable dictionary entry: either a BuiltinWord (a host
// function) or a DefinedWord (a compiled code vector).
type Word interface {
	value.Word // Name() string, Immediate() bool

	// Call invokes the word against the executor (VM).
	Call(vm Executor) error

	// SetImmediate, Hidden, SetHidden are used by the `immediate` and
	// `hidden` parsing-word primitives, which always act on last_word.
	SetImmediate(bool)
	Hidden() bool
	SetHidden(bool)

	// StackEffect and Doc back the `(`, `("`, and `help` primitives.
	StackEffect() string
	SetStackEffect(string)
	Doc() string
	SetDoc(string)

	// Clone returns a copy suitable for a backup snapshot: a BuiltinWord
	// returns itself (immutable once registered), a DefinedWord returns a
	// copy with its own code-vector backing array so that later
	// self-modification (`,`, `w!`, `does>`) of the live word cannot leak
	// into the snapshot.
	Clone() Word
}

// Fn is the signature of a built-in word's host implementation.
type Fn func(vm Executor) error

// BuiltinWord is a host-implemented primitive.
type BuiltinWord struct {
	name        string
	fn          Fn
	immediate   bool
	stackEffect string
	doc         string
}

// NewBuiltin constructs a BuiltinWord. immediate marks words like `;` and
// `(` that must run during compile mode rather than being appended to the
// code vector being compiled.
func NewBuiltin(name string, fn Fn, immediate bool, stackEffect, doc string) *BuiltinWord {
	return &BuiltinWord{name: name, fn: fn, immediate: immediate, stackEffect: stackEffect, doc: doc}
}

func (w *BuiltinWord) Name() string        { return w.name }
func (w *BuiltinWord) Immediate() bool     { return w.immediate }
func (w *BuiltinWord) SetImmediate(b bool) { w.immediate = b }
func (w *BuiltinWord) Hidden() bool        { return false }
func (w *BuiltinWord) SetHidden(bool)      {} // built-ins are always public
func (w *BuiltinWord) StackEffect() string { return w.stackEffect }
func (w *BuiltinWord) SetStackEffect(s string) { w.stackEffect = s }
func (w *BuiltinWord) Doc() string          { return w.doc }
func (w *BuiltinWord) SetDoc(s string)      { w.doc = s }

func (w *BuiltinWord) Call(vm Executor) error {
	if w.fn == nil {
		return nil
	}
	return w.fn(vm)
}

func (w *BuiltinWord) String() string { return "w:" + w.name }

func (w *BuiltinWord) Clone() Word { return w }

// DefinedWord is a user-created word: a named, mutable code vector compiled
// between `:` and `;`. Its code vector is append-only during its own
// compilation and conventionally frozen at `;` (not structurally enforced —
// `w!`, `,`, and `does>` may still mutate it afterward, per spec.md section
// 9).
type DefinedWord struct {
	name         string
	immediate    bool
	hidden       bool
	code         []value.Value
	stackEffect  string
	doc          string
	textLocation int
}

// NewDefined constructs an empty defined word ready to have code appended.
func NewDefined(name string) *DefinedWord {
	return &DefinedWord{name: name}
}

func (w *DefinedWord) Name() string        { return w.name }
func (w *DefinedWord) Immediate() bool     { return w.immediate }
func (w *DefinedWord) SetImmediate(b bool) { w.immediate = b }
func (w *DefinedWord) Hidden() bool        { return w.hidden }
func (w *DefinedWord) SetHidden(b bool)    { w.hidden = b }
func (w *DefinedWord) StackEffect() string { return w.stackEffect }
func (w *DefinedWord) SetStackEffect(s string) { w.stackEffect = s }
func (w *DefinedWord) Doc() string          { return w.doc }
func (w *DefinedWord) SetDoc(s string)      { w.doc = s }

// TextLocation returns the stream offset stored by SetTextLocation. The `:`
// and `create` primitives do not call SetTextLocation, so the words they
// define report 0.
func (w *DefinedWord) TextLocation() int       { return w.textLocation }
func (w *DefinedWord) SetTextLocation(pos int) { w.textLocation = pos }

// Code exposes the compiled code vector for read and (self-modifying) write
// access by `,`, `w!`, `w@`, `here`, `does>`, and the VM's execution loop.
func (w *DefinedWord) Code() []value.Value { return w.code }

// Append adds op to the end of the code vector (used by `compile` and `,`).
func (w *DefinedWord) Append(op value.Value) { w.code = append(w.code, op) }

// SetAt overwrites the code vector slot at index i (used by `w!` and by
// control-flow words patching branch offsets).
func (w *DefinedWord) SetAt(i int, op value.Value) error {
	if i < 0 || i >= len(w.code) {
		return fmt.Errorf("address %d out of bounds", i)
	}
	w.code[i] = op
	return nil
}

// At reads the code vector slot at index i (used by `w@` and the execution
// loop).
func (w *DefinedWord) At(i int) (value.Value, error) {
	if i < 0 || i >= len(w.code) {
		return nil, fmt.Errorf("address %d out of bounds", i)
	}
	return w.code[i], nil
}

func (w *DefinedWord) Call(vm Executor) error {
	// The actual entry/loop/exit protocol lives in pkg/vm, since it needs
	// access to the frame stack, return stack, and IP that Executor alone
	// does not expose. DefinedWord.Call is only reached when something
	// outside the VM's own dispatch (e.g. a test) invokes a word directly;
	// the VM instead special-cases *DefinedWord in its own dispatcher.
	return vm.HandleOp(value.WordRef{Word: w})
}

func (w *DefinedWord) String() string { return "w:" + w.name }

func (w *DefinedWord) Clone() Word {
	cp := *w
	cp.code = append([]value.Value(nil), w.code...)
	return &cp
}

// Dictionary maps names to Words and tracks the most recently inserted
// entry (last_word), per spec.md section 3.
type Dictionary struct {
	entries  map[string]Word
	lastWord Word
	// Warn controls whether redefining an existing name prints a warning,
	// toggled by the `toggle-warnings` primitive.
	Warn bool
	// Out receives the colorized warning text; when it is nil, Insert emits
	// no warning (the `:` and `create` primitives print their own).
	Out func(string)
}

// New returns a Dictionary seeded with copies of the primitive template so
// that per-VM redefinitions never pollute the shared template (spec.md
// section 9, "Global state").
func New(primitives map[string]Word) *Dictionary {
	entries := make(map[string]Word, len(primitives))
	for k, v := range primitives {
		entries[k] = v
	}
	return &Dictionary{entries: entries, Warn: true}
}

// Lookup returns the word bound to name, if any.
func (d *Dictionary) Lookup(name string) (Word, bool) {
	w, ok := d.entries[name]
	return w, ok
}

// Insert binds name to w, replacing any prior binding, and records w as
// last_word. On redefinition, when Warn is set and Out is non-nil, passes a
// colorized warning to Out.
func (d *Dictionary) Insert(w Word) {
	name := w.Name()
	if _, exists := d.entries[name]; exists && d.Warn {
		msg := fmt.Sprintf("%s redefining %q in dictionary", color.RedString("Warning:"), name)
		if d.Out != nil {
			d.Out(msg)
		}
	}
	d.entries[name] = w
	d.lastWord = w
}

// LastWord returns the most recently created word, or nil if none yet.
func (d *Dictionary) LastWord() Word { return d.lastWord }

// SetLastWord forcibly sets last_word (used when reverting VM state).
func (d *Dictionary) SetLastWord(w Word) { d.lastWord = w }

// Names returns every bound name, for `words` and shell completion.
func (d *Dictionary) Names() []string {
	names := make([]string, 0, len(d.entries))
	for name := range d.entries {
		names = append(names, name)
	}
	return names
}

// Clone returns a copy for backup/revert: a fresh map in which every entry is
// replaced by its Word.Clone (each DefinedWord gets its own code vector,
// BuiltinWords are shared), a word bound under several names is cloned once,
// and lastWord points at the clone; Warn and Out are copied.
func (d *Dictionary) Clone() *Dictionary {
	entries := make(map[string]Word, len(d.entries))
	cloned := make(map[Word]Word, len(d.entries))
	cloneOf := func(w Word) Word {
		if w == nil {
			return nil
		}
		if c, ok := cloned[w]; ok {
			return c
		}
		c := w.Clone()
		cloned[w] = c
		return c
	}
	for k, v := range d.entries {
		entries[k] = cloneOf(v)
	}
	return &Dictionary{entries: entries, lastWord: cloneOf(d.lastWord), Warn: d.Warn, Out: d.Out}
}

// Merge copies every entry from other that is not hidden into d, overwriting
// same-named entries. Used by import_module (spec.md section 4.6) — words
// without a Hidden concept (built-ins) are, by construction, never hidden.
func (d *Dictionary) Merge(other *Dictionary) {
	for name, w := range other.entries {
		if w.Hidden() {
			continue
		}
		d.entries[name] = w
	}
}

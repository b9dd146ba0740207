package bytecode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("kitten.bytecode")

// DefaultMaxDepth bounds nested invocations before the VM reports overflow.
const DefaultMaxDepth = 256

// Linker resolves invocation targets and class layouts for the VM.
// Lookups by class must honour the superclass chain.
type Linker interface {
	// LookupMethod returns the code of method name in class or its superclasses.
	LookupMethod(class, name string) (*Chunk, error)
	// InstanceFields returns the default value of every instance field of class.
	InstanceFields(class string) (map[string]string, error)
}

// Clock provides the time source behind OpNanoTime.
type Clock interface {
	NanoTime() int64
}

type monotonicClock struct {
	start time.Time
}

func (c monotonicClock) NanoTime() int64 {
	return int64(time.Since(c.start))
}

// NilRef is the runtime value of the nil reference. No Kitten string
// literal can contain a NUL byte, so it never equals a string value.
const NilRef = "\x00nil"

// ErrNilReceiver is returned when a field access, call or concatenation
// hits the nil reference.
var ErrNilReceiver = errors.New("nil receiver")

// ErrStackOverflow is returned when invocations nest deeper than MaxDepth.
var ErrStackOverflow = errors.New("stack overflow")

// RuntimeError attaches the failing method and code offset to an error.
// Line and Column are set when the method carries a source map.
type RuntimeError struct {
	Method string
	Offset int
	Line   int
	Column int
	Err    error
}

func (e *RuntimeError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s@%04X (line %d.%d): %v", e.Method, e.Offset, e.Line, e.Column, e.Err)
	}
	return fmt.Sprintf("%s@%04X: %v", e.Method, e.Offset, e.Err)
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// frame is one active method invocation.
type frame struct {
	method string
	chunk  *Chunk
	ip     int
	start  int // offset of the executing instruction
	stack  []string
	locals []string
}

// VM executes linearized methods of loaded classes.
// Values are strings: integers in decimal, booleans as "true"/"false",
// references as "Class@N" and the nil reference as NilRef.
type VM struct {
	linker Linker
	out    io.Writer
	clock  Clock

	statics map[string]string            // "Class.field" -> value
	heap    map[string]map[string]string // instance ID -> fields
	classOf map[string]string            // instance ID -> class
	nextID  uint64

	depth int

	// MaxDepth bounds nested invocations.
	MaxDepth int

	// Trace logs every executed instruction at debug level.
	Trace bool
}

// Option configures a VM.
type Option func(*VM)

// WithOutput sets the output channel written by OpPrint.
func WithOutput(w io.Writer) Option {
	return func(vm *VM) { vm.out = w }
}

// WithClock sets the time source read by OpNanoTime.
func WithClock(c Clock) Option {
	return func(vm *VM) { vm.clock = c }
}

// NewVM creates a new VM instance.
func NewVM(linker Linker, opts ...Option) *VM {
	vm := &VM{
		linker:   linker,
		out:      os.Stdout,
		clock:    monotonicClock{start: time.Now()},
		statics:  make(map[string]string),
		heap:     make(map[string]map[string]string),
		classOf:  make(map[string]string),
		MaxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(vm)
	}
	return vm
}

// Invoke calls the static method target ("Class.method") with args.
// Returns the result value, or "" for void methods.
func (vm *VM) Invoke(target string, args ...string) (string, error) {
	class, name, err := splitTarget(target)
	if err != nil {
		return "", err
	}
	chunk, err := vm.linker.LookupMethod(class, name)
	if err != nil {
		return "", err
	}
	result, _, err := vm.call(target, chunk, args)
	return result, err
}

// RunMain runs the program entry point of class.
func (vm *VM) RunMain(class string) error {
	_, err := vm.Invoke(class+".main", "")
	return err
}

// Static returns the current value of a static field ("Class.field").
func (vm *VM) Static(name string) string {
	return vm.statics[name]
}

// ClassOf returns the runtime class of a reference.
func (vm *VM) ClassOf(ref string) (string, bool) {
	class, ok := vm.classOf[ref]
	return class, ok
}

// GetInstanceVar reads an instance variable value.
func (vm *VM) GetInstanceVar(instanceID, varName string) (string, error) {
	fields, ok := vm.heap[instanceID]
	if !ok {
		if instanceID == NilRef {
			return "", ErrNilReceiver
		}
		return "", fmt.Errorf("unknown instance %q", instanceID)
	}
	value, ok := fields[varName]
	if !ok {
		return "", fmt.Errorf("%s has no field %q", vm.classOf[instanceID], varName)
	}
	return value, nil
}

// SetInstanceVar writes an instance variable value.
func (vm *VM) SetInstanceVar(instanceID, varName, value string) error {
	fields, ok := vm.heap[instanceID]
	if !ok {
		if instanceID == NilRef {
			return ErrNilReceiver
		}
		return fmt.Errorf("unknown instance %q", instanceID)
	}
	if _, ok := fields[varName]; !ok {
		return fmt.Errorf("%s has no field %q", vm.classOf[instanceID], varName)
	}
	fields[varName] = value
	return nil
}

func (vm *VM) allocate(class string) (string, error) {
	defaults, err := vm.linker.InstanceFields(class)
	if err != nil {
		return "", err
	}
	vm.nextID++
	id := fmt.Sprintf("%s@%d", class, vm.nextID)
	fields := make(map[string]string, len(defaults))
	for k, v := range defaults {
		fields[k] = v
	}
	vm.heap[id] = fields
	vm.classOf[id] = class
	return id, nil
}

// call runs chunk in a fresh frame. The boolean result reports whether the
// method returned a value.
func (vm *VM) call(method string, chunk *Chunk, args []string) (string, bool, error) {
	if vm.depth >= vm.MaxDepth {
		return "", false, &RuntimeError{Method: method, Err: ErrStackOverflow}
	}
	vm.depth++
	defer func() { vm.depth-- }()

	if len(args) != int(chunk.ParamCount) {
		return "", false, &RuntimeError{Method: method, Err: fmt.Errorf("expected %d arguments, got %d", chunk.ParamCount, len(args))}
	}

	f := &frame{
		method: method,
		chunk:  chunk,
		stack:  make([]string, 0, 16),
		locals: make([]string, max(int(chunk.LocalCount), len(args))),
	}
	copy(f.locals, args)

	result, returned, err := vm.run(f)
	if err != nil {
		var rerr *RuntimeError
		if errors.As(err, &rerr) {
			return "", false, err
		}
		line, col := chunk.GetSourceLocation(uint32(f.start))
		return "", false, &RuntimeError{Method: method, Offset: f.start, Line: int(line), Column: int(col), Err: err}
	}
	return result, returned, nil
}

// run is the main execution loop.
func (vm *VM) run(f *frame) (string, bool, error) {
	code := f.chunk.Code
	for {
		if f.ip >= len(code) {
			// Falling off the end behaves like RETURN_VOID.
			return "", false, nil
		}

		start := f.ip
		f.start = start
		op := Opcode(code[f.ip])
		f.ip++

		if vm.Trace {
			log.Debugf("%s [%04x] %-16s depth=%d stack=%d", f.method, start, op, vm.depth, len(f.stack))
		}

		switch op {
		// ============ Stack Operations ============
		case OpNop:
			// Do nothing

		case OpPop:
			if _, err := f.pop(); err != nil {
				return "", false, err
			}

		case OpDup:
			v, err := f.peek()
			if err != nil {
				return "", false, err
			}
			f.push(v)

		// ============ Constants ============
		case OpConst:
			f.push(f.chunk.Constants[f.readUint16()])

		case OpConstTrue:
			f.push("true")

		case OpConstFalse:
			f.push("false")

		case OpConstZero:
			f.push("0")

		case OpConstOne:
			f.push("1")

		case OpConstEmpty:
			f.push("")

		case OpConstNil:
			f.push(NilRef)

		// ============ Local Variables ============
		case OpLoadLocal:
			slot := code[f.ip]
			f.ip++
			f.push(f.locals[slot])

		case OpStoreLocal:
			slot := code[f.ip]
			f.ip++
			v, err := f.pop()
			if err != nil {
				return "", false, err
			}
			f.locals[slot] = v

		// ============ Static Fields ============
		case OpGetStatic:
			f.push(vm.statics[f.chunk.Constants[f.readUint16()]])

		case OpPutStatic:
			name := f.chunk.Constants[f.readUint16()]
			v, err := f.pop()
			if err != nil {
				return "", false, err
			}
			vm.statics[name] = v

		// ============ Objects ============
		case OpGetField:
			name := f.chunk.Constants[f.readUint16()]
			receiver, err := f.pop()
			if err != nil {
				return "", false, err
			}
			v, err := vm.GetInstanceVar(receiver, name)
			if err != nil {
				return "", false, err
			}
			f.push(v)

		case OpPutField:
			name := f.chunk.Constants[f.readUint16()]
			v, err := f.pop()
			if err != nil {
				return "", false, err
			}
			receiver, err := f.pop()
			if err != nil {
				return "", false, err
			}
			if err := vm.SetInstanceVar(receiver, name, v); err != nil {
				return "", false, err
			}

		case OpNew:
			id, err := vm.allocate(f.chunk.Constants[f.readUint16()])
			if err != nil {
				return "", false, err
			}
			f.push(id)

		// ============ Arithmetic ============
		case OpAdd, OpSub, OpMul, OpDiv, OpMod:
			b, err := f.popInt()
			if err != nil {
				return "", false, err
			}
			a, err := f.popInt()
			if err != nil {
				return "", false, err
			}
			r, err := arith(op, a, b)
			if err != nil {
				return "", false, err
			}
			f.pushInt(r)

		case OpNeg:
			a, err := f.popInt()
			if err != nil {
				return "", false, err
			}
			f.pushInt(-a)

		// ============ Comparison ============
		case OpEq, OpNe:
			b, err := f.pop()
			if err != nil {
				return "", false, err
			}
			a, err := f.pop()
			if err != nil {
				return "", false, err
			}
			f.pushBool((a == b) == (op == OpEq))

		case OpLt, OpLe, OpGt, OpGe:
			b, err := f.popInt()
			if err != nil {
				return "", false, err
			}
			a, err := f.popInt()
			if err != nil {
				return "", false, err
			}
			f.pushBool(compare(op, a, b))

		case OpNot:
			a, err := f.pop()
			if err != nil {
				return "", false, err
			}
			f.pushBool(a != "true")

		// ============ String Operations ============
		case OpConcat:
			b, err := f.pop()
			if err != nil {
				return "", false, err
			}
			a, err := f.pop()
			if err != nil {
				return "", false, err
			}
			if a == NilRef || b == NilRef {
				return "", false, fmt.Errorf("concat: %w", ErrNilReceiver)
			}
			f.push(a + b)

		// ============ Control Flow ============
		case OpJump:
			offset := f.readInt16()
			f.ip += int(offset)

		case OpJumpTrue:
			offset := f.readInt16()
			cond, err := f.pop()
			if err != nil {
				return "", false, err
			}
			if cond == "true" {
				f.ip += int(offset)
			}

		// ============ Invocation ============
		case OpInvokeStatic, OpInvokeVirtual, OpInvokeSpecial:
			target := f.chunk.Constants[f.readUint16()]
			argc := int(code[f.ip])
			f.ip++
			if err := vm.invoke(f, op, target, argc); err != nil {
				return "", false, err
			}

		// ============ System ============
		case OpNanoTime:
			f.push(strconv.FormatInt(vm.clock.NanoTime(), 10))

		case OpPrint:
			s, err := f.pop()
			if err != nil {
				return "", false, err
			}
			if s == NilRef {
				s = "nil"
			}
			if _, err := io.WriteString(vm.out, s); err != nil {
				return "", false, fmt.Errorf("writing output: %w", err)
			}

		// ============ Return ============
		case OpReturn:
			v, err := f.pop()
			if err != nil {
				return "", false, err
			}
			return v, true, nil

		case OpReturnVoid:
			return "", false, nil

		default:
			return "", false, fmt.Errorf("unknown opcode: 0x%02x at offset %d", byte(op), start)
		}
	}
}

func (vm *VM) invoke(f *frame, op Opcode, target string, argc int) error {
	class, name, err := splitTarget(target)
	if err != nil {
		return err
	}

	n := argc
	if op != OpInvokeStatic {
		n++ // receiver
	}
	if len(f.stack) < n {
		return errStackUnderflow
	}
	args := make([]string, n)
	copy(args, f.stack[len(f.stack)-n:])
	f.stack = f.stack[:len(f.stack)-n]

	if op == OpInvokeVirtual {
		runtimeClass, ok := vm.classOf[args[0]]
		if !ok {
			return fmt.Errorf("invoking %s: %w", target, ErrNilReceiver)
		}
		class = runtimeClass
	} else if op == OpInvokeSpecial && args[0] == NilRef {
		return fmt.Errorf("invoking %s: %w", target, ErrNilReceiver)
	}

	chunk, err := vm.linker.LookupMethod(class, name)
	if err != nil {
		return err
	}
	result, returned, err := vm.call(class+"."+name, chunk, args)
	if err != nil {
		return err
	}
	if returned {
		f.push(result)
	}
	return nil
}

func arith(op Opcode, a, b int64) (int64, error) {
	switch op {
	case OpAdd:
		return a + b, nil
	case OpSub:
		return a - b, nil
	case OpMul:
		return a * b, nil
	case OpDiv:
		if b == 0 {
			return 0, errors.New("division by zero")
		}
		return a / b, nil
	default:
		if b == 0 {
			return 0, errors.New("division by zero")
		}
		return a % b, nil
	}
}

func compare(op Opcode, a, b int64) bool {
	switch op {
	case OpLt:
		return a < b
	case OpLe:
		return a <= b
	case OpGt:
		return a > b
	default:
		return a >= b
	}
}

func splitTarget(target string) (class, name string, err error) {
	i := strings.LastIndexByte(target, '.')
	if i <= 0 || i == len(target)-1 {
		return "", "", fmt.Errorf("malformed invocation target %q", target)
	}
	return target[:i], target[i+1:], nil
}

var errStackUnderflow = errors.New("stack underflow")

// Stack helpers

func (f *frame) push(val string) {
	f.stack = append(f.stack, val)
}

func (f *frame) pop() (string, error) {
	if len(f.stack) == 0 {
		return "", errStackUnderflow
	}
	v := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	return v, nil
}

func (f *frame) peek() (string, error) {
	if len(f.stack) == 0 {
		return "", errStackUnderflow
	}
	return f.stack[len(f.stack)-1], nil
}

func (f *frame) popInt() (int64, error) {
	s, err := f.pop()
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("expected integer, got %q", s)
	}
	return n, nil
}

func (f *frame) pushInt(n int64) {
	f.push(strconv.FormatInt(n, 10))
}

func (f *frame) pushBool(b bool) {
	if b {
		f.push("true")
	} else {
		f.push("false")
	}
}

// Bytecode reading helpers

func (f *frame) readUint16() uint16 {
	val := binary.BigEndian.Uint16(f.chunk.Code[f.ip:])
	f.ip += 2
	return val
}

func (f *frame) readInt16() int16 {
	return int16(f.readUint16())
}

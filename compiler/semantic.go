package compiler

import (
	"fmt"

	"github.com/chazu/kitten/types"
)

// ---------------------------------------------------------------------------
// Type checker for constructor, fixture and test bodies
// ---------------------------------------------------------------------------

// Info records what the type checker learned about the bodies of a class.
// Translation reads it instead of re-deriving types.
type Info struct {
	Types     map[Expr]types.Type
	Fields    map[*FieldAccess]*types.FieldSignature
	Slots     map[Node]uint8 // *Variable, *LocalDeclaration and *Param
	Positions map[*Assert]string
}

// NewInfo creates an empty Info.
func NewInfo() *Info {
	return &Info{
		Types:     make(map[Expr]types.Type),
		Fields:    make(map[*FieldAccess]*types.FieldSignature),
		Slots:     make(map[Node]uint8),
		Positions: make(map[*Assert]string),
	}
}

// local is a variable in scope.
type local struct {
	typ  types.Type
	slot uint8
}

// TypeChecker checks the bodies of one class. Errors are collected, never
// returned, so that a single pass reports everything it finds.
type TypeChecker struct {
	class   *types.ClassType
	classes map[string]*types.ClassType
	info    *Info
	errs    *ErrorList

	// per-body state
	scope         map[string]local
	nextSlot      int
	assertAllowed bool
	asserts       []string
}

// NewTypeChecker creates a checker for class. classes resolves class names
// used as types.
func NewTypeChecker(class *types.ClassType, classes map[string]*types.ClassType, info *Info, errs *ErrorList) *TypeChecker {
	return &TypeChecker{
		class:   class,
		classes: classes,
		info:    info,
		errs:    errs,
	}
}

// Info returns the side table filled by the checker.
func (c *TypeChecker) Info() *Info {
	return c.info
}

func (c *TypeChecker) errorAt(n Node, format string, args ...interface{}) {
	c.errs.Add(&SemanticError{Pos: offsetOf(n), Msg: fmt.Sprintf(format, args...)})
}

// ResolveType maps a type name to a type, reporting unknown names.
func (c *TypeChecker) ResolveType(t *TypeName) types.Type {
	if b := types.Basic(t.Name); b != nil && b != types.Void {
		return b
	}
	if class, ok := c.classes[t.Name]; ok {
		return class
	}
	c.errorAt(t, "unknown type %s", t.Name)
	return nil
}

// CheckBody type-checks a void body whose scope holds this (slot 0) and
// params. Asserts are accepted only when assertAllowed is set. It returns
// the formatted positions of the body's asserts in source order.
func (c *TypeChecker) CheckBody(body *BlockCommand, params []*Param, assertAllowed bool) []string {
	c.scope = map[string]local{"this": {typ: c.class, slot: 0}}
	c.nextSlot = 1
	c.assertAllowed = assertAllowed
	c.asserts = nil

	for _, p := range params {
		t := c.ResolveType(p.Type)
		if t == nil {
			continue
		}
		if slot, ok := c.declare(p, p.Name, t); ok {
			c.info.Slots[p] = slot
		}
	}

	c.checkCommand(body)
	checkForDeadCode(body, c.errs)
	return c.asserts
}

func (c *TypeChecker) declare(n Node, name string, t types.Type) (uint8, bool) {
	if _, dup := c.scope[name]; dup {
		c.errorAt(n, "%s is already defined", name)
		return 0, false
	}
	if c.nextSlot > 0xFF {
		c.errorAt(n, "too many local variables")
		return 0, false
	}
	slot := uint8(c.nextSlot)
	c.nextSlot++
	c.scope[name] = local{typ: t, slot: slot}
	return slot, true
}

// withScope runs fn in a nested scope.
func (c *TypeChecker) withScope(fn func()) {
	saved := make(map[string]local, len(c.scope))
	for k, v := range c.scope {
		saved[k] = v
	}
	fn()
	c.scope = saved
}

// ---------------------------------------------------------------------------
// Commands
// ---------------------------------------------------------------------------

func (c *TypeChecker) checkCommand(cmd Command) {
	switch n := cmd.(type) {
	case *Skip:

	case *BlockCommand:
		c.withScope(func() {
			for _, sub := range n.Commands {
				c.checkCommand(sub)
			}
		})

	case *LocalDeclaration:
		t := c.ResolveType(n.Type)
		init := c.checkExpr(n.Init)
		if t == nil {
			return
		}
		c.expectAssignable(n.Init, init, t, "initialisation of "+n.Name)
		if slot, ok := c.declare(n, n.Name, t); ok {
			c.info.Slots[n] = slot
		}

	case *Assignment:
		target := c.checkExpr(n.Target)
		value := c.checkExpr(n.Value)
		c.expectAssignable(n.Value, value, target, "assignment")

	case *IfThenElse:
		cond := c.checkExpr(n.Condition)
		if cond != nil && !types.IsBoolean(cond) {
			c.errs.Add(&TypeMismatchError{Pos: offsetOf(n.Condition), Context: "if", Expected: types.Bool, Found: cond})
		}
		c.withScope(func() { c.checkCommand(n.Then) })
		if n.Else != nil {
			c.withScope(func() { c.checkCommand(n.Else) })
		}

	case *Return:
		if n.Value != nil {
			found := c.checkExpr(n.Value)
			c.errs.Add(&TypeMismatchError{Pos: offsetOf(n.Value), Context: "return", Expected: types.Void, Found: found})
		}

	case *Assert:
		c.checkAssert(n)

	default:
		c.errorAt(cmd, "unsupported command %T", cmd)
	}
}

func (c *TypeChecker) expectAssignable(n Node, found, expected types.Type, context string) {
	if found == nil || expected == nil {
		return
	}
	if !found.AssignableTo(expected) {
		c.errs.Add(&TypeMismatchError{Pos: offsetOf(n), Context: context, Expected: expected, Found: found})
	}
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// checkExpr returns the static type of e, or nil after reporting an error.
func (c *TypeChecker) checkExpr(e Expr) types.Type {
	t := c.typeOf(e)
	if t != nil {
		c.info.Types[e] = t
	}
	return t
}

func (c *TypeChecker) typeOf(e Expr) types.Type {
	switch n := e.(type) {
	case *IntLiteral:
		return types.Int

	case *BoolLiteral:
		return types.Bool

	case *StringLiteral:
		return types.String

	case *NilLiteral:
		return types.Nil

	case *This:
		return c.class

	case *Variable:
		l, ok := c.scope[n.Name]
		if !ok {
			c.errorAt(n, "undefined variable %s", n.Name)
			return nil
		}
		c.info.Slots[n] = l.slot
		return l.typ

	case *FieldAccess:
		recv := c.checkExpr(n.Receiver)
		if recv == nil {
			return nil
		}
		class, ok := recv.(*types.ClassType)
		if !ok {
			c.errorAt(n, "%s has no fields", recv)
			return nil
		}
		f := class.FieldLookup(n.Name)
		if f == nil {
			c.errorAt(n, "unknown field %s in class %s", n.Name, class)
			return nil
		}
		c.info.Fields[n] = f
		return f.Type

	case *UnaryExpr:
		operand := c.checkExpr(n.Operand)
		if n.Op == TokenNot {
			c.expectType(n.Operand, operand, types.Bool, "!")
			return types.Bool
		}
		c.expectType(n.Operand, operand, types.Int, "-")
		return types.Int

	case *BinaryExpr:
		left := c.checkExpr(n.Left)
		right := c.checkExpr(n.Right)
		switch n.Op {
		case TokenPlus, TokenMinus, TokenStar, TokenSlash, TokenPercent:
			c.expectType(n.Left, left, types.Int, n.Op.String())
			c.expectType(n.Right, right, types.Int, n.Op.String())
			return types.Int
		case TokenLt, TokenLe, TokenGt, TokenGe:
			c.expectType(n.Left, left, types.Int, n.Op.String())
			c.expectType(n.Right, right, types.Int, n.Op.String())
			return types.Bool
		case TokenAnd, TokenOr:
			c.expectType(n.Left, left, types.Bool, n.Op.String())
			c.expectType(n.Right, right, types.Bool, n.Op.String())
			return types.Bool
		case TokenEq, TokenNe:
			if left != nil && right != nil && !left.AssignableTo(right) && !right.AssignableTo(left) {
				c.errorAt(n, "cannot compare %s with %s", left, right)
			}
			return types.Bool
		}
		c.errorAt(n, "unknown operator %s", n.Op)
		return nil
	}

	c.errorAt(e, "unsupported expression %T", e)
	return nil
}

func (c *TypeChecker) expectType(n Node, found, expected types.Type, context string) {
	if found != nil && found != expected {
		c.errs.Add(&TypeMismatchError{Pos: offsetOf(n), Context: context, Expected: expected, Found: found})
	}
}

// ---------------------------------------------------------------------------
// Dead code
// ---------------------------------------------------------------------------

// checkForDeadCode reports commands that follow a command which always
// returns. It reports whether cmd always returns. An assert never does: its
// false branch records the failure and carries on.
func checkForDeadCode(cmd Command, errs *ErrorList) bool {
	switch n := cmd.(type) {
	case *Return:
		return true
	case *BlockCommand:
		terminated := false
		for _, sub := range n.Commands {
			if terminated {
				errs.Add(&DeadCodeError{Pos: offsetOf(sub)})
				return true
			}
			terminated = checkForDeadCode(sub, errs)
		}
		return terminated
	case *IfThenElse:
		then := checkForDeadCode(n.Then, errs)
		if n.Else == nil {
			return false
		}
		return checkForDeadCode(n.Else, errs) && then
	}
	return false
}

package compiler

import (
	"fmt"

	"github.com/chazu/kitten/classfile"
	"github.com/chazu/kitten/compiler/emit"
	"github.com/chazu/kitten/compiler/ir"
	"github.com/chazu/kitten/types"
)

// ---------------------------------------------------------------------------
// Codegen: emit the class under test
// ---------------------------------------------------------------------------

// constructor pairs a constructor signature with its declaration. decl is
// nil for the implicit zero-argument constructor.
type constructor struct {
	sig  *types.ConstructorSignature
	decl *ConstructorDecl
}

func (c constructor) body() *BlockCommand {
	if c.decl == nil {
		return &BlockCommand{}
	}
	return c.decl.Body
}

func (c constructor) paramNames() []string {
	names := []string{"this"}
	if c.decl != nil {
		for _, p := range c.decl.Params {
			names = append(names, p.Name)
		}
	}
	return names
}

// emitClass builds the class file of class: its instance fields and its
// translated constructors. Fixtures and tests live in the harness class.
func emitClass(class *types.ClassType, ctors []constructor) (*classfile.Class, error) {
	super := ""
	if s := class.Superclass(); s != nil {
		super = s.Name()
	}
	b := classfile.NewBuilder(class.Name(), super)
	if src := class.Source(); src != nil {
		b.SetSource(src.Path)
	}

	for _, f := range class.Fields() {
		if err := b.AddField(classfile.Field{Name: f.Name, Type: f.Type.String()}); err != nil {
			return nil, err
		}
	}

	for _, c := range ctors {
		if c.sig.Code == nil {
			return nil, fmt.Errorf("%s: constructor has no code", class.Name())
		}
		chunk, err := emit.Linearize(c.sig.Code, emit.WithParams(c.paramNames()...))
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", class.Name(), types.ConstructorName, err)
		}
		params := make([]string, len(c.sig.Params))
		for i, p := range c.sig.Params {
			params[i] = p.String()
		}
		m := classfile.Method{Name: types.ConstructorName, Params: params, Return: string(ir.Void)}
		if err := b.AddMethod(m, chunk); err != nil {
			return nil, err
		}
	}

	return b.Build()
}

package classfile

import (
	"fmt"

	"github.com/chazu/kitten/pkg/bytecode"
	"github.com/chazu/kitten/types"
)

// Program is a set of loaded classes. It implements bytecode.Linker, so a
// VM can run any method of its classes.
type Program struct {
	classes map[string]*Class
	order   []string
	chunks  map[string]*bytecode.Chunk // "Class.method" -> code
}

// NewProgram loads classes, decoding every method. Class names must be
// unique and every superclass must be part of the program.
func NewProgram(classes ...*Class) (*Program, error) {
	p := &Program{
		classes: make(map[string]*Class, len(classes)),
		chunks:  make(map[string]*bytecode.Chunk),
	}
	for _, c := range classes {
		if _, dup := p.classes[c.name]; dup {
			return nil, fmt.Errorf("classfile: class %s loaded twice", c.name)
		}
		p.classes[c.name] = c
		p.order = append(p.order, c.name)
		for _, m := range c.methods {
			chunk, err := m.Chunk()
			if err != nil {
				return nil, fmt.Errorf("classfile: %s: %w", c.name, err)
			}
			p.chunks[c.name+"."+m.Name] = chunk
		}
	}
	for _, c := range classes {
		if err := p.checkHierarchy(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Program) checkHierarchy(c *Class) error {
	seen := map[string]bool{}
	for k := c; k.super != ""; {
		if seen[k.name] {
			return fmt.Errorf("classfile: cyclic inheritance involving %s", c.name)
		}
		seen[k.name] = true
		next, ok := p.classes[k.super]
		if !ok {
			return fmt.Errorf("classfile: %s: superclass %s not loaded", k.name, k.super)
		}
		k = next
	}
	return nil
}

// Class returns a loaded class by name.
func (p *Program) Class(name string) (*Class, bool) {
	c, ok := p.classes[name]
	return c, ok
}

// Classes returns the loaded classes in load order.
func (p *Program) Classes() []*Class {
	out := make([]*Class, len(p.order))
	for i, name := range p.order {
		out[i] = p.classes[name]
	}
	return out
}

// LookupMethod finds the code of name in class or its superclasses.
func (p *Program) LookupMethod(class, name string) (*bytecode.Chunk, error) {
	for k, ok := p.classes[class]; ok; k, ok = p.classes[k.super] {
		if chunk, found := p.chunks[k.name+"."+name]; found {
			return chunk, nil
		}
	}
	if _, ok := p.classes[class]; !ok {
		return nil, fmt.Errorf("unknown class %s", class)
	}
	return nil, fmt.Errorf("%s does not understand %s", class, name)
}

// InstanceFields returns the default values of the instance fields of class
// and its superclasses.
func (p *Program) InstanceFields(class string) (map[string]string, error) {
	if _, ok := p.classes[class]; !ok {
		return nil, fmt.Errorf("unknown class %s", class)
	}
	fields := make(map[string]string)
	for k, ok := p.classes[class]; ok; k, ok = p.classes[k.super] {
		for _, f := range k.fields {
			if f.Static {
				continue
			}
			if _, shadowed := fields[f.Name]; !shadowed {
				fields[f.Name] = zeroValue(f.Type)
			}
		}
	}
	return fields, nil
}

// zeroValue is the default of a field: the basic type's zero, or the nil
// reference for class types.
func zeroValue(typeName string) string {
	if b := types.Basic(typeName); b != nil {
		return b.Zero()
	}
	return bytecode.NilRef
}

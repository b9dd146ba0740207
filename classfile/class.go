// Package classfile is the loadable unit produced by the compiler: a class
// with fields and linearized methods, built through a Builder and encoded as
// canonical CBOR.
package classfile

import (
	"errors"
	"fmt"

	"github.com/chazu/kitten/pkg/bytecode"
)

// Extension is the file extension of encoded classes.
const Extension = ".kclass"

// Field is a field declaration.
type Field struct {
	Name   string `cbor:"1,keyasint"`
	Type   string `cbor:"2,keyasint"`
	Static bool   `cbor:"3,keyasint,omitempty"`
}

// Method is a method declaration with its linearized code.
type Method struct {
	Name   string   `cbor:"1,keyasint"`
	Params []string `cbor:"2,keyasint,omitempty"` // parameter types, receiver excluded
	Return string   `cbor:"3,keyasint"`
	Static bool     `cbor:"4,keyasint,omitempty"`
	Code   []byte   `cbor:"5,keyasint"` // serialized bytecode.Chunk
}

// Chunk decodes the method's code.
func (m Method) Chunk() (*bytecode.Chunk, error) {
	c, err := bytecode.Deserialize(m.Code)
	if err != nil {
		return nil, fmt.Errorf("method %s: %w", m.Name, err)
	}
	if err := c.Verify(); err != nil {
		return nil, fmt.Errorf("method %s: %w", m.Name, err)
	}
	return c, nil
}

// Class is an immutable compiled class. Accessors return copies.
type Class struct {
	name    string
	super   string
	source  string
	fields  []Field
	methods []Method
	hash    [32]byte
}

// Name returns the class name.
func (c *Class) Name() string { return c.name }

// Super returns the superclass name, or "".
func (c *Class) Super() string { return c.super }

// SourceFile returns the source file the class was compiled from.
func (c *Class) SourceFile() string { return c.source }

// Hash returns the SHA-256 of the class's canonical encoding.
func (c *Class) Hash() [32]byte { return c.hash }

// Fields returns the fields in declaration order.
func (c *Class) Fields() []Field {
	return append([]Field(nil), c.fields...)
}

// Methods returns the methods in declaration order.
func (c *Class) Methods() []Method {
	out := make([]Method, len(c.methods))
	for i, m := range c.methods {
		out[i] = m
		out[i].Params = append([]string(nil), m.Params...)
		out[i].Code = append([]byte(nil), m.Code...)
	}
	return out
}

// Method returns the method called name.
func (c *Class) Method(name string) (Method, bool) {
	for _, m := range c.methods {
		if m.Name == name {
			return m, true
		}
	}
	return Method{}, false
}

// ErrBuilt is returned when a Builder is used after Build.
var ErrBuilt = errors.New("classfile: builder already built")

// Builder accumulates the members of a class. The Class only exists once
// Build succeeds.
type Builder struct {
	name    string
	super   string
	source  string
	fields  []Field
	methods []Method
	names   map[string]bool
	built   bool
}

// NewBuilder starts a class called name whose superclass is super ("" for
// none).
func NewBuilder(name, super string) *Builder {
	return &Builder{name: name, super: super, names: make(map[string]bool)}
}

// SetSource records the source file name.
func (b *Builder) SetSource(file string) *Builder {
	b.source = file
	return b
}

// AddField declares a field. Field and method names share one namespace.
func (b *Builder) AddField(f Field) error {
	if b.built {
		return ErrBuilt
	}
	if err := b.claim(f.Name); err != nil {
		return err
	}
	b.fields = append(b.fields, f)
	return nil
}

// AddMethod declares a method whose code is chunk.
func (b *Builder) AddMethod(m Method, chunk *bytecode.Chunk) error {
	if b.built {
		return ErrBuilt
	}
	if err := b.claim(m.Name); err != nil {
		return err
	}
	code, err := chunk.Serialize()
	if err != nil {
		return fmt.Errorf("classfile: %s.%s: %w", b.name, m.Name, err)
	}
	m.Params = append([]string(nil), m.Params...)
	m.Code = code
	b.methods = append(b.methods, m)
	return nil
}

func (b *Builder) claim(name string) error {
	if name == "" {
		return fmt.Errorf("classfile: %s: empty member name", b.name)
	}
	if b.names[name] {
		return fmt.Errorf("classfile: %s: duplicate member %s", b.name, name)
	}
	b.names[name] = true
	return nil
}

// Build returns the finished class. The builder cannot be used afterwards.
func (b *Builder) Build() (*Class, error) {
	if b.built {
		return nil, ErrBuilt
	}
	if b.name == "" {
		return nil, errors.New("classfile: class has no name")
	}
	b.built = true
	c := &Class{
		name:    b.name,
		super:   b.super,
		source:  b.source,
		fields:  b.fields,
		methods: b.methods,
	}
	data, err := Marshal(c)
	if err != nil {
		return nil, err
	}
	c.hash = hashOf(data)
	return c, nil
}

package classfile

import (
	"crypto/sha256"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// FormatVersion is written into every encoded class.
const FormatVersion = 1

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("classfile: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// wireClass is the encoded form of a Class.
type wireClass struct {
	Version uint8    `cbor:"1,keyasint"`
	Name    string   `cbor:"2,keyasint"`
	Super   string   `cbor:"3,keyasint,omitempty"`
	Source  string   `cbor:"4,keyasint,omitempty"`
	Fields  []Field  `cbor:"5,keyasint,omitempty"`
	Methods []Method `cbor:"6,keyasint,omitempty"`
}

// Marshal encodes a class as canonical CBOR. Equal classes encode to equal
// bytes.
func Marshal(c *Class) ([]byte, error) {
	data, err := cborEncMode.Marshal(&wireClass{
		Version: FormatVersion,
		Name:    c.name,
		Super:   c.super,
		Source:  c.source,
		Fields:  c.fields,
		Methods: c.methods,
	})
	if err != nil {
		return nil, fmt.Errorf("classfile: marshal %s: %w", c.name, err)
	}
	return data, nil
}

// Unmarshal decodes a class and checks that every method's code decodes.
func Unmarshal(data []byte) (*Class, error) {
	var w wireClass
	if err := cbor.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("classfile: unmarshal: %w", err)
	}
	if w.Version != FormatVersion {
		return nil, fmt.Errorf("classfile: unsupported format version %d", w.Version)
	}
	if w.Name == "" {
		return nil, fmt.Errorf("classfile: class has no name")
	}
	for _, m := range w.Methods {
		if _, err := m.Chunk(); err != nil {
			return nil, fmt.Errorf("classfile: %s: %w", w.Name, err)
		}
	}
	c := &Class{
		name:    w.Name,
		super:   w.Super,
		source:  w.Source,
		fields:  w.Fields,
		methods: w.Methods,
	}
	canonical, err := Marshal(c)
	if err != nil {
		return nil, err
	}
	c.hash = hashOf(canonical)
	return c, nil
}

func hashOf(data []byte) [32]byte {
	return sha256.Sum256(data)
}

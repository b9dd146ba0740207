package classfile

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/kitten/pkg/bytecode"
)

// returning builds a static method body returning value.
func returning(value string) *bytecode.Chunk {
	c := bytecode.NewChunk()
	c.Flags |= bytecode.ChunkFlagReturnsValue
	c.EmitConstant(value)
	c.Emit(bytecode.OpReturn)
	return c
}

func voidChunk(params uint8) *bytecode.Chunk {
	c := bytecode.NewChunk()
	c.ParamCount = params
	c.LocalCount = params
	c.Emit(bytecode.OpReturnVoid)
	return c
}

func buildClass(t *testing.T, name, super string, build func(*Builder)) *Class {
	t.Helper()
	b := NewBuilder(name, super).SetSource("src.kit")
	if build != nil {
		build(b)
	}
	c, err := b.Build()
	if err != nil {
		t.Fatalf("Build(%s): %v", name, err)
	}
	return c
}

func TestBuilder(t *testing.T) {
	c := buildClass(t, "Point", "", func(b *Builder) {
		if err := b.AddField(Field{Name: "x", Type: "int"}); err != nil {
			t.Fatal(err)
		}
		if err := b.AddField(Field{Name: "count", Type: "String", Static: true}); err != nil {
			t.Fatal(err)
		}
		if err := b.AddMethod(Method{Name: "answer", Return: "String", Static: true}, returning("42")); err != nil {
			t.Fatal(err)
		}
	})

	if c.Name() != "Point" || c.Super() != "" || c.SourceFile() != "src.kit" {
		t.Errorf("class = %s extends %q from %q", c.Name(), c.Super(), c.SourceFile())
	}
	if len(c.Fields()) != 2 || !c.Fields()[1].Static {
		t.Errorf("fields = %+v", c.Fields())
	}
	m, ok := c.Method("answer")
	if !ok {
		t.Fatal("method answer missing")
	}
	chunk, err := m.Chunk()
	if err != nil {
		t.Fatal(err)
	}
	if got := chunk.Opcodes(); len(got) != 2 || got[1] != bytecode.OpReturn {
		t.Errorf("opcodes = %v", got)
	}
	if _, ok := c.Method("missing"); ok {
		t.Error("found a method that was never added")
	}

	// Accessors hand out copies.
	c.Methods()[0].Code[0] = 0xFF
	c.Fields()[0].Name = "y"
	if c.Fields()[0].Name != "x" {
		t.Error("Fields exposes the class's storage")
	}
	if m2, _ := c.Method("answer"); !bytes.Equal(m2.Code, m.Code) {
		t.Error("Methods exposes the class's storage")
	}
}

func TestBuilderRejects(t *testing.T) {
	b := NewBuilder("A", "")
	if err := b.AddField(Field{Name: "x", Type: "int"}); err != nil {
		t.Fatal(err)
	}
	if err := b.AddField(Field{Name: "x", Type: "int"}); err == nil || !strings.Contains(err.Error(), "duplicate member x") {
		t.Errorf("duplicate field: %v", err)
	}
	if err := b.AddMethod(Method{Name: "x", Return: "void"}, voidChunk(0)); err == nil {
		t.Error("a method may not reuse a field name")
	}
	if err := b.AddField(Field{Type: "int"}); err == nil {
		t.Error("empty member name accepted")
	}
	if _, err := b.Build(); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Build(); !errors.Is(err, ErrBuilt) {
		t.Errorf("second Build: %v, want ErrBuilt", err)
	}
	if err := b.AddField(Field{Name: "y", Type: "int"}); !errors.Is(err, ErrBuilt) {
		t.Errorf("AddField after Build: %v, want ErrBuilt", err)
	}
	if _, err := NewBuilder("", "").Build(); err == nil {
		t.Error("nameless class built")
	}
}

func TestMarshalRoundTripKeepsHash(t *testing.T) {
	c := buildClass(t, "A", "Base", func(b *Builder) {
		_ = b.AddField(Field{Name: "n", Type: "int"})
		_ = b.AddMethod(Method{Name: "run", Params: []string{"A"}, Return: "void", Static: true}, voidChunk(1))
	})
	data, err := Marshal(c)
	if err != nil {
		t.Fatal(err)
	}
	again, err := Unmarshal(data)
	if err != nil {
		t.Fatal(err)
	}
	if again.Hash() != c.Hash() {
		t.Error("hash changed across a round trip")
	}
	if again.Super() != "Base" || again.SourceFile() != "src.kit" {
		t.Errorf("decoded class = %s extends %s", again.Name(), again.Super())
	}

	same := buildClass(t, "A", "Base", func(b *Builder) {
		_ = b.AddField(Field{Name: "n", Type: "int"})
		_ = b.AddMethod(Method{Name: "run", Params: []string{"A"}, Return: "void", Static: true}, voidChunk(1))
	})
	if same.Hash() != c.Hash() {
		t.Error("equal classes hash differently")
	}
	other := buildClass(t, "A", "Base", nil)
	if other.Hash() == c.Hash() {
		t.Error("different classes share a hash")
	}
}

func TestUnmarshalRejects(t *testing.T) {
	if _, err := Unmarshal([]byte{0xFF, 0x00}); err == nil {
		t.Error("garbage decoded")
	}
	data, err := cborEncMode.Marshal(&wireClass{Version: FormatVersion + 1, Name: "A"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Unmarshal(data); err == nil || !strings.Contains(err.Error(), "unsupported format version") {
		t.Errorf("future version: %v", err)
	}
	data, _ = cborEncMode.Marshal(&wireClass{
		Version: FormatVersion,
		Name:    "A",
		Methods: []Method{{Name: "m", Return: "void", Code: []byte("not a chunk")}},
	})
	if _, err := Unmarshal(data); err == nil {
		t.Error("method with corrupt code decoded")
	}
}

func TestProgram(t *testing.T) {
	base := buildClass(t, "Base", "", func(b *Builder) {
		_ = b.AddField(Field{Name: "flag", Type: "boolean"})
		_ = b.AddField(Field{Name: "label", Type: "String"})
		_ = b.AddMethod(Method{Name: "answer", Return: "String", Static: true}, returning("base"))
	})
	derived := buildClass(t, "Derived", "Base", func(b *Builder) {
		_ = b.AddField(Field{Name: "n", Type: "int"})
		_ = b.AddField(Field{Name: "next", Type: "Derived"})
		_ = b.AddField(Field{Name: "total", Type: "String", Static: true})
	})

	p, err := NewProgram(base, derived)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.LookupMethod("Derived", "answer"); err != nil {
		t.Errorf("inherited method: %v", err)
	}
	if _, err := p.LookupMethod("Derived", "missing"); err == nil || !strings.Contains(err.Error(), "does not understand") {
		t.Errorf("missing method: %v", err)
	}
	if _, err := p.LookupMethod("Nowhere", "answer"); err == nil || !strings.Contains(err.Error(), "unknown class") {
		t.Errorf("missing class: %v", err)
	}

	fields, err := p.InstanceFields("Derived")
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{"n": "0", "next": bytecode.NilRef, "flag": "false", "label": ""}
	if len(fields) != len(want) {
		t.Errorf("fields = %v, want %v", fields, want)
	}
	for k, v := range want {
		if fields[k] != v {
			t.Errorf("field %s = %q, want %q", k, fields[k], v)
		}
	}

	vm := bytecode.NewVM(p)
	got, err := vm.Invoke("Derived.answer")
	if err != nil || got != "base" {
		t.Errorf("Invoke = %q, %v", got, err)
	}
	if names := p.Classes(); len(names) != 2 || names[0] != base {
		t.Errorf("Classes = %v", names)
	}
}

func TestProgramRejects(t *testing.T) {
	a := buildClass(t, "A", "", nil)
	if _, err := NewProgram(a, a); err == nil || !strings.Contains(err.Error(), "loaded twice") {
		t.Errorf("duplicate: %v", err)
	}
	orphan := buildClass(t, "B", "Missing", nil)
	if _, err := NewProgram(orphan); err == nil || !strings.Contains(err.Error(), "superclass Missing not loaded") {
		t.Errorf("orphan: %v", err)
	}
	x := buildClass(t, "X", "Y", nil)
	y := buildClass(t, "Y", "X", nil)
	if _, err := NewProgram(x, y); err == nil || !strings.Contains(err.Error(), "cyclic inheritance") {
		t.Errorf("cycle: %v", err)
	}
}

func TestFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	a := buildClass(t, "A", "", nil)
	b := buildClass(t, "A$Test", "", func(b *Builder) {
		_ = b.AddMethod(Method{Name: "main", Params: []string{"String[]"}, Return: "void", Static: true}, voidChunk(1))
	})
	for _, c := range []*Class{b, a} {
		path, err := WriteFile(dir, c)
		if err != nil {
			t.Fatal(err)
		}
		if filepath.Base(path) != FileName(c.Name()) {
			t.Errorf("path = %s", path)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 2 || loaded[0].Name() != "A" || loaded[1].Name() != "A$Test" {
		t.Fatalf("loaded = %v", loaded)
	}
	if loaded[1].Hash() != b.Hash() {
		t.Error("hash changed on disk")
	}

	if _, err := ReadFile(filepath.Join(dir, "missing.kclass")); err == nil {
		t.Error("reading a missing file succeeded")
	}
	if _, err := LoadDir(filepath.Join(dir, "absent")); err == nil {
		t.Error("loading a missing directory succeeded")
	}
}

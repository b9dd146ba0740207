// Package bytecode defines the concrete instruction encoding of Kitten
// classes and a stack-based virtual machine that runs it.
//
// The format is designed for:
//   - Compact representation (1-4 bytes per instruction)
//   - Fast decoding (single-byte opcodes, fixed operand widths)
//   - Easy serialization (the "KTBC" body format embedded in class files)
//
// # Architecture Overview
//
//   - Opcodes: stack instructions covering constants, locals, static and
//     instance fields, arithmetic, comparison, jumps, static/virtual/special
//     invocation and two system services (NANOTIME, PRINT).
//
//   - Chunk: the linearized body of one method: code, constant pool,
//     parameter and local counts, optional debug map. Jumps carry signed
//     16-bit offsets relative to the end of the jump instruction.
//
//   - VM: executes chunks resolved through a Linker. Every value is a
//     string: integers in decimal, booleans as "true"/"false", object
//     references as "Class@N", the nil reference as NilRef.
//
// Nothing in this package knows about the compiler's block graph; the
// compiler's emit package is the only producer of chunks.
package bytecode

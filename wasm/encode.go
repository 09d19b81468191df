package wasm

import (
	"bytes"
	"encoding/binary"

	"github.com/jcalabro/leb128"
)

// Encode encodes the module to WebAssembly binary format
func (m *Module) Encode() []byte {
	var w bytes.Buffer

	// Magic number and version
	writeU32LE(&w, Magic)
	writeU32LE(&w, Version)

	// Type section
	if len(m.Types) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(m.Types)))
		for _, ft := range m.Types {
			sec.WriteByte(FuncTypeByte)
			writeValTypes(&sec, ft.Params)
			writeValTypes(&sec, ft.Results)
		}
		writeSection(&w, SectionType, sec.Bytes())
	}

	// Import section
	if len(m.Imports) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(m.Imports)))
		for _, imp := range m.Imports {
			writeName(&sec, imp.Module)
			writeName(&sec, imp.Name)
			sec.WriteByte(imp.Kind())
			if imp.Memory != nil {
				writeLimits(&sec, *imp.Memory)
			} else {
				writeU32(&sec, imp.TypeIdx)
			}
		}
		writeSection(&w, SectionImport, sec.Bytes())
	}

	// Function section
	if len(m.Funcs) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(m.Funcs)))
		for _, typeIdx := range m.Funcs {
			writeU32(&sec, typeIdx)
		}
		writeSection(&w, SectionFunction, sec.Bytes())
	}

	// Memory section
	if len(m.Memories) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(m.Memories)))
		for _, mem := range m.Memories {
			writeLimits(&sec, mem)
		}
		writeSection(&w, SectionMemory, sec.Bytes())
	}

	// Export section
	if len(m.Exports) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(m.Exports)))
		for _, exp := range m.Exports {
			writeName(&sec, exp.Name)
			sec.WriteByte(exp.Kind)
			writeU32(&sec, exp.Idx)
		}
		writeSection(&w, SectionExport, sec.Bytes())
	}

	// Start section
	if m.Start != nil {
		var sec bytes.Buffer
		writeU32(&sec, *m.Start)
		writeSection(&w, SectionStart, sec.Bytes())
	}

	// Code section
	if len(m.Code) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(m.Code)))
		for _, body := range m.Code {
			var fb bytes.Buffer
			writeU32(&fb, uint32(len(body.Locals)))
			for _, l := range body.Locals {
				writeU32(&fb, l.Count)
				fb.WriteByte(byte(l.Type))
			}
			fb.Write(body.Code)
			writeU32(&sec, uint32(fb.Len()))
			sec.Write(fb.Bytes())
		}
		writeSection(&w, SectionCode, sec.Bytes())
	}

	return w.Bytes()
}

func writeSection(w *bytes.Buffer, id byte, data []byte) {
	w.WriteByte(id)
	writeU32(w, uint32(len(data)))
	w.Write(data)
}

func writeValTypes(w *bytes.Buffer, types []ValType) {
	writeU32(w, uint32(len(types)))
	for _, t := range types {
		w.WriteByte(byte(t))
	}
}

func writeLimits(w *bytes.Buffer, l Limits) {
	if l.Max != nil {
		w.WriteByte(0x01)
		writeU32(w, l.Min)
		writeU32(w, *l.Max)
		return
	}
	w.WriteByte(0x00)
	writeU32(w, l.Min)
}

func writeName(w *bytes.Buffer, s string) {
	writeU32(w, uint32(len(s)))
	w.WriteString(s)
}

func writeU32(w *bytes.Buffer, v uint32) {
	w.Write(leb128.EncodeU64(uint64(v)))
}

func writeU32LE(w *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.Write(b[:])
}

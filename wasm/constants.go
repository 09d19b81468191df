package wasm

// WebAssembly binary format magic number and version.
const (
	// Magic is the WebAssembly binary magic number ("\0asm" in little-endian).
	Magic uint32 = 0x6D736100

	// Version is the supported WebAssembly binary format version.
	Version uint32 = 0x01
)

// Section IDs define the binary identifiers for each module section.
// Sections must appear in increasing order by ID (except custom sections).
const (
	SectionCustom   byte = 0
	SectionType     byte = 1
	SectionImport   byte = 2
	SectionFunction byte = 3
	SectionMemory   byte = 5
	SectionExport   byte = 7
	SectionStart    byte = 8
	SectionCode     byte = 10
)

// Import/Export descriptor kinds.
const (
	KindFunc   byte = 0
	KindMemory byte = 2
)

// Value type encodings.
const (
	ValI32  ValType = 0x7F
	ValI64  ValType = 0x7E
	ValF32  ValType = 0x7D
	ValF64  ValType = 0x7C
	ValV128 ValType = 0x7B
)

// FuncTypeByte prefixes every function type in the type section.
const FuncTypeByte byte = 0x60

// Opcodes used by the instruction helpers.
const (
	OpUnreachable byte = 0x00
	OpNop         byte = 0x01
	OpBlock       byte = 0x02
	OpLoop        byte = 0x03
	OpIf          byte = 0x04
	OpElse        byte = 0x05
	OpEnd         byte = 0x0B
	OpBr          byte = 0x0C
	OpBrIf        byte = 0x0D
	OpReturn      byte = 0x0F
	OpCall        byte = 0x10
	OpDrop        byte = 0x1A

	OpLocalGet  byte = 0x20
	OpLocalSet  byte = 0x21
	OpLocalTee  byte = 0x22
	OpGlobalGet byte = 0x23

	OpI32Const byte = 0x41
	OpI64Const byte = 0x42
	OpF32Const byte = 0x43
	OpF64Const byte = 0x44

	OpI32Eqz byte = 0x45
	OpI32Add byte = 0x6A
	OpI32Sub byte = 0x6B
	OpI32Mul byte = 0x6C
	OpI64Add byte = 0x7C
	OpI64Mul byte = 0x7E
	OpF32Add byte = 0x92
	OpF64Add byte = 0xA0
	OpF64Mul byte = 0xA2

	OpI32WrapI64     byte = 0xA7
	OpI64ExtendI32S  byte = 0xAC
	OpF64ConvertI32S byte = 0xB7
	OpF64PromoteF32  byte = 0xBB

	// OpPrefixSIMD introduces 0xFD-prefixed vector instructions.
	OpPrefixSIMD byte = 0xFD
)

// SIMD sub-opcodes (LEB128-encoded after OpPrefixSIMD).
const (
	SIMDV128Const uint32 = 12
	SIMDI64x2Add  uint32 = 206
)

// BlockEmpty is the block type of a block with no results.
const BlockEmpty byte = 0x40

package packet

import "fmt"

// Client → server opcodes.
const (
	C_OPCODE_ENTER_WORLD   byte = 12
	C_OPCODE_SELECT_TARGET byte = 23
	C_OPCODE_CAST_SPELL    byte = 39
	C_OPCODE_CANCEL_CAST   byte = 40
	C_OPCODE_MOVE          byte = 41
	C_OPCODE_ATTACK        byte = 42
	C_OPCODE_QUIT          byte = 99
)

// Server → client opcodes.
const (
	S_OPCODE_WELCOME        byte = 150
	S_OPCODE_ENTER_WORLD    byte = 151
	S_OPCODE_SPELL_START    byte = 160
	S_OPCODE_CAST_FAILED    byte = 161
	S_OPCODE_SPELL_GO       byte = 162
	S_OPCODE_CAST_DELAYED   byte = 163
	S_OPCODE_CHANNEL_UPDATE byte = 164
)

var opcodeNames = map[byte]string{
	C_OPCODE_ENTER_WORLD:    "C_ENTER_WORLD",
	C_OPCODE_SELECT_TARGET:  "C_SELECT_TARGET",
	C_OPCODE_CAST_SPELL:     "C_CAST_SPELL",
	C_OPCODE_CANCEL_CAST:    "C_CANCEL_CAST",
	C_OPCODE_MOVE:           "C_MOVE",
	C_OPCODE_ATTACK:         "C_ATTACK",
	C_OPCODE_QUIT:           "C_QUIT",
	S_OPCODE_WELCOME:        "S_WELCOME",
	S_OPCODE_ENTER_WORLD:    "S_ENTER_WORLD",
	S_OPCODE_SPELL_START:    "S_SPELL_START",
	S_OPCODE_CAST_FAILED:    "S_CAST_FAILED",
	S_OPCODE_SPELL_GO:       "S_SPELL_GO",
	S_OPCODE_CAST_DELAYED:   "S_CAST_DELAYED",
	S_OPCODE_CHANNEL_UPDATE: "S_CHANNEL_UPDATE",
}

// OpcodeName returns the log name of op, "op(N)" when unknown.
func OpcodeName(op byte) string {
	if n, ok := opcodeNames[op]; ok {
		return n
	}
	return fmt.Sprintf("op(%d)", op)
}

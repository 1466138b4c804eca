package packet

import (
	"errors"
	"testing"

	"go.uber.org/zap"
)

func TestWriterReaderFields(t *testing.T) {
	w := NewWriterWithOpcode(C_OPCODE_CAST_SPELL)
	w.WriteC(3)
	w.WriteH(513)
	w.WriteD(-7)
	w.WriteQ(1<<32 | 5)
	w.WriteF(1.5)
	w.WriteS("火球")
	raw := w.Bytes()
	if len(raw)%4 != 0 {
		t.Fatalf("len %d not padded", len(raw))
	}

	r := NewReader(raw)
	if r.Opcode() != C_OPCODE_CAST_SPELL {
		t.Fatalf("opcode = %d", r.Opcode())
	}
	if v := r.ReadC(); v != 3 {
		t.Fatalf("ReadC = %d", v)
	}
	if v := r.ReadH(); v != 513 {
		t.Fatalf("ReadH = %d", v)
	}
	if v := r.ReadD(); v != -7 {
		t.Fatalf("ReadD = %d", v)
	}
	if v := r.ReadQ(); v != 1<<32|5 {
		t.Fatalf("ReadQ = %d", v)
	}
	if v := r.ReadF(); v != 1.5 {
		t.Fatalf("ReadF = %v", v)
	}
	if v := r.ReadS(); v != "火球" {
		t.Fatalf("ReadS = %q", v)
	}
}

func TestReaderPastEnd(t *testing.T) {
	r := NewReader([]byte{C_OPCODE_CANCEL_CAST})
	if r.ReadD() != 0 || r.ReadQ() != 0 || r.ReadS() != "" {
		t.Fatal("short reads must return zero values")
	}
}

func TestRegistryDispatch(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	var got byte
	reg.Register(C_OPCODE_CANCEL_CAST, []SessionState{StateInWorld}, func(_ any, r *Reader) {
		got = r.ReadC()
	})
	reg.Register(C_OPCODE_QUIT, []SessionState{StateInWorld}, func(any, *Reader) {
		panic("boom")
	})

	if err := reg.Dispatch(nil, StateConnected, []byte{C_OPCODE_CANCEL_CAST, 9}); !errors.Is(err, ErrWrongState) {
		t.Fatalf("dispatch in wrong state: err = %v", err)
	}
	if err := reg.Dispatch(nil, StateInWorld, []byte{C_OPCODE_CANCEL_CAST, 9}); err != nil || got != 9 {
		t.Fatalf("dispatch err=%v got=%d", err, got)
	}
	if err := reg.Dispatch(nil, StateInWorld, []byte{200}); err != nil {
		t.Fatalf("unknown opcode should be ignored, got %v", err)
	}
	if err := reg.Dispatch(nil, StateInWorld, []byte{C_OPCODE_QUIT}); err == nil {
		t.Fatal("handler panic should surface as error")
	}
	if err := reg.Dispatch(nil, StateInWorld, nil); !errors.Is(err, ErrEmptyPacket) {
		t.Fatalf("empty packet: err = %v", err)
	}
	// out-of-range states never match
	if err := reg.Dispatch(nil, SessionState(12), []byte{C_OPCODE_CANCEL_CAST, 1}); !errors.Is(err, ErrWrongState) {
		t.Fatalf("unknown state: err = %v", err)
	}
}

func TestOpcodeName(t *testing.T) {
	if got := OpcodeName(C_OPCODE_CAST_SPELL); got != "C_CAST_SPELL" {
		t.Errorf("OpcodeName = %q", got)
	}
	if got := OpcodeName(7); got != "op(7)" {
		t.Errorf("OpcodeName(7) = %q", got)
	}
}

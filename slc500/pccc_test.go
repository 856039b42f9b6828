package slc500

import "testing"

func TestParseAddressWord(t *testing.T) {
	a, err := ParseAddress("N7:12")
	if err != nil {
		t.Fatalf("ParseAddress: %v", err)
	}
	if a.File != FileInteger || a.FileNum != 7 || a.Element != 12 || a.HasBit {
		t.Fatalf("got %+v", a)
	}
}

func TestParseAddressBit(t *testing.T) {
	a, err := ParseAddress("B3:0/5")
	if err != nil {
		t.Fatalf("ParseAddress: %v", err)
	}
	if a.File != FileBinary || a.FileNum != 3 || a.Element != 0 || !a.HasBit || a.Bit != 5 {
		t.Fatalf("got %+v", a)
	}
}

func TestParseAddressFloat(t *testing.T) {
	a, err := ParseAddress("F8:3")
	if err != nil {
		t.Fatalf("ParseAddress: %v", err)
	}
	if a.File != FileFloat || a.byteSize() != 4 {
		t.Fatalf("expected float file with 4-byte elements, got %+v", a)
	}
}

func TestParseAddressRejectsMissingColon(t *testing.T) {
	if _, err := ParseAddress("N712"); err == nil {
		t.Fatalf("expected error for missing ':'")
	}
}

func TestEncodeDF1FrameHasHeaderAndTrailer(t *testing.T) {
	payload := []byte{0x0F, 0xA2, 0x01, 0x00, 0x02, 0x07, 'N', 0x0C, 0x00}
	frame := encodeDF1Frame(payload)
	if frame[0] != dle || frame[1] != stx {
		t.Fatalf("frame missing DLE STX header")
	}
	if frame[len(frame)-4] != dle || frame[len(frame)-3] != etx {
		t.Fatalf("frame missing DLE ETX trailer")
	}
}

func TestCRC16IsDeterministic(t *testing.T) {
	a := crc16([]byte{1, 2, 3, 4})
	b := crc16([]byte{1, 2, 3, 4})
	if a != b {
		t.Fatalf("crc16 not deterministic: %v vs %v", a, b)
	}
	if a == crc16([]byte{1, 2, 3, 5}) {
		t.Fatalf("crc16 collided on a single-byte difference")
	}
}

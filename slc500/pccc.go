package slc500

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// PCCC command/function codes used by this driver. 0x0F/0xA2 is the
// "Protected Typed Logical Read with Three Address Fields" command; 0x0F/0xAA
// is its write counterpart. These are the commands SLC programming software
// uses for ad hoc single-element reads/writes.
const (
	cmdTypedRead  = 0x0F
	fnTypedRead   = 0xA2
	cmdTypedWrite = 0x0F
	fnTypedWrite  = 0xAA
)

// FileType identifies an SLC data-table file type letter.
type FileType byte

const (
	FileOutput   FileType = 'O'
	FileInput    FileType = 'I'
	FileStatus   FileType = 'S'
	FileBinary   FileType = 'B'
	FileTimer    FileType = 'T'
	FileCounter  FileType = 'C'
	FileControl  FileType = 'R'
	FileInteger  FileType = 'N'
	FileFloat    FileType = 'F'
)

// Address is a parsed SLC data-table reference such as "N7:0" or "B3:0/1".
type Address struct {
	File    FileType
	FileNum int
	Element int
	Bit     int  // -1 if the address does not reference a single bit
	HasBit  bool
}

// ParseAddress parses classic SLC address syntax: <letter><file>:<element>
// optionally followed by "/<bit>", e.g. "N7:0", "F8:3", "B3:0/1".
func ParseAddress(addr string) (Address, error) {
	if len(addr) < 3 {
		return Address{}, fmt.Errorf("slc500: address %q too short", addr)
	}
	file := FileType(addr[0])
	rest := addr[1:]

	colon := strings.IndexByte(rest, ':')
	if colon < 0 {
		return Address{}, fmt.Errorf("slc500: address %q missing ':'", addr)
	}
	fileNum, err := strconv.Atoi(rest[:colon])
	if err != nil {
		return Address{}, fmt.Errorf("slc500: address %q bad file number: %w", addr, err)
	}

	elemPart := rest[colon+1:]
	bit := -1
	hasBit := false
	if slash := strings.IndexByte(elemPart, '/'); slash >= 0 {
		b, err := strconv.Atoi(elemPart[slash+1:])
		if err != nil {
			return Address{}, fmt.Errorf("slc500: address %q bad bit: %w", addr, err)
		}
		bit = b
		hasBit = true
		elemPart = elemPart[:slash]
	}
	elem, err := strconv.Atoi(elemPart)
	if err != nil {
		return Address{}, fmt.Errorf("slc500: address %q bad element: %w", addr, err)
	}

	return Address{File: file, FileNum: fileNum, Element: elem, Bit: bit, HasBit: hasBit}, nil
}

// byteSize returns the per-element size in bytes for this file's data type.
func (a Address) byteSize() int {
	if a.File == FileFloat {
		return 4
	}
	return 2
}

// buildThreeAddressFields encodes the PCCC "three address fields" byte
// sequence: byte size, file number, file type, element number, sub-element.
func (a Address) buildThreeAddressFields() []byte {
	out := []byte{byte(a.byteSize())}
	out = appendWordAddress(out, a.FileNum)
	out = append(out, byte(a.File))
	out = appendWordAddress(out, a.Element)
	out = append(out, 0x00) // sub-element, unused for scalar reads
	return out
}

// appendWordAddress encodes a PCCC "word address" field: a value <= 0xFE
// fits in one byte; larger values are escaped with a 0xFF marker followed by
// a little-endian 16-bit word, per the PCCC file/element addressing rule.
func appendWordAddress(out []byte, v int) []byte {
	if v <= 0xFE {
		return append(out, byte(v))
	}
	out = append(out, 0xFF)
	return binary.LittleEndian.AppendUint16(out, uint16(v))
}

// ReadElement reads one data-table element (a word or a float) and returns
// it as int16 (for N/B/T/C/S/integer-shaped files), float32 (for F files), or
// bool for a single-bit address such as "B3:0/1".
func (c *Client) ReadElement(addr Address) (interface{}, error) {
	cmd := []byte{cmdTypedRead, fnTypedRead, byte(c.nextTNS()), byte(c.tns >> 8)}
	cmd = append(cmd, addr.buildThreeAddressFields()...)

	data, err := c.transact(cmd)
	if err != nil {
		return nil, fmt.Errorf("slc500: read %c%d:%d: %w", addr.File, addr.FileNum, addr.Element, err)
	}

	switch addr.File {
	case FileFloat:
		if len(data) < 4 {
			return nil, fmt.Errorf("slc500: short float reply (%d bytes)", len(data))
		}
		bits := binary.LittleEndian.Uint32(data)
		return math.Float32frombits(bits), nil
	default:
		if len(data) < 2 {
			return nil, fmt.Errorf("slc500: short word reply (%d bytes)", len(data))
		}
		word := int16(binary.LittleEndian.Uint16(data))
		if addr.HasBit {
			return (word>>uint(addr.Bit))&1 != 0, nil
		}
		return word, nil
	}
}

// WriteElement writes one data-table element. value must be an int-like
// kind for N/B/T/C/S files, a bool for a single-bit address, or a float
// kind for F files.
func (c *Client) WriteElement(addr Address, value interface{}) error {
	var payload []byte
	switch addr.File {
	case FileFloat:
		f, err := toFloat32(value)
		if err != nil {
			return fmt.Errorf("slc500: write %c%d:%d: %w", addr.File, addr.FileNum, addr.Element, err)
		}
		payload = binary.LittleEndian.AppendUint32(nil, math.Float32bits(f))
	default:
		if addr.HasBit {
			current, err := c.ReadElement(Address{File: addr.File, FileNum: addr.FileNum, Element: addr.Element})
			if err != nil {
				return fmt.Errorf("slc500: read-modify-write %c%d:%d/%d: %w", addr.File, addr.FileNum, addr.Element, addr.Bit, err)
			}
			word := current.(int16)
			b, err := toBool(value)
			if err != nil {
				return err
			}
			if b {
				word |= 1 << uint(addr.Bit)
			} else {
				word &^= 1 << uint(addr.Bit)
			}
			payload = binary.LittleEndian.AppendUint16(nil, uint16(word))
		} else {
			i, err := toInt16(value)
			if err != nil {
				return fmt.Errorf("slc500: write %c%d:%d: %w", addr.File, addr.FileNum, addr.Element, err)
			}
			payload = binary.LittleEndian.AppendUint16(nil, uint16(i))
		}
	}

	cmd := []byte{cmdTypedWrite, fnTypedWrite, byte(c.nextTNS()), byte(c.tns >> 8)}
	cmd = append(cmd, addr.buildThreeAddressFields()...)
	cmd = append(cmd, payload...)

	_, err := c.transact(cmd)
	if err != nil {
		return fmt.Errorf("slc500: write %c%d:%d: %w", addr.File, addr.FileNum, addr.Element, err)
	}
	return nil
}

func toInt16(v interface{}) (int16, error) {
	switch n := v.(type) {
	case int16:
		return n, nil
	case int:
		return int16(n), nil
	case int32:
		return int16(n), nil
	case int64:
		return int16(n), nil
	case float64:
		return int16(n), nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to int16", v)
	}
}

func toFloat32(v interface{}) (float32, error) {
	switch n := v.(type) {
	case float32:
		return n, nil
	case float64:
		return float32(n), nil
	case int:
		return float32(n), nil
	case int64:
		return float32(n), nil
	default:
		return 0, fmt.Errorf("cannot convert %T to float32", v)
	}
}

func toBool(v interface{}) (bool, error) {
	switch n := v.(type) {
	case bool:
		return n, nil
	case int:
		return n != 0, nil
	case int64:
		return n != 0, nil
	default:
		return false, fmt.Errorf("cannot convert %T to bool", v)
	}
}

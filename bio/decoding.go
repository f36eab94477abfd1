package bio

import (
	"encoding/binary"
	"github.com/pkg/errors"
	"io"
)

// MaxVarBytes bounds length-prefixed reads so a corrupt prefix cannot
// trigger a huge allocation.
const MaxVarBytes = 32 * 1024 * 1024

var ErrVarBytesTooLong = errors.New("var bytes exceed maximum length")

type GuardReader struct {
	r   io.Reader
	N   int64
	Err error
}

func NewGuardReader(r io.Reader) *GuardReader {
	return &GuardReader{
		r: r,
	}
}

func (g *GuardReader) Read(b []byte) (int, error) {
	if g.Err != nil {
		return 0, g.Err
	}

	n, err := g.r.Read(b)
	g.N += int64(n)
	if err != nil {
		g.Err = err
	}
	return n, err
}

func ReadByte(r io.Reader) (byte, error) {
	b, err := ReadFixedBytes(r, 1)
	if err != nil {
		return 0, err
	}
	return b[0], err
}

func ReadBool(r io.Reader) (bool, error) {
	b, err := ReadByte(r)
	if err != nil {
		return false, err
	}
	return b == 1, nil
}

func ReadFixedBytes(r io.Reader, byteLen int) ([]byte, error) {
	b := make([]byte, byteLen)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

func ReadFixed32(r io.Reader) ([32]byte, error) {
	var out [32]byte
	if _, err := io.ReadFull(r, out[:]); err != nil {
		return out, err
	}
	return out, nil
}

func ReadVarBytes(r io.Reader) ([]byte, error) {
	l, err := ReadVarint(r)
	if err != nil {
		return nil, err
	}
	if l > MaxVarBytes {
		return nil, ErrVarBytesTooLong
	}
	return ReadFixedBytes(r, int(l))
}

func ReadVarint(r io.Reader) (uint64, error) {
	sigil, err := ReadByte(r)
	if err != nil {
		return 0, err
	}
	if sigil < 0xfd {
		return uint64(sigil), nil
	}
	if sigil == 0xfd {
		num := make([]byte, 2)
		if _, err := io.ReadFull(r, num); err != nil {
			return 0, err
		}
		return uint64(binary.LittleEndian.Uint16(num)), nil
	}
	if sigil == 0xfe {
		num := make([]byte, 4)
		if _, err := io.ReadFull(r, num); err != nil {
			return 0, err
		}
		return uint64(binary.LittleEndian.Uint32(num)), nil
	}
	num := make([]byte, 8)
	if _, err := io.ReadFull(r, num); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(num), nil
}

func ReadUint64LE(r io.Reader) (uint64, error) {
	b, err := ReadFixedBytes(r, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func ReadUint64BE(r io.Reader) (uint64, error) {
	b, err := ReadFixedBytes(r, 8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

package substrate

import (
	"encoding/binary"
	"errors"
	"math/big"
)

// AppendCompact appends the SCALE compact encoding of v to dst.
func AppendCompact(dst []byte, v *big.Int) []byte {
	if v == nil || v.Sign() <= 0 {
		return append(dst, 0x00)
	}
	if v.IsUint64() {
		return AppendCompactUint64(dst, v.Uint64())
	}
	return appendCompactBig(dst, v)
}

// AppendCompactUint64 is AppendCompact for machine-sized values.
func AppendCompactUint64(dst []byte, v uint64) []byte {
	switch {
	case v < 1<<6:
		return append(dst, byte(v<<2))
	case v < 1<<14:
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], uint16(v<<2)|0b01)
		return append(dst, b[:]...)
	case v < 1<<30:
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], uint32(v<<2)|0b10)
		return append(dst, b[:]...)
	}
	return appendCompactBig(dst, new(big.Int).SetUint64(v))
}

// big-integer mode: length byte, then at least four little-endian bytes.
func appendCompactBig(dst []byte, v *big.Int) []byte {
	be := v.Bytes()
	n := len(be)
	if n < 4 {
		n = 4
	}
	dst = append(dst, byte((n-4)<<2)|0b11)
	for i := 0; i < n; i++ {
		if i < len(be) {
			dst = append(dst, be[len(be)-1-i])
		} else {
			dst = append(dst, 0)
		}
	}
	return dst
}

// DecodeCompact reads one compact integer from b and returns it with the
// number of bytes consumed.
func DecodeCompact(b []byte) (*big.Int, int, error) {
	if len(b) == 0 {
		return nil, 0, errors.New("compact: empty input")
	}
	switch b[0] & 0b11 {
	case 0b00:
		return big.NewInt(int64(b[0] >> 2)), 1, nil
	case 0b01:
		if len(b) < 2 {
			return nil, 0, errors.New("compact: short two-byte form")
		}
		return big.NewInt(int64(binary.LittleEndian.Uint16(b) >> 2)), 2, nil
	case 0b10:
		if len(b) < 4 {
			return nil, 0, errors.New("compact: short four-byte form")
		}
		return big.NewInt(int64(binary.LittleEndian.Uint32(b) >> 2)), 4, nil
	}
	n := int(b[0]>>2) + 4
	if len(b) < 1+n {
		return nil, 0, errors.New("compact: short big-integer form")
	}
	be := make([]byte, n)
	for i := 0; i < n; i++ {
		be[n-1-i] = b[1+i]
	}
	return new(big.Int).SetBytes(be), 1 + n, nil
}

// AppendString appends a SCALE-encoded byte string (compact length prefix).
func AppendString(dst []byte, s string) []byte {
	dst = AppendCompactUint64(dst, uint64(len(s)))
	return append(dst, s...)
}

func appendU32(dst []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(dst, b[:]...)
}

// checkBalance rejects values the u128 balance type cannot carry.
func checkBalance(v *big.Int) error {
	if v == nil {
		return errors.New("balance: nil amount")
	}
	if v.Sign() < 0 {
		return errors.New("balance: negative amount")
	}
	if v.BitLen() > 128 {
		return errors.New("balance: amount overflows u128")
	}
	return nil
}

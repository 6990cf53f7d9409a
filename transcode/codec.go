package transcode

import (
	"encoding/binary"
	"fmt"

	cbridge "github.com/wippyai/cbridge"
	"github.com/wippyai/cbridge/ctype"
	"github.com/wippyai/cbridge/errors"
)

// Codec encodes and decodes typed values against raw native memory. The
// wire representation is the target's C ABI; both supported backends are
// little-endian, so the codec is fixed to little-endian byte order.
type Codec struct {
	mem cbridge.Memory
}

func NewCodec(mem cbridge.Memory) *Codec {
	return &Codec{mem: mem}
}

// Decode reads the value of type t stored at addr into its Go form:
// int64/uint64 for integer scalars, bool, uint64 for pointers and
// function pointers, []any for arrays, map[string]any for structs and
// unions.
func (c *Codec) Decode(t ctype.Type, addr uint64) (any, error) {
	lay, err := t.Layout()
	if err != nil {
		return nil, err
	}

	switch tt := t.(type) {
	case *ctype.Bool:
		raw, err := c.mem.Read(addr, 1)
		if err != nil {
			return nil, err
		}
		return raw[0] != 0, nil

	case *ctype.Int:
		u, err := c.readUint(addr, lay.Size)
		if err != nil {
			return nil, err
		}
		if tt.Signed() {
			return signExtend(u, tt.Bits()), nil
		}
		return u, nil

	case *ctype.Pointer, *ctype.Func:
		return c.readUint(addr, lay.Size)

	case *ctype.Array:
		el, err := tt.Elem().Layout()
		if err != nil {
			return nil, err
		}
		vals := make([]any, tt.Len())
		for i := range vals {
			v, err := c.Decode(tt.Elem(), addr+uint64(i)*uint64(el.Size))
			if err != nil {
				return nil, err
			}
			vals[i] = v
		}
		return vals, nil

	case *ctype.Struct:
		out := make(map[string]any, len(tt.Members()))
		for _, m := range tt.Members() {
			v, err := c.Decode(m.Type, addr+uint64(m.Offset))
			if err != nil {
				return nil, err
			}
			out[m.Name] = v
		}
		return out, nil

	default:
		return nil, errors.New(errors.PhaseDecode, errors.KindTypeMismatch).
			CType(t.String()).
			Detail("type cannot be decoded").
			Build()
	}
}

// Encode writes val as type t at addr. A nil val writes the type's null
// value. Integer range violations fail with overflow; value shapes the
// type cannot absorb fail with type_mismatch.
func (c *Codec) Encode(t ctype.Type, addr uint64, val any) error {
	if val == nil {
		val = t.Null()
		if val == nil {
			return errors.New(errors.PhaseEncode, errors.KindTypeMismatch).
				CType(t.String()).
				Detail("type has no null value").
				Build()
		}
	}

	lay, err := t.Layout()
	if err != nil {
		return err
	}

	switch tt := t.(type) {
	case *ctype.Bool:
		b, ok := val.(bool)
		if !ok {
			if u, uok := ToUint64(val); uok {
				b = u != 0
			} else {
				return encodeMismatch(t, val)
			}
		}
		var raw byte
		if b {
			raw = 1
		}
		return c.mem.Write(addr, []byte{raw})

	case *ctype.Int:
		return c.encodeInt(tt, addr, val)

	case *ctype.Pointer, *ctype.Func:
		u, ok := ToUint64(val)
		if !ok {
			return encodeMismatch(t, val)
		}
		return c.writeUint(addr, lay.Size, u)

	case *ctype.Array:
		return c.encodeArray(tt, addr, val)

	case *ctype.Struct:
		return c.encodeStruct(tt, addr, lay, val)

	default:
		return encodeMismatch(t, val)
	}
}

func (c *Codec) encodeInt(t *ctype.Int, addr uint64, val any) error {
	if t.Signed() {
		v, ok := ToInt64(val)
		if !ok {
			return encodeMismatch(t, val)
		}
		if !fitsInt(v, t.Bits()) {
			return errors.Overflow(errors.PhaseEncode, nil, val, t.String())
		}
		return c.writeUint(addr, t.Bits()/8, uint64(v))
	}

	v, ok := ToUint64(val)
	if !ok {
		return encodeMismatch(t, val)
	}
	if !fitsUint(v, t.Bits()) {
		return errors.Overflow(errors.PhaseEncode, nil, val, t.String())
	}
	return c.writeUint(addr, t.Bits()/8, v)
}

func (c *Codec) encodeArray(t *ctype.Array, addr uint64, val any) error {
	el, err := t.Elem().Layout()
	if err != nil {
		return err
	}

	var elems []any
	switch v := val.(type) {
	case []any:
		elems = v
	case []byte:
		elems = make([]any, len(v))
		for i, b := range v {
			elems[i] = b
		}
	case string:
		// C string literal into a char array: bytes plus terminator.
		b := []byte(v)
		elems = make([]any, len(b)+1)
		for i, bb := range b {
			elems[i] = bb
		}
		elems[len(b)] = byte(0)
	default:
		return encodeMismatch(t, val)
	}

	if uint32(len(elems)) > t.Len() {
		return errors.LengthMismatch(errors.PhaseEncode, nil, len(elems), int(t.Len()))
	}

	for i := uint32(0); i < t.Len(); i++ {
		var ev any
		if int(i) < len(elems) {
			ev = elems[i]
		}
		if err := c.Encode(t.Elem(), addr+uint64(i)*uint64(el.Size), ev); err != nil {
			return pathify(err, fmt.Sprintf("[%d]", i))
		}
	}
	return nil
}

func (c *Codec) encodeStruct(t *ctype.Struct, addr uint64, lay ctype.Layout, val any) error {
	members := t.Members()

	byName, isMap := val.(map[string]any)
	var positional []any
	if !isMap {
		pos, ok := val.([]any)
		if !ok {
			return encodeMismatch(t, val)
		}
		if len(pos) > len(members) {
			return errors.LengthMismatch(errors.PhaseEncode, nil, len(pos), len(members))
		}
		positional = pos
	} else {
		for key := range byName {
			if _, ok := t.Member(key); !ok {
				return errors.UnknownMember(errors.PhaseEncode, []string{t.String()}, key)
			}
		}
	}

	// Unions overlap, so clear the full extent before writing members.
	zero := make([]byte, lay.Size)
	if err := c.mem.Write(addr, zero); err != nil {
		return err
	}

	for i, m := range members {
		var mv any
		if isMap {
			v, ok := byName[m.Name]
			if !ok {
				if t.Union() {
					continue // unspecified union members stay zeroed
				}
				v = m.Type.Null()
			}
			mv = v
		} else {
			if i >= len(positional) {
				if t.Union() {
					continue
				}
				mv = m.Type.Null()
			} else {
				mv = positional[i]
			}
		}
		if err := c.Encode(m.Type, addr+uint64(m.Offset), mv); err != nil {
			return pathify(err, m.Name)
		}
	}
	return nil
}

func (c *Codec) readUint(addr uint64, size uint32) (uint64, error) {
	raw, err := c.mem.Read(addr, size)
	if err != nil {
		return 0, err
	}
	switch size {
	case 1:
		return uint64(raw[0]), nil
	case 2:
		return uint64(binary.LittleEndian.Uint16(raw)), nil
	case 4:
		return uint64(binary.LittleEndian.Uint32(raw)), nil
	case 8:
		return binary.LittleEndian.Uint64(raw), nil
	}
	return 0, errors.InvalidInput(errors.PhaseDecode, fmt.Sprintf("bad scalar width %d", size))
}

func (c *Codec) writeUint(addr uint64, size uint32, v uint64) error {
	raw := make([]byte, size)
	switch size {
	case 1:
		raw[0] = byte(v)
	case 2:
		binary.LittleEndian.PutUint16(raw, uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(raw, uint32(v))
	case 8:
		binary.LittleEndian.PutUint64(raw, v)
	default:
		return errors.InvalidInput(errors.PhaseEncode, fmt.Sprintf("bad scalar width %d", size))
	}
	return c.mem.Write(addr, raw)
}

func signExtend(u uint64, bits uint32) int64 {
	shift := 64 - bits
	return int64(u<<shift) >> shift
}

func encodeMismatch(t ctype.Type, val any) error {
	return errors.TypeMismatch(errors.PhaseEncode, nil, fmt.Sprintf("%T", val), t.String())
}

func pathify(err error, elem string) error {
	if e, ok := err.(*errors.Error); ok {
		e.Path = append([]string{elem}, e.Path...)
	}
	return err
}

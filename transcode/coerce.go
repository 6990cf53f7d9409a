package transcode

import "math"

// ToUint64 coerces common Go numeric shapes (including exact-integer
// floats from JSON decoding) to uint64.
func ToUint64(value any) (uint64, bool) {
	switch v := value.(type) {
	case uint64:
		return v, true
	case uint8:
		return uint64(v), true
	case uint16:
		return uint64(v), true
	case uint32:
		return uint64(v), true
	case uint:
		return uint64(v), true
	case uintptr:
		return uint64(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case int8:
		if v >= 0 {
			return uint64(v), true
		}
	case int16:
		if v >= 0 {
			return uint64(v), true
		}
	case int32:
		if v >= 0 {
			return uint64(v), true
		}
	case int:
		if v >= 0 {
			return uint64(v), true
		}
	case int64:
		if v >= 0 {
			return uint64(v), true
		}
	case float64:
		if v >= 0 && v <= float64(math.MaxUint64) && v == float64(uint64(v)) {
			return uint64(v), true
		}
	case float32:
		if v >= 0 && float64(v) <= float64(math.MaxUint64) && v == float32(uint64(v)) {
			return uint64(v), true
		}
	case string:
		if cu, ok := charUnit(v); ok {
			return cu, true
		}
	}
	return 0, false
}

// ToInt64 coerces common Go numeric shapes to int64.
func ToInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int64:
		return v, true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int:
		return int64(v), true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case uint:
		if v <= math.MaxInt64 {
			return int64(v), true
		}
	case uint64:
		if v <= math.MaxInt64 {
			return int64(v), true
		}
	case uintptr:
		if uint64(v) <= math.MaxInt64 {
			return int64(v), true
		}
	case float64:
		if v >= float64(math.MinInt64) && v <= float64(math.MaxInt64) && v == float64(int64(v)) {
			return int64(v), true
		}
	case float32:
		if v >= float32(math.MinInt64) && v <= float32(math.MaxInt64) && v == float32(int64(v)) {
			return int64(v), true
		}
	case string:
		if cu, ok := charUnit(v); ok && cu <= math.MaxInt64 {
			return int64(cu), true
		}
	}
	return 0, false
}

// charUnit maps a single-character string to its code point, the way C
// character literals assign to integer scalars.
func charUnit(s string) (uint64, bool) {
	runes := []rune(s)
	if len(runes) != 1 {
		return 0, false
	}
	return uint64(runes[0]), true
}

// fitsInt reports whether v (as int64) is representable in a signed
// integer of the given width.
func fitsInt(v int64, bits uint32) bool {
	if bits >= 64 {
		return true
	}
	limit := int64(1) << (bits - 1)
	return v >= -limit && v < limit
}

// fitsUint reports whether v is representable in an unsigned integer of
// the given width.
func fitsUint(v uint64, bits uint32) bool {
	if bits >= 64 {
		return true
	}
	return v < uint64(1)<<bits
}

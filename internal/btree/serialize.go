package btree

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/relite/relite/internal/pager"
	"github.com/relite/relite/internal/value"
)

// Node-in-page layout:
//
//	byte 0:    is_leaf (0|1)
//	bytes 1:4: key_count (u32 LE)
//	bytes 5:8: order (u32 LE) — must match Order on deserialize
//	then key_count u64 LE keys
//	then, if leaf: key_count rows, each { u32 value_count, [tag:u8 + payload] * value_count }
//	  tags: 0 Null, 1 Integer(i64), 2 Real(u64 bitcast), 3 Text(u32 len+bytes), 4 Blob(u32 len+bytes)
//	else: key_count+1 child page ids (u32 LE)
const (
	tagNull    byte = 0
	tagInteger byte = 1
	tagReal    byte = 2
	tagText    byte = 3
	tagBlob    byte = 4
)

const nodeHeaderSize = 9 // is_leaf(1) + key_count(4) + order(4)

// serializeNode encodes n into a freshly allocated, zero-padded PageSize
// buffer suitable for Pager.WritePage.
func serializeNode(n *node) ([]byte, error) {
	buf := make([]byte, pager.PageSize)
	if n.isLeaf {
		buf[0] = 1
	} else {
		buf[0] = 0
	}
	binary.LittleEndian.PutUint32(buf[1:5], uint32(n.keyCount()))
	binary.LittleEndian.PutUint32(buf[5:9], uint32(Order))

	off := nodeHeaderSize
	limit := len(buf) - 4 // reserve trailing page checksum bytes
	for _, k := range n.keys {
		if off+8 > limit {
			return nil, fmt.Errorf("btree: %w", ErrNodeTooLarge)
		}
		binary.LittleEndian.PutUint64(buf[off:off+8], k)
		off += 8
	}

	if n.isLeaf {
		for _, row := range n.values {
			if off+4 > limit {
				return nil, fmt.Errorf("btree: %w", ErrNodeTooLarge)
			}
			binary.LittleEndian.PutUint32(buf[off:off+4], uint32(len(row)))
			off += 4
			for _, v := range row {
				var err error
				off, err = encodeValue(buf, off, limit, v)
				if err != nil {
					return nil, err
				}
			}
		}
	} else {
		for _, child := range n.children {
			if off+4 > limit {
				return nil, fmt.Errorf("btree: %w", ErrNodeTooLarge)
			}
			binary.LittleEndian.PutUint32(buf[off:off+4], uint32(child))
			off += 4
		}
	}
	return buf, nil
}

func encodeValue(buf []byte, off, limit int, v value.Value) (int, error) {
	if off+1 > limit {
		return 0, fmt.Errorf("btree: %w", ErrNodeTooLarge)
	}
	switch v.Kind {
	case value.KindNull:
		buf[off] = tagNull
		off++
	case value.KindInteger:
		buf[off] = tagInteger
		off++
		if off+8 > limit {
			return 0, fmt.Errorf("btree: %w", ErrNodeTooLarge)
		}
		binary.LittleEndian.PutUint64(buf[off:off+8], uint64(v.Integer))
		off += 8
	case value.KindReal:
		buf[off] = tagReal
		off++
		if off+8 > limit {
			return 0, fmt.Errorf("btree: %w", ErrNodeTooLarge)
		}
		binary.LittleEndian.PutUint64(buf[off:off+8], math.Float64bits(v.Real))
		off += 8
	case value.KindText:
		buf[off] = tagText
		off++
		var err error
		off, err = encodeBytes(buf, off, limit, v.Bytes)
		if err != nil {
			return 0, err
		}
	case value.KindBlob:
		buf[off] = tagBlob
		off++
		var err error
		off, err = encodeBytes(buf, off, limit, v.Bytes)
		if err != nil {
			return 0, err
		}
	default:
		return 0, fmt.Errorf("btree: cannot persist value kind %s", v.Kind)
	}
	return off, nil
}

func encodeBytes(buf []byte, off, limit int, b []byte) (int, error) {
	if off+4+len(b) > limit {
		return 0, fmt.Errorf("btree: %w", ErrNodeTooLarge)
	}
	binary.LittleEndian.PutUint32(buf[off:off+4], uint32(len(b)))
	off += 4
	copy(buf[off:], b)
	off += len(b)
	return off, nil
}

// deserializeNode decodes a node from a page buffer previously produced by
// serializeNode.
func deserializeNode(buf []byte) (*node, error) {
	if len(buf) < nodeHeaderSize {
		return nil, fmt.Errorf("btree: truncated node header")
	}
	isLeaf := buf[0] == 1
	keyCount := int(binary.LittleEndian.Uint32(buf[1:5]))
	order := binary.LittleEndian.Uint32(buf[5:9])
	if order != Order {
		return nil, fmt.Errorf("btree: %w", ErrOrderMismatch)
	}

	n := &node{isLeaf: isLeaf}
	off := nodeHeaderSize
	n.keys = make([]uint64, keyCount)
	for i := 0; i < keyCount; i++ {
		n.keys[i] = binary.LittleEndian.Uint64(buf[off : off+8])
		off += 8
	}

	if isLeaf {
		n.values = make([]value.Row, keyCount)
		for i := 0; i < keyCount; i++ {
			valueCount := int(binary.LittleEndian.Uint32(buf[off : off+4]))
			off += 4
			row := make(value.Row, valueCount)
			for j := 0; j < valueCount; j++ {
				v, newOff, err := decodeValue(buf, off)
				if err != nil {
					return nil, err
				}
				row[j] = v
				off = newOff
			}
			n.values[i] = row
		}
	} else {
		n.children = make([]pager.PageID, keyCount+1)
		for i := 0; i < keyCount+1; i++ {
			n.children[i] = pager.PageID(binary.LittleEndian.Uint32(buf[off : off+4]))
			off += 4
		}
	}
	return n, nil
}

func decodeValue(buf []byte, off int) (value.Value, int, error) {
	tag := buf[off]
	off++
	switch tag {
	case tagNull:
		return value.Null(), off, nil
	case tagInteger:
		i := int64(binary.LittleEndian.Uint64(buf[off : off+8]))
		return value.Int(i), off + 8, nil
	case tagReal:
		bits := binary.LittleEndian.Uint64(buf[off : off+8])
		return value.Real(math.Float64frombits(bits)), off + 8, nil
	case tagText:
		n := int(binary.LittleEndian.Uint32(buf[off : off+4]))
		off += 4
		return value.Text(string(buf[off : off+n])), off + n, nil
	case tagBlob:
		n := int(binary.LittleEndian.Uint32(buf[off : off+4]))
		off += 4
		return value.Blob(buf[off : off+n]), off + n, nil
	default:
		return value.Value{}, 0, fmt.Errorf("btree: tag %d: %w", tag, ErrInvalidValueType)
	}
}

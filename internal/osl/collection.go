package osl

import (
	"encoding/binary"
	"fmt"

	"flashstore/internal/ftlerr"
)

// NameMax is the longest collection name the open-collection table will
// accept, excluding the NUL terminator (spec §6, NAME_MAX).
const NameMax = 31

// MaxOpenCollections bounds the fixed-size open-collection table (spec §6,
// MAX_OPEN_COLLECTIONS).
const MaxOpenCollections = 8

// collectionRecordSize is the on-disk size of one serialised Collection:
// 32-byte name + type(1) + head(6) + tail(6) + num_objects(4) +
// object_size(2) (spec §6).
const collectionRecordSize = 32 + 1 + 6 + 6 + 4 + 2

// Type distinguishes a collection's traversal and mutation semantics.
type Type uint8

const (
	// Stream is an append-only collection read back by position.
	Stream Type = iota
	// Queue is a FIFO collection with a live, advancing head pointer.
	Queue
)

// Collection is the metadata for one named open collection (spec §3).
type Collection struct {
	Name       string
	Kind       Type
	ObjectSize uint16
	NumObjects uint32
	Head       Location
	Tail       Location
}

func marshalCollection(c Collection, buf []byte) {
	if len(buf) < collectionRecordSize {
		panic("osl: buffer too small for collection record")
	}
	for i := range buf[:32] {
		buf[i] = 0
	}
	copy(buf[:32], c.Name)
	buf[32] = byte(c.Kind)
	marshalLocation(c.Head, buf[33:39])
	marshalLocation(c.Tail, buf[39:45])
	binary.LittleEndian.PutUint32(buf[45:49], c.NumObjects)
	binary.LittleEndian.PutUint16(buf[49:51], c.ObjectSize)
}

func unmarshalCollection(buf []byte) Collection {
	nameEnd := 0
	for nameEnd < 32 && buf[nameEnd] != 0 {
		nameEnd++
	}
	return Collection{
		Name:       string(buf[:nameEnd]),
		Kind:       Type(buf[32]),
		Head:       unmarshalLocation(buf[33:39]),
		Tail:       unmarshalLocation(buf[39:45]),
		NumObjects: binary.LittleEndian.Uint32(buf[45:49]),
		ObjectSize: binary.LittleEndian.Uint16(buf[49:51]),
	}
}

func marshalLocation(loc Location, buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], loc.Subpage)
	binary.LittleEndian.PutUint16(buf[4:6], uint16(loc.Offset))
}

func unmarshalLocation(buf []byte) Location {
	return Location{
		Subpage: binary.LittleEndian.Uint32(buf[0:4]),
		Offset:  int16(binary.LittleEndian.Uint16(buf[4:6])),
	}
}

func validateName(name string) error {
	if len(name) == 0 || len(name) > NameMax {
		return fmt.Errorf("osl: collection name %q exceeds NAME_MAX=%d: %w",
			name, NameMax, ftlerr.ErrNameTooLong)
	}
	return nil
}

package osl

import (
	"errors"
	"fmt"
	"log"

	"flashstore/internal/ftl"
	"flashstore/internal/ftlerr"
)

// OSL is the Object Storage Layer runtime: one write buffer, one read
// cache, an open-collection table, and a step cache, all scoped to a
// single FTL data partition (spec §3, OSL state).
type OSL struct {
	dev  *ftl.Device
	data *ftl.Partition

	writeBuf     []byte
	writeCursor  int
	writeSubpage uint32 // the subpage this buffer's contents will land on when flushed

	readBuf        []byte
	readSubpage    uint32
	readBufResides bool

	collections []Collection
	steps       stepCache
}

// Descriptor is an opaque handle to one open collection, the only thing
// client code is allowed to hold on to (spec §3, design notes).
type Descriptor struct {
	osl  *OSL
	slot int
}

// Init opens the OSL over dev's data partition (spec §4.2.6). It verifies
// the FTL is usable, sizes the write/read buffers, and attempts to load the
// most recent checkpoint; absent one, it starts with an empty collection
// table and writes one so a subsequent crash finds something to recover.
func Init(dev *ftl.Device) (*OSL, error) {
	if dev == nil {
		return nil, fmt.Errorf("osl: nil device: %w", ftlerr.ErrNotInitialised)
	}
	o := &OSL{
		dev:      dev,
		data:     dev.DataPartition,
		writeBuf: make([]byte, dev.DataPerSubpage(true)),
		readBuf:  make([]byte, dev.SubpageSize()),
	}
	o.resetWriteCursor()

	blob, err := dev.LoadLatestMetadata()
	switch {
	case err == nil:
		o.collections = decodeCollections(blob)
		log.Printf("osl: recovered checkpoint for instance %s: %d collections", dev.InstanceID, len(o.collections))
	case errors.Is(err, ftlerr.ErrNotFound):
		o.collections = nil
		if werr := o.persistCollections(); werr != nil {
			return nil, werr
		}
	default:
		return nil, err
	}
	return o, nil
}

func (o *OSL) resetWriteCursor() {
	o.writeCursor = 0
	o.writeSubpage = o.data.NextSubpage
}

// Open returns the descriptor for the named collection, creating it with
// the given kind and object size if it does not already exist (spec
// §4.2.5, open).
func (o *OSL) Open(name string, kind Type, objectSize uint16) (Descriptor, error) {
	if err := validateName(name); err != nil {
		return Descriptor{}, err
	}
	for i, c := range o.collections {
		if c.Name == name {
			return Descriptor{osl: o, slot: i}, nil
		}
	}
	if len(o.collections) >= MaxOpenCollections {
		return Descriptor{}, fmt.Errorf("osl: open-collection table full (max %d): %w",
			MaxOpenCollections, ftlerr.ErrTooManyOpen)
	}
	o.collections = append(o.collections, Collection{
		Name:       name,
		Kind:       kind,
		ObjectSize: objectSize,
	})
	return Descriptor{osl: o, slot: len(o.collections) - 1}, nil
}

// Name returns the descriptor's collection name.
func (d Descriptor) Name() string { return d.osl.collections[d.slot].Name }

// Len returns the descriptor's collection's current object count.
func (d Descriptor) Len() uint32 { return d.osl.collections[d.slot].NumObjects }

func (o *OSL) collection(d Descriptor) *Collection { return &o.collections[d.slot] }

// Checkpoint flushes the write buffer and persists the open-collection
// table through the FTL's metadata anchor (spec §4.2.6, checkpoint).
func (o *OSL) Checkpoint() error {
	if o.writeCursor > 0 {
		if err := o.flush(); err != nil {
			return err
		}
	}
	return o.persistCollections()
}

func (o *OSL) persistCollections() error {
	blob := encodeCollections(o.collections)
	return o.dev.WriteMetadata(blob)
}

func encodeCollections(cs []Collection) []byte {
	buf := make([]byte, len(cs)*collectionRecordSize)
	for i, c := range cs {
		marshalCollection(c, buf[i*collectionRecordSize:(i+1)*collectionRecordSize])
	}
	return buf
}

func decodeCollections(blob []byte) []Collection {
	n := len(blob) / collectionRecordSize
	cs := make([]Collection, n)
	for i := 0; i < n; i++ {
		cs[i] = unmarshalCollection(blob[i*collectionRecordSize : (i+1)*collectionRecordSize])
	}
	return cs
}

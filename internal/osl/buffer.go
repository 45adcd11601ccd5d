package osl

import (
	"errors"

	"flashstore/internal/ftlerr"
)

// flush frames the write buffer through write_ecc and advances to a fresh
// buffer at the partition's new cursor (spec §4.2.1, flush).
func (o *OSL) flush() error {
	if err := o.data.WriteECC(o.writeBuf, o.writeCursor); err != nil {
		return err
	}
	for i := range o.writeBuf {
		o.writeBuf[i] = 0
	}
	o.resetWriteCursor()
	return nil
}

// tryAppend writes header+datum at the buffer's current cursor, or reports
// ErrBufferFull without mutating anything if it does not fit in the space
// remaining.
func (o *OSL) tryAppend(h recordHeader, datum []byte) (Location, error) {
	need := recordHeaderSize + len(datum)
	if o.writeCursor+need > len(o.writeBuf) {
		return Location{}, ftlerr.ErrBufferFull
	}
	offset := o.writeCursor
	marshalRecordHeader(h, o.writeBuf[offset:offset+recordHeaderSize])
	copy(o.writeBuf[offset+recordHeaderSize:offset+need], datum)
	o.writeCursor += need
	return Location{Subpage: o.writeSubpage, Offset: int16(offset)}, nil
}

// appendRecord writes header+datum into the write buffer, recovering from
// ErrBufferFull with exactly one flush-and-retry (spec §4.2.2/§7,
// buffer_write): a record too large for any empty buffer is ErrTooMuchData
// instead, since a flush could never make room for it.
func (o *OSL) appendRecord(h recordHeader, datum []byte) (Location, error) {
	if recordHeaderSize+len(datum) > len(o.writeBuf) {
		return Location{}, ftlerr.ErrTooMuchData
	}

	loc, err := o.tryAppend(h, datum)
	if errors.Is(err, ftlerr.ErrBufferFull) {
		if ferr := o.flush(); ferr != nil {
			return Location{}, ferr
		}
		loc, err = o.tryAppend(h, datum)
	}
	return loc, err
}

// readRecord resolves loc through the buffer/read-cache hierarchy (spec
// §4.2.2): still in the write buffer, already in the read cache, or needing
// a fresh subpage load. It returns the record's header and its datum.
func (o *OSL) readRecord(loc Location, datumOut []byte) (recordHeader, error) {
	if loc.Subpage == o.writeSubpage && loc.Subpage == o.data.NextSubpage {
		off := int(loc.Offset)
		h := unmarshalRecordHeader(o.writeBuf[off : off+recordHeaderSize])
		copy(datumOut[:h.Length], o.writeBuf[off+recordHeaderSize:off+recordHeaderSize+int(h.Length)])
		return h, nil
	}

	if !o.readBufResides || o.readSubpage != loc.Subpage {
		if err := o.loadSubpage(loc.Subpage); err != nil {
			return recordHeader{}, err
		}
	}

	off := int(loc.Offset)
	h := unmarshalRecordHeader(o.readBuf[off : off+recordHeaderSize])
	copy(datumOut[:h.Length], o.readBuf[off+recordHeaderSize:off+recordHeaderSize+int(h.Length)])
	return h, nil
}

func (o *OSL) loadSubpage(subpage uint32) error {
	payload := make([]byte, o.dev.SubpageSize())
	if _, err := o.data.Read(payload, subpage); err != nil {
		return err
	}
	copy(o.readBuf, payload)
	o.readSubpage = subpage
	o.readBufResides = true
	return nil
}

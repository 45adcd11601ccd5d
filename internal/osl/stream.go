package osl

import (
	"fmt"

	"flashstore/internal/ftlerr"
)

// Append adds datum as the newest object of the collection (spec §4.2.2).
// len(datum) must equal the collection's configured object size.
func (d Descriptor) Append(datum []byte) error {
	return d.osl.append(d, datum)
}

func (o *OSL) append(d Descriptor, datum []byte) error {
	c := o.collection(d)
	if int(c.ObjectSize) != len(datum) {
		return fmt.Errorf("osl: collection %q object size %d, got %d: %w",
			c.Name, c.ObjectSize, len(datum), ftlerr.ErrTooMuchData)
	}

	h := recordHeader{
		Predecessor: c.Tail,
		IsFirst:     c.NumObjects == 0,
		Length:      c.ObjectSize,
	}
	loc, err := o.appendRecord(h, datum)
	if err != nil {
		return err
	}

	c.Tail = loc
	if c.NumObjects == 0 {
		c.Head = loc
	}
	c.NumObjects++
	return nil
}

// Get reads the i-th object (0-indexed, insertion order) of the collection
// into datumOut (spec §4.2.3). It walks backward from the tail.
func (d Descriptor) Get(i uint32, datumOut []byte) error {
	return d.osl.get(d, i, datumOut)
}

func (o *OSL) get(d Descriptor, i uint32, datumOut []byte) error {
	c := o.collection(d)
	if c.NumObjects == 0 || i >= c.NumObjects {
		return fmt.Errorf("osl: index %d out of range for collection %q (size %d): %w",
			i, c.Name, c.NumObjects, ftlerr.ErrNotFound)
	}

	stepsBack := c.NumObjects - 1 - i
	loc := c.Tail

	if cached, ok := o.steps.lookup(d.slot, i); ok {
		loc = cached
		stepsBack = 0
	}

	hops := 0
	for {
		h, err := o.readRecord(loc, datumOut)
		if err != nil {
			return err
		}
		if stepsBack == 0 {
			return nil
		}
		if h.IsFirst {
			return fmt.Errorf("osl: predecessor chain exhausted before reaching index %d: %w",
				i, ftlerr.ErrCorruptFrame)
		}
		if h.Length != c.ObjectSize {
			// Open Question resolution: append never writes multi-object
			// records; a header disagreeing with the collection's object
			// size means the on-flash data is corrupt.
			return fmt.Errorf("osl: record length %d != object size %d: %w",
				h.Length, c.ObjectSize, ftlerr.ErrCorruptFrame)
		}
		stepsBack -= h.Length / c.ObjectSize
		loc = h.Predecessor
		hops++
		if hops%stepCacheSize == 0 {
			o.steps.populate(d.slot, i+stepsBack, loc)
		}
	}
}

// Iter calls fn for every object in the collection, in insertion order,
// stopping at the first error fn returns (spec §4.2.4, iter).
func (d Descriptor) Iter(fn func(i uint32, datum []byte) error) error {
	c := d.osl.collection(d)
	buf := make([]byte, c.ObjectSize)
	for i := uint32(0); i < c.NumObjects; i++ {
		if err := d.Get(i, buf); err != nil {
			return err
		}
		if err := fn(i, buf); err != nil {
			return err
		}
	}
	return nil
}

// StreamIterator is a forward iterator over a stream's objects in insertion
// order, styled after the standard library's database/sql.Rows: Next
// advances and reports whether a value was loaded into datumOut, Err
// reports why iteration stopped short of the collection's end. It is an
// alternative to Iter for callers that want a loop rather than a callback.
type StreamIterator struct {
	d   Descriptor
	i   uint32
	n   uint32
	err error
}

// Iterator returns a StreamIterator positioned before the first object.
func (d Descriptor) Iterator() *StreamIterator {
	c := d.osl.collection(d)
	return &StreamIterator{d: d, n: c.NumObjects}
}

// Next reads the next object into datumOut and advances the iterator,
// reporting whether a value was loaded. It returns false once every object
// has been visited or after the first read error, which Err then reports.
func (it *StreamIterator) Next(datumOut []byte) bool {
	if it.err != nil || it.i >= it.n {
		return false
	}
	if err := it.d.Get(it.i, datumOut); err != nil {
		it.err = err
		return false
	}
	it.i++
	return true
}

// Err returns the error that stopped iteration early, or nil if Next
// returned false only because every object had been visited.
func (it *StreamIterator) Err() error {
	return it.err
}

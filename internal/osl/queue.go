package osl

import (
	"fmt"

	"flashstore/internal/ftlerr"
)

// Add appends datum as the newest element of a FIFO queue; identical to
// Append (spec §4.2.4, Queue.add).
func (d Descriptor) Add(datum []byte) error {
	return d.osl.append(d, datum)
}

// Peek reads the current head element into datumOut without removing it
// (spec §4.2.4, Queue.peek).
func (d Descriptor) Peek(datumOut []byte) error {
	c := d.osl.collection(d)
	if c.NumObjects == 0 {
		return fmt.Errorf("osl: queue %q is empty: %w", c.Name, ftlerr.ErrNotFound)
	}
	_, err := d.osl.readRecord(c.Head, datumOut)
	return err
}

// Remove reads the current head element into datumOut and advances the
// head to the next-oldest element (spec §4.2.4, Queue.remove). The head
// advance is a positional walk to index 1 (the second-newest-from-head
// element), matching the canonical backward-walk semantics; a forward
// index is a documented possible optimisation, not implemented here.
func (d Descriptor) Remove(datumOut []byte) error {
	return d.osl.remove(d, datumOut)
}

func (o *OSL) remove(d Descriptor, datumOut []byte) error {
	c := o.collection(d)
	if c.NumObjects == 0 {
		return fmt.Errorf("osl: queue %q is empty: %w", c.Name, ftlerr.ErrNotFound)
	}

	if _, err := o.readRecord(c.Head, datumOut); err != nil {
		return err
	}

	if c.NumObjects == 1 {
		c.Head = Location{}
		c.Tail = Location{}
		c.NumObjects = 0
		o.steps.invalidate(d.slot)
		return nil
	}

	newHeadLoc, err := o.locationAt(d, 1)
	if err != nil {
		return err
	}
	c.Head = newHeadLoc
	c.NumObjects--
	o.steps.invalidate(d.slot)
	return nil
}

// locationAt performs the same backward walk as get, but returns the
// record's location instead of its datum.
func (o *OSL) locationAt(d Descriptor, i uint32) (Location, error) {
	c := o.collection(d)
	if i >= c.NumObjects {
		return Location{}, fmt.Errorf("osl: index %d out of range for collection %q (size %d): %w",
			i, c.Name, c.NumObjects, ftlerr.ErrNotFound)
	}
	stepsBack := c.NumObjects - 1 - i
	loc := c.Tail
	scratch := make([]byte, c.ObjectSize)
	for {
		h, err := o.readRecord(loc, scratch)
		if err != nil {
			return Location{}, err
		}
		if stepsBack == 0 {
			return loc, nil
		}
		if h.IsFirst {
			return Location{}, fmt.Errorf("osl: predecessor chain exhausted before reaching index %d: %w",
				i, ftlerr.ErrCorruptFrame)
		}
		stepsBack -= h.Length / c.ObjectSize
		loc = h.Predecessor
	}
}

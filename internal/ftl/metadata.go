package ftl

import (
	"fmt"

	"github.com/google/uuid"

	"flashstore/internal/ftlerr"
)

// instanceIDSize is the width of the InstanceID prefix written ahead of
// every metadata blob.
const instanceIDSize = 16

// LoadLatestMetadata returns the most recently written metadata blob from
// the device's index partition (spec §4.1, load_latest_metadata). It is
// the FTL's persistent anchor for OSL checkpoints: the blob is whatever
// bytes the caller last passed to WriteMetadata.
//
// The frame's leading instanceIDSize bytes are the InstanceID of the device
// that wrote it; on success, d.InstanceID is set to that value, so a device
// recovered from existing flash contents reports the identity of the
// instance that last checkpointed rather than the one it was just
// constructed with.
//
// ErrNotFound is returned if the index partition has never had a blob
// written to it (its append cursor is still at 0).
func (d *Device) LoadLatestMetadata() ([]byte, error) {
	p := d.IndexPartition
	if p.NextSubpage == 0 {
		return nil, fmt.Errorf("ftl: no metadata written yet: %w", ftlerr.ErrNotFound)
	}
	buf := make([]byte, d.SubpageSize())
	hdr, err := p.Read(buf, p.NextSubpage-1)
	if err != nil {
		return nil, err
	}
	if int(hdr.DataLength) < instanceIDSize {
		return nil, fmt.Errorf("ftl: metadata frame shorter than instance id header: %w", ftlerr.ErrCorruptFrame)
	}
	id, err := uuid.FromBytes(buf[:instanceIDSize])
	if err != nil {
		return nil, fmt.Errorf("ftl: metadata frame instance id: %w", err)
	}
	d.InstanceID = id

	out := make([]byte, int(hdr.DataLength)-instanceIDSize)
	copy(out, buf[instanceIDSize:hdr.DataLength])
	return out, nil
}

// WriteMetadata persists blob as the new latest metadata, prefixed with the
// device's InstanceID, appending an ECC-protected frame to the index
// partition (spec §4.1, write_metadata). The previous blob remains on flash
// but is no longer "latest"; it is only reclaimed when the index partition
// is reformatted.
func (d *Device) WriteMetadata(blob []byte) error {
	framed := make([]byte, instanceIDSize+len(blob))
	copy(framed[:instanceIDSize], d.InstanceID[:])
	copy(framed[instanceIDSize:], blob)
	return d.IndexPartition.WriteECC(framed, len(framed))
}

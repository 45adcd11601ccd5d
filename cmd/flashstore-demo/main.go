// Command flashstore-demo exercises the OSL over an in-memory or
// file-backed device, grounded on the original's examples/osl-demo and
// examples/benchmark-osl: open a stream, append a run of integers, read
// them back, and checkpoint.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"os"
	"sync"

	"flashstore/internal/blockdev"
	"flashstore/internal/ecc"
	"flashstore/internal/ftl"
	"flashstore/internal/osl"
)

var (
	flagBackingFile    = flag.String("file", "", "path to a file-backed device simulator (default: in-memory)")
	flagCount          = flag.Int("count", 3000, "number of u64 values to append to the demo stream")
	flagStream         = flag.String("stream", "demo:stream", "collection name")
	flagCheckpointSpec = flag.String("checkpoint-spec", "", "robfig/cron schedule (e.g. \"@every 5s\") for background checkpoints; disabled if empty")
)

// Default geometry matches the original osl-demo's BOARD_NATIVE
// configuration: 512B pages and subpages, 1024 pages/block, 32768 pages.
const (
	demoPageSize      = 512
	demoSubpageSize   = 512
	demoPagesPerBlock = 1024
	demoTotalPages    = 32768
)

func main() {
	flag.Parse()

	geo := blockdev.Geometry{
		TotalPages:    demoTotalPages,
		PageSize:      demoPageSize,
		PagesPerBlock: demoPagesPerBlock,
	}

	var bd blockdev.BlockDevice
	if *flagBackingFile != "" {
		fd, err := blockdev.OpenFileDevice(*flagBackingFile, geo)
		if err != nil {
			fmt.Fprintln(os.Stderr, "open device:", err)
			os.Exit(1)
		}
		defer fd.Close()
		bd = fd
	} else {
		bd = blockdev.NewMemoryDevice(geo)
	}

	dev, err := ftl.Init(ftl.Config{
		TotalPages:    demoTotalPages,
		PageSize:      demoPageSize,
		SubpageSize:   demoSubpageSize,
		PagesPerBlock: demoPagesPerBlock,
	}, bd, ecc.Hamming256{})
	if err != nil {
		fmt.Fprintln(os.Stderr, "ftl init:", err)
		os.Exit(1)
	}
	if err := dev.Format(); err != nil {
		fmt.Fprintln(os.Stderr, "format:", err)
		os.Exit(1)
	}

	store, err := osl.Init(dev)
	if err != nil {
		fmt.Fprintln(os.Stderr, "osl init:", err)
		os.Exit(1)
	}

	stream, err := store.Open(*flagStream, osl.Stream, 8)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open stream:", err)
		os.Exit(1)
	}

	// guard serializes every call into store for the lifetime of this
	// process whenever a background checkpoint scheduler is running,
	// per CheckpointScheduler's documented contract: the OSL has no
	// synchronization of its own, so the scheduler's cron goroutine and
	// this goroutine's Append/Get calls must never run concurrently.
	var guard sync.Mutex
	var scheduler *osl.CheckpointScheduler
	if *flagCheckpointSpec != "" {
		scheduler = osl.NewCheckpointScheduler(store, &guard)
		if err := scheduler.Start(*flagCheckpointSpec); err != nil {
			fmt.Fprintln(os.Stderr, "start checkpoint scheduler:", err)
			os.Exit(1)
		}
	}

	var buf [8]byte
	for i := 0; i < *flagCount; i++ {
		binary.LittleEndian.PutUint64(buf[:], uint64(i))
		guard.Lock()
		err := stream.Append(buf[:])
		guard.Unlock()
		if err != nil {
			fmt.Fprintln(os.Stderr, "append:", err)
			os.Exit(1)
		}
	}
	fmt.Printf("appended %d records to %q\n", *flagCount, *flagStream)

	guard.Lock()
	err = store.Checkpoint()
	guard.Unlock()
	if err != nil {
		fmt.Fprintln(os.Stderr, "checkpoint:", err)
		os.Exit(1)
	}
	fmt.Println("checkpoint complete")

	if scheduler != nil {
		scheduler.Stop()
		if err := scheduler.LastError(); err != nil {
			fmt.Fprintln(os.Stderr, "a scheduled checkpoint failed during the run:", err)
		}
	}

	mismatches := 0
	for i := 0; i < *flagCount; i++ {
		if err := stream.Get(uint32(i), buf[:]); err != nil {
			fmt.Fprintln(os.Stderr, "get:", err)
			os.Exit(1)
		}
		if binary.LittleEndian.Uint64(buf[:]) != uint64(i) {
			mismatches++
		}
	}
	fmt.Printf("verified %d records, %d mismatches\n", *flagCount, mismatches)
}

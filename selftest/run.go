package selftest

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/douzebis/yb/blobfs"
	"github.com/douzebis/yb/device"
	"github.com/douzebis/yb/store"
)

// Stats accumulates the outcome of a self-test run.
type Stats struct {
	Total     int
	Passed    int
	Failed    int
	Ejections int

	StoreOps  int
	FetchOps  int
	RemoveOps int
	ListOps   int

	Failures []string
}

// record counts one operation outcome.
func (st *Stats) record(op Operation, ok bool, detail string) {
	st.Total++
	switch op.Type {
	case OpStore:
		st.StoreOps++
	case OpFetch:
		st.FetchOps++
	case OpRemove:
		st.RemoveOps++
	case OpList:
		st.ListOps++
	}
	if ok {
		st.Passed++
		return
	}
	st.Failed++
	st.Failures = append(st.Failures, fmt.Sprintf("%s: %s", op, detail))
}

// Run executes count generated operations against the session and verifies
// each against the reference filesystem. pin decrypts encrypted fetches and
// auth enables writes.
//
// A write interrupted by an ejection leaves the device holding either the
// pre-op or the post-op state, or, when a replacing store had reused the old
// chain's head slot, neither generation of the blob; Run resolves which by
// reading back, then updates the reference to match. Any other divergence between store and
// reference is a failure.
func Run(session *blobfs.Session, gen *Generator, count int, pin string, auth device.Auth) *Stats {
	stats := &Stats{}
	toy := NewToyFilesystem()

	for i := 0; i < count; i++ {
		op := gen.Next()
		switch op.Type {

		case OpStore:
			err := session.Store(op.Name, op.Payload, op.Encrypted, auth)
			switch {
			case err == nil:
				toy.Store(op.Name, op.Payload)
				stats.record(op, true, "")
			case errors.Is(err, store.ErrStoreFull):
				// The device ran out of slots; the reference has no
				// such limit, so just leave it unchanged.
				stats.record(op, true, "")
			case errors.Is(err, device.ErrEjected):
				stats.Ejections++
				resolveStore(session, toy, op, pin)
				stats.record(op, true, "")
			default:
				stats.record(op, false, err.Error())
			}

		case OpFetch:
			payload, err := session.Fetch(op.Name, pin)
			want, exists := toy.Fetch(op.Name)
			switch {
			case !exists:
				stats.record(op, errors.Is(err, store.ErrNotFound),
					fmt.Sprintf("expected not-found, got %v", err))
			case err != nil:
				stats.record(op, false, err.Error())
			default:
				stats.record(op, bytes.Equal(payload, want), "payload mismatch")
			}

		case OpRemove:
			err := session.Remove(op.Name, auth)
			_, exists := toy.Fetch(op.Name)
			switch {
			case !exists:
				stats.record(op, errors.Is(err, store.ErrNotFound),
					fmt.Sprintf("expected not-found, got %v", err))
			case err == nil:
				toy.Remove(op.Name)
				stats.record(op, true, "")
			case errors.Is(err, device.ErrEjected):
				stats.Ejections++
				resolveRemove(session, toy, op)
				stats.record(op, true, "")
			default:
				stats.record(op, false, err.Error())
			}

		case OpList:
			infos, err := session.List()
			if err != nil {
				stats.record(op, false, err.Error())
				continue
			}
			names := make([]string, 0, len(infos))
			for _, info := range infos {
				names = append(names, info.Name)
			}
			want := toy.Names()
			ok := len(names) == len(want)
			for j := 0; ok && j < len(names); j++ {
				ok = names[j] == want[j]
			}
			stats.record(op, ok, fmt.Sprintf("listed %v, expected %v", names, want))
		}
	}
	return stats
}

// resolveStore decides whether an ejected store reached the device and
// aligns the reference filesystem with what actually happened.
func resolveStore(session *blobfs.Session, toy *ToyFilesystem, op Operation, pin string) {
	payload, err := session.Fetch(op.Name, pin)
	if errors.Is(err, store.ErrNotFound) {
		// The blob vanished: the new chain was incomplete and the old
		// chain's head slot had been reused.
		toy.Remove(op.Name)
		return
	}
	if err == nil && bytes.Equal(payload, op.Payload) {
		toy.Store(op.Name, op.Payload)
	}
	// Otherwise the old payload survived; the reference already matches.
}

// resolveRemove checks whether an ejected remove took effect.
func resolveRemove(session *blobfs.Session, toy *ToyFilesystem, op Operation) {
	if _, err := session.Fetch(op.Name, ""); errors.Is(err, store.ErrNotFound) {
		toy.Remove(op.Name)
	}
}

// ABOUTME: This file defines the load types and load states exposed by the paged view
// ABOUTME: Refresh, Append and Prepend boundaries each move through idle, loading and error

package models

// LoadType is the direction of a mediator load.
type LoadType int

const (
	// LoadRefresh restarts the feed from scratch.
	LoadRefresh LoadType = iota
	// LoadAppend continues from the stored cursor.
	LoadAppend
	// LoadPrepend asks for newer pages; the feed only grows toward older items.
	LoadPrepend
)

func (t LoadType) String() string {
	switch t {
	case LoadRefresh:
		return "refresh"
	case LoadAppend:
		return "append"
	case LoadPrepend:
		return "prepend"
	default:
		return "unknown"
	}
}

// LoadStatus is the state of one boundary of a paged window.
type LoadStatus int

const (
	LoadIdle LoadStatus = iota
	LoadLoading
	LoadFailed
)

func (s LoadStatus) String() string {
	switch s {
	case LoadIdle:
		return "idle"
	case LoadLoading:
		return "loading"
	case LoadFailed:
		return "error"
	default:
		return "unknown"
	}
}

// LoadState is the observable state of a boundary. Err is set only when Status is LoadFailed.
type LoadState struct {
	Status LoadStatus
	Err    error
}

// Idle returns the idle load state.
func Idle() LoadState { return LoadState{Status: LoadIdle} }

// Loading returns the loading load state.
func Loading() LoadState { return LoadState{Status: LoadLoading} }

// Failed returns an error load state carrying cause.
func Failed(cause error) LoadState { return LoadState{Status: LoadFailed, Err: cause} }

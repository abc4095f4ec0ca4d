// Copyright 2024 The Mothership Authors
// SPDX-License-Identifier: Apache-2.0

// Package client is the typed Go data layer for the console API surface.
// It speaks the cursor-pagination and filter protocol every list view
// uses, and maps upstream error bodies onto structured failures.
package client

// EntryState is the archival lifecycle state of an entry. Wire values are
// the protobuf enum numbers.
type EntryState int

const (
	StateUnspecified EntryState = 0
	StateArchiving   EntryState = 1
	StateArchived    EntryState = 2
	StateOnHold      EntryState = 3
	StateCancelled   EntryState = 4
	StateFailed      EntryState = 5
	StateRetracting  EntryState = 6
	StateRetracted   EntryState = 7
)

// String returns the enum name as used in filter expressions.
func (s EntryState) String() string {
	switch s {
	case StateArchiving:
		return "ARCHIVING"
	case StateArchived:
		return "ARCHIVED"
	case StateOnHold:
		return "ON_HOLD"
	case StateCancelled:
		return "CANCELLED"
	case StateFailed:
		return "FAILED"
	case StateRetracting:
		return "RETRACTING"
	case StateRetracted:
		return "RETRACTED"
	default:
		return "STATE_UNSPECIFIED"
	}
}

// Terminal reports whether no further transitions happen from this state.
func (s EntryState) Terminal() bool {
	return s == StateCancelled || s == StateFailed || s == StateRetracted
}

// CanRetract reports whether the entry may be retracted (archived only).
func (s EntryState) CanRetract() bool {
	return s == StateArchived
}

// CanRescue reports whether a held import may be rescued.
func (s EntryState) CanRescue() bool {
	return s == StateOnHold
}

// Entry is one archived (or archiving) package.
type Entry struct {
	// Name is the resource name, format "entries/{entry_id}".
	Name string `json:"name"`

	// EntryID is the package NEVRA (name-epoch:version-release.arch).
	EntryID string `json:"entryId"`

	// CreateTime is when the package was archived.
	CreateTime string `json:"createTime"`

	// OSRelease is the OS release the package was pulled from.
	OSRelease string `json:"osRelease"`

	// SHA256Sum is the SHA256 of the source package.
	SHA256Sum string `json:"sha256Sum"`

	// Repository the package was archived from.
	Repository string `json:"repository"`

	// WorkerID of the archiving worker; nil when archived by a user.
	WorkerID *string `json:"workerId"`

	// Batch the package was archived in; nil when unbatched.
	Batch *string `json:"batch"`

	// UserEmail of the archiving user; nil when archived by a worker.
	UserEmail *string `json:"userEmail"`

	// CommitURI links to the resulting import commit.
	CommitURI    string `json:"commitUri"`
	CommitHash   string `json:"commitHash"`
	CommitBranch string `json:"commitBranch"`
	CommitTag    string `json:"commitTag"`

	// State of the entry.
	State EntryState `json:"state"`

	// Pkg is the package name.
	Pkg string `json:"pkg"`

	// ErrorMessage explains an ON_HOLD state.
	ErrorMessage string `json:"errorMessage"`
}

// EntriesResponse is one page of entries.
type EntriesResponse struct {
	Entries       []Entry `json:"entries"`
	NextPageToken string  `json:"nextPageToken"`
}

// Batch is a group of entries archived together by one worker.
type Batch struct {
	// Name is the resource name of the batch.
	Name string `json:"name"`

	// BatchID is the optional custom ID chosen at creation.
	BatchID string `json:"batchId"`

	// WorkerID of the worker that created the batch.
	WorkerID string `json:"workerId"`

	CreateTime string `json:"createTime"`
	UpdateTime string `json:"updateTime,omitempty"`

	// SealTime is set once the batch seals; batches seal automatically
	// after an hour of inactivity.
	SealTime string `json:"sealTime,omitempty"`

	// BugtrackerURI of the batch.
	BugtrackerURI string `json:"bugtrackerUri,omitempty"`

	// EntryCount of the batch.
	EntryCount int `json:"entry_count"`
}

// BatchesResponse is one page of batches.
type BatchesResponse struct {
	Batches       []Batch `json:"batches"`
	NextPageToken string  `json:"nextPageToken"`
}

// Worker is an archival worker identity.
type Worker struct {
	// Name is the resource name, format "workers/{worker}".
	Name string `json:"name"`

	// WorkerID is the unique identifier chosen at creation (RFC-1034).
	WorkerID string `json:"workerId"`

	CreateTime      string `json:"createTime"`
	LastCheckinTime string `json:"lastCheckinTime,omitempty"`

	// APISecret is returned exactly once, on creation. It cannot be
	// retrieved again.
	APISecret string `json:"apiSecret,omitempty"`
}

// WorkersResponse is one page of workers.
type WorkersResponse struct {
	Workers       []Worker `json:"workers"`
	NextPageToken string   `json:"nextPageToken"`
}

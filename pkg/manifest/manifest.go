// Package manifest describes the inventory of files on a source drive or
// under a remote prefix, and compares two inventories.
package manifest

import (
	"sort"
)

// FileRecord identifies a file by its path and size. Two records are only
// equal if both fields match, so a partially copied file doesn't match its
// source.
type FileRecord struct {
	// Path is slash separated and rooted at "/", relative to the drive root
	// or the remote prefix.
	Path string
	Size int64
}

// Manifest is a set of FileRecords.
type Manifest map[FileRecord]struct{}

// New returns a Manifest containing records.
func New(records ...FileRecord) Manifest {
	m := Manifest{}
	for _, r := range records {
		m.Add(r)
	}
	return m
}

// Add inserts r.
func (m Manifest) Add(r FileRecord) {
	m[r] = struct{}{}
}

// Contains returns whether r is in the manifest.
func (m Manifest) Contains(r FileRecord) bool {
	_, ok := m[r]
	return ok
}

// Minus returns the records in m that aren't in other.
func (m Manifest) Minus(other Manifest) Manifest {
	diff := Manifest{}
	for r := range m {
		if !other.Contains(r) {
			diff.Add(r)
		}
	}
	return diff
}

// TotalBytes sums the sizes of every record.
func (m Manifest) TotalBytes() int64 {
	var total int64
	for r := range m {
		total += r.Size
	}
	return total
}

// Sorted returns the records ordered by path, then size.
func (m Manifest) Sorted() []FileRecord {
	records := make([]FileRecord, 0, len(m))
	for r := range m {
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].Path != records[j].Path {
			return records[i].Path < records[j].Path
		}
		return records[i].Size < records[j].Size
	})
	return records
}

// Result is the outcome of comparing a source manifest with a remote one.
type Result struct {
	// SourceOnly are the files that still need to be transferred.
	SourceOnly Manifest

	// RemoteOnly are objects that don't match any source file. They're
	// reported, but never removed.
	RemoteOnly Manifest
}

// Diff compares the two manifests. It returns nil if they're identical.
func Diff(source, remote Manifest) *Result {
	res := &Result{
		SourceOnly: source.Minus(remote),
		RemoteOnly: remote.Minus(source),
	}
	if len(res.SourceOnly) == 0 && len(res.RemoteOnly) == 0 {
		return nil
	}
	return res
}

// OutstandingBytes is the number of bytes that remain to be transferred.
func (res *Result) OutstandingBytes() int64 {
	if res == nil {
		return 0
	}
	return res.SourceOnly.TotalBytes()
}

// OutstandingFiles is the number of files that remain to be transferred.
func (res *Result) OutstandingFiles() int {
	if res == nil {
		return 0
	}
	return len(res.SourceOnly)
}

// Package dedup builds in-memory indexes over already-persisted rows so
// each pipeline stage can skip work it has done before. Indexes are
// rebuilt from a full sheet scan at the start of every stage; nothing
// is cached across runs, so a failed read aborts the stage rather than
// risking duplicate appends.
package dedup

import "strings"

// KeyFunc derives the dedup key for one stored row. Returning an empty
// string excludes the row from the index.
type KeyFunc func(row map[string]string) string

// Index is a set of keys seen in a sheet.
type Index struct {
	seen map[string]struct{}
}

// Build scans rows and collects their keys into an Index.
func Build(rows []map[string]string, key KeyFunc) *Index {
	idx := &Index{seen: make(map[string]struct{}, len(rows))}
	for _, row := range rows {
		if k := key(row); k != "" {
			idx.seen[k] = struct{}{}
		}
	}
	return idx
}

// Has reports whether the key is already present.
func (i *Index) Has(key string) bool {
	_, ok := i.seen[key]
	return ok
}

// Add marks a key as seen, so items appended mid-stage also dedup
// against each other within the same run.
func (i *Index) Add(key string) {
	if key != "" {
		i.seen[key] = struct{}{}
	}
}

// Len returns the number of distinct keys.
func (i *Index) Len() int {
	return len(i.seen)
}

// URLKey keys article rows by their source URL.
func URLKey(row map[string]string) string {
	return strings.TrimSpace(row["url"])
}

// PairKey keys collaboration rows by the source article that produced
// them. Title and URL are joined with a separator that cannot appear in
// a URL, so distinct pairs never collide.
func PairKey(row map[string]string) string {
	title, url := row["source_title"], row["source_url"]
	if title == "" && url == "" {
		return ""
	}
	return title + "\x1f" + url
}

// SourceKey builds the same key as PairKey from loose values, for
// probing the index before an append.
func SourceKey(title, url string) string {
	if title == "" && url == "" {
		return ""
	}
	return title + "\x1f" + url
}

package contextstore

import (
	"sort"
	"strings"
)

// maxKeyLength is how many runes of a new-format fragment's content become
// its display key before the ellipsis kicks in.
const maxKeyLength = 30

const keyEllipsis = "..."

// ReconstructedFile is derived from a file's chunk fragments on every read;
// it is never persisted. Content equals the concatenation of all fragments
// sharing the file's original_key, in ascending chunk_index order, no matter
// what order storage returned them in.
type ReconstructedFile struct {
	FileID         string   `json:"file_id"`
	Filename       string   `json:"filename"`
	FileType       string   `json:"file_type"`
	FileSize       int      `json:"file_size"`
	Description    string   `json:"description,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	UploadedAt     string   `json:"uploaded_at,omitempty"`
	Content        string   `json:"content"`
	ContentSummary string   `json:"content_summary,omitempty"`
}

// ReconstructFiles regroups file chunks into whole files. Missing chunks and
// duplicate chunk indices are tolerated: sorting is stable, so duplicates
// keep their input order. The result is ordered by first appearance of each
// file's key in the snapshot.
func (s Snapshot) ReconstructFiles() []ReconstructedFile {
	groups := make(map[string][]Fragment)
	order := []string{}

	for _, f := range s.fragments {
		if f.Metadata.Type != FragmentTypeFileChunk {
			continue
		}
		key := f.Metadata.OriginalKey
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], f)
	}

	files := make([]ReconstructedFile, 0, len(order))
	for _, key := range order {
		chunks := groups[key]
		sort.SliceStable(chunks, func(i, j int) bool {
			return chunks[i].Metadata.ChunkIndex < chunks[j].Metadata.ChunkIndex
		})

		var b strings.Builder
		for _, c := range chunks {
			b.WriteString(c.Content)
		}
		content := b.String()

		first := chunks[0].Metadata
		files = append(files, ReconstructedFile{
			FileID:         strings.TrimPrefix(key, FilePrefix),
			Filename:       first.Filename,
			FileType:       first.FileType,
			FileSize:       len(content),
			Description:    first.Description,
			Tags:           first.Tags,
			UploadedAt:     first.Timestamp,
			Content:        content,
			ContentSummary: first.ContentSummary,
		})
	}

	return files
}

// ContextKeys derives the display keys of the snapshot's scalar entries.
//
// If any fragment carries content but no metadata, the snapshot is
// new-format: each such fragment yields one key derived from its content,
// truncated to 30 runes with an ellipsis. Keys are not deduplicated, two
// fragments sharing a prefix share a key.
//
// Otherwise the snapshot is legacy: keys are the distinct original_key
// values of text fragments, in first-seen order.
func (s Snapshot) ContextKeys() []string {
	if s.isNewFormat() {
		keys := []string{}
		for _, f := range s.fragments {
			if f.Content != "" && f.Metadata.IsZero() {
				keys = append(keys, deriveKey(f.Content))
			}
		}
		return keys
	}

	seen := make(map[string]bool)
	keys := []string{}
	for _, f := range s.fragments {
		if f.Metadata.Type != FragmentTypeText {
			continue
		}
		key := f.Metadata.OriginalKey
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	return keys
}

// ResolveValue finds the fragment whose derived key matches, re-running the
// same classification as ContextKeys. There is no index; this is an O(n)
// scan per lookup.
func (s Snapshot) ResolveValue(key string) (string, bool) {
	if s.isNewFormat() {
		for _, f := range s.fragments {
			if f.Content != "" && f.Metadata.IsZero() && deriveKey(f.Content) == key {
				return f.Content, true
			}
		}
		return "", false
	}

	for _, f := range s.fragments {
		if f.Metadata.Type == FragmentTypeText && f.Metadata.OriginalKey == key {
			return f.Content, true
		}
	}
	return "", false
}

func (s Snapshot) isNewFormat() bool {
	for _, f := range s.fragments {
		if f.Content != "" && f.Metadata.IsZero() {
			return true
		}
	}
	return false
}

func deriveKey(content string) string {
	runes := []rune(content)
	if len(runes) <= maxKeyLength {
		return content
	}
	return string(runes[:maxKeyLength]) + keyEllipsis
}

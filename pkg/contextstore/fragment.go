package contextstore

import (
	"fmt"
	"sort"
	"strings"
)

// FilePrefix marks context keys that belong to uploaded files; the remainder
// of the key is the file id.
const FilePrefix = "file_"

// ReservedFilesKey is the legacy mapping key that held the file list; it is
// never a context entry of its own.
const ReservedFilesKey = "files"

const (
	FragmentTypeFileChunk = "file_chunk"
	FragmentTypeText      = "text"
)

// FragmentMetadata is the metadata attached to a stored fragment. File chunks
// carry the full set; legacy scalar fragments carry type and original_key;
// new-format scalar fragments carry nothing at all.
type FragmentMetadata struct {
	Type           string   `json:"type,omitempty"`
	OriginalKey    string   `json:"original_key,omitempty"`
	ChunkIndex     int      `json:"chunk_index,omitempty"`
	TotalChunks    int      `json:"total_chunks,omitempty"`
	Filename       string   `json:"filename,omitempty"`
	FileType       string   `json:"file_type,omitempty"`
	Description    string   `json:"description,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	Timestamp      string   `json:"timestamp,omitempty"`
	ContentSummary string   `json:"content_summary,omitempty"`
}

func (m FragmentMetadata) IsZero() bool {
	return m.Type == "" && m.OriginalKey == ""
}

// Fragment is one stored content unit in session context storage: either a
// whole scalar value or one chunk of a larger file.
type Fragment struct {
	Content  string           `json:"content"`
	Metadata FragmentMetadata `json:"metadata,omitempty"`
}

// Snapshot is the canonical internal shape of a session's context. The two
// wire shapes (fragment list, legacy flattened mapping) are normalized here
// once; every derivation works on fragments only.
type Snapshot struct {
	fragments []Fragment
}

func SnapshotFromFragments(fragments []Fragment) Snapshot {
	return Snapshot{fragments: fragments}
}

// SnapshotFromLegacyMap normalizes the flattened legacy mapping into text
// fragments. The reserved "files" key and file-prefixed keys are dropped;
// they are served through the fragment-list shape. Keys are sorted for a
// deterministic fragment order, Go maps have none.
func SnapshotFromLegacyMap(m map[string]interface{}) Snapshot {
	keys := make([]string, 0, len(m))
	for key := range m {
		if key == ReservedFilesKey || strings.HasPrefix(key, FilePrefix) {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	fragments := make([]Fragment, 0, len(keys))
	for _, key := range keys {
		fragments = append(fragments, Fragment{
			Content: stringifyValue(m[key]),
			Metadata: FragmentMetadata{
				Type:        FragmentTypeText,
				OriginalKey: key,
			},
		})
	}
	return Snapshot{fragments: fragments}
}

func (s Snapshot) Fragments() []Fragment {
	return s.fragments
}

func stringifyValue(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

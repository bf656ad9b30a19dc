package contextstore

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fileChunk(key string, index int, total int, content string) Fragment {
	return Fragment{
		Content: content,
		Metadata: FragmentMetadata{
			Type:        FragmentTypeFileChunk,
			OriginalKey: key,
			ChunkIndex:  index,
			TotalChunks: total,
			Filename:    "notes.txt",
			FileType:    "text/plain",
		},
	}
}

func TestReconstructFilesOrdersByChunkIndex(t *testing.T) {
	// storage order scrambled on purpose
	snapshot := SnapshotFromFragments([]Fragment{
		fileChunk("file_abc", 1, 3, " Wor"),
		fileChunk("file_abc", 0, 3, "Hello"),
		fileChunk("file_abc", 2, 3, "ld"),
	})

	files := snapshot.ReconstructFiles()
	require.Len(t, files, 1)
	assert.Equal(t, "abc", files[0].FileID)
	assert.Equal(t, "Hello World", files[0].Content)
	assert.Equal(t, len("Hello World"), files[0].FileSize)
	assert.Equal(t, "notes.txt", files[0].Filename)
}

// Any permutation of the same chunk set reconstructs the same content.
func TestReconstructFilesPermutationInvariance(t *testing.T) {
	chunks := []Fragment{
		fileChunk("file_x", 0, 4, "one "),
		fileChunk("file_x", 1, 4, "two "),
		fileChunk("file_x", 2, 4, "three "),
		fileChunk("file_x", 3, 4, "four"),
	}

	permutations := [][]int{
		{0, 1, 2, 3},
		{3, 2, 1, 0},
		{2, 0, 3, 1},
		{1, 3, 0, 2},
	}

	for _, perm := range permutations {
		input := make([]Fragment, len(chunks))
		for i, idx := range perm {
			input[i] = chunks[idx]
		}
		files := SnapshotFromFragments(input).ReconstructFiles()
		require.Len(t, files, 1)
		assert.Equal(t, "one two three four", files[0].Content)
	}
}

func TestReconstructFilesMultipleFilesKeepFirstSeenOrder(t *testing.T) {
	snapshot := SnapshotFromFragments([]Fragment{
		fileChunk("file_b", 0, 1, "second file"),
		fileChunk("file_a", 1, 2, "tail"),
		fileChunk("file_a", 0, 2, "head "),
	})

	files := snapshot.ReconstructFiles()
	require.Len(t, files, 2)
	assert.Equal(t, "b", files[0].FileID)
	assert.Equal(t, "a", files[1].FileID)
	assert.Equal(t, "head tail", files[1].Content)
}

func TestReconstructFilesToleratesMissingChunks(t *testing.T) {
	snapshot := SnapshotFromFragments([]Fragment{
		fileChunk("file_gap", 2, 3, "end"),
		fileChunk("file_gap", 0, 3, "start "),
	})

	files := snapshot.ReconstructFiles()
	require.Len(t, files, 1)
	assert.Equal(t, "start end", files[0].Content)
}

func TestReconstructFilesIgnoresTextFragments(t *testing.T) {
	snapshot := SnapshotFromFragments([]Fragment{
		{Content: "plain value", Metadata: FragmentMetadata{Type: FragmentTypeText, OriginalKey: "note"}},
		fileChunk("file_a", 0, 1, "content"),
	})

	files := snapshot.ReconstructFiles()
	require.Len(t, files, 1)
	assert.Equal(t, "a", files[0].FileID)
}

func TestReconstructFilesIsIdempotent(t *testing.T) {
	snapshot := SnapshotFromFragments([]Fragment{
		fileChunk("file_a", 1, 2, "tail"),
		fileChunk("file_a", 0, 2, "head "),
	})

	first := snapshot.ReconstructFiles()
	second := snapshot.ReconstructFiles()
	assert.Equal(t, first, second)
}

func TestContextKeysNewFormatTruncation(t *testing.T) {
	long := strings.Repeat("a", 35)
	short := strings.Repeat("b", 20)
	exact := strings.Repeat("c", 30)

	snapshot := SnapshotFromFragments([]Fragment{
		{Content: long},
		{Content: short},
		{Content: exact},
	})

	keys := snapshot.ContextKeys()
	require.Len(t, keys, 3)
	assert.Equal(t, strings.Repeat("a", 30)+"...", keys[0])
	assert.Equal(t, short, keys[1])
	assert.Equal(t, exact, keys[2], "exactly 30 runes gets no ellipsis")
}

func TestContextKeysNewFormatMultibyte(t *testing.T) {
	content := strings.Repeat("é", 35)
	snapshot := SnapshotFromFragments([]Fragment{{Content: content}})

	keys := snapshot.ContextKeys()
	require.Len(t, keys, 1)
	assert.Equal(t, strings.Repeat("é", 30)+"...", keys[0], "truncation counts runes, not bytes")
}

// Two fragments sharing a 30-rune prefix share a derived key; keys are not
// deduplicated.
func TestContextKeysNewFormatCollision(t *testing.T) {
	prefix := strings.Repeat("x", 30)
	snapshot := SnapshotFromFragments([]Fragment{
		{Content: prefix + " first"},
		{Content: prefix + " second"},
	})

	keys := snapshot.ContextKeys()
	require.Len(t, keys, 2)
	assert.Equal(t, keys[0], keys[1])
}

func TestContextKeysLegacyFormat(t *testing.T) {
	snapshot := SnapshotFromFragments([]Fragment{
		{Content: "Alice", Metadata: FragmentMetadata{Type: FragmentTypeText, OriginalKey: "user_name"}},
		{Content: "dark", Metadata: FragmentMetadata{Type: FragmentTypeText, OriginalKey: "theme"}},
		fileChunk("file_a", 0, 1, "ignored"),
	})

	keys := snapshot.ContextKeys()
	assert.Equal(t, []string{"user_name", "theme"}, keys)
}

func TestResolveValueNewFormat(t *testing.T) {
	long := strings.Repeat("z", 40)
	snapshot := SnapshotFromFragments([]Fragment{
		{Content: "short value"},
		{Content: long},
	})

	v, ok := snapshot.ResolveValue("short value")
	require.True(t, ok)
	assert.Equal(t, "short value", v)

	v, ok = snapshot.ResolveValue(strings.Repeat("z", 30) + "...")
	require.True(t, ok)
	assert.Equal(t, long, v, "the full content comes back, not the truncated key")

	_, ok = snapshot.ResolveValue("missing")
	assert.False(t, ok)
}

func TestResolveValueLegacyFormat(t *testing.T) {
	snapshot := SnapshotFromFragments([]Fragment{
		{Content: "Alice", Metadata: FragmentMetadata{Type: FragmentTypeText, OriginalKey: "user_name"}},
	})

	v, ok := snapshot.ResolveValue("user_name")
	require.True(t, ok)
	assert.Equal(t, "Alice", v)

	_, ok = snapshot.ResolveValue("missing")
	assert.False(t, ok)
}

func TestSnapshotFromLegacyMapDropsReservedKeys(t *testing.T) {
	snapshot := SnapshotFromLegacyMap(map[string]interface{}{
		"user_name":   "Alice",
		"retry_count": 3,
		"files":       []interface{}{"a", "b"},
		"file_123":    "chunk data",
	})

	keys := snapshot.ContextKeys()
	assert.Equal(t, []string{"retry_count", "user_name"}, keys, "map keys come out sorted")

	v, ok := snapshot.ResolveValue("retry_count")
	require.True(t, ok)
	assert.Equal(t, "3", v, "non-string values are stringified")

	_, ok = snapshot.ResolveValue("files")
	assert.False(t, ok)
}

func TestEmptySnapshot(t *testing.T) {
	snapshot := SnapshotFromFragments(nil)
	assert.Empty(t, snapshot.ReconstructFiles())
	assert.Empty(t, snapshot.ContextKeys())

	_, ok := snapshot.ResolveValue("anything")
	assert.False(t, ok)
}

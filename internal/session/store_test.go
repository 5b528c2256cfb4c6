package session

import (
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_TranscriptRoundTrip(t *testing.T) {
	store := openTestStore(t)

	id, err := store.Create()
	require.NoError(t, err)
	require.NotEmpty(t, id)

	require.NoError(t, store.Append(id, "user", "Where to stock ThinkPads?"))
	require.NoError(t, store.Append(id, "assistant", "Dallas first."))

	msgs, err := store.Messages(id)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "user", msgs[0].Role)
	assert.Equal(t, "Where to stock ThinkPads?", msgs[0].Content)
	assert.Equal(t, "assistant", msgs[1].Role)
}

func TestStore_TitleFromFirstQuestion(t *testing.T) {
	store := openTestStore(t)

	id, err := store.Create()
	require.NoError(t, err)
	require.NoError(t, store.Append(id, "user", "first question"))
	require.NoError(t, store.Append(id, "user", "second question"))

	sessions, err := store.Recent(5)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "first question", sessions[0].Title)
}

func TestStore_TitleTruncated(t *testing.T) {
	store := openTestStore(t)

	id, err := store.Create()
	require.NoError(t, err)
	long := strings.Repeat("q", 200)
	require.NoError(t, store.Append(id, "user", long))

	sessions, err := store.Recent(1)
	require.NoError(t, err)
	assert.Len(t, sessions[0].Title, 80)
	assert.True(t, strings.HasSuffix(sessions[0].Title, "..."))
}

func TestStore_TitleTruncatedOnRuneBoundary(t *testing.T) {
	store := openTestStore(t)

	id, err := store.Create()
	require.NoError(t, err)
	// Place "é" so the 77th character is multibyte; a byte-indexed cut
	// would split it and persist invalid UTF-8.
	long := strings.Repeat("q", 76) + "é demande prévue à Paris"
	require.NoError(t, store.Append(id, "user", long))

	sessions, err := store.Recent(1)
	require.NoError(t, err)
	title := sessions[0].Title
	assert.True(t, utf8.ValidString(title))
	assert.Equal(t, 80, utf8.RuneCountInString(title))
	assert.True(t, strings.HasSuffix(title, "..."))
	assert.Contains(t, title, "é")
}

func TestStore_RecentOrdering(t *testing.T) {
	store := openTestStore(t)

	first, err := store.Create()
	require.NoError(t, err)
	second, err := store.Create()
	require.NoError(t, err)

	// Touch the first session last; it becomes most recent.
	require.NoError(t, store.Append(second, "user", "b"))
	require.NoError(t, store.Append(first, "user", "a"))

	sessions, err := store.Recent(10)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, first, sessions[0].ID)
}

func TestStore_Delete(t *testing.T) {
	store := openTestStore(t)

	id, err := store.Create()
	require.NoError(t, err)
	require.NoError(t, store.Append(id, "user", "q"))
	require.NoError(t, store.Delete(id))

	msgs, err := store.Messages(id)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	sessions, err := store.Recent(10)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

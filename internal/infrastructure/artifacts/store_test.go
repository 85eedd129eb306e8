package artifacts

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ArticleFactory/internal/domain"
	"ArticleFactory/internal/ports"
)

func TestStoreWriteListRead(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewStore(memfs.New(), "astro")

	refs, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, refs)

	salmon := domain.ArtifactRef{Category: "pairings", Slug: "best-wine-with-salmon"}
	steak := domain.ArtifactRef{Category: "pairings", Slug: "best-wine-with-steak"}
	guide := domain.ArtifactRef{Category: "guides", Slug: "decanting"}
	for _, ref := range []domain.ArtifactRef{steak, guide, salmon} {
		require.NoError(t, store.Write(ctx, ref, []byte("content of "+ref.Slug)))
	}
	require.NoError(t, util.WriteFile(store.fs, "/pairings/notes.txt", []byte("x"), 0o644))
	require.NoError(t, util.WriteFile(store.fs, "/_drafts/draft.astro", []byte("x"), 0o644))

	refs, err = store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.ArtifactRef{guide, salmon, steak}, refs)

	art, err := store.Read(ctx, salmon)
	require.NoError(t, err)
	assert.Equal(t, "content of best-wine-with-salmon", string(art.Content))
	assert.True(t, strings.HasSuffix(art.Path, "pairings/best-wine-with-salmon.astro"))

	found, ok, err := store.FindBySlug(ctx, "decanting")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, guide, found)

	_, ok, err = store.FindBySlug(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreReadMissing(t *testing.T) {
	t.Parallel()

	store := NewStore(memfs.New(), "")
	_, err := store.Read(context.Background(), domain.ArtifactRef{Category: "a", Slug: "b"})
	assert.ErrorIs(t, err, ports.ErrNotFound)

	err = store.Write(context.Background(), domain.ArtifactRef{Slug: "b"}, nil)
	assert.Error(t, err)
}

func TestArchiverMovesArtifact(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	live := NewStore(memfs.New(), "")
	archiveFS := memfs.New()
	archiver := NewArchiver(live, archiveFS)
	archiver.now = func() time.Time { return time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC) }

	ref := domain.ArtifactRef{Category: "pairings", Slug: "thin"}
	require.NoError(t, live.Write(ctx, ref, []byte("<Layout></Layout>\n")))

	score := domain.QualityScore{
		Ref:        ref,
		TotalScore: 31,
		Status:     domain.QualityFail,
		Issues:     []string{"word count critically low (120 < 500)", "missing title"},
	}
	dest, err := archiver.Archive(ctx, score, "below reject threshold")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(dest, "pairings/thin.astro"))

	_, err = live.Read(ctx, ref)
	assert.ErrorIs(t, err, ports.ErrNotFound)

	archived, err := util.ReadFile(archiveFS, "/pairings/thin.astro")
	require.NoError(t, err)
	text := string(archived)
	assert.True(t, strings.HasPrefix(text, "<!-- ARCHIVED\n"))
	assert.Contains(t, text, "archivedAt:")
	assert.Contains(t, text, "2026-10-18T09:00:00Z")
	assert.Contains(t, text, "reason: below reject threshold")
	assert.Contains(t, text, "score: 31")
	assert.Contains(t, text, "- missing title")
	assert.True(t, strings.HasSuffix(text, "-->\n<Layout></Layout>\n"))

	require.NoError(t, live.Write(ctx, ref, []byte("again")))
	_, err = archiver.Archive(ctx, score, "again")
	assert.ErrorIs(t, err, ports.ErrAlreadyArchived)
}

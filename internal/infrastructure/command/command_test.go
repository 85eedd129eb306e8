package command

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ArticleFactory/internal/config"
	"ArticleFactory/internal/domain"
	"ArticleFactory/internal/infrastructure/artifacts"
	"ArticleFactory/internal/ports"
)

func shell(script string) config.StrategyConfig {
	return config.StrategyConfig{Command: []string{"sh", "-c", script}, Timeout: 10 * time.Second}
}

func TestGeneratorWritesArtifact(t *testing.T) {
	t.Parallel()

	store := artifacts.OpenStore(t.TempDir(), "")
	gen := NewGenerator(shell(`mkdir -p "$ARTICLE_DIR" && printf '%s' "$ARTICLE_KEYWORD" > {path} && echo done`), store, nil)

	res, err := gen.Generate(context.Background(), ports.GenerateRequest{Keyword: "wine with steak", Category: "pairings", Slug: "wine-with-steak"})
	require.NoError(t, err)
	assert.Equal(t, "done", res.Output)
	assert.Equal(t, "command", gen.Name())

	art, err := store.Read(context.Background(), domain.ArtifactRef{Category: "pairings", Slug: "wine-with-steak"})
	require.NoError(t, err)
	assert.Equal(t, "wine with steak", string(art.Content))
}

func TestGeneratorFailures(t *testing.T) {
	t.Parallel()

	store := artifacts.OpenStore(t.TempDir(), "")
	req := ports.GenerateRequest{Keyword: "k", Category: "c", Slug: "k"}

	_, err := NewGenerator(shell(`echo quota exceeded >&2; exit 3`), store, nil).Generate(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exit status 3")
	assert.Contains(t, err.Error(), "quota exceeded")

	_, err = NewGenerator(shell(`true`), store, nil).Generate(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "was not written")

	_, err = NewGenerator(config.StrategyConfig{}, store, nil).Generate(context.Background(), req)
	assert.EqualError(t, err, "generate c/k: no command configured")
}

func TestGeneratorTimeout(t *testing.T) {
	t.Parallel()

	store := artifacts.OpenStore(t.TempDir(), "")
	cfg := shell(`sleep 5`)
	cfg.Timeout = 50 * time.Millisecond

	start := time.Now()
	_, err := NewGenerator(cfg, store, nil).Generate(context.Background(), ports.GenerateRequest{Category: "c", Slug: "s"})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestEnricherPassesContext(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := artifacts.OpenStore(dir, "")
	ref := domain.ArtifactRef{Category: "pairings", Slug: "tuna"}
	require.NoError(t, store.Write(context.Background(), ref, []byte("old")))

	enricher := NewEnricher(shell(`printf '%s|%s' "$ARTICLE_SCORE" "$ARTICLE_EXISTING_RECOMMENDATIONS" > "$ARTICLE_PATH"`), store, nil)
	_, err := enricher.Enrich(context.Background(), ports.EnrichRequest{
		Ref:                     ref,
		Score:                   domain.QualityScore{Ref: ref, TotalScore: 64},
		ExistingRecommendations: []string{"A", "B"},
	})
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(dir, "pairings", "tuna.astro"))
	require.NoError(t, err)
	assert.Equal(t, "64|A\nB", string(raw))
}

func TestTail(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("a", outputTail+10)
	assert.Len(t, tail(long), outputTail+3)
	assert.Equal(t, "x", tail("  x\n"))
}

package artifacts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	"ArticleFactory/internal/domain"
	"ArticleFactory/internal/ports"
)

// DefaultExtension is the file suffix of content artifacts.
const DefaultExtension = ".astro"

// Store keeps artifacts as <category>/<slug><ext> files on a billy filesystem.
type Store struct {
	fs  billy.Filesystem
	ext string
}

var _ ports.ArtifactStore = (*Store)(nil)

// NewStore wraps an existing filesystem (memfs in tests).
func NewStore(fs billy.Filesystem, ext string) *Store {
	if ext == "" {
		ext = DefaultExtension
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return &Store{fs: fs, ext: ext}
}

// OpenStore roots a store at dir on the local disk.
func OpenStore(dir, ext string) *Store {
	return NewStore(osfs.New(dir), ext)
}

func (s *Store) file(ref domain.ArtifactRef) string {
	return path.Join("/", ref.Category, ref.Slug+s.ext)
}

// Path returns the artifact's location including the filesystem root.
func (s *Store) Path(ref domain.ArtifactRef) string {
	return s.fs.Join(s.fs.Root(), ref.Category, ref.Slug+s.ext)
}

// List returns every artifact ordered by category then slug.
func (s *Store) List(ctx context.Context) ([]domain.ArtifactRef, error) {
	categories, err := s.fs.ReadDir("/")
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	var refs []domain.ArtifactRef
	for _, cat := range categories {
		if !cat.IsDir() || skipName(cat.Name()) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		files, err := s.fs.ReadDir(path.Join("/", cat.Name()))
		if err != nil {
			return nil, fmt.Errorf("list category %s: %w", cat.Name(), err)
		}
		for _, f := range files {
			if f.IsDir() || skipName(f.Name()) || !strings.HasSuffix(f.Name(), s.ext) {
				continue
			}
			refs = append(refs, domain.ArtifactRef{
				Category: cat.Name(),
				Slug:     strings.TrimSuffix(f.Name(), s.ext),
			})
		}
	}

	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Category != refs[j].Category {
			return refs[i].Category < refs[j].Category
		}
		return refs[i].Slug < refs[j].Slug
	})
	return refs, nil
}

func skipName(name string) bool {
	return name == "" || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")
}

// FindBySlug looks the slug up across all categories.
func (s *Store) FindBySlug(ctx context.Context, slug string) (domain.ArtifactRef, bool, error) {
	refs, err := s.List(ctx)
	if err != nil {
		return domain.ArtifactRef{}, false, err
	}
	for _, ref := range refs {
		if ref.Slug == slug {
			return ref, true, nil
		}
	}
	return domain.ArtifactRef{}, false, nil
}

// Read loads the artifact content.
func (s *Store) Read(_ context.Context, ref domain.ArtifactRef) (domain.Artifact, error) {
	content, err := util.ReadFile(s.fs, s.file(ref))
	if errors.Is(err, os.ErrNotExist) {
		return domain.Artifact{}, fmt.Errorf("artifact %s: %w", ref, ports.ErrNotFound)
	}
	if err != nil {
		return domain.Artifact{}, fmt.Errorf("read artifact %s: %w", ref, err)
	}
	return domain.Artifact{Ref: ref, Path: s.Path(ref), Content: content}, nil
}

// Write creates or replaces the artifact.
func (s *Store) Write(_ context.Context, ref domain.ArtifactRef, content []byte) error {
	if ref.Category == "" || ref.Slug == "" {
		return fmt.Errorf("write artifact: incomplete ref %q", ref.Key())
	}
	if err := s.fs.MkdirAll(path.Join("/", ref.Category), 0o755); err != nil {
		return fmt.Errorf("create category %s: %w", ref.Category, err)
	}
	if err := util.WriteFile(s.fs, s.file(ref), content, 0o644); err != nil {
		return fmt.Errorf("write artifact %s: %w", ref, err)
	}
	return nil
}

// Remove deletes the artifact from the live set.
func (s *Store) Remove(_ context.Context, ref domain.ArtifactRef) error {
	if err := s.fs.Remove(s.file(ref)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("artifact %s: %w", ref, ports.ErrNotFound)
		}
		return fmt.Errorf("remove artifact %s: %w", ref, err)
	}
	return nil
}

package artifacts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"gopkg.in/yaml.v3"

	"ArticleFactory/internal/domain"
	"ArticleFactory/internal/ports"
)

// Archiver relocates rejected artifacts into a segregated tree.
type Archiver struct {
	live    *Store
	archive billy.Filesystem
	now     func() time.Time
}

var _ ports.Archiver = (*Archiver)(nil)

// NewArchiver moves artifacts from live into archive.
func NewArchiver(live *Store, archive billy.Filesystem) *Archiver {
	return &Archiver{live: live, archive: archive, now: time.Now}
}

// OpenArchiver roots the archive at dir on the local disk.
func OpenArchiver(live *Store, dir string) *Archiver {
	return NewArchiver(live, osfs.New(dir))
}

type archiveHeader struct {
	ArchivedAt string   `yaml:"archivedAt"`
	Reason     string   `yaml:"reason"`
	Score      int      `yaml:"score"`
	Status     string   `yaml:"status"`
	Issues     []string `yaml:"issues,omitempty"`
}

// Archive writes the artifact, prefixed with a metadata header, to the
// archive and then removes it from the live set. It returns the archive path.
func (a *Archiver) Archive(ctx context.Context, score domain.QualityScore, reason string) (string, error) {
	ref := score.Ref
	art, err := a.live.Read(ctx, ref)
	if err != nil {
		return "", err
	}

	target := path.Join("/", ref.Category, ref.Slug+a.live.ext)
	if _, err := a.archive.Stat(target); err == nil {
		return "", fmt.Errorf("archive %s: %w", ref, ports.ErrAlreadyArchived)
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("stat archive %s: %w", ref, err)
	}

	header, err := yaml.Marshal(archiveHeader{
		ArchivedAt: a.now().UTC().Format(time.RFC3339),
		Reason:     reason,
		Score:      score.TotalScore,
		Status:     string(score.Status),
		Issues:     score.Issues,
	})
	if err != nil {
		return "", fmt.Errorf("marshal archive header: %w", err)
	}

	content := append([]byte("<!-- ARCHIVED\n"), header...)
	content = append(content, []byte("-->\n")...)
	content = append(content, art.Content...)

	if err := a.archive.MkdirAll(path.Join("/", ref.Category), 0o755); err != nil {
		return "", fmt.Errorf("create archive category: %w", err)
	}
	if err := util.WriteFile(a.archive, target, content, 0o644); err != nil {
		return "", fmt.Errorf("write archive %s: %w", ref, err)
	}
	if err := a.live.Remove(ctx, ref); err != nil {
		return "", err
	}

	return a.archive.Join(a.archive.Root(), ref.Category, ref.Slug+a.live.ext), nil
}

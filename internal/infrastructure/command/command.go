// Package command runs generation and enrichment as external processes.
// Exit status zero means success; the artifact must exist afterwards.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"ArticleFactory/internal/config"
	"ArticleFactory/internal/domain"
	"ArticleFactory/internal/ports"
)

const outputTail = 2048

// Name is the strategy name of both command adapters.
const Name = config.StrategyCommand

type runner struct {
	argv    []string
	workDir string
	timeout time.Duration
	store   ports.ArtifactStore
	logger  *slog.Logger
}

func newRunner(cfg config.StrategyConfig, store ports.ArtifactStore, logger *slog.Logger) runner {
	if logger == nil {
		logger = slog.Default()
	}
	return runner{argv: cfg.Command, workDir: cfg.WorkDir, timeout: cfg.Timeout, store: store, logger: logger}
}

// run executes the command with placeholders expanded and the same values
// exported as ARTICLE_* environment variables.
func (r runner) run(ctx context.Context, vars map[string]string) (string, error) {
	if len(r.argv) == 0 {
		return "", errors.New("no command configured")
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	pairs := make([]string, 0, len(vars)*2)
	env := os.Environ()
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
		env = append(env, "ARTICLE_"+strings.ToUpper(k)+"="+v)
	}
	replacer := strings.NewReplacer(pairs...)
	args := make([]string, len(r.argv))
	for i, a := range r.argv {
		args[i] = replacer.Replace(a)
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = r.workDir
	cmd.Env = env
	cmd.WaitDelay = time.Second
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	start := time.Now()
	err := cmd.Run()
	output := tail(out.String())
	r.logger.Debug("command finished", "command", args[0], "elapsed", time.Since(start), "error", err)
	if err != nil {
		if output != "" {
			return output, fmt.Errorf("%s: %w: %s", args[0], err, output)
		}
		return output, fmt.Errorf("%s: %w", args[0], err)
	}
	return output, nil
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > outputTail {
		s = "..." + s[len(s)-outputTail:]
	}
	return s
}

func (r runner) requireArtifact(ctx context.Context, ref domain.ArtifactRef) error {
	if _, err := r.store.Read(ctx, ref); err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return fmt.Errorf("command succeeded but %s was not written", ref)
		}
		return err
	}
	return nil
}

func refVars(store ports.ArtifactStore, ref domain.ArtifactRef) map[string]string {
	path := store.Path(ref)
	return map[string]string{
		"slug":     ref.Slug,
		"category": ref.Category,
		"path":     path,
		"dir":      filepath.Dir(path),
	}
}

// Generator runs the configured command once per backlog item.
type Generator struct {
	runner
}

var _ ports.Generator = (*Generator)(nil)

func NewGenerator(cfg config.StrategyConfig, store ports.ArtifactStore, logger *slog.Logger) *Generator {
	return &Generator{runner: newRunner(cfg, store, logger)}
}

func (g *Generator) Name() string { return Name }

func (g *Generator) Generate(ctx context.Context, req ports.GenerateRequest) (ports.Result, error) {
	ref := domain.ArtifactRef{Category: req.Category, Slug: req.Slug}
	vars := refVars(g.store, ref)
	vars["keyword"] = req.Keyword

	output, err := g.run(ctx, vars)
	if err != nil {
		return ports.Result{Ref: ref, Output: output}, fmt.Errorf("generate %s: %w", ref, err)
	}
	if err := g.requireArtifact(ctx, ref); err != nil {
		return ports.Result{Ref: ref, Output: output}, err
	}
	return ports.Result{Ref: ref, Output: output}, nil
}

// Enricher runs the configured command once per low-scoring artifact.
type Enricher struct {
	runner
}

var _ ports.Enricher = (*Enricher)(nil)

func NewEnricher(cfg config.StrategyConfig, store ports.ArtifactStore, logger *slog.Logger) *Enricher {
	return &Enricher{runner: newRunner(cfg, store, logger)}
}

func (e *Enricher) Name() string { return Name }

func (e *Enricher) Enrich(ctx context.Context, req ports.EnrichRequest) (ports.Result, error) {
	vars := refVars(e.store, req.Ref)
	vars["score"] = strconv.Itoa(req.Score.TotalScore)
	vars["issues"] = strings.Join(req.Score.Issues, "\n")
	vars["existing_recommendations"] = strings.Join(req.ExistingRecommendations, "\n")

	output, err := e.run(ctx, vars)
	if err != nil {
		return ports.Result{Ref: req.Ref, Output: output}, fmt.Errorf("enrich %s: %w", req.Ref, err)
	}
	if err := e.requireArtifact(ctx, req.Ref); err != nil {
		return ports.Result{Ref: req.Ref, Output: output}, err
	}
	return ports.Result{Ref: req.Ref, Output: output}, nil
}

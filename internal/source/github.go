package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	consts "github.com/khanhnv2901/gh-recon/internal/shared/constants"
	apperrors "github.com/khanhnv2901/gh-recon/internal/shared/errors"
	"github.com/khanhnv2901/gh-recon/internal/shared/security"
)

// DefaultGitHubAPI is the public REST endpoint.
const DefaultGitHubAPI = "https://api.github.com"

const reposPerPage = 100

// Cloner fetches a repository into dest.
type Cloner interface {
	Clone(ctx context.Context, cloneURL, dest string) error
}

// GitHubConfig wires a GitHubSource.
type GitHubConfig struct {
	Org string
	// Token is sent as "token <Token>"; empty means unauthenticated.
	Token   string
	BaseURL string
	// CloneDir receives one checkout per repository.
	CloneDir string
	Client   *http.Client
	Cloner   Cloner
	Logger   *zap.SugaredLogger
}

// GitHubSource lists the non-archived repositories of an organisation and
// shallow-clones them on demand.
type GitHubSource struct {
	org      string
	token    string
	baseURL  string
	cloneDir string
	client   *http.Client
	cloner   Cloner
	logger   *zap.SugaredLogger
}

// NewGitHubSource validates cfg and fills defaults.
func NewGitHubSource(cfg GitHubConfig) (*GitHubSource, error) {
	org := strings.TrimSpace(cfg.Org)
	if org == "" || strings.ContainsAny(org, "/\\ ") {
		return nil, fmt.Errorf("%w: organisation name %q", apperrors.ErrInvalidInput, cfg.Org)
	}
	s := &GitHubSource{
		org:      org,
		token:    cfg.Token,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		cloneDir: cfg.CloneDir,
		client:   cfg.Client,
		cloner:   cfg.Cloner,
		logger:   cfg.Logger,
	}
	if s.baseURL == "" {
		s.baseURL = DefaultGitHubAPI
	}
	if s.cloneDir == "" {
		s.cloneDir = "repos_" + org
	}
	if s.client == nil {
		s.client = &http.Client{}
	}
	if s.cloner == nil {
		s.cloner = NewGitCloner()
	}
	if s.logger == nil {
		s.logger = zap.NewNop().Sugar()
	}
	if s.token == "" {
		s.logger.Warnw("GH_TOKEN not set; listing repositories unauthenticated", "org", org)
	}
	return s, nil
}

func (s *GitHubSource) Name() string {
	return s.org
}

type apiRepository struct {
	Name     string `json:"name"`
	CloneURL string `json:"clone_url"`
	Archived bool   `json:"archived"`
}

// List pages through /orgs/{org}/repos until an empty page, skipping
// archived repositories.
func (s *GitHubSource) List(ctx context.Context) ([]Repository, error) {
	var repos []Repository
	for page := 1; ; page++ {
		batch, err := s.listPage(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrAcquisition, err)
		}
		if len(batch) == 0 {
			return repos, nil
		}
		for _, r := range batch {
			if r.Archived {
				continue
			}
			repos = append(repos, Repository{Name: r.Name, CloneURL: r.CloneURL})
		}
	}
}

func (s *GitHubSource) listPage(ctx context.Context, page int) ([]apiRepository, error) {
	endpoint := fmt.Sprintf("%s/orgs/%s/repos?per_page=%d&page=%d",
		s.baseURL, url.PathEscape(s.org), reposPerPage, page)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", consts.UserAgent)
	if s.token != "" {
		req.Header.Set("Authorization", "token "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("GitHub API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var batch []apiRepository
	if err := json.NewDecoder(resp.Body).Decode(&batch); err != nil {
		return nil, fmt.Errorf("decode repositories page %d: %w", page, err)
	}
	return batch, nil
}

// Prepare reuses an existing checkout under CloneDir or clones a fresh one.
// A directory without .git is treated as a broken checkout and replaced.
func (s *GitHubSource) Prepare(ctx context.Context, repo Repository) (string, error) {
	if err := security.CheckSegment(repo.Name); err != nil {
		return "", fmt.Errorf("%w: repository name: %v", apperrors.ErrRepositoryPrepare, err)
	}
	if err := os.MkdirAll(s.cloneDir, consts.DefaultDirPerm); err != nil {
		return "", fmt.Errorf("%w: %v", apperrors.ErrRepositoryPrepare, err)
	}
	dest, err := security.ResolveWithin(s.cloneDir, repo.Name)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperrors.ErrRepositoryPrepare, err)
	}

	if info, err := os.Stat(filepath.Join(dest, ".git")); err == nil && info.IsDir() {
		s.logger.Debugw("reusing checkout", "repo", repo.Name, "path", dest)
		return dest, nil
	}
	if err := os.RemoveAll(dest); err != nil {
		return "", fmt.Errorf("%w: clear %s: %v", apperrors.ErrRepositoryPrepare, dest, err)
	}

	if err := s.cloner.Clone(ctx, repo.CloneURL, dest); err != nil {
		return "", fmt.Errorf("%w: clone %s: %v", apperrors.ErrRepositoryPrepare, repo.Name, err)
	}
	return dest, nil
}

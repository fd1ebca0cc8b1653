// Package gitsource keeps a local checkout of a deck repository.
package gitsource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
)

// IsRemote reports whether src looks like a git URL rather than a local path.
func IsRemote(src string) bool {
	return strings.HasSuffix(src, ".git") ||
		strings.HasPrefix(src, "git@") ||
		strings.HasPrefix(src, "https://") ||
		strings.HasPrefix(src, "http://")
}

// LocalPath maps a repository URL to a checkout directory under baseDir.
func LocalPath(baseDir, repoURL string) (string, error) {
	parsedURL, err := url.Parse(repoURL)
	if err != nil || (parsedURL.Scheme != "https" && parsedURL.Scheme != "http") {
		// scp-like syntax: git@host:owner/repo.git
		user, rest, ok := strings.Cut(repoURL, "@")
		if ok && user != "" {
			host, repoPath, ok := strings.Cut(rest, ":")
			if ok && host != "" && repoPath != "" {
				return checkoutDir(baseDir, repoURL, host, strings.TrimSuffix(repoPath, ".git"))
			}
		}
		return "", fmt.Errorf("could not parse git URL: %s", repoURL)
	}

	sanitizedPath := strings.TrimSuffix(parsedURL.Path, ".git")
	if sanitizedPath == "" || sanitizedPath == "/" {
		return "", fmt.Errorf("git URL has no repository path: %s", repoURL)
	}
	return checkoutDir(baseDir, repoURL, parsedURL.Host, sanitizedPath)
}

// checkoutDir joins the URL parts under baseDir and rejects results that
// escape it or collapse onto it.
func checkoutDir(baseDir, repoURL string, parts ...string) (string, error) {
	p := filepath.Join(append([]string{baseDir}, parts...)...)
	rel, err := filepath.Rel(baseDir, p)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("git URL resolves outside the repository directory: %s", repoURL)
	}
	return p, nil
}

// Sync clones a git repository if it doesn't exist at the given path,
// or pulls the latest changes if it does. Progress output goes to progress
// when it is not nil.
func Sync(ctx context.Context, repoURL, localPath string, progress io.Writer) error {
	_, err := os.Stat(localPath)
	switch {
	case os.IsNotExist(err):
		slog.Info("Cloning repository", "url", repoURL, "path", localPath)
		_, err := git.PlainCloneContext(ctx, localPath, false, &git.CloneOptions{
			URL:      repoURL,
			Progress: progress,
		})
		if err != nil {
			return fmt.Errorf("failed to clone repo %s: %w", repoURL, err)
		}
	case err == nil:
		slog.Info("Pulling latest changes", "path", localPath)
		repo, err := git.PlainOpen(localPath)
		if err != nil {
			return fmt.Errorf("failed to open existing repo at %s: %w", localPath, err)
		}

		worktree, err := repo.Worktree()
		if err != nil {
			return fmt.Errorf("failed to get worktree for repo at %s: %w", localPath, err)
		}

		err = worktree.PullContext(ctx, &git.PullOptions{
			RemoteName: "origin",
			Progress:   progress,
		})
		if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
			return fmt.Errorf("failed to pull changes for repo at %s: %w", localPath, err)
		}
	default:
		return fmt.Errorf("error checking path %s: %w", localPath, err)
	}
	return nil
}

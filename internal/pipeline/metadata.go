package pipeline

import (
	"encoding/json"
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"git.home.luguber.info/inful/interleave/internal/logfields"
)

// Data keys contributed by the enclosing git repository.
const (
	DataGitCommit = "git_commit"
	DataGitBranch = "git_branch"
)

// LoadMetadata merges package.json and git revision values into the session
// data. Existing keys are never overwritten. Missing sources are skipped.
func (c *Controller) LoadMetadata() {
	pkg, err := ReadPackageJSON(c.session.basedir)
	if err != nil {
		c.logger.Warn("Ignoring unreadable package.json", logfields.Error(err))
	}
	if added := c.session.MergeData(pkg); len(added) > 0 {
		c.logger.Debug("Loaded package metadata", logfields.Count(len(added)))
	}

	rev, err := GitRevision(c.session.basedir)
	if err != nil {
		c.logger.Debug("No git revision metadata", logfields.Error(err))
		return
	}
	c.session.MergeData(rev)
}

// ReadPackageJSON returns the top-level keys of dir/package.json, or nil when
// the file does not exist.
func ReadPackageJSON(dir string) (map[string]any, error) {
	data, err := os.ReadFile(filepath.Join(dir, "package.json"))
	if stderrors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var values map[string]any
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, err
	}
	return values, nil
}

// GitRevision returns the HEAD commit (and branch, when on one) of the
// repository containing dir.
func GitRevision(dir string) (map[string]any, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, err
	}
	head, err := repo.Head()
	if stderrors.Is(err, plumbing.ErrReferenceNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	values := map[string]any{DataGitCommit: head.Hash().String()}
	if head.Name().IsBranch() {
		values[DataGitBranch] = head.Name().Short()
	}
	return values, nil
}

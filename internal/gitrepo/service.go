// Package gitrepo keeps a revision history of saved projects. Each
// collection is one git repository; each project is one JSON file in it.
package gitrepo

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"showcase/api/internal/project"
	"showcase/api/internal/store"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

var (
	ErrUnchanged = errors.New("gitrepo: record unchanged")
	ErrNoHistory = errors.New("gitrepo: no history")
)

type Service struct {
	baseDir string
	lockMu  sync.Mutex
	locks   map[string]*sync.Mutex
}

func New(baseDir string) *Service {
	return &Service{
		baseDir: baseDir,
		locks:   make(map[string]*sync.Mutex),
	}
}

// Commit records rec as the new revision of its project. Saving identical
// content returns ErrUnchanged.
func (s *Service) Commit(collection string, rec project.Record, author, message string) (store.CommitInfo, error) {
	id := rec.ID()
	if strings.TrimSpace(id) == "" {
		return store.CommitInfo{}, errors.New("gitrepo: record has no id")
	}
	lock := s.collectionLock(collection)
	lock.Lock()
	defer lock.Unlock()

	repo, err := s.ensureRepo(collection)
	if err != nil {
		return store.CommitInfo{}, err
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return store.CommitInfo{}, fmt.Errorf("open worktree: %w", err)
	}

	payload, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return store.CommitInfo{}, fmt.Errorf("marshal record: %w", err)
	}
	name := recordFile(id)
	if err := os.WriteFile(filepath.Join(worktree.Filesystem.Root(), name), append(payload, '\n'), 0o644); err != nil {
		return store.CommitInfo{}, fmt.Errorf("write %s: %w", name, err)
	}
	if _, err := worktree.Add(name); err != nil {
		return store.CommitInfo{}, fmt.Errorf("git add %s: %w", name, err)
	}

	if strings.TrimSpace(message) == "" {
		message = fmt.Sprintf("Save project %s", id)
	}
	hash, err := worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  author,
			Email: fmt.Sprintf("%s@local.showcase", sanitizeEmail(author)),
			When:  time.Now(),
		},
	})
	if errors.Is(err, git.ErrEmptyCommit) {
		return store.CommitInfo{}, ErrUnchanged
	}
	if err != nil {
		return store.CommitInfo{}, fmt.Errorf("commit %s: %w", name, err)
	}

	commitObj, err := repo.CommitObject(hash)
	if err != nil {
		return store.CommitInfo{}, fmt.Errorf("read commit object: %w", err)
	}
	return toCommitInfo(commitObj), nil
}

// History lists the revisions of one project, newest first.
func (s *Service) History(collection, id string, limit int) ([]store.CommitInfo, error) {
	lock := s.collectionLock(collection)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(s.repoPath(collection))
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return []store.CommitInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open repo: %w", err)
	}
	head, err := repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return []store.CommitInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve head: %w", err)
	}

	name := recordFile(id)
	iter, err := repo.Log(&git.LogOptions{From: head.Hash(), FileName: &name})
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	items := make([]store.CommitInfo, 0)
	err = iter.ForEach(func(commitObj *object.Commit) error {
		items = append(items, toCommitInfo(commitObj))
		if limit > 0 && len(items) >= limit {
			return io.EOF
		}
		return nil
	})
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("iterate log: %w", err)
	}
	return items, nil
}

// Revision returns the project as it was at hash (full or abbreviated).
func (s *Service) Revision(collection, id, hash string) (project.Record, store.CommitInfo, error) {
	lock := s.collectionLock(collection)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(s.repoPath(collection))
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, store.CommitInfo{}, ErrNoHistory
	}
	if err != nil {
		return nil, store.CommitInfo{}, fmt.Errorf("open repo: %w", err)
	}
	resolved, err := resolveHash(repo, hash)
	if err != nil {
		return nil, store.CommitInfo{}, err
	}
	commitObj, err := repo.CommitObject(resolved)
	if err != nil {
		return nil, store.CommitInfo{}, fmt.Errorf("%w: %s", ErrNoHistory, hash)
	}

	file, err := commitObj.File(recordFile(id))
	if err != nil {
		return nil, store.CommitInfo{}, fmt.Errorf("%w: %s at %s", ErrNoHistory, id, hash)
	}
	body, err := file.Contents()
	if err != nil {
		return nil, store.CommitInfo{}, fmt.Errorf("read %s: %w", file.Name, err)
	}
	var rec project.Record
	if err := json.Unmarshal([]byte(body), &rec); err != nil {
		return nil, store.CommitInfo{}, fmt.Errorf("decode revision: %w", err)
	}
	return rec, toCommitInfo(commitObj), nil
}

func (s *Service) ensureRepo(collection string) (*git.Repository, error) {
	path := s.repoPath(collection)
	repo, err := git.PlainOpen(path)
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("open repo: %w", err)
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create repo dir: %w", err)
	}
	repo, err = git.PlainInit(path, false)
	if err != nil {
		return nil, fmt.Errorf("init repo: %w", err)
	}
	if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName("main"))); err != nil {
		return nil, fmt.Errorf("set HEAD to main: %w", err)
	}
	return repo, nil
}

func (s *Service) repoPath(collection string) string {
	return filepath.Join(s.baseDir, pathSafe(collection))
}

func (s *Service) collectionLock(collection string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	lock, ok := s.locks[collection]
	if ok {
		return lock
	}
	lock = &sync.Mutex{}
	s.locks[collection] = lock
	return lock
}

func recordFile(id string) string {
	return pathSafe(id) + ".json"
}

// pathSafe keeps [A-Za-z0-9-] and hex-escapes the rest, so distinct ids
// never share a file and no id can escape the repository.
func pathSafe(value string) string {
	var b strings.Builder
	for i := 0; i < len(value); i++ {
		c := value[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "_%02x", c)
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}

func toCommitInfo(commitObj *object.Commit) store.CommitInfo {
	return store.CommitInfo{
		Hash:      commitObj.Hash.String()[:7],
		Message:   strings.TrimSpace(commitObj.Message),
		Author:    commitObj.Author.Name,
		CreatedAt: commitObj.Author.When,
	}
}

func sanitizeEmail(input string) string {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			out = append(out, r)
			continue
		}
		if r == ' ' || r == '-' || r == '_' {
			out = append(out, '.')
		}
	}
	if len(out) == 0 {
		return "user"
	}
	return string(out)
}

func resolveHash(repo *git.Repository, hash string) (plumbing.Hash, error) {
	if len(hash) == 40 {
		return plumbing.NewHash(hash), nil
	}
	resolved, err := repo.ResolveRevision(plumbing.Revision(hash))
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("%w: %s", ErrNoHistory, hash)
	}
	return *resolved, nil
}

package library

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// FilterConfig represents an optional filter's configuration.
type FilterConfig struct {
	Enabled  bool
	Settings map[string]any
}

// Options configures a Scanner.
type Options struct {
	Extensions    []string
	Recursive     bool
	IncludeHidden bool
	Filters       map[string]FilterConfig
	Prober        Prober
	Source        TrackSource // Playlist consulted by duplicate_track_filter
}

// Rejection records a path that was skipped.
type Rejection struct {
	Path string `json:"path"`
	Code string `json:"code"`
}

// ScanResult is the outcome of Expand.
type ScanResult struct {
	Paths    []string
	Rejected []Rejection
}

// beginner is implemented by filters that keep per-scan state.
type beginner interface {
	Begin()
}

// Scanner expands files, directories and glob patterns into ordered audio file lists.
type Scanner struct {
	chain         *Chain
	recursive     bool
	includeHidden bool
	prober        Prober
}

// NewScanner builds the filter chain and returns a scanner.
// The extension filter always runs first, the hidden file filter unless hidden files are included,
// then every enabled optional filter in name order.
func NewScanner(opts Options) (*Scanner, error) {
	chain := NewChain(NewExtensionFilter(opts.Extensions))
	if !opts.IncludeHidden {
		chain.Add(&HiddenFilter{})
	}

	names := make([]string, 0, len(opts.Filters))
	for name := range opts.Filters {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fc := opts.Filters[name]
		if !fc.Enabled {
			continue
		}

		var f Filter
		switch name {
		case "duplicate_track_filter":
			f = NewDuplicateTrackFilter(opts.Source)
		default:
			factory, ok := registry[name]
			if !ok {
				return nil, errors.Newf("unknown filter: %s (available: %s)", name, strings.Join(RegisteredNames(), ", "))
			}
			f = factory()
		}

		if err := f.ValidateConfig(fc.Settings); err != nil {
			return nil, errors.Wrapf(err, "filter %s", name)
		}
		chain.Add(f)
		zlog.Debug().Msgf("library: filter enabled: %s", name)
	}

	return &Scanner{
		chain:         chain,
		recursive:     opts.Recursive,
		includeHidden: opts.IncludeHidden,
		prober:        opts.Prober,
	}, nil
}

// Expand resolves args in order. Directories are scanned in lexical order,
// glob patterns are expanded in lexical order, and plain files are taken as given.
func (s *Scanner) Expand(ctx context.Context, args []string) (ScanResult, error) {
	for _, f := range s.chain.Filters() {
		if b, ok := f.(beginner); ok {
			b.Begin()
		}
	}

	var result ScanResult
	for _, arg := range args {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if hasGlobMeta(arg) {
			matches, err := filepath.Glob(arg)
			if err != nil {
				return result, errors.Wrapf(err, "invalid pattern %q", arg)
			}
			if len(matches) == 0 {
				result.Rejected = append(result.Rejected, Rejection{Path: arg, Code: CodeNotFound})
				continue
			}
			sort.Strings(matches)
			for _, m := range matches {
				if err := s.expandPath(ctx, m, false, &result); err != nil {
					return result, err
				}
			}
			continue
		}

		if err := s.expandPath(ctx, arg, true, &result); err != nil {
			return result, err
		}
	}

	zlog.Debug().Msgf("library: expanded %d args: accepted=%d rejected=%d", len(args), len(result.Paths), len(result.Rejected))
	return result, nil
}

func (s *Scanner) expandPath(ctx context.Context, path string, explicit bool, result *ScanResult) error {
	info, err := os.Stat(path)
	if err != nil {
		result.Rejected = append(result.Rejected, Rejection{Path: path, Code: CodeNotFound})
		return nil
	}

	if info.IsDir() {
		return s.scanDir(ctx, path, result)
	}
	if !info.Mode().IsRegular() {
		result.Rejected = append(result.Rejected, Rejection{Path: path, Code: CodeNotRegular})
		return nil
	}
	s.consider(ctx, path, explicit, result)
	return nil
}

func (s *Scanner) scanDir(ctx context.Context, root string, result *ScanResult) error {
	// WalkDir visits entries in lexical order.
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			zlog.Warn().Msgf("library: cannot read %s: %v", path, err)
			if d != nil && d.IsDir() && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if d.IsDir() {
			if path == root {
				return nil
			}
			if !s.recursive || (!s.includeHidden && isHidden(d.Name())) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() && !isFileSymlink(path, d) {
			return nil
		}
		s.consider(ctx, path, false, result)
		return nil
	})
}

func (s *Scanner) consider(ctx context.Context, path string, explicit bool, result *ScanResult) {
	cand := NewCandidate(path, explicit, s.prober)
	if r := s.chain.Execute(ctx, cand); !r.Accepted {
		result.Rejected = append(result.Rejected, Rejection{Path: path, Code: r.Code})
		return
	}
	result.Paths = append(result.Paths, path)
}

// isFileSymlink reports whether d is a symlink to a regular file.
func isFileSymlink(path string, d fs.DirEntry) bool {
	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func hasGlobMeta(path string) bool {
	return strings.ContainsAny(path, "*?[")
}

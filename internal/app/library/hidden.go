package library

import (
	"context"
	"strings"
)

// HiddenFilter rejects dot files found by a scan.
type HiddenFilter struct{}

func (f *HiddenFilter) Name() string {
	return "hidden_filter"
}

func (f *HiddenFilter) Description() string {
	return "Skips hidden files when scanning directories"
}

func (f *HiddenFilter) ValidateConfig(map[string]any) error {
	return nil
}

func (f *HiddenFilter) AppliesToExplicit() bool {
	return false
}

func (f *HiddenFilter) Check(_ context.Context, c *Candidate) Result {
	if isHidden(c.Name) {
		return Reject(CodeHidden)
	}
	return Accept()
}

func isHidden(name string) bool {
	return len(name) > 1 && strings.HasPrefix(name, ".") && name != ".."
}

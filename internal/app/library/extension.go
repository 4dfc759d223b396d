package library

import (
	"context"
	"strings"

	"github.com/osa030/talitunes/internal/domain/track"
)

// ExtensionFilter accepts files with a supported audio extension.
type ExtensionFilter struct {
	extensions []string
}

// NewExtensionFilter creates an extension filter. An empty list means track.DefaultExtensions.
func NewExtensionFilter(extensions []string) *ExtensionFilter {
	if len(extensions) == 0 {
		extensions = track.DefaultExtensions
	}
	normalized := make([]string, len(extensions))
	for i, e := range extensions {
		normalized[i] = strings.TrimPrefix(strings.ToLower(e), ".")
	}
	return &ExtensionFilter{extensions: normalized}
}

func (f *ExtensionFilter) Name() string {
	return "extension_filter"
}

func (f *ExtensionFilter) Description() string {
	return "Accepts files with a supported audio extension (" + strings.Join(f.extensions, ", ") + ")"
}

func (f *ExtensionFilter) ValidateConfig(map[string]any) error {
	return nil
}

// AppliesToExplicit returns false: files named by the user are accepted as given.
func (f *ExtensionFilter) AppliesToExplicit() bool {
	return false
}

func (f *ExtensionFilter) Check(_ context.Context, c *Candidate) Result {
	if !track.HasExtension(c.Path, f.extensions) {
		return Reject(CodeExtension)
	}
	return Accept()
}

// Extensions returns the accepted extensions.
func (f *ExtensionFilter) Extensions() []string {
	return f.extensions
}

package metadata

import (
	"context"
	"regexp"
	"strings"

	"git.home.luguber.info/inful/assetbuilder/internal/asset"
)

var separatorRun = regexp.MustCompile(`[-_]+`)

// StructuralContributor derives defaults from the asset's location: the
// first directory is the category, every directory is a tag and the file
// name becomes the title.
type StructuralContributor struct {
	DefaultLicense string
}

func (StructuralContributor) Name() string { return "structural" }

func (s StructuralContributor) Contribute(_ context.Context, src Source) (Partial, error) {
	dirs, _ := asset.Segments(src.RelPath)
	p := Partial{
		Title:   TitleFromName(asset.BaseName(src.RelPath)),
		License: s.DefaultLicense,
		Tags:    append([]string(nil), dirs...),
	}
	if len(dirs) > 0 {
		p.Category = dirs[0]
	}
	return p, nil
}

// TitleFromName replaces runs of '-' and '_' with spaces.
func TitleFromName(name string) string {
	return strings.TrimSpace(separatorRun.ReplaceAllString(name, " "))
}

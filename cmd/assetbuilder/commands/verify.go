package commands

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/linkverify"
	"git.home.luguber.info/inful/assetbuilder/internal/manifest"
)

// VerifyCmd implements the 'verify' command.
type VerifyCmd struct{}

func (v *VerifyCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	verifier := &linkverify.Verifier{
		SiteRoot: cfg.RootDir(),
		Prefixes: []string{cfg.PublicPath(cfg.ItemsDir()), cfg.PublicPath(cfg.AssetsDir())},
	}

	rep, err := verifier.VerifyPages(context.Background(), cfg.ItemsDir())
	if err != nil {
		return err
	}
	m, err := manifest.Read(cfg.ManifestPath())
	if err != nil {
		return errors.WrapError(err, errors.CategoryValidation, "read manifest").
			WithContext("path", cfg.ManifestPath()).Build()
	}
	rep.Merge(verifier.VerifyManifest(m, cfg.PublicPath(cfg.ManifestPath())))

	for _, b := range rep.Broken {
		fmt.Printf("%s: broken reference %s (%s)\n", b.Page, b.URL, b.Target)
	}
	fmt.Printf("Checked %d references in %d pages and %d manifest items\n", rep.Checked, rep.Pages, len(m.Items))
	if !rep.OK() {
		return errors.ValidationError(fmt.Sprintf("%d broken references", len(rep.Broken))).Build()
	}
	return nil
}

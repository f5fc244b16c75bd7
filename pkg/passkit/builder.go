// Package passkit assembles signed Apple Wallet store-card bundles (.pkpass) for loyalty members.
package passkit

import (
	"context"
	"fmt"
	"image"

	"tapandstamp/pkg/entities"
	"tapandstamp/pkg/passkit/assets"
	"tapandstamp/utilities"
)

const ContentType = "application/vnd.apple.pkpass"

// ManifestSigner produces the detached signature stored next to manifest.json.
type ManifestSigner interface {
	Sign(manifest []byte) ([]byte, error)
}

// LogoFetcher retrieves merchant artwork. version lets implementations cache per branding revision.
type LogoFetcher interface {
	FetchLogo(ctx context.Context, url string, version int) ([]byte, error)
}

type Config struct {
	PassTypeID    string
	TeamID        string
	WebServiceURL string
	Signer        ManifestSigner
}

type Input struct {
	Merchant   entities.Merchant
	Member     entities.Member
	Branding   entities.Branding
	MemberName string
	AuthToken  string
}

type Builder struct {
	cfg     Config
	fetcher LogoFetcher
}

func NewBuilder(cfg Config, fetcher LogoFetcher) *Builder {
	return &Builder{cfg: cfg, fetcher: fetcher}
}

// PassJSON returns the pass.json document alone, as served to Wallet on update checks.
func (b *Builder) PassJSON(input Input) ([]byte, error) {
	data, err := newPassJSON(input, b.cfg).Marshal()
	if err != nil {
		return nil, buildErr(StagePassJSON, err)
	}
	return data, nil
}

// Build renders every asset, signs the manifest and returns the zipped bundle.
func (b *Builder) Build(ctx context.Context, input Input) ([]byte, error) {
	log := utilities.NewLoggerWithFields("passkit.Build", map[string]interface{}{
		"merchant": input.Merchant.ID,
		"member":   input.Member.ID,
	})

	passJSON, err := b.PassJSON(input)
	if err != nil {
		return nil, err
	}

	files, err := b.renderAssets(ctx, input)
	if err != nil {
		return nil, buildErr(StageAssets, err)
	}
	files = append([]bundleFile{{name: "pass.json", data: passJSON}}, files...)

	manifest, err := newManifest(files)
	if err != nil {
		return nil, buildErr(StageManifest, err)
	}

	if b.cfg.Signer == nil {
		return nil, buildErr(StageSignature, fmt.Errorf("no manifest signer configured"))
	}
	signature, err := b.cfg.Signer.Sign(manifest)
	if err != nil {
		return nil, buildErr(StageSignature, err)
	}

	files = append(files,
		bundleFile{name: "manifest.json", data: manifest},
		bundleFile{name: "signature", data: signature},
	)

	bundle, err := writeBundle(files)
	if err != nil {
		return nil, buildErr(StageArchive, err)
	}

	log.Debugf("built pass bundle of %d bytes", len(bundle))
	return bundle, nil
}

func (b *Builder) renderAssets(ctx context.Context, input Input) ([]bundleFile, error) {
	files := make([]bundleFile, 0, len(assets.IconSizes)+len(assets.LogoSizes)+len(assets.StripSizes))

	for i, size := range assets.IconSizes {
		data, err := assets.Icon(input.Branding, size)
		if err != nil {
			return nil, err
		}
		files = append(files, bundleFile{name: scaledName("icon", i), data: data})
	}

	logos, err := b.headerLogos(ctx, input)
	if err != nil {
		return nil, err
	}
	files = append(files, logos...)

	stampLogo := b.stampLogo(ctx, input)
	for i, size := range assets.StripSizes {
		data, err := assets.Strip(input.Branding, input.Member.StampCount, input.Merchant.RewardGoal,
			size[0], size[1], stampLogo)
		if err != nil {
			return nil, err
		}
		files = append(files, bundleFile{name: scaledName("strip", i), data: data})
	}

	return files, nil
}

// headerLogos uses the merchant's header artwork when it resolves, otherwise the name drawn as text.
func (b *Builder) headerLogos(ctx context.Context, input Input) ([]bundleFile, error) {
	log := utilities.NewLogger("passkit.headerLogos")
	url := input.Branding.HeaderLogoURL

	if url != "" {
		files, err := b.fetchedHeaderLogos(ctx, url, input.Merchant.BrandingVersion)
		if err == nil {
			return files, nil
		}
		log.WithError(err).Warnf("falling back to text logo for %s", url)
	}

	files := make([]bundleFile, 0, len(assets.LogoSizes))
	for i, size := range assets.LogoSizes {
		data, err := assets.TextLogo(input.Merchant.Name, input.Branding, size[0], size[1])
		if err != nil {
			return nil, err
		}
		files = append(files, bundleFile{name: scaledName("logo", i), data: data})
	}
	return files, nil
}

func (b *Builder) fetchedHeaderLogos(ctx context.Context, url string, version int) ([]bundleFile, error) {
	raw, err := b.fetch(ctx, url, version)
	if err != nil {
		return nil, err
	}

	isSVG := assets.IsSVG(url, raw)
	files := make([]bundleFile, 0, len(assets.LogoSizes))
	for i, size := range assets.LogoSizes {
		data, err := assets.HeaderLogo(raw, isSVG, size[0], size[1])
		if err != nil {
			return nil, err
		}
		files = append(files, bundleFile{name: scaledName("logo", i), data: data})
	}
	return files, nil
}

// stampLogo returns nil when logo stamps are not wanted or the logo cannot be used.
func (b *Builder) stampLogo(ctx context.Context, input Input) image.Image {
	log := utilities.NewLogger("passkit.stampLogo")
	url := input.Branding.LogoURL

	if input.Branding.Stamp.Shape != entities.StampShapeLogo || url == "" {
		return nil
	}

	raw, err := b.fetch(ctx, url, input.Merchant.BrandingVersion)
	if err != nil {
		log.WithError(err).Warn("stamp logo unavailable, drawing circles")
		return nil
	}

	img, err := assets.StampLogo(raw, assets.IsSVG(url, raw))
	if err != nil {
		log.WithError(err).Warn("stamp logo undecodable, drawing circles")
		return nil
	}
	return img
}

func (b *Builder) fetch(ctx context.Context, url string, version int) ([]byte, error) {
	if b.fetcher == nil {
		return nil, fmt.Errorf("%w: no fetcher configured", ErrLogoFetch)
	}

	data, err := b.fetcher.FetchLogo(ctx, url, version)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLogoFetch, url, err)
	}
	return data, nil
}

func scaledName(base string, scaleIndex int) string {
	if scaleIndex == 0 {
		return base + ".png"
	}
	return fmt.Sprintf("%s@%dx.png", base, scaleIndex+1)
}

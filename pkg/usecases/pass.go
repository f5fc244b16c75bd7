package usecases

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"tapandstamp/pkg/consts"
	"tapandstamp/pkg/entities"
	"tapandstamp/pkg/metrics"
	"tapandstamp/pkg/passkit"
	"tapandstamp/pkg/passkit/assets"
	"tapandstamp/pkg/repo"
	"tapandstamp/utilities"
)

// PassBuilder turns a member's card into a signed .pkpass.
type PassBuilder interface {
	Build(ctx context.Context, input passkit.Input) ([]byte, error)
}

type PassConfig struct {
	PassTypeID string
	AuthSecret string
}

type PassDownload struct {
	Filename     string
	Data         []byte
	LastModified time.Time
}

type PassUseCases struct {
	conf          PassConfig
	members       repo.MemberRepoImply
	registrations repo.RegistrationRepoImply
	builder       PassBuilder
	logos         passkit.LogoFetcher
	now           func() time.Time
}

type PassUseCaseImply interface {
	JoinMerchant(ctx context.Context, slug, name, deviceType string) (*entities.JoinResponse, error)
	DownloadPass(ctx context.Context, memberID string) (*PassDownload, error)
	LatestPass(ctx context.Context, passTypeID, serial string, ifModifiedSince time.Time) (*PassDownload, error)
	Contract(ctx context.Context, memberID string) (*passkit.Contract, error)
	StripImage(ctx context.Context, memberID string, platform assets.Platform) (*assets.StripResult, error)

	AuthorizePass(passTypeID, serial, token string) (string, error)
	AuthorizeMember(memberID, token string) bool
	RegisterDevice(ctx context.Context, deviceID, passTypeID, serial, pushToken string) (bool, error)
	UnregisterDevice(ctx context.Context, deviceID, passTypeID, serial string) error
	UpdatedSerials(ctx context.Context, deviceID, passTypeID string, since time.Time) (*entities.SerialNumbersResponse, error)
	RegisterPushToken(ctx context.Context, memberID, platform, pushToken string) error
}

func NewPassUseCases(
	conf PassConfig, members repo.MemberRepoImply, registrations repo.RegistrationRepoImply,
	builder PassBuilder, logos passkit.LogoFetcher,
) PassUseCaseImply {
	return &PassUseCases{
		conf:          conf,
		members:       members,
		registrations: registrations,
		builder:       builder,
		logos:         logos,
		now:           utilities.TimeNow,
	}
}

func (p *PassUseCases) member(ctx context.Context, memberID string) (*entities.MemberWithMerchant, error) {
	m, err := p.members.GetMemberWithMerchant(ctx, memberID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	return m, nil
}

// JoinMerchant enrols a new member on the merchant's card.
func (p *PassUseCases) JoinMerchant(ctx context.Context, slug, name, deviceType string) (*entities.JoinResponse, error) {
	log := utilities.NewLoggerWithFields("JoinMerchant", map[string]interface{}{"merchant": slug})

	merchant, err := p.members.GetMerchantBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrMerchantNotFound
		}
		return nil, err
	}

	name = strings.TrimSpace(name)
	if len([]rune(name)) > 64 {
		return nil, ErrInvalidName
	}

	switch deviceType {
	case "", entities.DeviceApple, entities.DeviceGoogle, entities.DeviceWeb:
	default:
		return nil, ErrInvalidPlatform
	}

	now := p.now()
	member := entities.Member{
		ID:         uuid.NewString(),
		MerchantID: merchant.ID,
		Name:       name,
		DeviceType: deviceType,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := p.members.CreateMember(ctx, member); err != nil {
		log.WithError(err).Error("failed to create member")
		return nil, err
	}

	log.Infof("member %s joined", member.ID)

	return &entities.JoinResponse{
		MemberID:     member.ID,
		MerchantName: merchant.Name,
		RewardGoal:   merchant.RewardGoal,
		AuthToken:    utilities.PassAuthToken(p.conf.AuthSecret, member.ID),
	}, nil
}

func (p *PassUseCases) build(ctx context.Context, m *entities.MemberWithMerchant) ([]byte, error) {
	start := time.Now()

	bundle, err := p.builder.Build(ctx, passkit.Input{
		Merchant:   m.Merchant,
		Member:     m.Member,
		Branding:   m.Merchant.Branding,
		MemberName: m.Member.Name,
		AuthToken:  utilities.PassAuthToken(p.conf.AuthSecret, m.Member.ID),
	})

	status := "success"
	if err != nil {
		status = "failure"
	}
	metrics.RecordPassBuild(status, time.Since(start).Seconds())

	return bundle, err
}

// passUpdatedAt is the later of the member's progress change and the merchant's last rebrand.
func passUpdatedAt(m *entities.MemberWithMerchant) time.Time {
	if m.Merchant.BrandingUpdatedAt.After(m.Member.UpdatedAt) {
		return m.Merchant.BrandingUpdatedAt
	}
	return m.Member.UpdatedAt
}

// DownloadPass builds the .pkpass a member adds to Apple Wallet.
func (p *PassUseCases) DownloadPass(ctx context.Context, memberID string) (*PassDownload, error) {
	log := utilities.NewLoggerWithFields("DownloadPass", map[string]interface{}{"member": memberID})

	m, err := p.member(ctx, memberID)
	if err != nil {
		return nil, err
	}

	bundle, err := p.build(ctx, m)
	if err != nil {
		log.WithError(err).Error("failed to build pass")
		return nil, err
	}

	return &PassDownload{
		Filename:     m.Merchant.Slug + consts.PassDownloadSuffix,
		Data:         bundle,
		LastModified: passUpdatedAt(m),
	}, nil
}

// LatestPass serves Wallet's update fetch, or ErrNotModified when it already has this version.
func (p *PassUseCases) LatestPass(ctx context.Context, passTypeID, serial string, ifModifiedSince time.Time) (*PassDownload, error) {
	memberID, err := p.memberForSerial(passTypeID, serial)
	if err != nil {
		return nil, err
	}

	m, err := p.member(ctx, memberID)
	if err != nil {
		return nil, err
	}

	// HTTP dates carry whole seconds
	if !ifModifiedSince.IsZero() && !passUpdatedAt(m).Truncate(time.Second).After(ifModifiedSince) {
		return nil, ErrNotModified
	}

	bundle, err := p.build(ctx, m)
	if err != nil {
		return nil, err
	}

	return &PassDownload{
		Filename:     m.Merchant.Slug + consts.PassDownloadSuffix,
		Data:         bundle,
		LastModified: passUpdatedAt(m),
	}, nil
}

func (p *PassUseCases) Contract(ctx context.Context, memberID string) (*passkit.Contract, error) {
	m, err := p.member(ctx, memberID)
	if err != nil {
		return nil, err
	}

	contract := passkit.NewContract(m.Member, m.Merchant.RewardGoal, passUpdatedAt(m))
	return &contract, nil
}

// StripImage renders the stamp strip for a platform, for Google Wallet hero images and web cards.
func (p *PassUseCases) StripImage(ctx context.Context, memberID string, platform assets.Platform) (*assets.StripResult, error) {
	log := utilities.NewLoggerWithFields("StripImage", map[string]interface{}{"member": memberID})

	switch platform {
	case assets.PlatformApple, assets.PlatformGoogle:
	default:
		return nil, ErrInvalidPlatform
	}

	m, err := p.member(ctx, memberID)
	if err != nil {
		return nil, err
	}

	branding := m.Merchant.Branding
	branding.Stamp.Total = m.Merchant.RewardGoal

	opts := assets.StripOptions{Branding: branding, Count: m.Member.StampCount, Platform: platform}
	if branding.Stamp.Shape == entities.StampShapeLogo && branding.LogoURL != "" && p.logos != nil {
		raw, err := p.logos.FetchLogo(ctx, branding.LogoURL, m.Merchant.BrandingVersion)
		if err == nil {
			opts.Logo, err = assets.StampLogo(raw, assets.IsSVG(branding.LogoURL, raw))
		}
		if err != nil {
			log.WithError(err).Warn("stamp logo unavailable, drawing circles")
		}
	}

	return assets.RenderStampStrip(opts)
}

func (p *PassUseCases) memberForSerial(passTypeID, serial string) (string, error) {
	if passTypeID != p.conf.PassTypeID {
		return "", ErrUnknownPassType
	}
	memberID, ok := passkit.MemberIDFromSerial(serial)
	if !ok {
		return "", ErrInvalidSerial
	}
	return memberID, nil
}

// AuthorizePass checks the ApplePass token Wallet sends for a serial and returns the member it belongs to.
func (p *PassUseCases) AuthorizePass(passTypeID, serial, token string) (string, error) {
	memberID, err := p.memberForSerial(passTypeID, serial)
	if err != nil {
		return "", err
	}
	if !utilities.VerifyPassAuthToken(p.conf.AuthSecret, memberID, token) {
		return "", ErrForbidden
	}
	return memberID, nil
}

func (p *PassUseCases) AuthorizeMember(memberID, token string) bool {
	return utilities.VerifyPassAuthToken(p.conf.AuthSecret, memberID, token)
}

// RegisterDevice reports created=false when the device was already registered for the pass.
func (p *PassUseCases) RegisterDevice(ctx context.Context, deviceID, passTypeID, serial, pushToken string) (bool, error) {
	memberID, err := p.memberForSerial(passTypeID, serial)
	if err != nil {
		return false, err
	}

	if _, err := p.member(ctx, memberID); err != nil {
		return false, err
	}

	return p.registrations.Register(ctx, entities.DeviceRegistration{
		MemberID:   memberID,
		DeviceID:   deviceID,
		PassTypeID: passTypeID,
		PushToken:  pushToken,
		Platform:   entities.DeviceApple,
		Created:    p.now(),
	})
}

func (p *PassUseCases) UnregisterDevice(ctx context.Context, deviceID, passTypeID, serial string) error {
	memberID, err := p.memberForSerial(passTypeID, serial)
	if err != nil {
		return err
	}
	return p.registrations.Unregister(ctx, deviceID, passTypeID, memberID)
}

// UpdatedSerials lists the device's passes changed after since. A nil response means nothing changed.
func (p *PassUseCases) UpdatedSerials(ctx context.Context, deviceID, passTypeID string, since time.Time) (*entities.SerialNumbersResponse, error) {
	log := utilities.NewLoggerWithFields("UpdatedSerials", map[string]interface{}{"device": deviceID})

	if passTypeID != p.conf.PassTypeID {
		return nil, ErrUnknownPassType
	}

	memberIDs, err := p.registrations.MemberIDsForDevice(ctx, deviceID, passTypeID)
	if err != nil {
		return nil, err
	}

	var (
		serials     = make([]string, 0, len(memberIDs))
		lastUpdated time.Time
	)
	for _, memberID := range memberIDs {
		m, err := p.member(ctx, memberID)
		if err != nil {
			log.WithError(err).Warnf("skipping registration for member %s", memberID)
			continue
		}

		updated := passUpdatedAt(m).Truncate(time.Second)
		if !since.IsZero() && !updated.After(since) {
			continue
		}

		serials = append(serials, passkit.SerialNumber(memberID))
		if updated.After(lastUpdated) {
			lastUpdated = updated
		}
	}

	if len(serials) == 0 {
		return nil, nil
	}

	return &entities.SerialNumbersResponse{
		SerialNumbers: serials,
		LastUpdated:   strconv.FormatInt(lastUpdated.Unix(), 10),
	}, nil
}

// RegisterPushToken stores an FCM token for a member's Google Wallet or web card.
func (p *PassUseCases) RegisterPushToken(ctx context.Context, memberID, platform, pushToken string) error {
	if platform != entities.DeviceGoogle && platform != entities.DeviceWeb {
		return ErrInvalidPlatform
	}

	if _, err := p.member(ctx, memberID); err != nil {
		return err
	}

	_, err := p.registrations.Register(ctx, entities.DeviceRegistration{
		MemberID:   memberID,
		DeviceID:   fmt.Sprintf("%s-%s", platform, utilities.PassAuthToken(pushToken, memberID)[:16]),
		PassTypeID: platform,
		PushToken:  pushToken,
		Platform:   platform,
		Created:    p.now(),
	})
	return err
}

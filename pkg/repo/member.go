package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"

	"tapandstamp/config"
	"tapandstamp/pkg/consts"
	"tapandstamp/pkg/entities"
	"tapandstamp/utilities"
)

type MemberRepo struct {
	db   *gocql.Session
	conf *config.TapAndStampConfModel
}

// MemberRepoImply reads loyalty state and commits stamp and claim transitions.
type MemberRepoImply interface {
	GetMemberWithMerchant(ctx context.Context, memberID string) (*entities.MemberWithMerchant, error)
	GetMerchant(ctx context.Context, merchantID string) (*entities.Merchant, error)
	GetMerchantBySlug(ctx context.Context, slug string) (*entities.Merchant, error)
	CreateMember(ctx context.Context, member entities.Member) error
	ApplyStamp(ctx context.Context, prev entities.Member, stampCount int, rewardAvailable bool, at time.Time) error
	ClaimReward(ctx context.Context, memberID string, at time.Time) error
	RecordVisit(ctx context.Context, merchantID, memberID string, at time.Time) (*entities.Visit, error)
}

func NewMemberRepo(db *gocql.Session, conf *config.TapAndStampConfModel) MemberRepoImply {
	return &MemberRepo{db: db, conf: conf}
}

func (r *MemberRepo) GetMemberWithMerchant(ctx context.Context, memberID string) (*entities.MemberWithMerchant, error) {
	member, err := r.getMember(ctx, memberID)
	if err != nil {
		return nil, err
	}

	merchant, err := r.GetMerchant(ctx, member.MerchantID)
	if err != nil {
		return nil, fmt.Errorf("merchant %s of member %s: %w", member.MerchantID, memberID, err)
	}

	return &entities.MemberWithMerchant{Member: *member, Merchant: *merchant}, nil
}

func (r *MemberRepo) getMember(ctx context.Context, memberID string) (*entities.Member, error) {
	var (
		m           entities.Member
		name        *string
		deviceType  *string
		lastStampAt time.Time
	)

	query := fmt.Sprintf(
		`SELECT id, merchant_id, name, device_type, stamp_count, reward_available, last_stamp_at, created, updated
		FROM %s.%s WHERE id = ?`,
		r.conf.DB.Keyspace, consts.Members,
	)
	if err := r.db.Query(query, memberID).WithContext(ctx).Scan(
		&m.ID, &m.MerchantID, &name, &deviceType, &m.StampCount, &m.RewardAvailable,
		&lastStampAt, &m.CreatedAt, &m.UpdatedAt,
	); err != nil {
		return nil, notFound(err)
	}

	if name != nil {
		m.Name = *name
	}
	if deviceType != nil {
		m.DeviceType = *deviceType
	}
	if !lastStampAt.IsZero() {
		m.LastStampAt = &lastStampAt
	}

	return &m, nil
}

func (r *MemberRepo) GetMerchant(ctx context.Context, merchantID string) (*entities.Merchant, error) {
	log := utilities.NewLogger("GetMerchant")

	var (
		m        entities.Merchant
		branding string
	)

	query := fmt.Sprintf(
		`SELECT id, slug, name, reward_goal, branding, branding_version, branding_updated, created FROM %s.%s WHERE id = ?`,
		r.conf.DB.Keyspace, consts.Merchants,
	)
	if err := r.db.Query(query, merchantID).WithContext(ctx).Scan(
		&m.ID, &m.Slug, &m.Name, &m.RewardGoal, &branding, &m.BrandingVersion, &m.BrandingUpdatedAt, &m.CreatedAt,
	); err != nil {
		return nil, notFound(err)
	}

	if err := m.Branding.Unmarshal(branding); err != nil {
		log.WithError(err).Errorf("branding of merchant %s is not valid json", merchantID)
		return nil, fmt.Errorf("decoding branding: %w", err)
	}

	return &m, nil
}

func (r *MemberRepo) GetMerchantBySlug(ctx context.Context, slug string) (*entities.Merchant, error) {
	var merchantID string

	query := fmt.Sprintf(`SELECT id FROM %s.%s WHERE slug = ?`, r.conf.DB.Keyspace, consts.MerchantsBySlug)
	if err := r.db.Query(query, slug).WithContext(ctx).Scan(&merchantID); err != nil {
		return nil, notFound(err)
	}

	return r.GetMerchant(ctx, merchantID)
}

func (r *MemberRepo) CreateMember(ctx context.Context, member entities.Member) error {
	query := fmt.Sprintf(
		`INSERT INTO %s.%s (id, merchant_id, name, device_type, stamp_count, reward_available, created, updated)
		VALUES (?, ?, ?, ?, 0, false, ?, ?) IF NOT EXISTS`,
		r.conf.DB.Keyspace, consts.Members,
	)

	applied, err := r.db.Query(
		query, member.ID, member.MerchantID, member.Name, member.DeviceType, member.CreatedAt, member.CreatedAt,
	).WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		return err
	}
	if !applied {
		return fmt.Errorf("member %s: %w", member.ID, ErrConflict)
	}

	return nil
}

// ApplyStamp writes the new count only if nobody stamped or claimed since prev was read.
func (r *MemberRepo) ApplyStamp(ctx context.Context, prev entities.Member, stampCount int, rewardAvailable bool, at time.Time) error {
	query := fmt.Sprintf(
		`UPDATE %s.%s SET stamp_count = ?, reward_available = ?, last_stamp_at = ?, updated = ?
		WHERE id = ? IF stamp_count = ? AND reward_available = ?`,
		r.conf.DB.Keyspace, consts.Members,
	)

	applied, err := r.db.Query(
		query, stampCount, rewardAvailable, at, at, prev.ID, prev.StampCount, prev.RewardAvailable,
	).WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		return err
	}
	if !applied {
		return fmt.Errorf("stamping member %s: %w", prev.ID, ErrConflict)
	}

	return nil
}

// ClaimReward resets the card. Clearing last_stamp_at means no cooldown after a claim.
func (r *MemberRepo) ClaimReward(ctx context.Context, memberID string, at time.Time) error {
	query := fmt.Sprintf(
		`UPDATE %s.%s SET stamp_count = 0, reward_available = false, last_stamp_at = null, updated = ?
		WHERE id = ? IF reward_available = true`,
		r.conf.DB.Keyspace, consts.Members,
	)

	applied, err := r.db.Query(query, at, memberID).WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		return err
	}
	if !applied {
		return fmt.Errorf("claiming reward of member %s: %w", memberID, ErrConflict)
	}

	return nil
}

func (r *MemberRepo) RecordVisit(ctx context.Context, merchantID, memberID string, at time.Time) (*entities.Visit, error) {
	visit := &entities.Visit{
		ID:         uuid.NewString(),
		MerchantID: merchantID,
		MemberID:   memberID,
		StampedAt:  at,
	}

	id, err := gocql.ParseUUID(visit.ID)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(
		`INSERT INTO %s.%s (merchant_id, stamped_at, id, member_id) VALUES (?, ?, ?, ?)`,
		r.conf.DB.Keyspace, consts.Visits,
	)
	if err := r.db.Query(query, merchantID, at, id, memberID).WithContext(ctx).Exec(); err != nil {
		return nil, err
	}

	return visit, nil
}

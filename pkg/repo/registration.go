package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gocql/gocql"

	"tapandstamp/config"
	"tapandstamp/pkg/consts"
	"tapandstamp/pkg/entities"
	"tapandstamp/utilities"
)

type RegistrationRepo struct {
	db   *gocql.Session
	conf *config.TapAndStampConfModel
}

// RegistrationRepoImply keeps the device push tokens that wallets register for passes.
type RegistrationRepoImply interface {
	Register(ctx context.Context, reg entities.DeviceRegistration) (created bool, err error)
	Unregister(ctx context.Context, deviceID, passTypeID, memberID string) error
	PushTokens(ctx context.Context, memberID, passTypeID string) ([]string, error)
	MemberIDsForDevice(ctx context.Context, deviceID, passTypeID string) ([]string, error)
}

func NewRegistrationRepo(db *gocql.Session, conf *config.TapAndStampConfModel) RegistrationRepoImply {
	return &RegistrationRepo{db: db, conf: conf}
}

// Register stores or refreshes a registration; created is false when the device was already registered.
func (r *RegistrationRepo) Register(ctx context.Context, reg entities.DeviceRegistration) (bool, error) {
	log := utilities.NewLogger("Register")

	var existing string
	query := fmt.Sprintf(
		`SELECT push_token FROM %s.%s WHERE member_id = ? AND pass_type_id = ? AND device_id = ?`,
		r.conf.DB.Keyspace, consts.PassRegistrations,
	)
	err := r.db.Query(query, reg.MemberID, reg.PassTypeID, reg.DeviceID).WithContext(ctx).Scan(&existing)
	if err != nil && !errors.Is(err, gocql.ErrNotFound) {
		return false, err
	}
	created := errors.Is(err, gocql.ErrNotFound)

	if reg.Created.IsZero() {
		reg.Created = time.Now().UTC()
	}

	batch := r.db.NewBatch(gocql.LoggedBatch).WithContext(ctx)
	batch.Query(fmt.Sprintf(
		`INSERT INTO %s.%s (member_id, pass_type_id, device_id, push_token, platform, created) VALUES (?, ?, ?, ?, ?, ?)`,
		r.conf.DB.Keyspace, consts.PassRegistrations,
	), reg.MemberID, reg.PassTypeID, reg.DeviceID, reg.PushToken, reg.Platform, reg.Created)
	batch.Query(fmt.Sprintf(
		`INSERT INTO %s.%s (device_id, pass_type_id, member_id, created) VALUES (?, ?, ?, ?)`,
		r.conf.DB.Keyspace, consts.PassRegistrationsByDevice,
	), reg.DeviceID, reg.PassTypeID, reg.MemberID, reg.Created)

	if err := r.db.ExecuteBatch(batch); err != nil {
		log.WithError(err).Errorf("failed to register device for member %s", reg.MemberID)
		return false, err
	}

	return created, nil
}

func (r *RegistrationRepo) Unregister(ctx context.Context, deviceID, passTypeID, memberID string) error {
	batch := r.db.NewBatch(gocql.LoggedBatch).WithContext(ctx)
	batch.Query(fmt.Sprintf(
		`DELETE FROM %s.%s WHERE member_id = ? AND pass_type_id = ? AND device_id = ?`,
		r.conf.DB.Keyspace, consts.PassRegistrations,
	), memberID, passTypeID, deviceID)
	batch.Query(fmt.Sprintf(
		`DELETE FROM %s.%s WHERE device_id = ? AND pass_type_id = ? AND member_id = ?`,
		r.conf.DB.Keyspace, consts.PassRegistrationsByDevice,
	), deviceID, passTypeID, memberID)

	return r.db.ExecuteBatch(batch)
}

func (r *RegistrationRepo) PushTokens(ctx context.Context, memberID, passTypeID string) ([]string, error) {
	query := fmt.Sprintf(
		`SELECT push_token FROM %s.%s WHERE member_id = ? AND pass_type_id = ?`,
		r.conf.DB.Keyspace, consts.PassRegistrations,
	)
	iter := r.db.Query(query, memberID, passTypeID).WithContext(ctx).Iter()

	var (
		token  string
		tokens = make([]string, 0)
	)
	for iter.Scan(&token) {
		tokens = append(tokens, token)
	}

	if err := iter.Close(); err != nil {
		return nil, err
	}

	return tokens, nil
}

func (r *RegistrationRepo) MemberIDsForDevice(ctx context.Context, deviceID, passTypeID string) ([]string, error) {
	query := fmt.Sprintf(
		`SELECT member_id FROM %s.%s WHERE device_id = ? AND pass_type_id = ?`,
		r.conf.DB.Keyspace, consts.PassRegistrationsByDevice,
	)
	iter := r.db.Query(query, deviceID, passTypeID).WithContext(ctx).Iter()

	var (
		memberID  string
		memberIDs = make([]string, 0)
	)
	for iter.Scan(&memberID) {
		memberIDs = append(memberIDs, memberID)
	}

	if err := iter.Close(); err != nil {
		return nil, err
	}

	return memberIDs, nil
}

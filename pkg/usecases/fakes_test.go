package usecases

import (
	"context"
	"sort"
	"sync"
	"time"

	"firebase.google.com/go/v4/messaging"

	"tapandstamp/pkg/entities"
	"tapandstamp/pkg/passkit"
	"tapandstamp/pkg/repo"
	"tapandstamp/pkg/repo/driver/medium"
)

type fakeMemberRepo struct {
	mu        sync.Mutex
	members   map[string]entities.Member
	merchants map[string]entities.Merchant
	visits    []entities.Visit
	getErr    error
	writeErr  error
	visitErr  error
	// stale makes the next conditional write lose, as if another stamp landed first
	stale bool
}

func newFakeMemberRepo(merchant entities.Merchant, members ...entities.Member) *fakeMemberRepo {
	r := &fakeMemberRepo{
		members:   map[string]entities.Member{},
		merchants: map[string]entities.Merchant{merchant.ID: merchant},
	}
	for _, m := range members {
		r.members[m.ID] = m
	}
	return r
}

func (r *fakeMemberRepo) GetMemberWithMerchant(_ context.Context, memberID string) (*entities.MemberWithMerchant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	m, ok := r.members[memberID]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &entities.MemberWithMerchant{Member: m, Merchant: r.merchants[m.MerchantID]}, nil
}

func (r *fakeMemberRepo) GetMerchant(_ context.Context, merchantID string) (*entities.Merchant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.merchants[merchantID]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &m, nil
}

func (r *fakeMemberRepo) GetMerchantBySlug(_ context.Context, slug string) (*entities.Merchant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.merchants {
		if m.Slug == slug {
			m := m
			return &m, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (r *fakeMemberRepo) CreateMember(_ context.Context, member entities.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.writeErr != nil {
		return r.writeErr
	}
	r.members[member.ID] = member
	return nil
}

func (r *fakeMemberRepo) ApplyStamp(_ context.Context, prev entities.Member, stampCount int, rewardAvailable bool, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.writeErr != nil {
		return r.writeErr
	}
	cur := r.members[prev.ID]
	if r.stale || cur.StampCount != prev.StampCount || cur.RewardAvailable != prev.RewardAvailable {
		r.stale = false
		return repo.ErrConflict
	}
	cur.StampCount = stampCount
	cur.RewardAvailable = rewardAvailable
	cur.LastStampAt = &at
	cur.UpdatedAt = at
	r.members[prev.ID] = cur
	return nil
}

func (r *fakeMemberRepo) ClaimReward(_ context.Context, memberID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.writeErr != nil {
		return r.writeErr
	}
	cur := r.members[memberID]
	if !cur.RewardAvailable {
		return repo.ErrConflict
	}
	cur.StampCount = 0
	cur.RewardAvailable = false
	cur.LastStampAt = nil
	cur.UpdatedAt = at
	r.members[memberID] = cur
	return nil
}

func (r *fakeMemberRepo) RecordVisit(_ context.Context, merchantID, memberID string, at time.Time) (*entities.Visit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.visitErr != nil {
		return nil, r.visitErr
	}
	v := entities.Visit{ID: "visit", MerchantID: merchantID, MemberID: memberID, StampedAt: at}
	r.visits = append(r.visits, v)
	return &v, nil
}

func (r *fakeMemberRepo) member(id string) entities.Member {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.members[id]
}

type fakeRegistrationRepo struct {
	mu   sync.Mutex
	regs map[string]entities.DeviceRegistration
	err  error
}

func newFakeRegistrationRepo() *fakeRegistrationRepo {
	return &fakeRegistrationRepo{regs: map[string]entities.DeviceRegistration{}}
}

func regKey(deviceID, passTypeID, memberID string) string {
	return deviceID + "|" + passTypeID + "|" + memberID
}

func (r *fakeRegistrationRepo) Register(_ context.Context, reg entities.DeviceRegistration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return false, r.err
	}
	key := regKey(reg.DeviceID, reg.PassTypeID, reg.MemberID)
	_, exists := r.regs[key]
	r.regs[key] = reg
	return !exists, nil
}

func (r *fakeRegistrationRepo) Unregister(_ context.Context, deviceID, passTypeID, memberID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	delete(r.regs, regKey(deviceID, passTypeID, memberID))
	return nil
}

func (r *fakeRegistrationRepo) PushTokens(_ context.Context, memberID, passTypeID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	var tokens []string
	for _, reg := range r.regs {
		if reg.MemberID == memberID && reg.PassTypeID == passTypeID {
			tokens = append(tokens, reg.PushToken)
		}
	}
	sort.Strings(tokens)
	return tokens, nil
}

func (r *fakeRegistrationRepo) MemberIDsForDevice(_ context.Context, deviceID, passTypeID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	var ids []string
	for _, reg := range r.regs {
		if reg.DeviceID == deviceID && reg.PassTypeID == passTypeID {
			ids = append(ids, reg.MemberID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

type recordingNotifier struct {
	calls []entities.Member
}

func (n *recordingNotifier) NotifyPassUpdate(_ context.Context, member entities.Member, _ int) entities.PushSummary {
	n.calls = append(n.calls, member)
	return entities.PushSummary{Sent: 1}
}

type fakeBuilder struct {
	inputs []passkit.Input
	err    error
}

func (b *fakeBuilder) Build(_ context.Context, input passkit.Input) ([]byte, error) {
	b.inputs = append(b.inputs, input)
	if b.err != nil {
		return nil, b.err
	}
	return []byte("pkpass:" + input.Member.ID), nil
}

type fakeAPNs struct {
	result medium.PushResult
	tokens []string
}

func (f *fakeAPNs) SendPassUpdateToAllDevices(ctx context.Context, memberID, passTypeID string, lookup medium.PushTokenLookup) medium.PushResult {
	tokens, err := lookup.PushTokens(ctx, memberID, passTypeID)
	if err != nil {
		return medium.PushResult{Skipped: true}
	}
	f.tokens = append(f.tokens, tokens...)
	return f.result
}

type fakeFCM struct {
	tokens [][]string
	err    error
}

func (f *fakeFCM) PushMessageToClient(_ context.Context, _ string, _ messaging.Message, deviceIDs []string) (medium.PushResult, error) {
	f.tokens = append(f.tokens, deviceIDs)
	if f.err != nil {
		return medium.PushResult{}, f.err
	}
	return medium.PushResult{Sent: len(deviceIDs)}, nil
}

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func testMerchant() entities.Merchant {
	return entities.Merchant{
		ID:         "merchant-1",
		Slug:       "blue-bottle",
		Name:       "Blue Bottle",
		RewardGoal: 3,
		Branding: entities.Branding{
			PrimaryColor:   "#112233",
			SecondaryColor: "#ffffff",
			LabelColor:     "#eeeeee",
			Stamp: entities.StampStyle{
				Shape:        entities.StampShapeCircle,
				FilledColor:  "#ffcc00",
				EmptyColor:   "#333333",
				OutlineColor: "#ffffff",
			},
		},
	}
}

func testMember(id string, count int, ready bool, lastStamp *time.Time) entities.Member {
	return entities.Member{
		ID:              id,
		MerchantID:      "merchant-1",
		Name:            "Ada",
		StampCount:      count,
		RewardAvailable: ready,
		LastStampAt:     lastStamp,
		UpdatedAt:       testNow.Add(-time.Hour),
	}
}

func ago(d time.Duration) *time.Time {
	t := testNow.Add(-d)
	return &t
}

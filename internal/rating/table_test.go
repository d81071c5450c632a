package rating

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chapterops/palms-server/internal/scoring"
)

// fakePersister records table mutations for assertions.
type fakePersister struct {
	saved   []Record
	cleared int
}

func (f *fakePersister) SaveRating(rec Record) error { f.saved = append(f.saved, rec); return nil }
func (f *fakePersister) DeleteAllRatings() error     { f.cleared++; return nil }

// greenRaw scores 100, yellowRaw 50, redRaw 30, greyRaw 20.
var (
	greenRaw = scoring.RawData{OneToOnePerWeek: 2.1, TrainingCredits: 6,
		ReferralsPerWeek: 1.6, GuestsPer4Weeks: 2, ReferralAmountTotal: 2000001}
	yellowRaw = scoring.RawData{OneToOnePerWeek: 2, TrainingCredits: 6}
	redRaw    = scoring.RawData{TrainingCredits: 4}
	greyRaw   = scoring.RawData{}
)

func TestUpsert_NewMember(t *testing.T) {
	table := NewTable(nil, nil)

	rec := table.Upsert("洪偵哲", greenRaw)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "洪偵哲", rec.MemberName)
	assert.Equal(t, scoring.StatusGreen, rec.Status)
	assert.Equal(t, 100, rec.Scores.Total)
	assert.False(t, rec.IsManualOverride)
	assert.False(t, rec.UpdatedAt.IsZero())
}

func TestUpsert_UpdateKeepsIdentity(t *testing.T) {
	table := NewTable(nil, nil)

	first := table.Upsert("洪偵哲", greenRaw)
	second := table.Upsert("洪偵哲", greyRaw)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, scoring.StatusGrey, second.Status)
	assert.Equal(t, 20, second.Scores.Total)
	assert.Len(t, table.Snapshot(), 1)
}

func TestManualOverride_PinsThroughUpsert(t *testing.T) {
	table := NewTable(nil, nil)
	table.Upsert("洪偵哲", greyRaw)

	rec, ok := table.ManualOverride("洪偵哲", scoring.StatusGreen)
	require.True(t, ok)
	assert.Equal(t, scoring.StatusGreen, rec.Status)
	assert.True(t, rec.IsManualOverride)

	// Recomputation updates scores but never the pinned tier.
	rec = table.Upsert("洪偵哲", redRaw)
	assert.Equal(t, scoring.StatusGreen, rec.Status)
	assert.Equal(t, 30, rec.Scores.Total)
	assert.True(t, rec.IsManualOverride)

	rec, ok = table.ClearOverride("洪偵哲")
	require.True(t, ok)
	assert.False(t, rec.IsManualOverride)
	assert.Equal(t, scoring.StatusRed, rec.Status)
}

func TestManualOverride_UnknownMember(t *testing.T) {
	table := NewTable(nil, nil)

	_, ok := table.ManualOverride("不存在", scoring.StatusGreen)
	assert.False(t, ok)
	_, ok = table.ClearOverride("不存在")
	assert.False(t, ok)
}

func TestUpdateTrainingCredits(t *testing.T) {
	table := NewTable(nil, nil)
	table.Upsert("洪偵哲", yellowRaw)

	rec, ok := table.UpdateTrainingCredits("洪偵哲", 0)
	require.True(t, ok)
	assert.Equal(t, 0, rec.RawData.TrainingCredits)
	assert.Equal(t, 35, rec.Scores.Total)
	assert.Equal(t, scoring.StatusRed, rec.Status)

	_, ok = table.UpdateTrainingCredits("不存在", 4)
	assert.False(t, ok)
	assert.Len(t, table.Snapshot(), 1)
}

func TestByStatus_TableOrder(t *testing.T) {
	table := NewTable(nil, nil)
	table.Upsert("甲", greenRaw)
	table.Upsert("乙", greyRaw)
	table.Upsert("丙", greenRaw)
	table.Upsert("丁", redRaw)

	greens := table.ByStatus(scoring.StatusGreen)
	require.Len(t, greens, 2)
	assert.Equal(t, "甲", greens[0].MemberName)
	assert.Equal(t, "丙", greens[1].MemberName)

	assert.Empty(t, table.ByStatus(scoring.StatusYellow))
}

func TestSnapshotAndRestore(t *testing.T) {
	table := NewTable(nil, nil)
	table.Upsert("甲", greenRaw)
	table.Upsert("乙", redRaw)

	snap := table.Snapshot()
	require.Len(t, snap, 2)

	restored := NewTable(nil, nil)
	restored.Restore(snap)
	assert.Equal(t, snap, restored.Snapshot())

	rec, ok := restored.Get("乙")
	require.True(t, ok)
	assert.Equal(t, scoring.StatusRed, rec.Status)
}

func TestClearAll(t *testing.T) {
	store := &fakePersister{}
	table := NewTable(store, nil)
	table.Upsert("甲", greenRaw)

	table.ClearAll()
	assert.Empty(t, table.Snapshot())
	assert.Equal(t, 1, store.cleared)

	_, ok := table.Get("甲")
	assert.False(t, ok)
}

func TestPersister_ReceivesMutations(t *testing.T) {
	store := &fakePersister{}
	table := NewTable(store, nil)

	table.Upsert("甲", greyRaw)
	table.ManualOverride("甲", scoring.StatusGreen)
	table.UpdateTrainingCredits("甲", 6)

	require.Len(t, store.saved, 3)
	assert.Equal(t, "甲", store.saved[0].MemberName)
	assert.True(t, store.saved[2].IsManualOverride)
}

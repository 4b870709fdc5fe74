package society_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/society-engine/society"
)

func TestActivity_RingDropsOldestInserted(t *testing.T) {
	// GIVEN: A clock that runs backwards, so later inserts carry older timestamps
	// WHEN: Appending capacity+5 entries
	// THEN: The first five inserted are dropped even though their timestamps
	//       are the newest

	f := newFixture(t)
	ctx := context.Background()
	total := society.ActivityCapacity + 5
	for i := 0; i < total; i++ {
		_, err := f.st.AppendActivity(ctx, society.ActivityEntry{
			Type:    society.KindSystem,
			Action:  society.ActionUpdate,
			Summary: fmt.Sprintf("entry %d", i),
		})
		require.NoError(t, err)
		f.clock.Advance(-time.Minute)
	}

	log, err := f.st.Activity(ctx)
	require.NoError(t, err)
	require.Len(t, log, society.ActivityCapacity)
	assert.Equal(t, "entry 5", log[0].Summary, "newest timestamp still present")
	assert.Equal(t, fmt.Sprintf("entry %d", total-1), log[len(log)-1].Summary)
	for _, e := range log {
		assert.NotContains(t, []string{"entry 0", "entry 1", "entry 2", "entry 3", "entry 4"}, e.Summary)
	}
}

func TestActivity_AssignsIDTimestampAndActor(t *testing.T) {
	f := newFixture(t, society.WithActor("Secretary"))

	e, err := f.st.AppendActivity(context.Background(), society.ActivityEntry{
		Type: society.KindSystem, Action: society.ActionUpdate, Summary: "manual note",
	})
	require.NoError(t, err)

	assert.Equal(t, "id-1", e.ID)
	assert.Equal(t, march10, e.TS)
	assert.Equal(t, "Secretary", e.User)
}

func TestActivity_EveryMutationAppendsOneEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	h := f.house(t, "A-101")
	m := f.member(t, "Neha", "A-101", society.RoleOwner)
	_, err := f.st.UpdateMember(ctx, m.ID, society.MemberPatch{Phone: ptr("9999")})
	require.NoError(t, err)
	require.NoError(t, f.st.DeleteMember(ctx, m.ID))
	require.NoError(t, f.st.DeleteHouse(ctx, h.ID))

	log, err := f.st.Activity(ctx)
	require.NoError(t, err)
	require.Len(t, log, 5)
	assert.Equal(t, society.KindHouse, log[0].Type)
	assert.Equal(t, society.ActionDelete, log[0].Action)
	assert.Equal(t, "House A-101 created", log[4].Summary)
}

func TestActivity_FailureDoesNotFailMutation(t *testing.T) {
	// GIVEN: A medium that rejects writes to the activity log
	// WHEN: Creating a house
	// THEN: The house is stored and no error is returned

	f := newFixture(t)
	ctx := context.Background()
	f.kv.FailWrites(society.KeyActivity, errors.New("disk full"))

	h, err := f.st.CreateHouse(ctx, society.HouseInput{HouseNo: "A-101"})
	require.NoError(t, err)

	houses, _, err := f.st.ListHouses(ctx)
	require.NoError(t, err)
	require.Len(t, houses, 1)
	assert.Equal(t, h.ID, houses[0].ID)

	log, err := f.st.Activity(ctx)
	require.NoError(t, err)
	assert.Empty(t, log)
}

func TestActivity_FailedMutationRecordsNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.kv.FailWrites(society.KeyHouses, errors.New("disk full"))

	_, err := f.st.CreateHouse(ctx, society.HouseInput{HouseNo: "A-101"})
	require.Error(t, err)

	log, err := f.st.Activity(ctx)
	require.NoError(t, err)
	assert.Empty(t, log)
}

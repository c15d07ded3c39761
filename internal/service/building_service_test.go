package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"org-directory-go/pkg/events"
)

func TestCreateBuildingValidatesCoordinates(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	_, err := f.buildings.Create(ctx, BuildingInput{Address: "Pole", Latitude: 90.5, Longitude: 0})
	assert.ErrorIs(t, err, ErrInvalidBuilding)
	_, err = f.buildings.Create(ctx, BuildingInput{Address: "", Latitude: 0, Longitude: 0})
	assert.ErrorIs(t, err, ErrInvalidInput)

	b, err := f.buildings.Create(ctx, BuildingInput{Address: "Edge", Latitude: -90, Longitude: 180})
	require.NoError(t, err)
	got, err := f.buildings.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Edge", got.Address)

	_, err = f.buildings.Create(ctx, BuildingInput{Address: "Edge", Latitude: 1, Longitude: 1})
	assert.ErrorIs(t, err, ErrDuplicateAddress)

	list, err := f.buildings.List(ctx, 0, 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestDeleteBuildingCascadesToOrganizations(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	b, err := f.buildings.Create(ctx, BuildingInput{Address: "Doomed", Latitude: 1, Longitude: 1})
	require.NoError(t, err)
	inside, err := f.orgs.Create(ctx, OrganizationInput{Name: "Inside", BuildingID: &b.ID, PhoneNumbers: []string{"1"}})
	require.NoError(t, err)
	outside, err := f.orgs.Create(ctx, OrganizationInput{Name: "Outside", PhoneNumbers: []string{"2"}})
	require.NoError(t, err)
	f.publisher.reset()

	ok, err := f.buildings.Delete(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []uint{inside.ID}, f.publisher.ids(events.OrganizationDeleted))

	_, err = f.buildings.Get(ctx, b.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.orgs.Get(ctx, inside.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.phones.GetByNumber(ctx, "1")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.orgs.Get(ctx, outside.ID)
	assert.NoError(t, err)

	ok, err = f.buildings.Delete(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPagingNormalize(t *testing.T) {
	p := Paging{DefaultSize: 100, MaxSize: 1000}
	cases := []struct{ offset, limit, wantOffset, wantLimit int }{
		{0, 0, 0, 100},
		{-3, 10, 0, 10},
		{20, 5000, 20, 1000},
	}
	for _, c := range cases {
		o, l := p.Normalize(c.offset, c.limit)
		assert.Equal(t, c.wantOffset, o)
		assert.Equal(t, c.wantLimit, l)
	}
}

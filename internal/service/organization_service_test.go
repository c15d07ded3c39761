package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"org-directory-go/internal/model"
	"org-directory-go/pkg/events"
)

func orgIDs(orgs []model.Organization) []uint {
	ids := make([]uint, 0, len(orgs))
	for _, o := range orgs {
		ids = append(ids, o.ID)
	}
	return ids
}

func phoneNumbers(org *model.Organization) []string {
	out := make([]string, 0, len(org.Phones))
	for _, p := range org.Phones {
		out = append(out, p.Number)
	}
	return out
}

func TestCreateOrganizationAttachesPhonesAndActivities(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	b, err := f.buildings.Create(ctx, BuildingInput{Address: "Blyukhera 32/1", Latitude: 55.0, Longitude: 37.0})
	require.NoError(t, err)
	food := mustCreate(t, f.activities, "Food", nil)

	org, err := f.orgs.Create(ctx, OrganizationInput{
		Name:         "Horns & Hooves",
		BuildingID:   &b.ID,
		PhoneNumbers: []string{"2-222-222", "3-333-333"},
		ActivityIDs:  []uint{food.ID, food.ID, 999},
	})
	require.NoError(t, err)
	assert.Equal(t, "Horns & Hooves", org.Name)
	require.NotNil(t, org.Building)
	assert.Equal(t, b.ID, org.Building.ID)
	assert.ElementsMatch(t, []string{"2-222-222", "3-333-333"}, phoneNumbers(org))
	require.Len(t, org.Activities, 1)
	assert.Equal(t, food.ID, org.Activities[0].ID)
	assert.Equal(t, []uint{org.ID}, f.publisher.ids(events.OrganizationUpserted))
}

func TestCreateOrganizationWithUnknownActivitySucceeds(t *testing.T) {
	f := newFixture(t, true)
	org, err := f.orgs.Create(context.Background(), OrganizationInput{Name: "Ghost", ActivityIDs: []uint{999}})
	require.NoError(t, err)
	assert.Empty(t, org.Activities)
}

func TestCreateOrganizationRejectsDuplicatePhonesBeforeWriting(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	_, err := f.orgs.Create(ctx, OrganizationInput{Name: "Dup", PhoneNumbers: []string{"a", "a"}})
	assert.ErrorIs(t, err, ErrDuplicatePhoneNumber)

	var orgs, phones int64
	require.NoError(t, f.db.Model(&model.Organization{}).Count(&orgs).Error)
	require.NoError(t, f.db.Model(&model.Phone{}).Count(&phones).Error)
	assert.Zero(t, orgs)
	assert.Zero(t, phones)
	assert.Empty(t, f.publisher.events)
}

func TestCreateOrganizationRollsBackOnUnknownBuilding(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	_, err := f.orgs.Create(ctx, OrganizationInput{Name: "Nowhere", BuildingID: uintPtr(77), PhoneNumbers: []string{"1"}})
	assert.ErrorIs(t, err, ErrInvalidBuilding)

	var orgs int64
	require.NoError(t, f.db.Model(&model.Organization{}).Count(&orgs).Error)
	assert.Zero(t, orgs)
}

func TestCreateOrganizationClaimsPhoneFromAnotherOrganization(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	old, err := f.orgs.Create(ctx, OrganizationInput{Name: "Old", PhoneNumbers: []string{"555", "556"}})
	require.NoError(t, err)
	f.publisher.reset()

	fresh, err := f.orgs.Create(ctx, OrganizationInput{Name: "New", PhoneNumbers: []string{"555"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"555"}, phoneNumbers(fresh))
	assert.ElementsMatch(t, []uint{fresh.ID, old.ID}, f.publisher.ids(events.OrganizationUpserted))

	reloaded, err := f.orgs.Get(ctx, old.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"556"}, phoneNumbers(reloaded))
}

func TestUpdateOrganizationReplacesSets(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	b1, err := f.buildings.Create(ctx, BuildingInput{Address: "A", Latitude: 1, Longitude: 1})
	require.NoError(t, err)
	b2, err := f.buildings.Create(ctx, BuildingInput{Address: "B", Latitude: 2, Longitude: 2})
	require.NoError(t, err)
	food := mustCreate(t, f.activities, "Food", nil)
	cars := mustCreate(t, f.activities, "Cars", nil)

	org, err := f.orgs.Create(ctx, OrganizationInput{
		Name:         "Shop",
		BuildingID:   &b1.ID,
		PhoneNumbers: []string{"1", "2"},
		ActivityIDs:  []uint{food.ID},
	})
	require.NoError(t, err)

	// 只改名称，其余集合不变
	renamed, err := f.orgs.Update(ctx, org.ID, OrganizationPatch{Name: strPtr("Shop 2")})
	require.NoError(t, err)
	assert.Equal(t, "Shop 2", renamed.Name)
	assert.ElementsMatch(t, []string{"1", "2"}, phoneNumbers(renamed))
	require.Len(t, renamed.Activities, 1)

	updated, err := f.orgs.Update(ctx, org.ID, OrganizationPatch{
		BuildingID:   &b2.ID,
		PhoneNumbers: []string{"2", "3"},
		ActivityIDs:  []uint{cars.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, b2.ID, *updated.BuildingID)
	assert.ElementsMatch(t, []string{"2", "3"}, phoneNumbers(updated))
	require.Len(t, updated.Activities, 1)
	assert.Equal(t, cars.ID, updated.Activities[0].ID)

	// 被替换掉的号码保留，但不再属于任何组织
	detached, err := f.phones.GetByNumber(ctx, "1")
	require.NoError(t, err)
	assert.Nil(t, detached.OrganizationID)

	cleared, err := f.orgs.Update(ctx, org.ID, OrganizationPatch{ClearBuilding: true, PhoneNumbers: []string{}, ActivityIDs: []uint{}})
	require.NoError(t, err)
	assert.Nil(t, cleared.BuildingID)
	assert.Empty(t, cleared.Phones)
	assert.Empty(t, cleared.Activities)

	_, err = f.orgs.Update(ctx, org.ID, OrganizationPatch{PhoneNumbers: []string{"x", "x"}})
	assert.ErrorIs(t, err, ErrDuplicatePhoneNumber)
	_, err = f.orgs.Update(ctx, 9999, OrganizationPatch{Name: strPtr("nope")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteOrganizationCascadesPhonesOnly(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	food := mustCreate(t, f.activities, "Food", nil)

	org, err := f.orgs.Create(ctx, OrganizationInput{Name: "Gone", PhoneNumbers: []string{"1"}, ActivityIDs: []uint{food.ID}})
	require.NoError(t, err)
	f.publisher.reset()

	ok, err := f.orgs.Delete(ctx, org.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []uint{org.ID}, f.publisher.ids(events.OrganizationDeleted))

	_, err = f.orgs.Get(ctx, org.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.phones.GetByNumber(ctx, "1")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.activities.Get(ctx, food.ID)
	assert.NoError(t, err)

	ok, err = f.orgs.Delete(ctx, org.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetByActivityIncludesDescendants(t *testing.T) {
	forEachStrategy(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		food := mustCreate(t, f.activities, "Food", nil)
		meat := mustCreate(t, f.activities, "Meat", food)
		beef := mustCreate(t, f.activities, "Beef", meat)
		cars := mustCreate(t, f.activities, "Cars", nil)

		butcher, err := f.orgs.Create(ctx, OrganizationInput{Name: "Butcher", ActivityIDs: []uint{beef.ID, meat.ID}})
		require.NoError(t, err)
		grocer, err := f.orgs.Create(ctx, OrganizationInput{Name: "Grocer", ActivityIDs: []uint{food.ID}})
		require.NoError(t, err)
		_, err = f.orgs.Create(ctx, OrganizationInput{Name: "Garage", ActivityIDs: []uint{cars.ID}})
		require.NoError(t, err)

		got, err := f.orgs.GetByActivity(ctx, food.ID)
		require.NoError(t, err)
		assert.Equal(t, []uint{butcher.ID, grocer.ID}, orgIDs(got))

		got, err = f.orgs.GetByActivity(ctx, meat.ID)
		require.NoError(t, err)
		assert.Equal(t, []uint{butcher.ID}, orgIDs(got))

		got, err = f.orgs.GetByActivity(ctx, 4242)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestSearchByNameIsCaseInsensitive(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	for _, n := range []string{"Horns & Hooves", "HOOVES Ltd", "Milk"} {
		_, err := f.orgs.Create(ctx, OrganizationInput{Name: n})
		require.NoError(t, err)
	}

	got, err := f.orgs.SearchByName(ctx, "hooves")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = f.orgs.SearchByName(ctx, "bread")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFindWithinRadius(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	center, err := f.buildings.Create(ctx, BuildingInput{Address: "Center", Latitude: 0, Longitude: 0})
	require.NoError(t, err)
	// 赤道上 0.005 度约 556 米
	near, err := f.buildings.Create(ctx, BuildingInput{Address: "Near", Latitude: 0, Longitude: 0.005})
	require.NoError(t, err)
	far, err := f.buildings.Create(ctx, BuildingInput{Address: "Far", Latitude: 0, Longitude: 1})
	require.NoError(t, err)

	atCenter, err := f.orgs.Create(ctx, OrganizationInput{Name: "At center", BuildingID: &center.ID})
	require.NoError(t, err)
	nearby, err := f.orgs.Create(ctx, OrganizationInput{Name: "Nearby", BuildingID: &near.ID})
	require.NoError(t, err)
	_, err = f.orgs.Create(ctx, OrganizationInput{Name: "Far away", BuildingID: &far.ID})
	require.NoError(t, err)

	got, err := f.orgs.FindWithinRadius(ctx, GeoQuery{Radius: 1, Unit: "m"})
	require.NoError(t, err)
	assert.Equal(t, []uint{atCenter.ID}, orgIDs(got))

	km, err := f.orgs.FindWithinRadius(ctx, GeoQuery{Radius: 1, Unit: "km"})
	require.NoError(t, err)
	meters, err := f.orgs.FindWithinRadius(ctx, GeoQuery{Radius: 1000})
	require.NoError(t, err)
	assert.Equal(t, []uint{atCenter.ID, nearby.ID}, orgIDs(km))
	assert.Equal(t, orgIDs(km), orgIDs(meters))

	miles, err := f.orgs.FindWithinRadius(ctx, GeoQuery{Radius: 100, Unit: "mi"})
	require.NoError(t, err)
	assert.Len(t, miles, 3)

	empty, err := f.orgs.FindWithinRadius(ctx, GeoQuery{Latitude: 45, Longitude: 45, Radius: 10, Unit: "km"})
	require.NoError(t, err)
	assert.Empty(t, empty)

	for _, q := range []GeoQuery{
		{Radius: 0},
		{Radius: -5},
		{Latitude: 91, Radius: 1},
		{Longitude: -181, Radius: 1},
		{Radius: 1, Unit: "parsec"},
	} {
		_, err := f.orgs.FindWithinRadius(ctx, q)
		assert.ErrorIs(t, err, ErrInvalidGeoQuery, "query %+v", q)
	}
}

func TestListAndGetByBuilding(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	b, err := f.buildings.Create(ctx, BuildingInput{Address: "Here", Latitude: 10, Longitude: 10})
	require.NoError(t, err)
	a, err := f.orgs.Create(ctx, OrganizationInput{Name: "A", BuildingID: &b.ID})
	require.NoError(t, err)
	_, err = f.orgs.Create(ctx, OrganizationInput{Name: "B"})
	require.NoError(t, err)

	all, err := f.orgs.List(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	inBuilding, err := f.orgs.GetByBuilding(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{a.ID}, orgIDs(inBuilding))

	none, err := f.orgs.GetByBuilding(ctx, 999)
	require.NoError(t, err)
	assert.Empty(t, none)
}

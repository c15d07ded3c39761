package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"org-directory-go/internal/model"
)

func TestOrganizationQueries(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	orgs := NewOrganizationRepository(db)
	buildings := NewBuildingRepository(db)
	activities := NewActivityRepository(db)
	phones := NewPhoneRepository(db)

	b := &model.Building{Address: "Lenina 1", Latitude: 55.75, Longitude: 37.61}
	require.NoError(t, buildings.Create(ctx, b))
	act := &model.Activity{Name: "Food"}
	require.NoError(t, activities.Create(ctx, act))

	horns := &model.Organization{Name: "Horns & Hooves", BuildingID: &b.ID}
	require.NoError(t, orgs.Create(ctx, horns))
	milk := &model.Organization{Name: "100%_Milk"}
	require.NoError(t, orgs.Create(ctx, milk))
	require.NoError(t, phones.Create(ctx, &model.Phone{Number: "2-222-222", OrganizationID: &horns.ID}))
	require.NoError(t, orgs.ReplaceActivities(ctx, horns.ID, []uint{act.ID}))

	got, err := orgs.FindByID(ctx, horns.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Building)
	assert.Equal(t, "Lenina 1", got.Building.Address)
	require.Len(t, got.Phones, 1)
	require.Len(t, got.Activities, 1)
	assert.Equal(t, "Food", got.Activities[0].Name)

	found, err := orgs.SearchByName(ctx, "HORNS")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, horns.ID, found[0].ID)

	// 通配符按字面匹配
	found, err = orgs.SearchByName(ctx, "%_")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, milk.ID, found[0].ID)

	byBuilding, err := orgs.FindByBuildingIDs(ctx, []uint{b.ID})
	require.NoError(t, err)
	require.Len(t, byBuilding, 1)

	byActivity, err := orgs.FindByActivityIDs(ctx, []uint{act.ID, act.ID + 100})
	require.NoError(t, err)
	require.Len(t, byActivity, 1)
	assert.Equal(t, horns.ID, byActivity[0].ID)

	ok, err := orgs.Exists(ctx, milk.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	n, err := orgs.DeleteByIDs(ctx, []uint{horns.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	var links int64
	require.NoError(t, db.Model(&model.OrganizationActivity{}).Count(&links).Error)
	assert.Zero(t, links)

	_, err = orgs.FindByID(ctx, horns.ID)
	assert.True(t, IsNotFound(err))
}

package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"org-directory-go/internal/model"
	"org-directory-go/internal/service"
	"org-directory-go/pkg/events"
)

type stubReader map[uint]*model.Organization

func (s stubReader) Get(_ context.Context, id uint) (*model.Organization, error) {
	if org, ok := s[id]; ok {
		return org, nil
	}
	return nil, service.ErrNotFound
}

type fakeIndex struct {
	indexed []model.OrganizationDocument
	deleted []uint
	err     error
}

func (f *fakeIndex) IndexOrganization(_ context.Context, doc model.OrganizationDocument) error {
	if f.err != nil {
		return f.err
	}
	f.indexed = append(f.indexed, doc)
	return nil
}

func (f *fakeIndex) DeleteOrganization(_ context.Context, id uint) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func TestIndexerUpsertBuildsDocumentFromStore(t *testing.T) {
	buildingID := uint(3)
	orgs := stubReader{
		1: {
			ID:         1,
			Name:       "Horns & Hooves",
			BuildingID: &buildingID,
			Building:   &model.Building{ID: 3, Address: "Lenina 1", Latitude: 55.75, Longitude: 37.61},
			Phones:     []model.Phone{{Number: "2-222-222"}},
			Activities: []model.Activity{{ID: 9, Name: "Meat"}},
		},
	}
	idx := &fakeIndex{}
	p := NewIndexer(orgs, idx)

	require.NoError(t, p.Process(context.Background(), events.New(events.OrganizationUpserted, 1)[0]))
	require.Len(t, idx.indexed, 1)
	doc := idx.indexed[0]
	assert.Equal(t, "Lenina 1", doc.Address)
	require.NotNil(t, doc.Location)
	assert.Equal(t, 37.61, doc.Location.Lon)
	assert.Equal(t, []string{"2-222-222"}, doc.Phones)
	assert.Equal(t, []uint{9}, doc.ActivityIDs)
	assert.Equal(t, []string{"Meat"}, doc.ActivityNames)
}

func TestIndexerRemovesMissingAndDeletedOrganizations(t *testing.T) {
	idx := &fakeIndex{}
	p := NewIndexer(stubReader{}, idx)
	ctx := context.Background()

	require.NoError(t, p.Process(ctx, events.New(events.OrganizationUpserted, 4)[0]))
	require.NoError(t, p.Process(ctx, events.New(events.OrganizationDeleted, 5)[0]))
	require.NoError(t, p.Process(ctx, events.DirectoryEvent{Type: "organization.renamed", OrganizationID: 6}))

	assert.Equal(t, []uint{4, 5}, idx.deleted)
	assert.Empty(t, idx.indexed)
}

func TestIndexerPropagatesIndexFailure(t *testing.T) {
	idx := &fakeIndex{err: errors.New("cluster red")}
	p := NewIndexer(stubReader{1: {ID: 1, Name: "x"}}, idx)

	err := p.Process(context.Background(), events.New(events.OrganizationUpserted, 1)[0])
	assert.EqualError(t, err, "cluster red")
}

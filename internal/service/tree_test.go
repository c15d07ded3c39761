package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"org-directory-go/internal/model"
)

func TestBuildForestGroupsByParent(t *testing.T) {
	rows := []model.Activity{
		{ID: 5, Name: "Trucks", ParentID: uintPtr(4)},
		{ID: 1, Name: "Food"},
		{ID: 3, Name: "Dairy", ParentID: uintPtr(1)},
		{ID: 2, Name: "Meat", ParentID: uintPtr(1)},
		{ID: 4, Name: "Cars"},
	}

	forest := BuildForest(rows, nil)
	require.Len(t, forest, 2)
	assert.Equal(t, uint(1), forest[0].ID)
	assert.Equal(t, uint(4), forest[1].ID)
	require.Len(t, forest[0].Children, 2)
	assert.Equal(t, uint(2), forest[0].Children[0].ID)
	assert.Equal(t, uint(3), forest[0].Children[1].ID)
	assert.NotNil(t, forest[0].Children[0].Children)
	assert.Equal(t, len(rows), CountNodes(forest))
}

func TestBuildForestUnderParentSkipsParentRow(t *testing.T) {
	rows := []model.Activity{
		{ID: 1, Name: "Food", ParentID: uintPtr(3)},
		{ID: 2, Name: "Meat", ParentID: uintPtr(1)},
		{ID: 3, Name: "Beef", ParentID: uintPtr(2)},
	}

	forest := BuildForest(rows, uintPtr(1))
	require.Len(t, forest, 1)
	assert.Equal(t, uint(2), forest[0].ID)
	require.Len(t, forest[0].Children, 1)
	assert.Equal(t, uint(3), forest[0].Children[0].ID)
	assert.Empty(t, forest[0].Children[0].Children)
	assert.Equal(t, 2, CountNodes(forest))
}

func TestBuildForestEmpty(t *testing.T) {
	assert.Empty(t, BuildForest(nil, nil))
	assert.Empty(t, BuildForest(nil, uintPtr(1)))
}

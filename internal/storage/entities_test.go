package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearthkeep/hearthkeep/internal/common"
	"github.com/hearthkeep/hearthkeep/internal/model"
)

func testEntity(id string, entityType model.EntityType, name, identifier string) *model.Entity {
	return &model.Entity{
		ID:         id,
		Type:       entityType,
		Name:       name,
		Identifier: identifier,
		IsActive:   true,
	}
}

func TestCreateEntity(t *testing.T) {
	ctx := context.Background()

	t.Run("create and read back", func(t *testing.T) {
		store, cleanup := createTestStorage(t)
		defer cleanup()

		entity := testEntity("e1", model.EntityTypeVehicle, "Car A", "12-D-34567")
		entity.Metadata = map[string]string{"make": "Toyota"}
		require.NoError(t, store.CreateEntity(ctx, entity))

		got, err := store.GetEntity(ctx, "e1")
		require.NoError(t, err)
		assert.Equal(t, "Car A", got.Name)
		assert.Equal(t, model.EntityTypeVehicle, got.Type)
		assert.Equal(t, "12-D-34567", got.Identifier)
		assert.Equal(t, "Toyota", got.Metadata["make"])
		assert.True(t, got.IsActive)
	})

	t.Run("duplicate identifier rejected across formatting", func(t *testing.T) {
		store, cleanup := createTestStorage(t)
		defer cleanup()

		require.NoError(t, store.CreateEntity(ctx, testEntity("e1", model.EntityTypeVehicle, "Car A", "12-D-34567")))

		err := store.CreateEntity(ctx, testEntity("e2", model.EntityTypeVehicle, "Car A again", "12 d 34567"))
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrDuplicateEntity)
	})

	t.Run("same identifier different type allowed", func(t *testing.T) {
		store, cleanup := createTestStorage(t)
		defer cleanup()

		require.NoError(t, store.CreateEntity(ctx, testEntity("e1", model.EntityTypeVehicle, "Car", "X1")))
		require.NoError(t, store.CreateEntity(ctx, testEntity("e2", model.EntityTypePet, "Pet", "X1")))
	})

	t.Run("unknown owner rejected", func(t *testing.T) {
		store, cleanup := createTestStorage(t)
		defer cleanup()

		entity := testEntity("e1", model.EntityTypeVehicle, "Car A", "")
		entity.OwnerID = "nobody"
		err := store.CreateEntity(ctx, entity)
		assert.ErrorIs(t, err, common.ErrUnknownReference)
	})

	t.Run("invalid type rejected", func(t *testing.T) {
		store, cleanup := createTestStorage(t)
		defer cleanup()

		err := store.CreateEntity(ctx, testEntity("e1", "spaceship", "X", ""))
		assert.Error(t, err)
	})
}

func TestOwnerCycleRejected(t *testing.T) {
	ctx := context.Background()
	store, cleanup := createTestStorage(t)
	defer cleanup()

	alice := testEntity("alice", model.EntityTypePerson, "Alice", "alice@example.com")
	require.NoError(t, store.CreateEntity(ctx, alice))

	car := testEntity("car", model.EntityTypeVehicle, "Car A", "12-D-34567")
	car.OwnerID = "alice"
	require.NoError(t, store.CreateEntity(ctx, car))

	// alice -> car -> alice would close the loop.
	alice.OwnerID = "car"
	err := store.UpdateEntity(ctx, alice)
	assert.ErrorIs(t, err, common.ErrOwnerCycle)
}

func TestHouseholdEntity(t *testing.T) {
	ctx := context.Background()
	store, cleanup := createTestStorage(t)
	defer cleanup()

	household, err := store.GetHouseholdEntity(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.EntityTypeHousehold, household.Type)
	assert.True(t, household.IsActive)

	// The shared fallback cannot be deactivated.
	household.IsActive = false
	err = store.UpdateEntity(ctx, household)
	assert.ErrorIs(t, err, common.ErrProtectedEntity)

	// Renaming it is fine.
	household.IsActive = true
	household.Name = "The Murphys"
	require.NoError(t, store.UpdateEntity(ctx, household))

	got, err := store.GetHouseholdEntity(ctx)
	require.NoError(t, err)
	assert.Equal(t, "The Murphys", got.Name)
}

func TestCountLinkedDocuments(t *testing.T) {
	ctx := context.Background()
	store, cleanup := createTestStorage(t)
	defer cleanup()

	require.NoError(t, store.CreateEntity(ctx, testEntity("e1", model.EntityTypeVehicle, "Car A", "12-D-34567")))

	for _, id := range []string{"a", "b"} {
		require.NoError(t, store.SaveDocument(ctx, testDocument(id, time.Now().UTC())))
		require.NoError(t, store.SaveSummary(ctx, &model.Summary{
			DocumentID: id,
			Category:   "vehicle",
			EntityID:   "e1",
		}))
	}

	count, err := store.CountLinkedDocuments(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = store.CountLinkedDocuments(ctx, householdEntityID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestEntitySuggestions(t *testing.T) {
	ctx := context.Background()
	store, cleanup := createTestStorage(t)
	defer cleanup()

	suggestion := &model.EntitySuggestion{
		ID:         "s1",
		DocumentID: "doc-1",
		Type:       model.EntityTypePet,
		Name:       "Rex",
		Identifier: "Rex",
	}
	require.NoError(t, store.SaveSuggestion(ctx, suggestion))

	// A second pending suggestion for the same proposed entity is absorbed.
	require.NoError(t, store.SaveSuggestion(ctx, &model.EntitySuggestion{
		ID:         "s2",
		DocumentID: "doc-2",
		Type:       model.EntityTypePet,
		Name:       "Rex",
		Identifier: "rex",
	}))

	pending, err := store.GetPendingSuggestions(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "s1", pending[0].ID)
	assert.Equal(t, model.SuggestionPending, pending[0].Status)

	require.NoError(t, store.ResolveSuggestion(ctx, "s1", model.SuggestionApproved))

	resolved, err := store.GetSuggestion(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, model.SuggestionApproved, resolved.Status)
	assert.NotNil(t, resolved.ResolvedAt)

	pending, err = store.GetPendingSuggestions(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	// Once resolved, the same proposal may be suggested again later.
	require.NoError(t, store.SaveSuggestion(ctx, &model.EntitySuggestion{
		ID:   "s3",
		Type: model.EntityTypePet,
		Name: "Rex",
	}))
}

func TestResolveSuggestionErrors(t *testing.T) {
	ctx := context.Background()
	store, cleanup := createTestStorage(t)
	defer cleanup()

	err := store.ResolveSuggestion(ctx, "missing", model.SuggestionApproved)
	assert.ErrorIs(t, err, common.ErrNotFound)

	err = store.ResolveSuggestion(ctx, "missing", model.SuggestionPending)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestNormalizeIdentifier(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"12-D-34567", "12d34567"},
		{"12 d 34567", "12d34567"},
		{"Alice@Example.com", "aliceexamplecom"},
		{"  ", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := normalizeIdentifier(tt.in); got != tt.want {
			t.Errorf("normalizeIdentifier(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

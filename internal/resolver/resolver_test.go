package resolver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearthkeep/hearthkeep/internal/model"
)

// fakeEntityReader serves a fixed entity list with per-entity link counts.
type fakeEntityReader struct {
	entities []model.Entity
	counts   map[string]int
}

func (f *fakeEntityReader) GetActiveEntities(context.Context) ([]model.Entity, error) {
	return f.entities, nil
}

func (f *fakeEntityReader) CountLinkedDocuments(_ context.Context, id string) (int, error) {
	return f.counts[id], nil
}

func testRegistry() *fakeEntityReader {
	return &fakeEntityReader{
		entities: []model.Entity{
			{ID: "car-a", Type: model.EntityTypeVehicle, Name: "Car A", Identifier: "12-D-34567", IsActive: true, CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
			{ID: "car-b", Type: model.EntityTypeVehicle, Name: "Car B", Identifier: "191-KE-888", IsActive: true, CreatedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)},
			{ID: "alice", Type: model.EntityTypePerson, Name: "Alice Murphy", Identifier: "alice@example.com", IsActive: true},
			{ID: "rex", Type: model.EntityTypePet, Name: "Rex", Identifier: "rex", IsActive: true},
			{ID: "home", Type: model.EntityTypeProperty, Name: "Home", Identifier: "14 Oak Road, Dublin 6", IsActive: true},
		},
		counts: map[string]int{},
	}
}

func TestResolveRegistrationMatch(t *testing.T) {
	r := New(testRegistry(), 0.7, nil)

	tests := []struct {
		name string
		hint string
	}{
		{"exact", "12-D-34567"},
		{"spaces instead of dashes", "12 D 34567"},
		{"no separators", "12D34567"},
		{"lowercase", "12-d-34567"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := r.Resolve(context.Background(), "doc-1", model.EntityHints{Registration: tt.hint})
			require.NoError(t, err)
			require.NotNil(t, res.Entity)
			assert.Equal(t, "car-a", res.Entity.ID)
			assert.GreaterOrEqual(t, res.Confidence, 0.7)
			assert.Nil(t, res.Suggestion)
		})
	}
}

func TestResolveNoHints(t *testing.T) {
	r := New(testRegistry(), 0.7, nil)

	res, err := r.Resolve(context.Background(), "doc-1", model.EntityHints{})
	require.NoError(t, err)
	assert.Nil(t, res.Entity)
	assert.Nil(t, res.Suggestion)
	assert.Zero(t, res.Confidence)
}

func TestResolvePersonNameVariants(t *testing.T) {
	r := New(testRegistry(), 0.7, nil)

	res, err := r.Resolve(context.Background(), "doc-1", model.EntityHints{PersonName: "Murphy, Alice"})
	require.NoError(t, err)
	require.NotNil(t, res.Entity, "reordered name tokens should still match via Jaccard")
	assert.Equal(t, "alice", res.Entity.ID)
}

func TestResolveBelowThresholdSuggests(t *testing.T) {
	r := New(testRegistry(), 0.7, nil)

	res, err := r.Resolve(context.Background(), "doc-9", model.EntityHints{PetName: "Bella"})
	require.NoError(t, err)
	assert.Nil(t, res.Entity)
	require.NotNil(t, res.Suggestion)
	assert.Equal(t, model.EntityTypePet, res.Suggestion.Type)
	assert.Equal(t, "Bella", res.Suggestion.Name)
	assert.Equal(t, "doc-9", res.Suggestion.DocumentID)
	assert.Equal(t, model.SuggestionPending, res.Suggestion.Status)
	assert.Zero(t, res.Confidence, "suggestions carry zero confidence")
}

func TestResolveNeverLinksAcrossTypes(t *testing.T) {
	reg := testRegistry()
	// A pet named exactly like a person must not link to the person.
	reg.entities = append(reg.entities, model.Entity{
		ID: "pet-alice", Type: model.EntityTypePet, Name: "Alice Murphy", IsActive: true,
	})
	r := New(reg, 0.7, nil)

	res, err := r.Resolve(context.Background(), "doc-1", model.EntityHints{PetName: "Alice Murphy"})
	require.NoError(t, err)
	require.NotNil(t, res.Entity)
	assert.Equal(t, "pet-alice", res.Entity.ID)
}

func TestResolveRegistrationPrecedence(t *testing.T) {
	// A letter about the car that also names its owner links to the car,
	// even when the owner is older and has far more linked documents.
	reg := testRegistry()
	reg.counts["alice"] = 40
	r := New(reg, 0.7, nil)

	res, err := r.Resolve(context.Background(), "doc-1", model.EntityHints{
		Registration: "12-D-34567",
		PersonName:   "Alice Murphy",
	})
	require.NoError(t, err)
	require.NotNil(t, res.Entity)
	assert.Equal(t, "car-a", res.Entity.ID)
}

func TestResolveTieBreakByLinkedDocuments(t *testing.T) {
	reg := &fakeEntityReader{
		entities: []model.Entity{
			{ID: "rex-1", Type: model.EntityTypePet, Name: "Rex", IsActive: true, CreatedAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)},
			{ID: "rex-2", Type: model.EntityTypePet, Name: "Rex", IsActive: true, CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		},
		counts: map[string]int{"rex-1": 7, "rex-2": 2},
	}
	r := New(reg, 0.7, nil)

	res, err := r.Resolve(context.Background(), "doc-1", model.EntityHints{PetName: "Rex"})
	require.NoError(t, err)
	require.NotNil(t, res.Entity)
	assert.Equal(t, "rex-1", res.Entity.ID, "more linked documents wins the tie")
}

func TestResolveTieBreakByAge(t *testing.T) {
	reg := &fakeEntityReader{
		entities: []model.Entity{
			{ID: "rex-new", Type: model.EntityTypePet, Name: "Rex", IsActive: true, CreatedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)},
			{ID: "rex-old", Type: model.EntityTypePet, Name: "Rex", IsActive: true, CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		},
		counts: map[string]int{"rex-new": 3, "rex-old": 3},
	}
	r := New(reg, 0.7, nil)

	res, err := r.Resolve(context.Background(), "doc-1", model.EntityHints{PetName: "Rex"})
	require.NoError(t, err)
	require.NotNil(t, res.Entity)
	assert.Equal(t, "rex-old", res.Entity.ID, "equal counts fall back to the older entity")
}

func TestResolveGarbledRegistrationSuggests(t *testing.T) {
	// Badly misread plates should not link to anything.
	r := New(testRegistry(), 0.7, nil)

	res, err := r.Resolve(context.Background(), "doc-1", model.EntityHints{Registration: "XY-99-ZZZZZ"})
	require.NoError(t, err)
	assert.Nil(t, res.Entity)
	require.NotNil(t, res.Suggestion)
	assert.Equal(t, model.EntityTypeVehicle, res.Suggestion.Type)
}

func TestThresholdFallback(t *testing.T) {
	r := New(testRegistry(), 0, nil)
	assert.InDelta(t, DefaultThreshold, r.threshold, 0.0001)

	r = New(testRegistry(), 1.5, nil)
	assert.InDelta(t, DefaultThreshold, r.threshold, 0.0001)
}

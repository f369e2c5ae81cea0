package reconcile

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func normalizeOne(t *testing.T, raw RawRecord) NormalizedRecord {
	t.Helper()
	records, invalid := testSchema().Normalize([]RawRecord{raw})
	require.Zero(t, invalid)
	require.Len(t, records, 1)
	return records[0]
}

func TestBuildIndex_LowercasesAndLastWriteWins(t *testing.T) {
	first, second := uuid.New(), uuid.New()
	idx := BuildIndex(testSchema().Keys, []ExistingKeys{
		{ID: first, Keys: map[Field]string{fieldName: "ACME", fieldEmail: ""}},
		{ID: second, Keys: map[Field]string{fieldName: " acme "}},
	})

	id, ok := idx.Lookup(fieldName, "Acme")
	require.True(t, ok)
	require.Equal(t, second, id)
	require.Equal(t, 1, idx.Len(fieldName))
	require.Equal(t, 0, idx.Len(fieldEmail))

	_, ok = idx.Lookup(fieldEmail, "")
	require.False(t, ok)
	_, ok = idx.Lookup(fieldPhone, "x")
	require.False(t, ok, "fields that are not candidate keys are never indexed")
}

func TestClassify_NoMatchCreates(t *testing.T) {
	idx := BuildIndex(testSchema().Keys, nil)
	c := Classify(normalizeOne(t, RawRecord{"nombre": "Acme"}), idx, testSchema().Keys, StrategyUpdate)
	require.Equal(t, ActionCreate, c.Action)
	require.Equal(t, ReasonNoMatch, c.Reason)
	require.False(t, c.Matched())
}

func TestClassify_Strategies(t *testing.T) {
	existing := uuid.New()
	idx := BuildIndex(testSchema().Keys, []ExistingKeys{
		{ID: existing, Keys: map[Field]string{fieldName: "Acme"}},
	})
	rec := normalizeOne(t, RawRecord{"nombre": "ACME"})

	c := Classify(rec, idx, testSchema().Keys, StrategyUpdate)
	require.Equal(t, ActionUpdate, c.Action)
	require.Equal(t, existing, c.TargetID)
	require.Equal(t, fieldName, c.MatchedKey)

	c = Classify(rec, idx, testSchema().Keys, StrategySkip)
	require.Equal(t, ActionSkip, c.Action)

	c = Classify(rec, idx, testSchema().Keys, StrategyCreateNew)
	require.Equal(t, ActionCreate, c.Action)
	require.Equal(t, uuid.Nil, c.TargetID)
	require.True(t, c.Matched())
}

func TestClassify_KeyPrecedence(t *testing.T) {
	byName, byTax, byEmail := uuid.New(), uuid.New(), uuid.New()
	idx := BuildIndex(testSchema().Keys, []ExistingKeys{
		{ID: byName, Keys: map[Field]string{fieldName: "Acme"}},
		{ID: byTax, Keys: map[Field]string{fieldName: "Other", fieldTaxID: "B123"}},
		{ID: byEmail, Keys: map[Field]string{fieldName: "Third", fieldEmail: "x@acme.com"}},
	})
	keys := testSchema().Keys

	c := Classify(normalizeOne(t, RawRecord{"nombre": "Acme", "nif": "B123", "email": "x@acme.com"}), idx, keys, StrategyUpdate)
	require.Equal(t, byName, c.TargetID)

	c = Classify(normalizeOne(t, RawRecord{"nombre": "New Co", "nif": "b123", "email": "x@acme.com"}), idx, keys, StrategyUpdate)
	require.Equal(t, ActionUpdate, c.Action)
	require.Equal(t, byTax, c.TargetID)
	require.Equal(t, fieldTaxID, c.MatchedKey)

	c = Classify(normalizeOne(t, RawRecord{"nombre": "New Co", "email": "X@ACME.COM"}), idx, keys, StrategyUpdate)
	require.Equal(t, byEmail, c.TargetID)
	require.Equal(t, "matched by email", c.Reason)
}

func TestBuildPlan_Partitions(t *testing.T) {
	existing := uuid.New()
	idx := BuildIndex(testSchema().Keys, []ExistingKeys{{ID: existing, Keys: map[Field]string{fieldName: "Acme"}}})
	records, _ := testSchema().Normalize([]RawRecord{{"nombre": "Acme"}, {"nombre": "Globex"}})

	plan := BuildPlan(records, idx, testSchema().Keys, StrategySkip)
	require.Len(t, plan.Creates, 1)
	require.Len(t, plan.Skips, 1)
	require.Empty(t, plan.Updates)
	require.Equal(t, 2, plan.Len())
}

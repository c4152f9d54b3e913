package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkio/crosscloudkit/memory"
	"github.com/bkio/crosscloudkit/primitive"
)

func newTestService(t *testing.T) *InMemoryService {
	t.Helper()
	mem := memory.New(nil, nil)
	t.Cleanup(func() { _ = mem.Close(context.Background()) })
	return New(mem, nil)
}

func TestPutGetKeyRoundTrip(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	key := primitive.NewString("user-1")
	put := svc.PutItem(ctx, "users", "id", key, map[string]any{"name": "ada"}, true, ReturnNewValues)
	require.True(t, put.IsSuccessful())
	assert.Equal(t, "user-1", put.Value()["id"])

	got := svc.GetItem(ctx, "users", "id", key)
	require.NotNil(t, got.Value())
	assert.Equal(t, "user-1", got.Value()["id"])
	assert.Equal(t, "ada", got.Value()["name"])
}

func TestPutItemConflictWithoutOverwrite(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	key := primitive.NewString("k")

	first := svc.PutItem(ctx, "t", "id", key, map[string]any{"a": 1.0}, false, DoNotReturn)
	require.True(t, first.IsSuccessful())

	second := svc.PutItem(ctx, "t", "id", key, map[string]any{"a": 2.0}, false, DoNotReturn)
	assert.False(t, second.IsSuccessful())
	assert.Equal(t, primitive.StatusConflict, second.StatusCode())
}

func TestConditionalUpdatePrecondition(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	key := primitive.NewString("item-1")

	svc.PutItem(ctx, "t", "id", key, map[string]any{"Status": "active", "Value": 100.0}, true, DoNotReturn)

	ok := svc.UpdateItem(ctx, "t", "id", key, map[string]any{"Status": "inactive"},
		[]Condition{Ge("Value", primitive.NewInteger(50))}, DoNotReturn)
	assert.True(t, ok.IsSuccessful())

	svc.PutItem(ctx, "t", "id", key, map[string]any{"Status": "active", "Value": 10.0}, true, DoNotReturn)
	fail := svc.UpdateItem(ctx, "t", "id", key, map[string]any{"Status": "inactive"},
		[]Condition{Ge("Value", primitive.NewInteger(50))}, DoNotReturn)
	assert.False(t, fail.IsSuccessful())
	assert.Equal(t, primitive.StatusPreconditionFailed, fail.StatusCode())

	got := svc.GetItem(ctx, "t", "id", key)
	assert.Equal(t, "active", got.Value()["Status"])
}

func TestArrayElementConditionOnDelete(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	key := primitive.NewString("item-2")

	svc.PutItem(ctx, "t", "id", key, map[string]any{"Tags": []any{"production", "db"}}, true, DoNotReturn)

	del := svc.DeleteItem(ctx, "t", "id", key,
		[]Condition{ArrayElementExists("Tags", primitive.NewString("production"))}, DoNotReturn)
	assert.True(t, del.IsSuccessful())

	svc.PutItem(ctx, "t", "id", key, map[string]any{"Tags": []any{"production", "db"}}, true, DoNotReturn)
	fail := svc.DeleteItem(ctx, "t", "id", key,
		[]Condition{ArrayElementNotExists("Tags", primitive.NewString("production"))}, DoNotReturn)
	assert.False(t, fail.IsSuccessful())
	assert.Equal(t, primitive.StatusPreconditionFailed, fail.StatusCode())
}

func TestIncrementAttributeLaw(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	key := primitive.NewString("counter")

	first := svc.IncrementAttribute(ctx, "t", "id", key, "count", 5, nil)
	require.True(t, first.IsSuccessful())
	second := svc.IncrementAttribute(ctx, "t", "id", key, "count", 3, nil)
	require.True(t, second.IsSuccessful())

	assert.Equal(t, float64(8), second.Value())
}

func TestAddThenRemoveElementsRestoresArray(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	key := primitive.NewString("arr")

	elems := []primitive.Value{primitive.NewString("e1"), primitive.NewString("e2")}
	add := svc.AddElementsToArray(ctx, "t", "id", key, "tags", elems, nil, ReturnNewValues)
	require.True(t, add.IsSuccessful())
	assert.Len(t, add.Value()["tags"], 2)

	rem := svc.RemoveElementsFromArray(ctx, "t", "id", key, "tags", elems, nil, ReturnNewValues)
	require.True(t, rem.IsSuccessful())
	assert.Len(t, rem.Value()["tags"], 0)
}

func TestAddElementsToArrayRejectsEmptyAndHeterogeneous(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	key := primitive.NewString("arr2")

	empty := svc.AddElementsToArray(ctx, "t", "id", key, "tags", nil, nil, DoNotReturn)
	assert.Equal(t, primitive.StatusBadRequest, empty.StatusCode())

	mixed := svc.AddElementsToArray(ctx, "t", "id", key, "tags",
		[]primitive.Value{primitive.NewString("a"), primitive.NewInteger(1)}, nil, DoNotReturn)
	assert.Equal(t, primitive.StatusBadRequest, mixed.StatusCode())
}

func TestScanTableWithFilterAndPagination(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		k := primitive.NewInteger(int64(i))
		svc.PutItem(ctx, "t", "id", k, map[string]any{"even": i%2 == 0}, true, DoNotReturn)
	}

	all := svc.ScanTable(ctx, "t", "id")
	assert.Len(t, all.Value(), 5)

	evens := svc.ScanTableWithFilter(ctx, "t", "id", []Condition{Eq("even", primitive.NewBoolean(true))})
	assert.Len(t, evens.Value(), 3)

	page1 := svc.ScanTablePaginated(ctx, "t", "id", nil, 2, "")
	require.True(t, page1.IsSuccessful())
	assert.Len(t, page1.Value().Items, 2)
	assert.NotEmpty(t, page1.Value().NextToken)

	page2 := svc.ScanTablePaginated(ctx, "t", "id", nil, 2, page1.Value().NextToken)
	assert.Len(t, page2.Value().Items, 2)

	page3 := svc.ScanTablePaginated(ctx, "t", "id", nil, 2, page2.Value().NextToken)
	assert.Len(t, page3.Value().Items, 1)
	assert.Empty(t, page3.Value().NextToken)
}

func TestPredicateMonotonicity(t *testing.T) {
	item := map[string]any{"a": "present"}

	// Adding Exists(a) never turns a success into a failure when a is present.
	assert.True(t, evaluate([]Condition{Exists("a")}, item))
	// Adding NotExists(a) never turns a failure into success when a is present.
	assert.False(t, evaluate([]Condition{NotExists("a")}, item))
}

func TestDropTableClearsIndex(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	svc.PutItem(ctx, "t", "id", primitive.NewString("x"), map[string]any{"a": 1.0}, true, DoNotReturn)

	drop := svc.DropTable(ctx, "t")
	require.True(t, drop.IsSuccessful())

	scan := svc.ScanTable(ctx, "t", "id")
	assert.Len(t, scan.Value(), 0)
}

func TestHealthRoundTrip(t *testing.T) {
	svc := newTestService(t)

	report := svc.Health(context.Background())
	assert.Equal(t, "healthy", report.Status.String())
}

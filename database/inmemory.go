package database

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"sync"

	"github.com/bkio/crosscloudkit/database/keyindex"
	"github.com/bkio/crosscloudkit/internal/logging"
	"github.com/bkio/crosscloudkit/memory"
	"github.com/bkio/crosscloudkit/primitive"
)

// InMemoryService is the reference Service implementation. A provider
// backend (DynamoDB, Datastore, Mongo, ...) would realize the same Service
// contract against its native conditional-write primitives.
type InMemoryService struct {
	logger logging.Logger
	index  *keyindex.Index

	mu     sync.Mutex
	tables map[string]map[string]map[string]any // table -> keyWire -> body (key attr stripped)

	opts Options
}

// New creates an InMemoryService. mem backs the table key index so
// ScanTable works even though the in-memory map itself could enumerate its
// own keys directly — wiring through the index keeps parity with backends
// that cannot.
func New(mem memory.Service, logger logging.Logger) *InMemoryService {
	return &InMemoryService{
		logger: logging.OrNop(logger),
		index:  keyindex.New(mem),
		tables: make(map[string]map[string]map[string]any),
	}
}

var _ Service = (*InMemoryService)(nil)

func (s *InMemoryService) SetOptions(opts Options) { s.opts = opts }
func (s *InMemoryService) Options() Options        { return s.opts }

// keyWire encodes a primitive.Value key into a stable map key, prefixed by
// kind so that, e.g., the integer 1 and the string "1" never collide.
func keyWire(v primitive.Value) string {
	return fmt.Sprintf("%d:%s", v.Kind(), v.String())
}

func (s *InMemoryService) getTableLocked(table string) map[string]map[string]any {
	t, ok := s.tables[table]
	if !ok {
		t = make(map[string]map[string]any)
		s.tables[table] = t
	}
	return t
}

func cloneItem(item map[string]any) map[string]any {
	if item == nil {
		return nil
	}
	cp := make(map[string]any, len(item))
	for k, v := range item {
		cp[k] = v
	}
	return cp
}

// present returns a copy of body with keyName re-injected, since every
// on-read result re-injects the key, plus the configured post-processing
// applied.
func (s *InMemoryService) present(body map[string]any, keyName string, keyValue primitive.Value) map[string]any {
	if body == nil {
		return nil
	}
	out := cloneItem(body)
	out[keyName] = keyPresentationValue(keyValue)
	s.postProcess(out)
	return out
}

func keyPresentationValue(v primitive.Value) any {
	switch v.Kind() {
	case primitive.KindInteger:
		i, _ := v.AsInteger()
		return i
	case primitive.KindDouble:
		f, _ := v.AsDouble()
		return f
	case primitive.KindBoolean:
		b, _ := v.AsBoolean()
		return b
	case primitive.KindBytes:
		return v.String()
	default:
		s, _ := v.AsString()
		return s
	}
}

func (s *InMemoryService) postProcess(item map[string]any) {
	for k, v := range item {
		item[k] = s.postProcessValue(v)
	}
}

func (s *InMemoryService) postProcessValue(v any) any {
	switch t := v.(type) {
	case []any:
		out := make([]any, len(t))
		for i, el := range t {
			out[i] = s.postProcessValue(el)
		}
		if s.opts.AutoSortArrays {
			sort.SliceStable(out, func(i, j int) bool {
				return primitive.FromJSONToken(out[i]).Compare(primitive.FromJSONToken(out[j])) < 0
			})
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, el := range t {
			out[k] = s.postProcessValue(el)
		}
		return out
	case float64:
		if s.opts.AutoConvertRoundableFloatToInt && t == math.Trunc(t) && !math.IsInf(t, 0) {
			return int64(t)
		}
		return t
	default:
		return v
	}
}

func (s *InMemoryService) ItemExists(_ context.Context, table, keyName string, keyValue primitive.Value, conditions []Condition) primitive.OperationResult[bool] {
	s.mu.Lock()
	defer s.mu.Unlock()
	body, ok := s.getTableLocked(table)[keyWire(keyValue)]
	if !ok {
		return primitive.Fail[bool](primitive.StatusNotFound, "item %s=%s not found in %s", keyName, keyValue.String(), table)
	}
	if !evaluate(conditions, body) {
		return primitive.Fail[bool](primitive.StatusPreconditionFailed, "conditions not satisfied for %s=%s", keyName, keyValue.String())
	}
	return primitive.Ok(true)
}

func (s *InMemoryService) GetItem(_ context.Context, table, keyName string, keyValue primitive.Value) primitive.OperationResult[map[string]any] {
	s.mu.Lock()
	defer s.mu.Unlock()
	body, ok := s.getTableLocked(table)[keyWire(keyValue)]
	if !ok {
		return primitive.Ok[map[string]any](nil)
	}
	return primitive.Ok(s.present(body, keyName, keyValue))
}

func (s *InMemoryService) GetItems(_ context.Context, table, keyName string, keyValues []primitive.Value) primitive.OperationResult[[]map[string]any] {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.getTableLocked(table)
	out := make([]map[string]any, 0, len(keyValues))
	for _, kv := range keyValues {
		if body, ok := t[keyWire(kv)]; ok {
			out = append(out, s.present(body, keyName, kv))
		}
	}
	return primitive.Ok(out)
}

func (s *InMemoryService) PutItem(ctx context.Context, table, keyName string, keyValue primitive.Value, item map[string]any, overwrite bool, ret ReturnPolicy) primitive.OperationResult[map[string]any] {
	s.mu.Lock()
	t := s.getTableLocked(table)
	wire := keyWire(keyValue)
	old, existed := t[wire]

	if existed && !overwrite {
		s.mu.Unlock()
		return primitive.Fail[map[string]any](primitive.StatusConflict, "item %s=%s already exists in %s", keyName, keyValue.String(), table)
	}

	body := cloneItem(item)
	delete(body, keyName)
	t[wire] = body
	s.mu.Unlock()

	if !existed {
		_ = s.index.PostInsertItem(ctx, table, wire)
	}

	return s.returnValue(ret, old, body, keyName, keyValue)
}

func (s *InMemoryService) UpdateItem(ctx context.Context, table, keyName string, keyValue primitive.Value, updateData map[string]any, conditions []Condition, ret ReturnPolicy) primitive.OperationResult[map[string]any] {
	s.mu.Lock()
	t := s.getTableLocked(table)
	wire := keyWire(keyValue)
	old, existed := t[wire]

	if !evaluate(conditions, old) {
		s.mu.Unlock()
		return primitive.Fail[map[string]any](primitive.StatusPreconditionFailed, "conditions not satisfied for %s=%s", keyName, keyValue.String())
	}

	merged := cloneItem(old)
	if merged == nil {
		merged = make(map[string]any)
	}
	for k, v := range updateData {
		merged[k] = v
	}
	delete(merged, keyName)
	t[wire] = merged
	s.mu.Unlock()

	if !existed {
		_ = s.index.PostInsertItem(ctx, table, wire)
	}

	return s.returnValue(ret, old, merged, keyName, keyValue)
}

func (s *InMemoryService) DeleteItem(ctx context.Context, table, keyName string, keyValue primitive.Value, conditions []Condition, ret ReturnPolicy) primitive.OperationResult[map[string]any] {
	s.mu.Lock()
	t := s.getTableLocked(table)
	wire := keyWire(keyValue)
	old, existed := t[wire]

	if !existed {
		s.mu.Unlock()
		return primitive.Ok[map[string]any](nil)
	}
	if !evaluate(conditions, old) {
		s.mu.Unlock()
		return primitive.Fail[map[string]any](primitive.StatusPreconditionFailed, "conditions not satisfied for %s=%s", keyName, keyValue.String())
	}
	delete(t, wire)
	s.mu.Unlock()

	_ = s.index.PostDeleteItem(ctx, table, wire)

	return s.returnValue(ret, old, nil, keyName, keyValue)
}

func sameKind(elements []primitive.Value) bool {
	if len(elements) == 0 {
		return true
	}
	kind := elements[0].Kind()
	for _, e := range elements[1:] {
		if e.Kind() != kind {
			return false
		}
	}
	return true
}

func (s *InMemoryService) AddElementsToArray(ctx context.Context, table, keyName string, keyValue primitive.Value, attributeName string, elements []primitive.Value, conditions []Condition, ret ReturnPolicy) primitive.OperationResult[map[string]any] {
	if len(elements) == 0 {
		return primitive.Fail[map[string]any](primitive.StatusBadRequest, "%v", ErrEmptyElements)
	}
	if !sameKind(elements) {
		return primitive.Fail[map[string]any](primitive.StatusBadRequest, "%v", ErrHeterogeneousKind)
	}

	s.mu.Lock()
	t := s.getTableLocked(table)
	wire := keyWire(keyValue)
	old, existed := t[wire]

	if !evaluate(conditions, old) {
		s.mu.Unlock()
		return primitive.Fail[map[string]any](primitive.StatusPreconditionFailed, "conditions not satisfied for %s=%s", keyName, keyValue.String())
	}

	merged := cloneItem(old)
	if merged == nil {
		merged = make(map[string]any)
	}
	var arr []any
	if existing, ok := merged[attributeName]; ok {
		if a, ok := existing.([]any); ok {
			arr = a
		}
	}
	for _, e := range elements {
		arr = append(arr, keyPresentationValue(e))
	}
	merged[attributeName] = arr
	delete(merged, keyName)
	t[wire] = merged
	s.mu.Unlock()

	if !existed {
		_ = s.index.PostInsertItem(ctx, table, wire)
	}
	return s.returnValue(ret, old, merged, keyName, keyValue)
}

func (s *InMemoryService) RemoveElementsFromArray(ctx context.Context, table, keyName string, keyValue primitive.Value, attributeName string, elements []primitive.Value, conditions []Condition, ret ReturnPolicy) primitive.OperationResult[map[string]any] {
	if len(elements) == 0 {
		return primitive.Fail[map[string]any](primitive.StatusBadRequest, "%v", ErrEmptyElements)
	}
	if !sameKind(elements) {
		return primitive.Fail[map[string]any](primitive.StatusBadRequest, "%v", ErrHeterogeneousKind)
	}

	s.mu.Lock()
	t := s.getTableLocked(table)
	wire := keyWire(keyValue)
	old, existed := t[wire]
	if !existed {
		s.mu.Unlock()
		return primitive.Ok[map[string]any](nil)
	}
	if !evaluate(conditions, old) {
		s.mu.Unlock()
		return primitive.Fail[map[string]any](primitive.StatusPreconditionFailed, "conditions not satisfied for %s=%s", keyName, keyValue.String())
	}

	merged := cloneItem(old)
	if existing, ok := merged[attributeName].([]any); ok {
		filtered := make([]any, 0, len(existing))
		for _, el := range existing {
			remove := false
			for _, target := range elements {
				if primitive.FromJSONToken(el).Equal(target) {
					remove = true
					break
				}
			}
			if !remove {
				filtered = append(filtered, el)
			}
		}
		merged[attributeName] = filtered
	}
	delete(merged, keyName)
	t[wire] = merged
	s.mu.Unlock()

	return s.returnValue(ret, old, merged, keyName, keyValue)
}

func (s *InMemoryService) IncrementAttribute(ctx context.Context, table, keyName string, keyValue primitive.Value, attributeName string, delta float64, conditions []Condition) primitive.OperationResult[float64] {
	s.mu.Lock()
	t := s.getTableLocked(table)
	wire := keyWire(keyValue)
	old, existed := t[wire]

	if !evaluate(conditions, old) {
		s.mu.Unlock()
		return primitive.Fail[float64](primitive.StatusPreconditionFailed, "conditions not satisfied for %s=%s", keyName, keyValue.String())
	}

	merged := cloneItem(old)
	if merged == nil {
		merged = make(map[string]any)
	}
	var current float64
	switch n := merged[attributeName].(type) {
	case float64:
		current = n
	case int64:
		current = float64(n)
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			current = f
		}
	}
	next := current + delta
	merged[attributeName] = next
	delete(merged, keyName)
	t[wire] = merged
	s.mu.Unlock()

	if !existed {
		_ = s.index.PostInsertItem(ctx, table, wire)
	}
	return primitive.Ok(next)
}

func (s *InMemoryService) returnValue(ret ReturnPolicy, old, next map[string]any, keyName string, keyValue primitive.Value) primitive.OperationResult[map[string]any] {
	switch ret {
	case ReturnOldValues:
		return primitive.Ok(s.present(old, keyName, keyValue))
	case ReturnNewValues:
		return primitive.Ok(s.present(next, keyName, keyValue))
	default:
		return primitive.Ok[map[string]any](nil)
	}
}

func (s *InMemoryService) ScanTable(ctx context.Context, table, keyName string) primitive.OperationResult[[]map[string]any] {
	return s.ScanTableWithFilter(ctx, table, keyName, nil)
}

func (s *InMemoryService) ScanTableWithFilter(ctx context.Context, table, keyName string, filter []Condition) primitive.OperationResult[[]map[string]any] {
	keys, err := s.index.Keys(ctx, table)
	if err != nil {
		return primitive.Fail[[]map[string]any](primitive.StatusInternalServerError, "scan %s: %v", table, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.getTableLocked(table)
	out := make([]map[string]any, 0, len(keys))
	for _, wire := range keys {
		body, ok := t[wire]
		if !ok || !evaluate(filter, body) {
			continue
		}
		kv := keyValueFromWire(wire)
		out = append(out, s.present(body, keyName, kv))
	}
	return primitive.Ok(out)
}

func (s *InMemoryService) ScanTablePaginated(ctx context.Context, table, keyName string, filter []Condition, pageSize int, pageToken string) primitive.OperationResult[Page] {
	full := s.ScanTableWithFilter(ctx, table, keyName, filter)
	if !full.IsSuccessful() {
		return primitive.FailFrom[Page](full.StatusCode(), full.ErrorMessage())
	}
	items := full.Value()
	total := len(items)

	offset := 0
	if pageToken != "" {
		if n, err := strconv.Atoi(pageToken); err == nil && n > 0 {
			offset = n
		}
	}
	if pageSize <= 0 {
		pageSize = total
	}
	if offset > total {
		offset = total
	}
	end := offset + pageSize
	if end > total {
		end = total
	}

	page := Page{Items: items[offset:end], TotalCount: &total}
	if end < total {
		page.NextToken = strconv.Itoa(end)
	}
	return primitive.Ok(page)
}

func (s *InMemoryService) DropTable(ctx context.Context, table string) primitive.OperationResult[bool] {
	s.mu.Lock()
	delete(s.tables, table)
	s.mu.Unlock()

	if err := s.index.PostDropTable(ctx, table); err != nil {
		return primitive.Fail[bool](primitive.StatusConflict, "drop table %s: %v", table, err)
	}
	return primitive.Ok(true)
}

// keyValueFromWire reverses keyWire for the subset of kinds ScanTable needs
// to re-inject; it is lossy for Bytes (rendered back as a string), which is
// acceptable since the index exists purely to drive enumeration, not to be
// the source of truth for the key's typed value (the item body's caller
// originally supplied that).
func keyValueFromWire(wire string) primitive.Value {
	var kind int
	var rest string
	n, err := fmt.Sscanf(wire, "%d:", &kind)
	if err != nil || n != 1 {
		return primitive.NewString(wire)
	}
	prefixLen := len(strconv.Itoa(kind)) + 1
	rest = wire[prefixLen:]
	switch primitive.Kind(kind) {
	case primitive.KindInteger:
		if i, err := strconv.ParseInt(rest, 10, 64); err == nil {
			return primitive.NewInteger(i)
		}
	case primitive.KindDouble:
		if f, err := strconv.ParseFloat(rest, 64); err == nil {
			return primitive.NewDouble(f)
		}
	case primitive.KindBoolean:
		return primitive.NewBoolean(rest == "true")
	}
	return primitive.NewString(rest)
}

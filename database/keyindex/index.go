// Package keyindex implements a small shared mixin that lets backends which
// cannot natively enumerate keys (file-based, key-value stores) still
// support ScanTable, by tracking observed keys per table as a side list
// inside the MemoryService, independent of the items it describes.
package keyindex

import (
	"context"
	"fmt"

	"github.com/bkio/crosscloudkit/memory"
	"github.com/bkio/crosscloudkit/primitive"
)

const systemScope = "CrossCloudKit.TableKeyIndex"

// Index persists, per table, the list of observed keys.
type Index struct {
	mem memory.Service
}

func New(mem memory.Service) *Index {
	return &Index{mem: mem}
}

func listName(table string) string {
	return fmt.Sprintf("keys_%s", table)
}

// PostInsertItem registers key in table's key index. Idempotent: a key
// already present is not duplicated.
func (idx *Index) PostInsertItem(ctx context.Context, table, keyWire string) error {
	r := idx.mem.PushToListTailIfValuesNotExists(ctx, memory.StringScope(systemScope), listName(table),
		[]primitive.Value{primitive.NewString(keyWire)}, false)
	return r.Err()
}

// PostDropTable clears table's key index entirely.
func (idx *Index) PostDropTable(ctx context.Context, table string) error {
	r := idx.mem.EmptyList(ctx, memory.StringScope(systemScope), listName(table), false)
	return r.Err()
}

// PostDeleteItem removes a single key from the index, e.g. after a
// successful DeleteItem — kept separate from PostDropTable so a single
// delete doesn't pay for a full-list rewrite scan.
func (idx *Index) PostDeleteItem(ctx context.Context, table, keyWire string) error {
	r := idx.mem.RemoveElementsFromList(ctx, memory.StringScope(systemScope), listName(table),
		[]primitive.Value{primitive.NewString(keyWire)}, false)
	return r.Err()
}

// Keys returns every key currently registered for table.
func (idx *Index) Keys(ctx context.Context, table string) ([]string, error) {
	r := idx.mem.GetAllElementsOfList(ctx, memory.StringScope(systemScope), listName(table))
	if !r.IsSuccessful() {
		return nil, r.Err()
	}
	out := make([]string, 0, len(r.Value()))
	for _, v := range r.Value() {
		out = append(out, v.String())
	}
	return out, nil
}

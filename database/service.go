// Package database implements the DatabaseService contract: a document
// store with conditional predicates, array ops, atomic increment, and
// paginated scan. The reference engine holds items in process and keeps
// its table key index in MemoryService rather than in a relational engine
// (see DESIGN.md for how the conditional-write state machine maps onto
// that storage model).
package database

import (
	"context"

	"github.com/bkio/crosscloudkit/primitive"
)

// Service is the DatabaseService contract. keyName/keyValue
// identify an item within table; the key attribute is never stored inside
// the serialized body and is always re-injected into results at keyName.
type Service interface {
	SetOptions(opts Options)
	Options() Options

	ItemExists(ctx context.Context, table, keyName string, keyValue primitive.Value, conditions []Condition) primitive.OperationResult[bool]
	GetItem(ctx context.Context, table, keyName string, keyValue primitive.Value) primitive.OperationResult[map[string]any]
	GetItems(ctx context.Context, table, keyName string, keyValues []primitive.Value) primitive.OperationResult[[]map[string]any]

	PutItem(ctx context.Context, table, keyName string, keyValue primitive.Value, item map[string]any, overwrite bool, ret ReturnPolicy) primitive.OperationResult[map[string]any]
	UpdateItem(ctx context.Context, table, keyName string, keyValue primitive.Value, updateData map[string]any, conditions []Condition, ret ReturnPolicy) primitive.OperationResult[map[string]any]
	DeleteItem(ctx context.Context, table, keyName string, keyValue primitive.Value, conditions []Condition, ret ReturnPolicy) primitive.OperationResult[map[string]any]

	AddElementsToArray(ctx context.Context, table, keyName string, keyValue primitive.Value, attributeName string, elements []primitive.Value, conditions []Condition, ret ReturnPolicy) primitive.OperationResult[map[string]any]
	RemoveElementsFromArray(ctx context.Context, table, keyName string, keyValue primitive.Value, attributeName string, elements []primitive.Value, conditions []Condition, ret ReturnPolicy) primitive.OperationResult[map[string]any]
	IncrementAttribute(ctx context.Context, table, keyName string, keyValue primitive.Value, attributeName string, delta float64, conditions []Condition) primitive.OperationResult[float64]

	ScanTable(ctx context.Context, table, keyName string) primitive.OperationResult[[]map[string]any]
	ScanTableWithFilter(ctx context.Context, table, keyName string, filter []Condition) primitive.OperationResult[[]map[string]any]
	ScanTablePaginated(ctx context.Context, table, keyName string, filter []Condition, pageSize int, pageToken string) primitive.OperationResult[Page]

	DropTable(ctx context.Context, table string) primitive.OperationResult[bool]
}

package database

import "github.com/bkio/crosscloudkit/primitive"

// ConditionType is the tagged-union discriminator for DbAttributeCondition:
// a sum type with three variants, evaluated by a single match function
// rather than a polymorphic class hierarchy.
type ConditionType int

const (
	ConditionExists ConditionType = iota
	ConditionNotExists
	ConditionEq
	ConditionNeq
	ConditionGt
	ConditionGe
	ConditionLt
	ConditionLe
	ConditionElemExists
	ConditionElemNotExists
)

// Condition is a single precondition predicate evaluated against an item's
// JSON before a write. Value is unused for
// the Existence variants.
type Condition struct {
	Type          ConditionType
	AttributeName string
	Value         primitive.Value
}

func Exists(attr string) Condition    { return Condition{Type: ConditionExists, AttributeName: attr} }
func NotExists(attr string) Condition { return Condition{Type: ConditionNotExists, AttributeName: attr} }

func Eq(attr string, v primitive.Value) Condition {
	return Condition{Type: ConditionEq, AttributeName: attr, Value: v}
}
func Neq(attr string, v primitive.Value) Condition {
	return Condition{Type: ConditionNeq, AttributeName: attr, Value: v}
}
func Gt(attr string, v primitive.Value) Condition {
	return Condition{Type: ConditionGt, AttributeName: attr, Value: v}
}
func Ge(attr string, v primitive.Value) Condition {
	return Condition{Type: ConditionGe, AttributeName: attr, Value: v}
}
func Lt(attr string, v primitive.Value) Condition {
	return Condition{Type: ConditionLt, AttributeName: attr, Value: v}
}
func Le(attr string, v primitive.Value) Condition {
	return Condition{Type: ConditionLe, AttributeName: attr, Value: v}
}

func ArrayElementExists(attr string, v primitive.Value) Condition {
	return Condition{Type: ConditionElemExists, AttributeName: attr, Value: v}
}
func ArrayElementNotExists(attr string, v primitive.Value) Condition {
	return Condition{Type: ConditionElemNotExists, AttributeName: attr, Value: v}
}

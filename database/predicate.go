package database

import "github.com/bkio/crosscloudkit/primitive"

// evaluate runs every condition against item (AND-combined). An item
// of nil is treated as fully absent: every Exists/Value/ArrayElement-Exists
// condition fails, every NotExists/ArrayElement-NotExists condition
// succeeds vacuously.
func evaluate(conditions []Condition, item map[string]any) bool {
	for _, c := range conditions {
		if !evaluateOne(c, item) {
			return false
		}
	}
	return true
}

func evaluateOne(c Condition, item map[string]any) bool {
	switch c.Type {
	case ConditionExists:
		_, ok := lookup(item, c.AttributeName)
		return ok
	case ConditionNotExists:
		_, ok := lookup(item, c.AttributeName)
		return !ok
	case ConditionEq, ConditionNeq, ConditionGt, ConditionGe, ConditionLt, ConditionLe:
		raw, ok := lookup(item, c.AttributeName)
		if !ok {
			// "If attribute is absent, all value comparisons fail."
			return false
		}
		actual := coerce(raw)
		cmp := actual.Compare(c.Value)
		switch c.Type {
		case ConditionEq:
			return cmp == 0
		case ConditionNeq:
			return cmp != 0
		case ConditionGt:
			return cmp > 0
		case ConditionGe:
			return cmp >= 0
		case ConditionLt:
			return cmp < 0
		case ConditionLe:
			return cmp <= 0
		}
		return false
	case ConditionElemExists, ConditionElemNotExists:
		raw, ok := lookup(item, c.AttributeName)
		arr, isArray := raw.([]any)
		if !ok || !isArray {
			// "If attribute absent or non-array, NotExists is vacuously
			// true and Exists is false."
			return c.Type == ConditionElemNotExists
		}
		found := false
		for _, el := range arr {
			if coerce(el).Equal(c.Value) {
				found = true
				break
			}
		}
		if c.Type == ConditionElemExists {
			return found
		}
		return !found
	default:
		return false
	}
}

func lookup(item map[string]any, attr string) (any, bool) {
	if item == nil {
		return nil, false
	}
	v, ok := item[attr]
	return v, ok
}

// coerce applies the attribute-coercion rules: string/number/bool by JSON
// token type, anything else stringifies.
func coerce(raw any) primitive.Value {
	return primitive.FromJSONToken(raw)
}

package eval

import (
	"encoding/json"
	"fmt"
	"math"
)

// toNative converts a runtime value into plain Go data for JSON
// encoding and library calls.
func toNative(obj Object) interface{} {
	switch v := obj.(type) {
	case *Null:
		return nil
	case *Boolean:
		return v.Value
	case *Integer:
		return v.Value
	case *Float:
		return v.Value
	case *String:
		return v.Value
	case *List:
		out := make([]interface{}, len(v.Elements))
		for i, el := range v.Elements {
			out[i] = toNative(el)
		}
		return out
	case *Map:
		out := make(map[string]interface{}, v.Len())
		for _, hk := range v.Order {
			pair := v.Pairs[hk]
			out[pair.Key.Inspect()] = toNative(pair.Value)
		}
		return out
	case *Set:
		values := v.Values()
		out := make([]interface{}, len(values))
		for i, el := range values {
			out[i] = toNative(el)
		}
		return out
	default:
		return obj.Inspect()
	}
}

// fromNative converts decoded JSON (or other Go data) into runtime
// values.
func fromNative(value interface{}) Object {
	switch v := value.(type) {
	case nil:
		return NULL
	case bool:
		return boolObject(v)
	case int:
		return &Integer{Value: int64(v)}
	case int64:
		return &Integer{Value: v}
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < 1e15 {
			return &Integer{Value: int64(v)}
		}
		return &Float{Value: v}
	case string:
		return &String{Value: v}
	case []interface{}:
		elements := make([]Object, len(v))
		for i, el := range v {
			elements[i] = fromNative(el)
		}
		return &List{Elements: elements}
	case map[string]interface{}:
		m := NewMap()
		for _, key := range orderedKeys(v) {
			m.Set(&String{Value: key}, fromNative(v[key]))
		}
		return m
	default:
		return &String{Value: fmt.Sprintf("%v", v)}
	}
}

// orderedKeys gives a stable key order for decoded JSON objects.
func orderedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j] < keys[j-1]; j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
	return keys
}

// jsonParse decodes text into runtime values.
func jsonParse(text string) (Object, error) {
	var decoded interface{}
	if err := json.Unmarshal([]byte(text), &decoded); err != nil {
		return nil, runtimeFault("Invalid JSON: %s", err.Error())
	}
	return fromNative(decoded), nil
}

// jsonString encodes a runtime value as pretty-printed JSON.
func jsonString(obj Object) (Object, error) {
	encoded, err := json.MarshalIndent(toNative(obj), "", "  ")
	if err != nil {
		return nil, runtimeFault("Cannot encode as JSON: %s", err.Error())
	}
	return &String{Value: string(encoded)}, nil
}

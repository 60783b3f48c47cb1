// Package schema converts generic nested type schemas into usable form
// defaults and merges user edits over them.
package schema

// A schema is a map from field name to a descriptor. A descriptor is either
// a map carrying a "type" tag (ROS 2 primitive names) or a nested schema for
// message types. Array descriptors carry the element type under "items".

// Defaults produces a value map with a zero value for every field described
// by the schema. Unknown type tags default to nil so the form layer can
// render a free-form input.
func Defaults(s map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(s))
	for name, descriptor := range s {
		out[name] = defaultFor(descriptor)
	}
	return out
}

func defaultFor(descriptor interface{}) interface{} {
	desc, ok := descriptor.(map[string]interface{})
	if !ok {
		return nil
	}

	typeTag, hasType := desc["type"].(string)
	if !hasType {
		// A descriptor without a type tag is a nested message schema
		return Defaults(desc)
	}

	switch typeTag {
	case "bool", "boolean":
		return false
	case "string", "wstring", "char":
		return ""
	case "int8", "int16", "int32", "int64", "uint8", "uint16", "uint32", "uint64", "byte":
		return int64(0)
	case "float32", "float64", "double", "float":
		return float64(0)
	case "array", "sequence":
		return []interface{}{}
	case "object", "message":
		if fields, ok := desc["fields"].(map[string]interface{}); ok {
			return Defaults(fields)
		}
		return map[string]interface{}{}
	default:
		return nil
	}
}

// DeepMerge overlays edits onto base, recursing into nested maps so that
// untouched sibling fields of a partially edited message keep their values.
// Neither input is mutated.
func DeepMerge(base, overlay map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		baseChild, baseIsMap := out[k].(map[string]interface{})
		overlayChild, overlayIsMap := v.(map[string]interface{})
		if baseIsMap && overlayIsMap {
			out[k] = DeepMerge(baseChild, overlayChild)
			continue
		}
		out[k] = v
	}
	return out
}

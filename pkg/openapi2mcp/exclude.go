package openapi2mcp

// removeAttribute deletes the dot path from decoded JSON in place. Arrays
// met along the way apply the remaining path to each element.
func removeAttribute(v any, path []string) {
	if len(path) == 0 {
		return
	}
	switch node := v.(type) {
	case map[string]any:
		if len(path) == 1 {
			delete(node, path[0])
			return
		}
		if child, ok := node[path[0]]; ok {
			removeAttribute(child, path[1:])
		}
	case []any:
		for _, item := range node {
			removeAttribute(item, path)
		}
	}
}

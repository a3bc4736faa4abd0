package loader

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/go-openapi/jsonpointer"
	"gopkg.in/yaml.v3"

	"github.com/ubermorgenland/swagger-mcp/pkg/apperrors"
)

// rawDocument is the decoded spec before it is handed to kin-openapi. The
// generic tree is used for $ref checks and Swagger fields, the node keeps
// the author's key order.
type rawDocument struct {
	root  map[string]any
	order docOrder
}

type docOrder struct {
	paths   []string
	methods map[string][]string
}

func decodeDocument(data []byte) (*rawDocument, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("not parseable as JSON or YAML: %w", err)
	}
	if len(node.Content) == 0 {
		return nil, fmt.Errorf("document is empty")
	}

	var raw any
	if err := node.Decode(&raw); err != nil {
		return nil, fmt.Errorf("not parseable as JSON or YAML: %w", err)
	}
	root, ok := normalize(raw).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("document root must be a mapping, got %T", raw)
	}
	return &rawDocument{root: root, order: readOrder(node.Content[0])}, nil
}

// normalize converts YAML mappings with non-string keys (e.g. unquoted
// response codes) to map[string]any so the tree can be JSON encoded.
func normalize(v any) any {
	switch n := v.(type) {
	case map[string]any:
		for k, item := range n {
			n[k] = normalize(item)
		}
		return n
	case map[any]any:
		out := make(map[string]any, len(n))
		for k, item := range n {
			out[fmt.Sprint(k)] = normalize(item)
		}
		return out
	case []any:
		for i, item := range n {
			n[i] = normalize(item)
		}
		return n
	}
	return v
}

func readOrder(root *yaml.Node) docOrder {
	order := docOrder{methods: map[string][]string{}}
	paths := mappingValue(root, "paths")
	if paths == nil {
		return order
	}
	for i := 0; i+1 < len(paths.Content); i += 2 {
		path := paths.Content[i].Value
		order.paths = append(order.paths, path)
		item := resolveAlias(paths.Content[i+1])
		if item.Kind != yaml.MappingNode {
			continue
		}
		for j := 0; j+1 < len(item.Content); j += 2 {
			order.methods[path] = append(order.methods[path], item.Content[j].Value)
		}
	}
	return order
}

func mappingValue(n *yaml.Node, key string) *yaml.Node {
	n = resolveAlias(n)
	if n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			v := resolveAlias(n.Content[i+1])
			if v.Kind == yaml.MappingNode {
				return v
			}
			return nil
		}
	}
	return nil
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

// checkRefs verifies every $ref in the document points at an existing node
// of the same document and that no chain of references loops without
// reaching content. Recursion through schema properties is fine.
func checkRefs(root map[string]any) error {
	return walkRefs(root, func(ref string) error {
		return followRef(root, ref)
	})
}

func walkRefs(node any, fn func(string) error) error {
	switch n := node.(type) {
	case map[string]any:
		if ref, ok := n["$ref"].(string); ok {
			if err := fn(ref); err != nil {
				return err
			}
		}
		keys := make([]string, 0, len(n))
		for k := range n {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := walkRefs(n[k], fn); err != nil {
				return err
			}
		}
	case []any:
		for _, item := range n {
			if err := walkRefs(item, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

func followRef(root map[string]any, ref string) error {
	seen := map[string]bool{}
	for {
		if !strings.HasPrefix(ref, "#") {
			return apperrors.Schema(ref, "external references are not supported")
		}
		if seen[ref] {
			return apperrors.Schema(ref, "reference cycle does not resolve to a definition")
		}
		seen[ref] = true

		target, err := lookupPointer(root, ref)
		if err != nil {
			return apperrors.Schema(ref, "unresolved reference")
		}
		m, ok := target.(map[string]any)
		if !ok {
			return nil
		}
		next, ok := m["$ref"].(string)
		if !ok {
			return nil
		}
		ref = next
	}
}

func lookupPointer(root map[string]any, ref string) (any, error) {
	frag := strings.TrimPrefix(ref, "#")
	if frag == "" {
		return root, nil
	}
	if unescaped, err := url.PathUnescape(frag); err == nil {
		frag = unescaped
	}
	p, err := jsonpointer.New(frag)
	if err != nil {
		return nil, err
	}
	v, _, err := p.Get(root)
	return v, err
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

package manifest

import (
	"bytes"
	"errors"
	"io"
	"strings"

	"github.com/artpar/tfydeploy/internal/core/plan"
	"gopkg.in/yaml.v3"
)

// header holds the fields every TrueFoundry manifest carries.
type header struct {
	Type string `yaml:"type"`
	Name string `yaml:"name"`
}

// Inspect parses every YAML document in content and returns the type and
// name each one declares.
//
// Empty documents (a lone "---", comments only) are ignored. A document that
// is not a mapping, or that does not parse, yields a *ParseError.
//
// Example:
//
//	res, err := manifest.Inspect([]byte("type: ml-repo\nname: snl-ml-repo\n"))
//	// res: [{ml-repo snl-ml-repo}]
func Inspect(content []byte) ([]plan.Resource, error) {
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, ErrEmptyManifest
	}

	dec := yaml.NewDecoder(bytes.NewReader(content))
	var resources []plan.Resource
	for doc := 0; ; doc++ {
		var node yaml.Node
		err := dec.Decode(&node)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, NewParseError(doc, strings.TrimPrefix(err.Error(), "yaml: "), ErrInvalidYAML)
		}

		if isEmpty(&node) {
			continue
		}
		body := node.Content[0]
		if body.Kind != yaml.MappingNode {
			return nil, NewParseError(doc, "expected a mapping at top level", ErrNotMapping)
		}

		var h header
		if err := body.Decode(&h); err != nil {
			return nil, NewParseError(doc, err.Error(), ErrInvalidYAML)
		}
		resources = append(resources, plan.Resource{Type: h.Type, Name: h.Name})
	}

	if len(resources) == 0 {
		return nil, ErrEmptyManifest
	}
	return resources, nil
}

func isEmpty(n *yaml.Node) bool {
	if n.Kind != yaml.DocumentNode || len(n.Content) == 0 {
		return true
	}
	body := n.Content[0]
	return body.Kind == yaml.ScalarNode && body.ShortTag() == "!!null"
}

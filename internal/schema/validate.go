package schema

import (
	"fmt"

	"github.com/beevik/etree"
)

// ValidationError reports a structural schema violation. Element is the
// offending element's local name; Path locates it from the document root.
type ValidationError struct {
	Element string
	Path    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("schema validation failed at %s: element %q %s", e.Path, e.Element, e.Message)
}

// Validate checks a parsed document against the schema. The first
// violation found is returned; nil means the document conforms.
func (s *Schema) Validate(doc *etree.Document) error {
	root := doc.Root()
	if root == nil {
		return &ValidationError{Element: s.root.Name, Path: "/", Message: "is missing (document has no root element)"}
	}
	if root.Tag != s.root.Name {
		return &ValidationError{
			Element: root.Tag,
			Path:    "/" + root.Tag,
			Message: fmt.Sprintf("is not the expected root element %q", s.root.Name),
		}
	}
	if s.root.Namespace != "" && root.NamespaceURI() != s.root.Namespace {
		return &ValidationError{
			Element: root.Tag,
			Path:    "/" + root.Tag,
			Message: fmt.Sprintf("has namespace %q, expected %q", root.NamespaceURI(), s.root.Namespace),
		}
	}
	return validateElement(s.root, root, "/"+root.Tag)
}

func validateElement(def *Element, elem *etree.Element, path string) error {
	if def.Any {
		return nil
	}

	defs := make(map[string]*Element, len(def.Children))
	for _, child := range def.Children {
		defs[child.Name] = child
	}

	// Count occurrences and reject elements the schema does not declare.
	counts := make(map[string]int)
	for _, child := range elem.ChildElements() {
		childDef, ok := defs[child.Tag]
		if !ok {
			return &ValidationError{
				Element: child.Tag,
				Path:    path + "/" + child.Tag,
				Message: "is not allowed here",
			}
		}
		counts[child.Tag]++
		if counts[child.Tag] > 1 && !childDef.Repeated {
			return &ValidationError{
				Element: child.Tag,
				Path:    path + "/" + child.Tag,
				Message: "appears more than once",
			}
		}
	}

	// Presence checks: required elements and choice groups.
	seenChoice := make(map[string]string)
	for _, childDef := range def.Children {
		n := counts[childDef.Name]

		if childDef.Choice != "" {
			if n > 0 {
				if prev, ok := seenChoice[childDef.Choice]; ok {
					return &ValidationError{
						Element: childDef.Name,
						Path:    path + "/" + childDef.Name,
						Message: fmt.Sprintf("conflicts with %q (mutually exclusive alternatives)", prev),
					}
				}
				seenChoice[childDef.Choice] = childDef.Name
			}
			continue
		}

		if n == 0 && !childDef.Optional {
			return &ValidationError{
				Element: childDef.Name,
				Path:    path + "/" + childDef.Name,
				Message: "is required but missing",
			}
		}
	}
	for _, childDef := range def.Children {
		if childDef.Choice != "" && seenChoice[childDef.Choice] == "" {
			return &ValidationError{
				Element: childDef.Name,
				Path:    path,
				Message: fmt.Sprintf("group %q requires exactly one alternative", childDef.Choice),
			}
		}
	}

	// Recurse.
	for _, child := range elem.ChildElements() {
		childDef := defs[child.Tag]
		if err := validateElement(childDef, child, path+"/"+child.Tag); err != nil {
			return err
		}
	}
	return nil
}

package xml

import (
	"fmt"

	"github.com/beevik/etree"
)

// Family identifies a supported document family by its root element.
type Family string

const (
	// FamilyDTE is a primary tax document.
	FamilyDTE Family = "DTE"
	// FamilyAEC is an assignment envelope.
	FamilyAEC Family = "AEC"
	// FamilyUnknown is anything else.
	FamilyUnknown Family = "unknown"
)

// DetectFamily identifies the document family from the root element and
// namespace.
func DetectFamily(doc *etree.Document) Family {
	root := doc.Root()
	if root == nil || root.NamespaceURI() != SiiNamespace {
		return FamilyUnknown
	}
	switch root.Tag {
	case "DTE":
		return FamilyDTE
	case "AEC":
		return FamilyAEC
	default:
		return FamilyUnknown
	}
}

// UnknownFamilyError indicates a document whose root element matches no
// supported family.
type UnknownFamilyError struct {
	RootTag   string
	Namespace string
}

func (e *UnknownFamilyError) Error() string {
	return fmt.Sprintf("unknown document family: root element %q in namespace %q", e.RootTag, e.Namespace)
}

// NewUnknownFamilyError builds an UnknownFamilyError from a document.
func NewUnknownFamilyError(doc *etree.Document) *UnknownFamilyError {
	root := doc.Root()
	if root == nil {
		return &UnknownFamilyError{}
	}
	return &UnknownFamilyError{RootTag: root.Tag, Namespace: root.NamespaceURI()}
}

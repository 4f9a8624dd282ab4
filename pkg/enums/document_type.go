package enums

import (
	"fmt"
	"strings"
)

// DocumentType is the payer identification document accepted by PSE.
type DocumentType string

const (
	DocumentTypeCC  DocumentType = "CC"
	DocumentTypeCE  DocumentType = "CE"
	DocumentTypeNIT DocumentType = "NIT"
	DocumentTypePP  DocumentType = "PP"
	DocumentTypeTI  DocumentType = "TI"
)

var validDocumentTypes = []DocumentType{
	DocumentTypeCC,
	DocumentTypeCE,
	DocumentTypeNIT,
	DocumentTypePP,
	DocumentTypeTI,
}

// String implements fmt.Stringer.
func (d DocumentType) String() string {
	return string(d)
}

// IsValid reports whether the document type is recognized.
func (d DocumentType) IsValid() bool {
	for _, candidate := range validDocumentTypes {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDocumentType converts raw input into a DocumentType.
func ParseDocumentType(value string) (DocumentType, error) {
	normalized := DocumentType(strings.ToUpper(strings.TrimSpace(value)))
	for _, candidate := range validDocumentTypes {
		if candidate == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid document type %q", value)
}

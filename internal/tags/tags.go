package tags

import "strings"

// Kind describes how a tag is modelled in a decoded record.
type Kind int

const (
	// KindScalar is a single data-bearing tag.
	KindScalar Kind = iota
	// KindArray is a tag that is always collected into a list.
	KindArray
	// KindFlag is a bare tag whose presence means true.
	KindFlag
)

func (k Kind) String() string {
	switch k {
	case KindArray:
		return "array"
	case KindFlag:
		return "flag"
	default:
		return "scalar"
	}
}

// Class is the classification of one tag name. Whether an occurrence is
// nested (hierarchical) is decided by the decoder's lookahead, not here.
type Class struct {
	Name string
	Kind Kind
	// Role is set for the entity role tags (FILER, ISSUER, ...).
	Role bool
	// Root is set for the two hierarchical tags allowed to carry inline data.
	Root bool
}

// Entity role tag names, in the order they are rendered in a header built
// without a decoded ordering. Beneficial-ownership forms list the subject
// company before the filer.
var Roles = []string{
	"FILER",
	"SUBJECT-COMPANY",
	"FILED-BY",
	"REPORTING-OWNER",
	"ISSUER",
	"DEPOSITOR",
	"SECURITIZER",
	"ISSUING-ENTITY",
	"UNDERWRITER",
	"SERIAL-COMPANY",
}

var arrayTags = []string{
	"DOCUMENT",
	"SERIES",
	"NEW-SERIES",
	"CLASS-CONTRACT",
	"ITEMS",
	"GROUP-MEMBERS",
	"FORMER-COMPANY",
	"FORMER-NAME",
	"MERGER",
	"TARGET-DATA",
}

var flagTags = []string{
	"CORRECTION",
	"DELETION",
	"PRIVATE-TO-PUBLIC",
}

var rootTags = []string{
	"SEC-DOCUMENT",
	"SEC-HEADER",
}

var table = buildTable()

func buildTable() map[string]Class {
	out := make(map[string]Class, len(Roles)+len(arrayTags)+len(flagTags)+len(rootTags))
	for _, name := range Roles {
		out[name] = Class{Name: name, Kind: KindArray, Role: true}
	}
	for _, name := range arrayTags {
		out[name] = Class{Name: name, Kind: KindArray}
	}
	for _, name := range flagTags {
		out[name] = Class{Name: name, Kind: KindFlag}
	}
	for _, name := range rootTags {
		out[name] = Class{Name: name, Kind: KindScalar, Root: true}
	}
	return out
}

// Classify returns the classification for a tag name. Names are matched
// case-insensitively; unknown names are scalars.
func Classify(name string) Class {
	key := strings.ToUpper(strings.TrimSpace(name))
	if class, ok := table[key]; ok {
		return class
	}
	return Class{Name: key, Kind: KindScalar}
}

// IsArrayTag reports whether name is always modelled as a list.
func IsArrayTag(name string) bool {
	return Classify(name).Kind == KindArray
}

// IsFlagTag reports whether a bare name denotes a boolean flag.
func IsFlagTag(name string) bool {
	return Classify(name).Kind == KindFlag
}

// IsRoleTag reports whether name is one of the entity role tags.
func IsRoleTag(name string) bool {
	return Classify(name).Role
}

// IsRootTag reports whether name is a hierarchical tag that may carry
// inline data.
func IsRootTag(name string) bool {
	return Classify(name).Root
}

// KeyFor converts a tag name into its record key (ACCESSION-NUMBER becomes
// accession_number).
func KeyFor(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
}

// NameFor converts a record key back into its tag name.
func NameFor(key string) string {
	return strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(key)), "_", "-")
}

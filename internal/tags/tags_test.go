package tags_test

import (
	"testing"

	"edgarfeed/internal/tags"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		kind tags.Kind
		role bool
	}{
		{"FILER", tags.KindArray, true},
		{"reporting-owner", tags.KindArray, true},
		{"DOCUMENT", tags.KindArray, false},
		{"CLASS-CONTRACT", tags.KindArray, false},
		{"ITEMS", tags.KindArray, false},
		{"CORRECTION", tags.KindFlag, false},
		{"PRIVATE-TO-PUBLIC", tags.KindFlag, false},
		{"ACCESSION-NUMBER", tags.KindScalar, false},
		{"COMPANY-DATA", tags.KindScalar, false},
	}
	for _, tc := range cases {
		class := tags.Classify(tc.name)
		if class.Kind != tc.kind {
			t.Fatalf("%s: expected kind %s, got %s", tc.name, tc.kind, class.Kind)
		}
		if class.Role != tc.role {
			t.Fatalf("%s: expected role=%v", tc.name, tc.role)
		}
	}
}

func TestRolesAreArrays(t *testing.T) {
	if len(tags.Roles) != 10 {
		t.Fatalf("expected 10 entity roles, got %d", len(tags.Roles))
	}
	for _, role := range tags.Roles {
		if !tags.IsArrayTag(role) || !tags.IsRoleTag(role) {
			t.Fatalf("role %s must be an array role tag", role)
		}
	}
}

func TestFlagTags(t *testing.T) {
	for _, name := range []string{"DELETION", "CORRECTION"} {
		if !tags.IsFlagTag(name) {
			t.Fatalf("expected %s to be a flag", name)
		}
	}
	if tags.IsFlagTag("FILER") {
		t.Fatal("FILER must not be a flag")
	}
}

func TestRootTags(t *testing.T) {
	if !tags.IsRootTag("SEC-HEADER") || !tags.IsRootTag("sec-document") {
		t.Fatal("expected SEC-HEADER and SEC-DOCUMENT to be root tags")
	}
	if tags.IsRootTag("SUBMISSION") {
		t.Fatal("SUBMISSION must not carry inline data")
	}
}

func TestKeyMappingIsReversible(t *testing.T) {
	for _, name := range []string{"ACCESSION-NUMBER", "DATE-OF-FILING-DATE-CHANGE", "CIK", "SERIES-AND-CLASSES-CONTRACTS-DATA"} {
		key := tags.KeyFor(name)
		if got := tags.NameFor(key); got != name {
			t.Fatalf("round trip %s -> %s -> %s", name, key, got)
		}
	}
	if tags.KeyFor("ACCESSION-NUMBER") != "accession_number" {
		t.Fatalf("unexpected key %q", tags.KeyFor("ACCESSION-NUMBER"))
	}
}

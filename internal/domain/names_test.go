package domain

import "testing"

func TestValidName(t *testing.T) {
	valid := []string{"demo", "My-Repo", "a1", "Zz-9"}
	for _, n := range valid {
		if !ValidName(n) {
			t.Fatalf("expected %q to be valid", n)
		}
	}
	invalid := []string{"", "a", "1abc", "-abc", "has space", "dot.name", "x" + repeat("y", 64)}
	for _, n := range invalid {
		if ValidName(n) {
			t.Fatalf("expected %q to be invalid", n)
		}
	}
}

func repeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}

func TestParseID(t *testing.T) {
	if _, derr := ParseID("not-a-uuid"); derr == nil {
		t.Fatalf("expected invalid uuid error")
	} else if derr.Code != CodeInvalidUUID {
		t.Fatalf("want CodeInvalidUUID, got %s", derr.Code)
	}
	if id, derr := ParseID("4f1c6c3e-33a5-44a2-9d0f-0a2f2b4e9d11"); derr != nil || id.String() != "4f1c6c3e-33a5-44a2-9d0f-0a2f2b4e9d11" {
		t.Fatalf("parse round trip failed: %v %v", id, derr)
	}
}

func TestErrorShape(t *testing.T) {
	e := NewError(KindConflict, CodeDuplicateCorrelation)
	if e.HTTPStatus() != 400 {
		t.Fatalf("conflict should map to 400, got %d", e.HTTPStatus())
	}
	if e.Message() == "" || e.Message() == string(CodeDuplicateCorrelation) {
		t.Fatalf("expected catalog message, got %q", e.Message())
	}
	dep := WrapDependency(CodeStateStoreUnavailable, e)
	if dep.HTTPStatus() != 500 {
		t.Fatalf("dependency failure should map to 500")
	}
}

func TestMetadataDerive(t *testing.T) {
	md := NewMetadata("c-1")
	child := md.Derive("branch/b1")
	if child.CorrelationID != "c-1/branch/b1" {
		t.Fatalf("unexpected derived correlation: %s", child.CorrelationID)
	}
	if md.CorrelationID != "c-1" {
		t.Fatalf("parent metadata mutated")
	}
	if err := (EventMetadata{}).Validate(); err == nil {
		t.Fatalf("empty correlation id should be rejected")
	}
}

package model

import (
	"errors"
	"testing"
)

func TestRegistryLookup(t *testing.T) {
	core := NewMemory("core")
	r := NewRegistry(core)

	got, err := r.Lookup("core")
	if err != nil {
		t.Fatalf("Lookup(core) error: %v", err)
	}
	if got != core {
		t.Errorf("Lookup(core) returned a different model")
	}

	if _, err := r.Lookup("missing"); !errors.Is(err, ErrUnknownModel) {
		t.Errorf("Lookup(missing) error = %v, want ErrUnknownModel", err)
	}
}

func TestRegistryRegisterAndList(t *testing.T) {
	r := NewRegistry()
	r.Register(NewMemory("b"))
	r.RegisterFile(NewMemory("a"), "/models/a.yaml")

	ids := r.ListModels()
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Errorf("ListModels() = %v, want [a b]", ids)
	}

	path, ok := r.FileFor("a")
	if !ok || path != "/models/a.yaml" {
		t.Errorf("FileFor(a) = %q, %v", path, ok)
	}
	if _, ok := r.FileFor("b"); ok {
		t.Errorf("FileFor(b) should be unknown")
	}

	r.Unregister("a")
	r.Unregister("never-registered")
	if _, err := r.Lookup("a"); !errors.Is(err, ErrUnknownModel) {
		t.Errorf("Lookup after Unregister error = %v", err)
	}
}

func TestGlobalRegistry(t *testing.T) {
	ResetGlobal()
	defer ResetGlobal()

	r := NewRegistry(NewMemory("core"))
	InitGlobal(r)

	if Global() != r {
		t.Fatal("Global() did not return the installed registry")
	}
	InitGlobal(NewRegistry())
	if Global() != r {
		t.Error("second InitGlobal must not replace the registry")
	}
}

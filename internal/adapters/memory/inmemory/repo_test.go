package inmemory

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/Overland-East-Bay/user-accounts-api/internal/domain"
)

type stubProps struct {
	Name  string `json:"name"`
	Price int    `json:"price"`
}

type stubEntity struct {
	domain.Entity[stubProps]
}

func newStub(name string, price int) stubEntity {
	return stubEntity{Entity: domain.NewEntity(stubProps{Name: name, Price: price}, "")}
}

func TestRepo_InsertAndFindByID(t *testing.T) {
	t.Parallel()

	r := NewRepo[stubEntity](nil)
	e := newStub("test name", 5)
	if err := r.Insert(context.Background(), e); err != nil {
		t.Fatalf("Insert() err=%v", err)
	}

	got, err := r.FindByID(context.Background(), e.ID())
	if err != nil {
		t.Fatalf("FindByID() err=%v", err)
	}
	if !reflect.DeepEqual(got.ToJSON(), e.ToJSON()) {
		t.Fatalf("FindByID()=%v, want %v", got.ToJSON(), e.ToJSON())
	}
}

func TestRepo_FindByID_NotFound(t *testing.T) {
	t.Parallel()

	r := NewRepo[stubEntity](nil)
	_, err := r.FindByID(context.Background(), "fake-id")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("FindByID() err=%v, want not found", err)
	}
	if err.Error() != "Entity not found using ID fake-id" {
		t.Fatalf("FindByID() message=%q", err.Error())
	}
}

func TestRepo_CustomNotFound(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("custom")
	r := NewRepo[stubEntity](func(string) error { return sentinel })
	if _, err := r.FindByID(context.Background(), "x"); err != sentinel {
		t.Fatalf("FindByID() err=%v, want %v", err, sentinel)
	}
}

func TestRepo_InsertIf(t *testing.T) {
	t.Parallel()

	errTaken := errors.New("name taken")
	uniqueName := func(e stubEntity) func([]stubEntity) error {
		return func(stored []stubEntity) error {
			for _, s := range stored {
				if s.Props().Name == e.Props().Name {
					return errTaken
				}
			}
			return nil
		}
	}

	r := NewRepo[stubEntity](nil)
	a := newStub("a", 1)
	if err := r.InsertIf(context.Background(), a, uniqueName(a)); err != nil {
		t.Fatalf("InsertIf() err=%v", err)
	}
	dup := newStub("a", 2)
	if err := r.InsertIf(context.Background(), dup, uniqueName(dup)); !errors.Is(err, errTaken) {
		t.Fatalf("InsertIf(dup) err=%v, want %v", err, errTaken)
	}
	if err := r.InsertIf(context.Background(), newStub("b", 3), nil); err != nil {
		t.Fatalf("InsertIf(nil guard) err=%v", err)
	}
	if r.Len() != 2 {
		t.Fatalf("Len()=%d, want 2", r.Len())
	}
}

func TestRepo_FindAll_InsertionOrder(t *testing.T) {
	t.Parallel()

	r := NewRepo[stubEntity](nil)
	a, b, c := newStub("a", 1), newStub("b", 2), newStub("c", 3)
	for _, e := range []stubEntity{a, b, c} {
		if err := r.Insert(context.Background(), e); err != nil {
			t.Fatalf("Insert() err=%v", err)
		}
	}

	got, err := r.FindAll(context.Background())
	if err != nil {
		t.Fatalf("FindAll() err=%v", err)
	}
	if len(got) != 3 || got[0].ID() != a.ID() || got[1].ID() != b.ID() || got[2].ID() != c.ID() {
		t.Fatalf("FindAll() order mismatch: %v", got)
	}

	// The returned slice is a copy.
	got[0] = c
	again, _ := r.FindAll(context.Background())
	if again[0].ID() != a.ID() {
		t.Fatalf("FindAll() exposed internal storage")
	}
}

func TestRepo_Update(t *testing.T) {
	t.Parallel()

	r := NewRepo[stubEntity](nil)
	a, b := newStub("a", 1), newStub("b", 2)
	_ = r.Insert(context.Background(), a)
	_ = r.Insert(context.Background(), b)

	updated := stubEntity{Entity: domain.NewEntity(stubProps{Name: "a2", Price: 10}, a.ID())}
	if err := r.Update(context.Background(), updated); err != nil {
		t.Fatalf("Update() err=%v", err)
	}

	all, _ := r.FindAll(context.Background())
	if all[0].ID() != a.ID() || all[0].Props().Name != "a2" {
		t.Fatalf("Update() did not replace in place: %v", all[0].ToJSON())
	}
	if all[1].ID() != b.ID() {
		t.Fatalf("Update() changed order")
	}
}

func TestRepo_Update_NotFound(t *testing.T) {
	t.Parallel()

	r := NewRepo[stubEntity](nil)
	if err := r.Update(context.Background(), newStub("a", 1)); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Update() err=%v, want not found", err)
	}
}

func TestRepo_Delete(t *testing.T) {
	t.Parallel()

	r := NewRepo[stubEntity](nil)
	a, b, c := newStub("a", 1), newStub("b", 2), newStub("c", 3)
	for _, e := range []stubEntity{a, b, c} {
		_ = r.Insert(context.Background(), e)
	}

	if err := r.Delete(context.Background(), b.ID()); err != nil {
		t.Fatalf("Delete() err=%v", err)
	}
	all, _ := r.FindAll(context.Background())
	if len(all) != 2 || all[0].ID() != a.ID() || all[1].ID() != c.ID() {
		t.Fatalf("Delete() left %v", all)
	}
	if r.Len() != 2 {
		t.Fatalf("Len()=%d, want 2", r.Len())
	}
	if err := r.Delete(context.Background(), b.ID()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Delete() twice err=%v, want not found", err)
	}
}

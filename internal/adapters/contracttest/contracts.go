package contracttest

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/Overland-East-Bay/user-accounts-api/internal/domain"
	idempotencyport "github.com/Overland-East-Bay/user-accounts-api/internal/ports/out/idempotency"
	"github.com/Overland-East-Bay/user-accounts-api/internal/ports/out/searchable"
	userrepoport "github.com/Overland-East-Bay/user-accounts-api/internal/ports/out/userrepo"
)

type CleanupFunc = func()

// UserRepoFactory must return an empty repository on every call.
type UserRepoFactory func(t *testing.T) (userrepoport.Repository, CleanupFunc)
type IdemStoreFactory func(t *testing.T) (idempotencyport.Store, CleanupFunc)

func RunIdempotencyStore(t *testing.T, newStore IdemStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	fp := idempotencyport.Fingerprint{
		Key:      "k-1",
		Subject:  idempotencyport.AnonymousSubject,
		Method:   "POST",
		Route:    "/users",
		BodyHash: "",
	}
	rec := idempotencyport.Record{
		StatusCode:  0,
		ContentType: "text/plain",
		Body:        []byte("hash-abc"),
		CreatedAt:   time.Unix(123, 0).UTC(),
	}

	if _, ok, err := store.Get(ctx, fp); err != nil || ok {
		t.Fatalf("Get before Put: ok=%v err=%v", ok, err)
	}
	if err := store.Put(ctx, fp, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Get(ctx, fp)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if string(got.Body) != "hash-abc" || got.ContentType != "text/plain" || got.StatusCode != 0 {
		t.Fatalf("unexpected record: %+v", got)
	}

	// Overwrite semantics.
	rec2 := rec
	rec2.Body = []byte("hash-def")
	if err := store.Put(ctx, fp, rec2); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, ok, err = store.Get(ctx, fp)
	if err != nil || !ok || string(got.Body) != "hash-def" {
		t.Fatalf("expected overwritten record, got ok=%v err=%v body=%q", ok, err, string(got.Body))
	}

	// A different body hash is a different fingerprint.
	other := fp
	other.BodyHash = "other"
	if _, ok, err := store.Get(ctx, other); err != nil || ok {
		t.Fatalf("Get other fingerprint: ok=%v err=%v", ok, err)
	}
}

// RunUserRepo checks the CRUD and search contract. The in-memory repository is the
// reference; every backend must produce identical results.
func RunUserRepo(t *testing.T, newRepo UserRepoFactory) {
	t.Helper()

	fresh := func(t *testing.T) userrepoport.Repository {
		t.Helper()
		repo, cleanup := newRepo(t)
		if cleanup != nil {
			t.Cleanup(cleanup)
		}
		return repo
	}

	t.Run("InsertAndFindByID", func(t *testing.T) {
		ctx := context.Background()
		repo := fresh(t)
		u := mustUser(t, "Alice", "alice@example.com", base)

		if err := repo.Insert(ctx, u); err != nil {
			t.Fatalf("Insert: %v", err)
		}
		got, err := repo.FindByID(ctx, u.ID())
		if err != nil {
			t.Fatalf("FindByID: %v", err)
		}
		requireSameUser(t, got, u)
	})

	t.Run("FindByIDNotFound", func(t *testing.T) {
		repo := fresh(t)
		id := domain.NewID()
		_, err := repo.FindByID(context.Background(), id)
		requireNotFound(t, err, "UserModel not found using ID "+id)
	})

	t.Run("FindAll", func(t *testing.T) {
		ctx := context.Background()
		repo := fresh(t)
		a := mustUser(t, "A", "a@example.com", base)
		b := mustUser(t, "B", "b@example.com", base.Add(time.Second))
		for _, u := range []domain.User{a, b} {
			if err := repo.Insert(ctx, u); err != nil {
				t.Fatalf("Insert: %v", err)
			}
		}
		all, err := repo.FindAll(ctx)
		if err != nil {
			t.Fatalf("FindAll: %v", err)
		}
		if len(all) != 2 || all[0].ID() != a.ID() || all[1].ID() != b.ID() {
			t.Fatalf("FindAll: got %v", userNames(all))
		}
	})

	t.Run("Update", func(t *testing.T) {
		ctx := context.Background()
		repo := fresh(t)
		u := mustUser(t, "Alice", "alice@example.com", base)
		if err := repo.Insert(ctx, u); err != nil {
			t.Fatalf("Insert: %v", err)
		}
		if err := u.Update("Alice Updated"); err != nil {
			t.Fatalf("entity Update: %v", err)
		}
		if err := u.UpdatePassword("new-hash"); err != nil {
			t.Fatalf("entity UpdatePassword: %v", err)
		}
		if err := repo.Update(ctx, u); err != nil {
			t.Fatalf("Update: %v", err)
		}
		got, err := repo.FindByID(ctx, u.ID())
		if err != nil {
			t.Fatalf("FindByID: %v", err)
		}
		requireSameUser(t, got, u)
	})

	t.Run("UpdateNotFound", func(t *testing.T) {
		repo := fresh(t)
		u := mustUser(t, "Ghost", "ghost@example.com", base)
		requireNotFound(t, repo.Update(context.Background(), u), "UserModel not found using ID "+u.ID())
	})

	t.Run("Delete", func(t *testing.T) {
		ctx := context.Background()
		repo := fresh(t)
		a := mustUser(t, "A", "a@example.com", base)
		b := mustUser(t, "B", "b@example.com", base.Add(time.Second))
		for _, u := range []domain.User{a, b} {
			if err := repo.Insert(ctx, u); err != nil {
				t.Fatalf("Insert: %v", err)
			}
		}
		if err := repo.Delete(ctx, a.ID()); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if _, err := repo.FindByID(ctx, a.ID()); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("FindByID after Delete: err=%v", err)
		}
		all, err := repo.FindAll(ctx)
		if err != nil {
			t.Fatalf("FindAll: %v", err)
		}
		if len(all) != 1 || all[0].ID() != b.ID() {
			t.Fatalf("FindAll after Delete: %v", userNames(all))
		}
	})

	t.Run("DeleteNotFound", func(t *testing.T) {
		repo := fresh(t)
		id := domain.NewID()
		requireNotFound(t, repo.Delete(context.Background(), id), "UserModel not found using ID "+id)
	})

	t.Run("FindByEmail", func(t *testing.T) {
		ctx := context.Background()
		repo := fresh(t)
		u := mustUser(t, "Alice", "alice@example.com", base)
		if err := repo.Insert(ctx, u); err != nil {
			t.Fatalf("Insert: %v", err)
		}
		got, err := repo.FindByEmail(ctx, "alice@example.com")
		if err != nil {
			t.Fatalf("FindByEmail: %v", err)
		}
		requireSameUser(t, got, u)

		_, err = repo.FindByEmail(ctx, "a@a.com")
		requireNotFound(t, err, "UserModel not found using email a@a.com")
	})

	t.Run("EmailExists", func(t *testing.T) {
		ctx := context.Background()
		repo := fresh(t)
		if err := repo.EmailExists(ctx, "alice@example.com"); err != nil {
			t.Fatalf("EmailExists on empty repo: %v", err)
		}
		if err := repo.Insert(ctx, mustUser(t, "Alice", "alice@example.com", base)); err != nil {
			t.Fatalf("Insert: %v", err)
		}
		err := repo.EmailExists(ctx, "alice@example.com")
		if !errors.Is(err, domain.ErrConflict) || err.Error() != "Email address already used" {
			t.Fatalf("EmailExists: err=%v, want conflict", err)
		}
	})

	t.Run("InsertDuplicateEmail", func(t *testing.T) {
		ctx := context.Background()
		repo := fresh(t)
		if err := repo.Insert(ctx, mustUser(t, "Alice", "alice@example.com", base)); err != nil {
			t.Fatalf("Insert: %v", err)
		}
		err := repo.Insert(ctx, mustUser(t, "Other Alice", "alice@example.com", base.Add(time.Second)))
		if !errors.Is(err, domain.ErrConflict) || err.Error() != "Email address already used" {
			t.Fatalf("Insert duplicate: err=%v, want conflict", err)
		}
		all, err := repo.FindAll(ctx)
		if err != nil {
			t.Fatalf("FindAll: %v", err)
		}
		if len(all) != 1 || all[0].Name() != "Alice" {
			t.Fatalf("FindAll: %v", userNames(all))
		}
	})

	t.Run("SortableFields", func(t *testing.T) {
		repo := fresh(t)
		if got := repo.SortableFields(); !reflect.DeepEqual(got, []string{"name", "createdAt"}) {
			t.Fatalf("SortableFields: %v", got)
		}
	})

	t.Run("SearchDefaults", func(t *testing.T) {
		ctx := context.Background()
		repo := fresh(t)
		var inserted []domain.User
		for i := 0; i < 16; i++ {
			u := mustUser(t, fmt.Sprintf("User %02d", i), fmt.Sprintf("u%02d@example.com", i), base.Add(time.Duration(i)*time.Millisecond))
			if err := repo.Insert(ctx, u); err != nil {
				t.Fatalf("Insert: %v", err)
			}
			inserted = append(inserted, u)
		}

		got, err := repo.Search(ctx, searchable.NewParams(searchable.Input{}))
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		if got.Total != 16 || len(got.Items) != 15 || got.CurrentPage != 1 || got.PerPage != 15 || got.LastPage != 2 {
			t.Fatalf("Search meta: total=%d len=%d page=%d perPage=%d lastPage=%d",
				got.Total, len(got.Items), got.CurrentPage, got.PerPage, got.LastPage)
		}
		// Newest first.
		for i, u := range got.Items {
			if want := inserted[15-i]; u.ID() != want.ID() {
				t.Fatalf("Search item %d = %q, want %q", i, u.Name(), want.Name())
			}
		}
	})

	t.Run("SearchFilterSortPaginate", func(t *testing.T) {
		ctx := context.Background()
		repo := fresh(t)
		for i, name := range []string{"test", "a", "TEST", "b", "TeSt"} {
			u := mustUser(t, name, fmt.Sprintf("u%d@example.com", i), base.Add(time.Duration(i)*time.Millisecond))
			if err := repo.Insert(ctx, u); err != nil {
				t.Fatalf("Insert: %v", err)
			}
		}

		page1, err := repo.Search(ctx, searchable.NewParams(searchable.Input{
			Page: 1, PerPage: 2, Sort: "name", SortDir: "asc", Filter: "TEST",
		}))
		if err != nil {
			t.Fatalf("Search page 1: %v", err)
		}
		if got, want := userNames(page1.Items), []string{"TEST", "TeSt"}; !reflect.DeepEqual(got, want) {
			t.Fatalf("Search page 1: %v, want %v", got, want)
		}
		if page1.Total != 3 || page1.LastPage != 2 || page1.Sort != "name" || page1.SortDir != searchable.SortAsc || page1.Filter != "TEST" {
			t.Fatalf("Search page 1 meta: %+v", page1)
		}

		page2, err := repo.Search(ctx, searchable.NewParams(searchable.Input{
			Page: 2, PerPage: 2, Sort: "name", SortDir: "asc", Filter: "TEST",
		}))
		if err != nil {
			t.Fatalf("Search page 2: %v", err)
		}
		if got, want := userNames(page2.Items), []string{"test"}; !reflect.DeepEqual(got, want) {
			t.Fatalf("Search page 2: %v, want %v", got, want)
		}

		desc, err := repo.Search(ctx, searchable.NewParams(searchable.Input{PerPage: 3, Sort: "name", Filter: "test"}))
		if err != nil {
			t.Fatalf("Search desc: %v", err)
		}
		if got, want := userNames(desc.Items), []string{"test", "TeSt", "TEST"}; !reflect.DeepEqual(got, want) {
			t.Fatalf("Search desc: %v, want %v", got, want)
		}
	})

	t.Run("SearchSortByCreatedAt", func(t *testing.T) {
		ctx := context.Background()
		repo := fresh(t)
		for i, name := range []string{"b", "c", "a"} {
			u := mustUser(t, name, fmt.Sprintf("u%d@example.com", i), base.Add(time.Duration(i)*time.Second))
			if err := repo.Insert(ctx, u); err != nil {
				t.Fatalf("Insert: %v", err)
			}
		}
		got, err := repo.Search(ctx, searchable.NewParams(searchable.Input{Sort: "createdAt", SortDir: "asc"}))
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		if names, want := userNames(got.Items), []string{"b", "c", "a"}; !reflect.DeepEqual(names, want) {
			t.Fatalf("Search: %v, want %v", names, want)
		}
	})

	t.Run("SearchUnsortableFieldUsesDefault", func(t *testing.T) {
		ctx := context.Background()
		repo := fresh(t)
		for i, name := range []string{"b", "c", "a"} {
			u := mustUser(t, name, fmt.Sprintf("u%d@example.com", i), base.Add(time.Duration(i)*time.Second))
			if err := repo.Insert(ctx, u); err != nil {
				t.Fatalf("Insert: %v", err)
			}
		}
		got, err := repo.Search(ctx, searchable.NewParams(searchable.Input{Sort: "email", SortDir: "asc"}))
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		if names, want := userNames(got.Items), []string{"a", "c", "b"}; !reflect.DeepEqual(names, want) {
			t.Fatalf("Search: %v, want %v", names, want)
		}
	})

	t.Run("SearchTiesKeepInsertionOrder", func(t *testing.T) {
		ctx := context.Background()
		repo := fresh(t)
		for i, name := range []string{"first", "second", "third"} {
			u := mustUser(t, name, fmt.Sprintf("u%d@example.com", i), base)
			if err := repo.Insert(ctx, u); err != nil {
				t.Fatalf("Insert: %v", err)
			}
		}
		got, err := repo.Search(ctx, searchable.NewParams(searchable.Input{}))
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		if names, want := userNames(got.Items), []string{"first", "second", "third"}; !reflect.DeepEqual(names, want) {
			t.Fatalf("Search: %v, want %v", names, want)
		}
	})

	t.Run("SearchPastLastPage", func(t *testing.T) {
		ctx := context.Background()
		repo := fresh(t)
		if err := repo.Insert(ctx, mustUser(t, "only", "only@example.com", base)); err != nil {
			t.Fatalf("Insert: %v", err)
		}
		got, err := repo.Search(ctx, searchable.NewParams(searchable.Input{Page: 5, PerPage: 2}))
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		if len(got.Items) != 0 || got.Total != 1 || got.LastPage != 1 || got.CurrentPage != 5 {
			t.Fatalf("Search: len=%d total=%d lastPage=%d page=%d", len(got.Items), got.Total, got.LastPage, got.CurrentPage)
		}
	})

	t.Run("SearchEmpty", func(t *testing.T) {
		repo := fresh(t)
		got, err := repo.Search(context.Background(), searchable.NewParams(searchable.Input{Filter: "nobody"}))
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		if got.Items == nil || len(got.Items) != 0 || got.Total != 0 || got.LastPage != 0 {
			t.Fatalf("Search: %+v", got)
		}
	})

	t.Run("SearchIdempotent", func(t *testing.T) {
		ctx := context.Background()
		repo := fresh(t)
		for i, name := range []string{"x", "xy", "y"} {
			if err := repo.Insert(ctx, mustUser(t, name, fmt.Sprintf("u%d@example.com", i), base)); err != nil {
				t.Fatalf("Insert: %v", err)
			}
		}
		p := searchable.NewParams(searchable.Input{Filter: "X", Sort: "name", SortDir: "desc"})
		first, err := repo.Search(ctx, p)
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		second, err := repo.Search(ctx, p)
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		if !reflect.DeepEqual(userNames(first.Items), userNames(second.Items)) || first.Total != second.Total {
			t.Fatalf("Search not idempotent: %v vs %v", userNames(first.Items), userNames(second.Items))
		}
		if got, want := userNames(first.Items), []string{"xy", "x"}; !reflect.DeepEqual(got, want) {
			t.Fatalf("Search: %v, want %v", got, want)
		}
	})
}

var base = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func mustUser(t *testing.T, name, email string, createdAt time.Time) domain.User {
	t.Helper()
	u, err := domain.NewUser(domain.UserProps{
		Name:      name,
		Email:     email,
		Password:  "hash",
		CreatedAt: createdAt,
	}, "")
	if err != nil {
		t.Fatalf("NewUser: %v", err)
	}
	return u
}

func requireSameUser(t *testing.T, got, want domain.User) {
	t.Helper()
	if got.ID() != want.ID() || got.Name() != want.Name() || got.Email() != want.Email() ||
		got.Password() != want.Password() || !got.CreatedAt().Equal(want.CreatedAt()) {
		t.Fatalf("user mismatch:\n got=%v\nwant=%v", got.ToJSON(), want.ToJSON())
	}
}

func requireNotFound(t *testing.T, err error, wantMsg string) {
	t.Helper()
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err=%v, want not found", err)
	}
	if err.Error() != wantMsg {
		t.Fatalf("err=%q, want %q", err.Error(), wantMsg)
	}
}

func userNames(us []domain.User) []string {
	out := make([]string, 0, len(us))
	for _, u := range us {
		out = append(out, u.Name())
	}
	return out
}

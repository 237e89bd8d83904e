package users

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	memclock "github.com/Overland-East-Bay/user-accounts-api/internal/adapters/memory/clock"
	memuserrepo "github.com/Overland-East-Bay/user-accounts-api/internal/adapters/memory/userrepo"
	"github.com/Overland-East-Bay/user-accounts-api/internal/domain"
	"github.com/Overland-East-Bay/user-accounts-api/internal/platform/auth/bcrypthash"
)

// prefixHasher keeps tests fast; bcrypt is covered separately.
type prefixHasher struct{}

func (prefixHasher) Hash(_ context.Context, plain string) (string, error) {
	return "hashed:" + plain, nil
}

func (prefixHasher) Compare(_ context.Context, plain, hash string) (bool, error) {
	return hash == "hashed:"+plain, nil
}

func newTestService(t *testing.T) (*Service, *memuserrepo.Repo, *memclock.ManualClock) {
	t.Helper()
	repo := memuserrepo.NewRepo()
	clk := memclock.NewManualClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	return NewService(repo, prefixHasher{}, clk), repo, clk
}

func mustSignup(t *testing.T, svc *Service, name, email string) UserOutput {
	t.Helper()
	out, err := svc.Signup(context.Background(), SignupInput{Name: name, Email: email, Password: "secret"})
	if err != nil {
		t.Fatalf("Signup(%q) err=%v", email, err)
	}
	return out
}

func requireAppError(t *testing.T, err error, status int, code, msg string) {
	t.Helper()
	ae := (*Error)(nil)
	if !errors.As(err, &ae) {
		t.Fatalf("err=%v (type=%T), want *users.Error", err, err)
	}
	if ae.Status != status || ae.Code != code || ae.Message != msg {
		t.Fatalf("err=%+v, want %d %s %q", ae, status, code, msg)
	}
}

func TestService_Signup(t *testing.T) {
	t.Parallel()

	svc, repo, clk := newTestService(t)
	out, err := svc.Signup(context.Background(), SignupInput{
		Name:     "  Ada   Lovelace ",
		Email:    " ada@example.com ",
		Password: "secret",
	})
	if err != nil {
		t.Fatalf("Signup err=%v", err)
	}
	if !domain.ValidID(out.ID) {
		t.Fatalf("id=%q, want uuid", out.ID)
	}
	if out.Name != "Ada Lovelace" || out.Email != "ada@example.com" {
		t.Fatalf("out=%+v", out)
	}
	if out.Password != "hashed:secret" {
		t.Fatalf("password=%q, want stored hash", out.Password)
	}
	if !out.CreatedAt.Equal(clk.Now()) {
		t.Fatalf("createdAt=%v want %v", out.CreatedAt, clk.Now())
	}
	if repo.Len() != 1 {
		t.Fatalf("len=%d want 1", repo.Len())
	}
}

func TestService_Signup_MissingInput(t *testing.T) {
	t.Parallel()

	svc, repo, _ := newTestService(t)
	cases := []SignupInput{
		{Email: "a@example.com", Password: "x"},
		{Name: "A", Password: "x"},
		{Name: "A", Email: "a@example.com"},
		{Name: "   ", Email: "a@example.com", Password: "x"},
	}
	for _, in := range cases {
		_, err := svc.Signup(context.Background(), in)
		requireAppError(t, err, 400, CodeBadRequest, "Input data not provided")
	}
	if repo.Len() != 0 {
		t.Fatalf("len=%d want 0", repo.Len())
	}
}

func TestService_Signup_EmailAlreadyUsed(t *testing.T) {
	t.Parallel()

	svc, repo, _ := newTestService(t)
	mustSignup(t, svc, "Ada", "ada@example.com")

	_, err := svc.Signup(context.Background(), SignupInput{Name: "Other", Email: "ada@example.com", Password: "x"})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("err=%v, want conflict", err)
	}
	if err.Error() != "Email address already used" {
		t.Fatalf("msg=%q", err.Error())
	}
	if repo.Len() != 1 {
		t.Fatalf("len=%d want 1", repo.Len())
	}
}

func TestService_Signup_ConcurrentSameEmail(t *testing.T) {
	t.Parallel()

	svc, repo, _ := newTestService(t)

	const n = 8
	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		conflicts atomic.Int32
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Signup(context.Background(), SignupInput{Name: "Dup", Email: "dup@example.com", Password: "secret"})
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, domain.ErrConflict):
				conflicts.Add(1)
			default:
				t.Errorf("Signup() err=%v", err)
			}
		}()
	}
	wg.Wait()

	if successes.Load() != 1 || conflicts.Load() != n-1 {
		t.Fatalf("successes=%d conflicts=%d, want 1 and %d", successes.Load(), conflicts.Load(), n-1)
	}
	if repo.Len() != 1 {
		t.Fatalf("len=%d want 1", repo.Len())
	}
}

func TestService_Signup_InvalidEmail(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	_, err := svc.Signup(context.Background(), SignupInput{Name: "Ada", Email: "not-an-email", Password: "x"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err=%v, want validation", err)
	}
	if _, ok := domain.DetailsOf(err)["email"]; !ok {
		t.Fatalf("details=%v, want email", domain.DetailsOf(err))
	}
}

func TestService_Signin(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	created := mustSignup(t, svc, "Ada", "ada@example.com")

	got, err := svc.Signin(context.Background(), SigninInput{Email: "ada@example.com", Password: "secret"})
	if err != nil {
		t.Fatalf("Signin err=%v", err)
	}
	if got.ID != created.ID {
		t.Fatalf("id=%q want %q", got.ID, created.ID)
	}

	_, err = svc.Signin(context.Background(), SigninInput{Email: "ada@example.com", Password: "wrong"})
	requireAppError(t, err, 400, CodeInvalidCredentials, "Invalid credentials")

	_, err = svc.Signin(context.Background(), SigninInput{Email: "ada@example.com"})
	requireAppError(t, err, 400, CodeBadRequest, "Input data not provided")

	_, err = svc.Signin(context.Background(), SigninInput{Email: "nobody@example.com", Password: "secret"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err=%v, want not found", err)
	}
	if err.Error() != "UserModel not found using email nobody@example.com" {
		t.Fatalf("msg=%q", err.Error())
	}
}

func TestService_GetUser(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	created := mustSignup(t, svc, "Ada", "ada@example.com")

	got, err := svc.GetUser(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetUser err=%v", err)
	}
	if got != created {
		t.Fatalf("got=%+v want %+v", got, created)
	}

	_, err = svc.GetUser(context.Background(), "fakeId")
	if !errors.Is(err, domain.ErrNotFound) || err.Error() != "UserModel not found using ID fakeId" {
		t.Fatalf("err=%v", err)
	}
}

func TestService_ListUsers(t *testing.T) {
	t.Parallel()

	svc, _, clk := newTestService(t)
	for _, n := range []string{"test", "a", "TEST", "b", "TeSt"} {
		mustSignup(t, svc, n, strings.ToLower(n)+"-"+clk.Now().Format("150405")+"@example.com")
		clk.Advance(time.Second)
	}

	out, err := svc.ListUsers(context.Background(), ListUsersInput{
		Page: 1, PerPage: 2, Sort: "name", SortDir: "asc", Filter: "TEST",
	})
	if err != nil {
		t.Fatalf("ListUsers err=%v", err)
	}
	if out.Total != 3 || out.CurrentPage != 1 || out.PerPage != 2 || out.LastPage != 2 {
		t.Fatalf("meta=%+v", out)
	}
	if len(out.Items) != 2 || out.Items[0].Name != "TEST" || out.Items[1].Name != "TeSt" {
		t.Fatalf("items=%+v", out.Items)
	}

	all, err := svc.ListUsers(context.Background(), ListUsersInput{})
	if err != nil {
		t.Fatalf("ListUsers err=%v", err)
	}
	if all.Total != 5 || all.PerPage != 15 || all.LastPage != 1 || all.Items[0].Name != "TeSt" {
		t.Fatalf("default page=%+v", all)
	}
}

func TestService_ListUsers_Empty(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	out, err := svc.ListUsers(context.Background(), ListUsersInput{Page: "abc", PerPage: -3})
	if err != nil {
		t.Fatalf("ListUsers err=%v", err)
	}
	if out.Items == nil || len(out.Items) != 0 {
		t.Fatalf("items=%v, want empty non-nil", out.Items)
	}
	if out.CurrentPage != 1 || out.PerPage != 15 || out.LastPage != 0 || out.Total != 0 {
		t.Fatalf("meta=%+v", out)
	}
}

func TestService_UpdateUser(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	created := mustSignup(t, svc, "Ada", "ada@example.com")

	_, err := svc.UpdateUser(context.Background(), UpdateUserInput{ID: created.ID})
	requireAppError(t, err, 400, CodeBadRequest, "Name not provided")

	updated, err := svc.UpdateUser(context.Background(), UpdateUserInput{ID: created.ID, Name: "Ada King"})
	if err != nil {
		t.Fatalf("UpdateUser err=%v", err)
	}
	if updated.Name != "Ada King" || updated.Email != created.Email || !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("updated=%+v", updated)
	}

	got, err := svc.GetUser(context.Background(), created.ID)
	if err != nil || got.Name != "Ada King" {
		t.Fatalf("got=%+v err=%v", got, err)
	}

	_, err = svc.UpdateUser(context.Background(), UpdateUserInput{ID: "fakeId", Name: "x"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err=%v, want not found", err)
	}
}

func TestService_UpdatePassword(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	created := mustSignup(t, svc, "Ada", "ada@example.com")

	_, err := svc.UpdatePassword(context.Background(), UpdatePasswordInput{ID: "fakeId", Password: "n", OldPassword: "secret"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err=%v, want not found before input checks", err)
	}

	_, err = svc.UpdatePassword(context.Background(), UpdatePasswordInput{ID: created.ID, Password: "new"})
	requireAppError(t, err, 422, CodeInvalidPassword, "Old password and new password is required")

	_, err = svc.UpdatePassword(context.Background(), UpdatePasswordInput{ID: created.ID, Password: "new", OldPassword: "wrong"})
	requireAppError(t, err, 422, CodeInvalidPassword, "Old password does not match")

	out, err := svc.UpdatePassword(context.Background(), UpdatePasswordInput{ID: created.ID, Password: "new", OldPassword: "secret"})
	if err != nil {
		t.Fatalf("UpdatePassword err=%v", err)
	}
	if out.Password != "hashed:new" {
		t.Fatalf("password=%q", out.Password)
	}

	if _, err := svc.Signin(context.Background(), SigninInput{Email: "ada@example.com", Password: "new"}); err != nil {
		t.Fatalf("Signin with new password err=%v", err)
	}
}

func TestService_DeleteUser(t *testing.T) {
	t.Parallel()

	svc, repo, _ := newTestService(t)
	created := mustSignup(t, svc, "Ada", "ada@example.com")

	if err := svc.DeleteUser(context.Background(), created.ID); err != nil {
		t.Fatalf("DeleteUser err=%v", err)
	}
	if repo.Len() != 0 {
		t.Fatalf("len=%d want 0", repo.Len())
	}
	err := svc.DeleteUser(context.Background(), created.ID)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err=%v, want not found", err)
	}
}

func TestService_WithBcrypt(t *testing.T) {
	t.Parallel()

	repo := memuserrepo.NewRepo()
	clk := memclock.NewManualClock(time.Unix(100, 0).UTC())
	svc := NewService(repo, bcrypthash.New(4), clk)

	out, err := svc.Signup(context.Background(), SignupInput{Name: "Ada", Email: "ada@example.com", Password: "secret"})
	if err != nil {
		t.Fatalf("Signup err=%v", err)
	}
	if out.Password == "secret" || !strings.HasPrefix(out.Password, "$2") {
		t.Fatalf("password=%q, want bcrypt hash", out.Password)
	}
	if _, err := svc.Signin(context.Background(), SigninInput{Email: "ada@example.com", Password: "secret"}); err != nil {
		t.Fatalf("Signin err=%v", err)
	}
}

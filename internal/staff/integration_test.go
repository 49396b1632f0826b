//go:build integration

package staff_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"pgprobe/internal/staff"
)

// staffDDL mirrors the dvdrental staff table closely enough for the
// store: no sequence on staff_id, nullable email, MD5 text passwords.
const staffDDL = `CREATE TABLE staff (
	staff_id integer PRIMARY KEY,
	first_name varchar(45) NOT NULL,
	last_name varchar(45) NOT NULL,
	address_id integer NOT NULL,
	email varchar(50),
	store_id integer NOT NULL,
	active boolean NOT NULL DEFAULT true,
	username varchar(16) NOT NULL,
	password varchar(40),
	last_update timestamp NOT NULL DEFAULT now()
)`

func startStore(t *testing.T, ctx context.Context) *staff.Store {
	t.Helper()
	pg, err := postgres.Run(ctx,
		"postgres:16",
		postgres.WithDatabase("dvdrental"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("start postgres err=%v", err)
	}
	t.Cleanup(func() { _ = pg.Terminate(context.Background()) })

	dsn, err := pg.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("conn string err=%v", err)
	}

	admin, err := pgx.Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("admin connect err=%v", err)
	}
	if _, err := admin.Exec(ctx, staffDDL); err != nil {
		t.Fatalf("create staff table err=%v", err)
	}
	admin.Close(ctx)

	st, err := staff.Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("store connect err=%v", err)
	}
	t.Cleanup(func() { _ = st.Close(context.Background()) })
	return st
}

func registerParams(username, email string) staff.RegisterParams {
	return staff.RegisterParams{
		FirstName: "Mike",
		LastName:  "Hillyer",
		Username:  username,
		Password:  "secret",
		Email:     email,
		AddressID: 3,
		StoreID:   1,
	}
}

func TestIntegration_RegisterAndAuthenticate(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	st := startStore(t, ctx)

	m, err := st.Register(ctx, registerParams("mike", "mike@sakilastaff.com"))
	if err != nil {
		t.Fatalf("register err=%v", err)
	}
	if m.ID != 1 {
		t.Errorf("expected first staff_id 1, got %d", m.ID)
	}
	if !m.Active {
		t.Error("expected new member active")
	}

	// IDs keep counting up from the current maximum
	m2, err := st.Register(ctx, registerParams("jon", "jon@sakilastaff.com"))
	if err != nil {
		t.Fatalf("second register err=%v", err)
	}
	if m2.ID != 2 {
		t.Errorf("expected staff_id 2, got %d", m2.ID)
	}

	if _, err := st.Register(ctx, registerParams("mike", "other@sakilastaff.com")); !errors.Is(err, staff.ErrUsernameTaken) {
		t.Errorf("expected ErrUsernameTaken, got %v", err)
	}
	if _, err := st.Register(ctx, registerParams("other", "mike@sakilastaff.com")); !errors.Is(err, staff.ErrEmailTaken) {
		t.Errorf("expected ErrEmailTaken, got %v", err)
	}

	got, err := st.Authenticate(ctx, "mike", "secret")
	if err != nil {
		t.Fatalf("authenticate err=%v", err)
	}
	if got.ID != m.ID || got.Username != "mike" {
		t.Errorf("unexpected member %+v", got)
	}

	if _, err := st.Authenticate(ctx, "mike", "wrong"); !errors.Is(err, staff.ErrBadCredentials) {
		t.Errorf("expected ErrBadCredentials, got %v", err)
	}
	if _, err := st.Authenticate(ctx, "nobody", "secret"); !errors.Is(err, staff.ErrBadCredentials) {
		t.Errorf("expected ErrBadCredentials for unknown user, got %v", err)
	}
}

func TestIntegration_UpdateAndLookup(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	st := startStore(t, ctx)

	m, err := st.Register(ctx, registerParams("mike", "mike@sakilastaff.com"))
	if err != nil {
		t.Fatalf("register err=%v", err)
	}

	email := "new@sakilastaff.com"
	storeID := int32(2)
	updated, err := st.Update(ctx, m.ID, staff.UpdateParams{Email: &email, StoreID: &storeID})
	if err != nil {
		t.Fatalf("update err=%v", err)
	}
	if updated.Email != email {
		t.Errorf("expected email %q, got %q", email, updated.Email)
	}
	if updated.StoreID != 2 {
		t.Errorf("expected store 2, got %d", updated.StoreID)
	}
	if updated.FirstName != "Mike" {
		t.Errorf("untouched field changed: %q", updated.FirstName)
	}

	byName, err := st.GetByUsername(ctx, "mike")
	if err != nil {
		t.Fatalf("get by username err=%v", err)
	}
	if byName.Email != email {
		t.Errorf("lookup missed the update, got %q", byName.Email)
	}

	if _, err := st.Update(ctx, 999, staff.UpdateParams{Email: &email}); !errors.Is(err, staff.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := st.Get(ctx, 999); !errors.Is(err, staff.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestIntegration_ChangePasswordAndDelete(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	st := startStore(t, ctx)

	if _, err := st.Register(ctx, registerParams("mike", "mike@sakilastaff.com")); err != nil {
		t.Fatalf("register err=%v", err)
	}

	if err := st.ChangePassword(ctx, "mike", "wrong", "next"); !errors.Is(err, staff.ErrBadCredentials) {
		t.Errorf("expected ErrBadCredentials, got %v", err)
	}
	if err := st.ChangePassword(ctx, "mike", "secret", "next"); err != nil {
		t.Fatalf("change password err=%v", err)
	}
	if _, err := st.Authenticate(ctx, "mike", "secret"); !errors.Is(err, staff.ErrBadCredentials) {
		t.Error("expected old password to stop working")
	}
	if _, err := st.Authenticate(ctx, "mike", "next"); err != nil {
		t.Errorf("expected new password to work, got %v", err)
	}

	if err := st.Delete(ctx, "mike"); err != nil {
		t.Fatalf("delete err=%v", err)
	}
	if err := st.Delete(ctx, "mike"); !errors.Is(err, staff.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

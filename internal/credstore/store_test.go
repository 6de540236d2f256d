package credstore

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "session.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLoadWithoutSave(t *testing.T) {
	s := openTemp(t)
	if _, err := s.Load(); !errors.Is(err, ErrNoSession) {
		t.Fatalf("Load on empty store = %v, want ErrNoSession", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := openTemp(t)
	in := Saved{Token: "tok-1", UserID: 42, Roles: "trabajador,cliente", SavedAt: time.Now()}
	if err := s.Save(in); err != nil {
		t.Fatalf("Save: %v", err)
	}

	out, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if out.Token != in.Token || out.UserID != in.UserID || out.Roles != in.Roles {
		t.Errorf("Load = %+v, want %+v", out, in)
	}
}

func TestSaveReplacesPreviousLogin(t *testing.T) {
	s := openTemp(t)
	if err := s.Save(Saved{Token: "old", UserID: 1, Roles: "cliente", SavedAt: time.Now()}); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(Saved{Token: "new", UserID: 2, Roles: "trabajador", SavedAt: time.Now()}); err != nil {
		t.Fatal(err)
	}

	out, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if out.Token != "new" || out.UserID != 2 {
		t.Errorf("second save did not replace the row: %+v", out)
	}
}

func TestClear(t *testing.T) {
	s := openTemp(t)
	if err := s.Save(Saved{Token: "tok", UserID: 1, Roles: "cliente", SavedAt: time.Now()}); err != nil {
		t.Fatal(err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := s.Load(); !errors.Is(err, ErrNoSession) {
		t.Fatalf("Load after Clear = %v, want ErrNoSession", err)
	}

	// Clearing an already empty store is fine.
	if err := s.Clear(); err != nil {
		t.Fatalf("second Clear: %v", err)
	}
}

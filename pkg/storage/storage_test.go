package storage

import (
	"testing"
)

func TestSaveAndLatest(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	first, err := s.SavePicture([]byte("first-jpeg"))
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.SavePicture([]byte("second-jpeg"))
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Fatalf("consecutive saves produced the same name %q", first)
	}

	name, data, err := s.Latest()
	if err != nil {
		t.Fatal(err)
	}
	if name != second {
		t.Errorf("latest = %q, want %q", name, second)
	}
	if string(data) != "second-jpeg" {
		t.Errorf("latest payload = %q", data)
	}

	got, err := s.Get(first)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "first-jpeg" {
		t.Errorf("Get(%q) = %q", first, got)
	}
}

func TestLatestEmptyStore(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.Latest(); err == nil {
		t.Fatal("Latest on an empty store did not fail")
	}
}

func TestList(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.SavePicture(make([]byte, 2048)); err != nil {
		t.Fatal(err)
	}

	files, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 {
		t.Fatalf("listed %d files, want 1", len(files))
	}
	if files[0].Size == "" {
		t.Error("listed file has no humanized size")
	}
}

func TestIndexSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}
	name, err := s.SavePicture([]byte("payload"))
	if err != nil {
		t.Fatal(err)
	}

	reopened, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}
	latest, _, err := reopened.Latest()
	if err != nil {
		t.Fatal(err)
	}
	if latest != name {
		t.Errorf("after reopen latest = %q, want %q", latest, name)
	}
}

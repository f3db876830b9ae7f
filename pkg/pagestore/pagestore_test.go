package pagestore

import "testing"

func TestCreatePageAssignsIncrementingIDs(t *testing.T) {
	s := New(7, 64)
	p0 := s.CreatePage()
	p1 := s.CreatePage()
	if p0.ID().ThreadID != 7 || p1.ID().ThreadID != 7 {
		t.Fatalf("expected both pages to carry thread id 7, got %v and %v", p0.ID(), p1.ID())
	}
	if p0.ID().PageID == p1.ID().PageID {
		t.Fatalf("expected distinct page ids, got %v and %v", p0.ID(), p1.ID())
	}
	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}
}

func TestReleaseThenCreateReusesPage(t *testing.T) {
	s := New(0, 64)
	p0 := s.CreatePage()
	id0 := p0.ID()

	ok, err := s.ReleasePage(p0)
	if err != nil || !ok {
		t.Fatalf("ReleasePage = (%v,%v), want (true,nil)", ok, err)
	}

	p1 := s.CreatePage()
	if p1.ID() != id0 {
		t.Fatalf("expected CreatePage to reuse released id %v, got %v", id0, p1.ID())
	}
	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (reused page should not double-count)", s.Len())
	}
}

func TestReleaseAlreadyFreeIsNoOp(t *testing.T) {
	s := New(0, 64)
	p := s.CreatePage()
	if ok, err := s.ReleasePage(p); !ok || err != nil {
		t.Fatalf("first ReleasePage = (%v,%v), want (true,nil)", ok, err)
	}
	if ok, err := s.ReleasePage(p); ok || err != nil {
		t.Fatalf("second ReleasePage = (%v,%v), want (false,nil)", ok, err)
	}
}

func TestReleaseForeignPageFails(t *testing.T) {
	s1 := New(0, 64)
	s2 := New(1, 64)
	foreign := s2.CreatePage()

	if _, err := s1.ReleasePage(foreign); err == nil {
		t.Fatal("expected error releasing a page this store never created")
	}
}

func TestDropAllResetsStore(t *testing.T) {
	s := New(0, 64)
	s.CreatePage()
	s.CreatePage()
	if err := s.DropAll(); err != nil {
		t.Fatalf("DropAll: %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("Len() after DropAll = %d, want 0", s.Len())
	}

	p := s.CreatePage()
	if p.ID().PageID != 0 {
		t.Fatalf("expected id counter reset after DropAll, got %v", p.ID())
	}
}

package cache

import (
	"net/http"
	"path/filepath"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"sessionbridge/kvstore"
	"sessionbridge/mockserver"
	"sessionbridge/store"
)

func newTestCache(t *testing.T, url string, ttl time.Duration) (*Cache, *kvstore.Store) {
	t.Helper()
	kv, err := kvstore.Open(filepath.Join(t.TempDir(), "store.db"))
	if err != nil {
		t.Fatalf("Failed to open kvstore: %v", err)
	}
	t.Cleanup(func() { kv.Close() })

	c, err := New(store.NewClient(url), kv, ttl)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	return c, kv
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func TestSessionList_CachesWithinTTL(t *testing.T) {
	srv := mockserver.New(
		mockserver.WithSession(store.Session{ID: "s-1", Name: "one"}, nil),
	)
	defer srv.Close()
	c, _ := newTestCache(t, srv.URL, 5*time.Second)

	first := c.SessionList()
	if len(first) != 1 {
		t.Fatalf("Expected 1 session, got %d", len(first))
	}
	c.SessionList()
	c.SessionList()
	if srv.ListCount() != 1 {
		t.Errorf("Expected 1 backend list call, got %d", srv.ListCount())
	}
}

func TestSessionList_RefetchAfterTTL(t *testing.T) {
	srv := mockserver.New(
		mockserver.WithSession(store.Session{ID: "s-1"}, nil),
	)
	defer srv.Close()
	c, _ := newTestCache(t, srv.URL, 50*time.Millisecond)

	c.SessionList()
	time.Sleep(100 * time.Millisecond)
	c.SessionList()
	if srv.ListCount() != 2 {
		t.Errorf("Expected 2 backend list calls after TTL expiry, got %d", srv.ListCount())
	}
}

func TestSessionList_NewestFirst(t *testing.T) {
	// The backend serves oldest-first; callers see newest-first.
	srv := mockserver.New(
		mockserver.WithSession(store.Session{ID: "old"}, nil),
		mockserver.WithSession(store.Session{ID: "new"}, nil),
	)
	defer srv.Close()
	c, _ := newTestCache(t, srv.URL, 5*time.Second)

	list := c.SessionList()
	if len(list) != 2 || list[0].ID != "new" || list[1].ID != "old" {
		t.Errorf("Expected [new old], got %+v", list)
	}
}

func TestSessionList_SingleFlight(t *testing.T) {
	gate := make(chan struct{})
	srv := mockserver.New(
		mockserver.WithSession(store.Session{ID: "s-1"}, nil),
		mockserver.WithRequestHook(func(r *http.Request) {
			if r.URL.Path == "/api/sessions" && r.Method == "GET" {
				<-gate
			}
		}),
	)
	defer srv.Close()
	c, _ := newTestCache(t, srv.URL, 5*time.Second)

	results := make([][]store.Session, 3)
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.SessionList()
		}(i)
	}

	// Let all three callers pile up on the in-flight fetch, then release it.
	time.Sleep(100 * time.Millisecond)
	close(gate)
	wg.Wait()

	if srv.ListCount() != 1 {
		t.Errorf("Expected exactly 1 coalesced backend call, got %d", srv.ListCount())
	}
	for i := 1; i < 3; i++ {
		if !reflect.DeepEqual(results[0], results[i]) {
			t.Errorf("Caller %d saw a different result than caller 0", i)
		}
	}
}

func TestSessionList_FallbackToMirror(t *testing.T) {
	srv := mockserver.New(
		mockserver.WithSession(store.Session{ID: "s-1", Name: "persisted"}, nil),
	)
	defer srv.Close()
	c, _ := newTestCache(t, srv.URL, 50*time.Millisecond)

	// A successful fetch writes through to the mirror.
	c.SessionList()

	srv.SetErrorMode(http.StatusInternalServerError)
	time.Sleep(100 * time.Millisecond)

	list := c.SessionList()
	if len(list) != 1 || list[0].ID != "s-1" {
		t.Fatalf("Expected persisted list on fetch failure, got %+v", list)
	}

	// The failed fetch must not have stamped the cache fresh: once the
	// backend recovers, the next read fetches again.
	srv.SetErrorMode(0)
	srv.ResetCounts()
	c.SessionList()
	if srv.ListCount() != 1 {
		t.Errorf("Expected a refetch after recovery, got %d list calls", srv.ListCount())
	}
}

func TestSessionList_EmptyWithoutMirror(t *testing.T) {
	srv := mockserver.New(mockserver.WithErrorMode(http.StatusInternalServerError))
	defer srv.Close()
	c, _ := newTestCache(t, srv.URL, 5*time.Second)

	list := c.SessionList()
	if list == nil {
		t.Fatal("Expected empty list, got nil")
	}
	if len(list) != 0 {
		t.Errorf("Expected empty list with no mirror, got %+v", list)
	}
}

func TestSessionList_MalformedMirror(t *testing.T) {
	srv := mockserver.New(mockserver.WithErrorMode(http.StatusInternalServerError))
	defer srv.Close()
	c, kv := newTestCache(t, srv.URL, 5*time.Second)

	if err := kv.Put(kvstore.ListKey, "{definitely not json"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	list := c.SessionList()
	if len(list) != 0 {
		t.Errorf("Expected empty list for malformed mirror data, got %+v", list)
	}
}

func TestSessionList_ReturnsCopies(t *testing.T) {
	srv := mockserver.New(
		mockserver.WithSession(store.Session{ID: "s-1", Name: "original"}, nil),
	)
	defer srv.Close()
	c, _ := newTestCache(t, srv.URL, 5*time.Second)

	list := c.SessionList()
	list[0].Name = "mutated"

	again := c.SessionList()
	if again[0].Name != "original" {
		t.Error("Caller mutation leaked into the cache")
	}
}

func TestCreateLocal(t *testing.T) {
	srv := mockserver.New()
	defer srv.Close()
	c, _ := newTestCache(t, srv.URL, 5*time.Second)

	list := c.CreateLocal(store.Session{Name: "draft"})
	if len(list) != 1 {
		t.Fatalf("Expected 1 session, got %d", len(list))
	}
	draft := list[0]
	if !draft.Unsaved {
		t.Error("Local draft must be marked unsaved")
	}
	if !isNumeric(draft.ID) {
		t.Errorf("Local draft id must be purely numeric, got %q", draft.ID)
	}
	if draft.SessionID != draft.ID {
		t.Errorf("Draft session id should default to its id, got %q", draft.SessionID)
	}
	if draft.UserID != DefaultUserID || draft.Channel != DefaultChannel {
		t.Errorf("Draft routing should use defaults, got %q/%q", draft.UserID, draft.Channel)
	}

	// An authoritative local write stamps the cache fresh: the next list
	// read must not hit the backend.
	c.SessionList()
	if srv.ListCount() != 0 {
		t.Errorf("Expected no backend call after local create, got %d", srv.ListCount())
	}
}

func TestCreateLocal_SurvivesRefresh(t *testing.T) {
	srv := mockserver.New(
		mockserver.WithSession(store.Session{ID: "remote-1"}, nil),
	)
	defer srv.Close()
	c, _ := newTestCache(t, srv.URL, 50*time.Millisecond)

	list := c.CreateLocal(store.Session{Name: "draft"})
	draftID := list[0].ID

	time.Sleep(100 * time.Millisecond)
	list = c.SessionList()
	if len(list) != 2 {
		t.Fatalf("Expected draft + remote session, got %+v", list)
	}
	if list[0].ID != draftID {
		t.Errorf("Draft must stay at the head across refreshes, got %+v", list)
	}
	if list[1].ID != "remote-1" {
		t.Errorf("Expected remote session after draft, got %+v", list)
	}
}

func TestCreate_PromotesDraft(t *testing.T) {
	srv := mockserver.New()
	defer srv.Close()
	c, _ := newTestCache(t, srv.URL, 5*time.Second)

	list := c.CreateLocal(store.Session{Name: "mine"})
	draftID := list[0].ID

	promoted, err := c.Create(store.Session{ID: draftID, Name: "mine"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if len(promoted) != 1 {
		t.Fatalf("Expected 1 session, got %d", len(promoted))
	}
	if promoted[0].ID == draftID {
		t.Error("Promoted session must carry the server-issued id")
	}
	if promoted[0].Unsaved {
		t.Error("Promoted session must not be marked unsaved")
	}
}

func TestCreate_FailurePropagates(t *testing.T) {
	srv := mockserver.New(mockserver.WithErrorMode(http.StatusInternalServerError))
	defer srv.Close()
	c, _ := newTestCache(t, srv.URL, 5*time.Second)

	if _, err := c.Create(store.Session{Name: "doomed"}); err == nil {
		t.Fatal("Expected create failure to propagate, got nil")
	}
}

func TestUpdate_LocalOnly(t *testing.T) {
	var putCount int32
	srv := mockserver.New(
		mockserver.WithSession(store.Session{ID: "s-1", Name: "before"}, nil),
		mockserver.WithRequestHook(func(r *http.Request) {
			if r.Method == "PUT" {
				atomic.AddInt32(&putCount, 1)
			}
		}),
	)
	defer srv.Close()
	c, _ := newTestCache(t, srv.URL, 5*time.Second)

	c.SessionList()
	list := c.Update(store.Session{ID: "s-1", Name: "after"})
	if list[0].Name != "after" {
		t.Errorf("Expected renamed entry, got %+v", list[0])
	}
	if atomic.LoadInt32(&putCount) != 0 {
		t.Error("Update must not round-trip to the backend")
	}
}

func TestRemove_RemoteDelete(t *testing.T) {
	var deleteCount int32
	srv := mockserver.New(
		mockserver.WithSession(store.Session{ID: "s-1"}, nil),
		mockserver.WithRequestHook(func(r *http.Request) {
			if r.Method == "DELETE" {
				atomic.AddInt32(&deleteCount, 1)
			}
		}),
	)
	defer srv.Close()
	c, _ := newTestCache(t, srv.URL, 5*time.Second)

	list := c.SessionList()
	list = c.Remove(list[0])
	if len(list) != 0 {
		t.Errorf("Expected empty list after remove, got %+v", list)
	}
	if atomic.LoadInt32(&deleteCount) != 1 {
		t.Errorf("Expected 1 remote delete, got %d", deleteCount)
	}
}

func TestRemove_BestEffortOnFailure(t *testing.T) {
	srv := mockserver.New(
		mockserver.WithSession(store.Session{ID: "s-1"}, nil),
	)
	defer srv.Close()
	c, _ := newTestCache(t, srv.URL, 5*time.Second)

	list := c.SessionList()
	srv.SetErrorMode(http.StatusInternalServerError)

	// The remote delete fails; the entry leaves the local list anyway.
	list = c.Remove(list[0])
	for _, s := range list {
		if s.ID == "s-1" {
			t.Error("Entry still present after best-effort remove")
		}
	}
}

func TestRemove_LocalDraftSkipsRemote(t *testing.T) {
	var deleteCount int32
	srv := mockserver.New(
		mockserver.WithRequestHook(func(r *http.Request) {
			if r.Method == "DELETE" {
				atomic.AddInt32(&deleteCount, 1)
			}
		}),
	)
	defer srv.Close()
	c, _ := newTestCache(t, srv.URL, 5*time.Second)

	list := c.CreateLocal(store.Session{Name: "draft"})
	c.Remove(list[0])
	if atomic.LoadInt32(&deleteCount) != 0 {
		t.Error("Removing a local draft must not call the backend")
	}
}

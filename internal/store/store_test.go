package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/mmcdole/reel/internal/domain"
)

var drivers = []string{DriverMemory, DriverBolt, DriverSQLite}

func openTestCache(t *testing.T, driver, dir string) *Cache {
	t.Helper()
	cfg := Config{Driver: driver, Dir: dir, Namespace: "https://api.themoviedb.org/3/"}
	if driver == DriverMemory {
		cfg.Dir = ""
	}
	c, err := Open(cfg, nil)
	if err != nil {
		t.Fatalf("Open(%s) error = %v", driver, err)
	}
	return c
}

func forEachDriver(t *testing.T, fn func(t *testing.T, driver string)) {
	for _, d := range drivers {
		t.Run(d, func(t *testing.T) { fn(t, d) })
	}
}

func movies(titles ...string) []domain.Movie {
	out := make([]domain.Movie, 0, len(titles))
	for _, title := range titles {
		out = append(out, domain.Movie{Title: title, PosterPath: "/" + title + ".jpg"})
	}
	return out
}

func TestSnapshotEmptyCategory(t *testing.T) {
	forEachDriver(t, func(t *testing.T, driver string) {
		c := openTestCache(t, driver, t.TempDir())
		defer c.Close()

		got, err := c.Snapshot(context.Background(), domain.CategoryAction)
		if err != nil {
			t.Fatalf("Snapshot() error = %v", err)
		}
		if got == nil || len(got) != 0 {
			t.Errorf("Snapshot() = %#v, want empty non-nil slice", got)
		}
	})
}

func TestReplaceKeepsOrderAndScope(t *testing.T) {
	forEachDriver(t, func(t *testing.T, driver string) {
		ctx := context.Background()
		c := openTestCache(t, driver, t.TempDir())
		defer c.Close()

		mustReplace(t, c, domain.CategoryTopRated, movies("godfather", "parasite"))
		mustReplace(t, c, domain.CategoryAction, movies("heat", "ronin", "drive"))
		mustReplace(t, c, domain.CategoryAction, movies("speed"))

		want := map[domain.Category][]domain.Movie{
			domain.CategoryTopRated:  movies("godfather", "parasite"),
			domain.CategoryAction:    movies("speed"),
			domain.CategoryAnimation: {},
		}
		for cat, w := range want {
			got, err := c.Snapshot(ctx, cat)
			if err != nil {
				t.Fatalf("Snapshot(%s) error = %v", cat, err)
			}
			if diff := cmp.Diff(w, got); diff != "" {
				t.Errorf("Snapshot(%s) mismatch (-want +got):\n%s", cat, diff)
			}
		}
	})
}

func TestFailedReplaceLeavesContents(t *testing.T) {
	forEachDriver(t, func(t *testing.T, driver string) {
		c := openTestCache(t, driver, t.TempDir())
		defer c.Close()
		mustReplace(t, c, domain.CategoryAnimation, movies("totoro"))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := c.Replace(ctx, domain.CategoryAnimation, movies("akira"))
		if !errors.Is(err, domain.ErrPersistence) {
			t.Fatalf("Replace() error = %v, want PersistenceError", err)
		}

		got, _ := c.Snapshot(context.Background(), domain.CategoryAnimation)
		if diff := cmp.Diff(movies("totoro"), got); diff != "" {
			t.Errorf("contents changed after failed replace (-want +got):\n%s", diff)
		}
	})
}

func TestObserveReemitsAfterReplace(t *testing.T) {
	forEachDriver(t, func(t *testing.T, driver string) {
		c := openTestCache(t, driver, t.TempDir())
		defer c.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		emissions := make(chan []domain.Movie, 4)
		done := make(chan error, 1)
		go func() {
			done <- c.Observe(domain.CategoryTopRated)(ctx, func(m []domain.Movie) error {
				emissions <- m
				return nil
			})
		}()

		if got := next(t, emissions); len(got) != 0 {
			t.Fatalf("first emission = %v, want empty", got)
		}

		mustReplace(t, c, domain.CategoryTopRated, movies("alien"))
		if diff := cmp.Diff(movies("alien"), next(t, emissions)); diff != "" {
			t.Errorf("emission after replace (-want +got):\n%s", diff)
		}

		// A different category does not wake this observer
		mustReplace(t, c, domain.CategoryAction, movies("heat"))
		select {
		case m := <-emissions:
			t.Errorf("unexpected emission %v", m)
		case <-time.After(50 * time.Millisecond):
		}

		cancel()
		if err := <-done; !errors.Is(err, context.Canceled) {
			t.Errorf("Observe() error = %v, want context.Canceled", err)
		}
	})
}

func TestObserveEndsOnClose(t *testing.T) {
	c := openTestCache(t, DriverMemory, "")
	done := make(chan error, 1)
	started := make(chan struct{})
	go func() {
		done <- c.Observe(domain.CategoryAction)(context.Background(), func([]domain.Movie) error {
			close(started)
			return nil
		})
	}()
	<-started
	c.Close()

	select {
	case err := <-done:
		if !errors.Is(err, ErrClosed) || !errors.Is(err, domain.ErrPersistence) {
			t.Errorf("Observe() error = %v, want closed persistence error", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Observe() did not end after Close")
	}

	if err := c.Replace(context.Background(), domain.CategoryAction, nil); !errors.Is(err, ErrClosed) {
		t.Errorf("Replace() after Close error = %v, want ErrClosed", err)
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	for _, driver := range []string{DriverBolt, DriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			dir := t.TempDir()
			c := openTestCache(t, driver, dir)
			mustReplace(t, c, domain.CategoryAction, movies("heat", "ronin"))
			if err := c.Close(); err != nil {
				t.Fatalf("Close() error = %v", err)
			}

			reopened := openTestCache(t, driver, dir)
			defer reopened.Close()
			got, err := reopened.Snapshot(context.Background(), domain.CategoryAction)
			if err != nil {
				t.Fatalf("Snapshot() error = %v", err)
			}
			if diff := cmp.Diff(movies("heat", "ronin"), got); diff != "" {
				t.Errorf("after reopen (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBoltFirstLoadDoesNotHideReplace(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "movies.db")

	large := make([]domain.Movie, 20000)
	for i := range large {
		large[i] = domain.Movie{Title: fmt.Sprintf("movie %d", i)}
	}
	want := movies("heat")

	for i := 0; i < 10; i++ {
		b, err := openBolt(path)
		if err != nil {
			t.Fatalf("openBolt() error = %v", err)
		}
		if err := b.replace(ctx, domain.CategoryAction, large); err != nil {
			t.Fatalf("seed replace() error = %v", err)
		}
		b.close()

		// Reopen so the first load goes to disk
		b, err = openBolt(path)
		if err != nil {
			t.Fatalf("openBolt() error = %v", err)
		}

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := b.load(ctx, domain.CategoryAction); err != nil {
				t.Errorf("load() error = %v", err)
			}
		}()
		if err := b.replace(ctx, domain.CategoryAction, want); err != nil {
			t.Fatalf("replace() error = %v", err)
		}
		wg.Wait()

		got, err := b.load(ctx, domain.CategoryAction)
		if err != nil {
			t.Fatalf("load() error = %v", err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("iteration %d: load after replace (-want +got):\n%s", i, diff)
		}
		b.close()
	}
}

func TestClearRemovesNamespaceDir(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{Driver: DriverBolt, Dir: dir, Namespace: "https://api.themoviedb.org/3"}
	c, err := Open(cfg, nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	c.Close()

	nsDir := filepath.Join(dir, hashNamespace(cfg.Namespace))
	if _, err := os.Stat(nsDir); err != nil {
		t.Fatalf("namespace dir missing: %v", err)
	}
	if err := Clear(cfg); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if _, err := os.Stat(nsDir); !os.IsNotExist(err) {
		t.Errorf("namespace dir still present, stat error = %v", err)
	}
}

func TestHashNamespaceNormalizes(t *testing.T) {
	if hashNamespace("https://API.themoviedb.org/3/") != hashNamespace("https://api.themoviedb.org/3") {
		t.Error("namespaces differing only in case and trailing slash should share a directory")
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(Config{Driver: "redis", Dir: t.TempDir()}, nil); err == nil {
		t.Error("Open() with unknown driver should fail")
	}
}

func mustReplace(t *testing.T, c *Cache, cat domain.Category, m []domain.Movie) {
	t.Helper()
	if err := c.Replace(context.Background(), cat, m); err != nil {
		t.Fatalf("Replace(%s) error = %v", cat, err)
	}
}

func next(t *testing.T, ch <-chan []domain.Movie) []domain.Movie {
	t.Helper()
	select {
	case m := <-ch:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for emission")
		return nil
	}
}

package cache_test

import (
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/pj-gestao-bfa-go/internal/domain"
	"github.com/boddenberg/pj-gestao-bfa-go/internal/infra/cache"
)

func TestCache_SetAndGet(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	c.Set("key1", "value1")
	val, ok := c.Get("key1")
	if !ok {
		t.Fatal("expected key to exist")
	}
	if val != "value1" {
		t.Errorf("expected 'value1', got '%s'", val)
	}
}

func TestCache_GetMiss(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	if _, ok := c.Get("nonexistent"); ok {
		t.Fatal("expected cache miss for nonexistent key")
	}
}

func TestCache_Expiration(t *testing.T) {
	c := cache.New[string](50 * time.Millisecond)
	defer c.Close()

	c.Set("key1", "value1")
	time.Sleep(100 * time.Millisecond)

	if _, ok := c.Get("key1"); ok {
		t.Fatal("expected cache entry to be expired")
	}
}

func TestCache_Delete(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	c.Set("key1", "value1")
	c.Delete("key1")

	if _, ok := c.Get("key1"); ok {
		t.Fatal("expected key to be deleted")
	}
}

func TestCache_GetOrLoadHolidaySet(t *testing.T) {
	c := cache.New[domain.HolidaySet](5 * time.Minute)
	defer c.Close()

	loads := 0
	load := func() (domain.HolidaySet, error) {
		loads++
		return domain.NewHolidaySet(domain.NationalHolidays(2024)), nil
	}

	set, hit, err := c.GetOrLoad("emp-1|fil-1|2024", load)
	if err != nil || hit {
		t.Fatalf("expected miss without error, got hit=%v err=%v", hit, err)
	}
	if !set.Contains(time.Date(2024, 12, 25, 0, 0, 0, 0, time.UTC)) {
		t.Error("expected christmas in the loaded calendar")
	}

	if _, hit, _ = c.GetOrLoad("emp-1|fil-1|2024", load); !hit {
		t.Error("expected second lookup to hit")
	}
	if loads != 1 {
		t.Errorf("expected 1 load, got %d", loads)
	}
}

func TestCache_GetOrLoadErrorNotCached(t *testing.T) {
	c := cache.New[int](5 * time.Minute)
	defer c.Close()

	_, _, err := c.GetOrLoad("k", func() (int, error) { return 0, errors.New("boom") })
	if err == nil {
		t.Fatal("expected load error")
	}
	if c.Len() != 0 {
		t.Errorf("expected empty cache, got %d entries", c.Len())
	}
}

func TestCache_DeletePrefix(t *testing.T) {
	c := cache.New[int](5 * time.Minute)
	defer c.Close()

	c.Set("emp-1|fil-1|2024", 1)
	c.Set("emp-1|fil-1|2025", 2)
	c.Set("emp-2|fil-1|2024", 3)

	c.DeletePrefix("emp-1|fil-1|")

	if _, ok := c.Get("emp-1|fil-1|2024"); ok {
		t.Error("expected 2024 entry removed")
	}
	if _, ok := c.Get("emp-1|fil-1|2025"); ok {
		t.Error("expected 2025 entry removed")
	}
	if v, ok := c.Get("emp-2|fil-1|2024"); !ok || v != 3 {
		t.Error("expected other tenant untouched")
	}
}

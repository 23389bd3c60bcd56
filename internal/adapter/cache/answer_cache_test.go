package cache

import (
	"fmt"
	"testing"
	"time"

	"healthsense/internal/domain"
)

func query(text, language string) domain.Query {
	return domain.Query{Text: text, Language: language}
}

func TestAnswerCache_PutGet(t *testing.T) {
	c := NewAnswerCache(10, time.Minute)

	answer := domain.Answer{Text: "drink fluids and rest", Language: "en"}
	c.Put(query("how to treat fever", "en"), answer)

	got, hit := c.Get(query("how to treat fever", "en"))
	if !hit {
		t.Fatal("expected cache hit")
	}
	if got.Text != answer.Text {
		t.Errorf("expected %q, got %q", answer.Text, got.Text)
	}
}

func TestAnswerCache_LanguageIsPartOfKey(t *testing.T) {
	c := NewAnswerCache(10, time.Minute)

	c.Put(query("fever", "en"), domain.Answer{Text: "rest", Language: "en"})

	if _, hit := c.Get(query("fever", "hi")); hit {
		t.Error("expected miss for different language")
	}
}

func TestAnswerCache_TTLExpiry(t *testing.T) {
	c := NewAnswerCache(10, 10*time.Millisecond)

	c.Put(query("fever", "en"), domain.Answer{Text: "rest"})
	time.Sleep(20 * time.Millisecond)

	if _, hit := c.Get(query("fever", "en")); hit {
		t.Error("expected expired entry")
	}
	if c.Size() != 0 {
		t.Errorf("expected expired entry removed, size=%d", c.Size())
	}
}

func TestAnswerCache_SyncGenerationDropsStaleEntries(t *testing.T) {
	c := NewAnswerCache(10, time.Minute)

	c.Put(query("fever", "en"), domain.Answer{Text: "rest"})
	if _, hit := c.Get(query("fever", "en")); !hit {
		t.Fatal("expected hit before the index advanced")
	}

	c.SyncGeneration(1)

	if _, hit := c.Get(query("fever", "en")); hit {
		t.Error("expected entry from the previous index generation dropped")
	}

	// Entries written under the synced generation stay valid.
	c.Put(query("fever", "en"), domain.Answer{Text: "rest"})
	c.SyncGeneration(1)
	if _, hit := c.Get(query("fever", "en")); !hit {
		t.Error("expected hit for the current generation")
	}
}

func TestAnswerCache_InvalidateDropsEntries(t *testing.T) {
	c := NewAnswerCache(10, time.Minute)

	c.Put(query("fever", "en"), domain.Answer{Text: "rest"})
	c.Invalidate()

	if _, hit := c.Get(query("fever", "en")); hit {
		t.Error("expected miss after invalidation")
	}
}

func TestAnswerCache_EvictsOldest(t *testing.T) {
	c := NewAnswerCache(2, time.Minute)

	for i := 0; i < 3; i++ {
		c.Put(query(fmt.Sprintf("q%d", i), "en"), domain.Answer{Text: "a"})
	}

	if c.Size() != 2 {
		t.Fatalf("expected size 2, got %d", c.Size())
	}
	if _, hit := c.Get(query("q0", "en")); hit {
		t.Error("expected oldest entry evicted")
	}
	if _, hit := c.Get(query("q2", "en")); !hit {
		t.Error("expected newest entry kept")
	}
}

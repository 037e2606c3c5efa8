package cache

import (
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"valid-redis", "redis://localhost:6379", false},
		{"valid-with-db", "redis://localhost:6379/0", false},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseURL() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNew_UnreachableHost(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping unreachable host test in short mode")
	}

	ctx := t.Context()
	_, err := New(ctx, "redis://localhost:59999")
	if err == nil {
		t.Fatal("New() should return error for unreachable host")
	}
}

func TestJSONHelpers_UnreachableHost(t *testing.T) {
	opts, err := ParseURL("redis://localhost:59999")
	if err != nil {
		t.Fatal(err)
	}
	opts.MaxRetries = -1
	c := &Cache{Client: redis.NewClient(opts)}
	defer c.Close()

	ctx := t.Context()
	var v map[string]int
	if _, err := c.GetJSON(ctx, "k", &v); err == nil {
		t.Error("GetJSON() should fail when the cache is down")
	}
	if err := c.SetJSON(ctx, "k", map[string]int{"a": 1}, time.Minute); err == nil {
		t.Error("SetJSON() should fail when the cache is down")
	}
	if err := c.SetJSON(ctx, "k", make(chan int), 0); err == nil {
		t.Error("SetJSON() should fail for values that cannot be encoded")
	}
	if _, err := c.GetInt(ctx, "n"); err == nil {
		t.Error("GetInt() should fail when the cache is down")
	}
	if err := c.Delete(ctx); err != nil {
		t.Errorf("Delete() with no keys error = %v", err)
	}
}

package blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()
	fsStore, err := NewFilesystem(filepath.Join(t.TempDir(), "blobs"))
	if err != nil {
		t.Fatalf("filesystem: %v", err)
	}
	return map[string]Store{
		"memory": NewMemory(nil),
		"fs":     fsStore,
		"s3":     NewMockS3ForTests(),
	}
}

func TestStoreContract(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			opts := PutOptions{ContentType: "application/json", Metadata: map[string]string{"meet": "m1"}}
			info, err := store.Put(ctx, "meets/m1/a.json", strings.NewReader(`{"a":1}`), opts)
			if err != nil {
				t.Fatalf("put: %v", err)
			}
			if info.Key != "meets/m1/a.json" || info.Size != 7 {
				t.Fatalf("unexpected put info %+v", info)
			}
			if _, err := store.Put(ctx, "meets/m1/a.json", strings.NewReader("x"), PutOptions{}); !errors.Is(err, ErrExists) {
				t.Fatalf("expected ErrExists on second put, got %v", err)
			}
			if _, err := store.Put(ctx, "meets/m2/b.json", strings.NewReader("{}"), PutOptions{}); err != nil {
				t.Fatalf("put second: %v", err)
			}

			head, err := store.Head(ctx, "meets/m1/a.json")
			if err != nil {
				t.Fatalf("head: %v", err)
			}
			if head.ContentType != "application/json" || head.Metadata["meet"] != "m1" {
				t.Fatalf("head lost metadata: %+v", head)
			}
			got, rc, err := store.Get(ctx, "meets/m1/a.json")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			body, _ := io.ReadAll(rc)
			_ = rc.Close()
			if string(body) != `{"a":1}` || got.Size != 7 {
				t.Fatalf("unexpected get %q %+v", body, got)
			}

			list, err := store.List(ctx, "meets/m1/")
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			var keys []string
			for _, i := range list {
				keys = append(keys, i.Key)
			}
			if diff := cmp.Diff([]string{"meets/m1/a.json"}, keys); diff != "" {
				t.Fatalf("list (-want +got):\n%s", diff)
			}
			all, _ := store.List(ctx, "")
			if len(all) != 2 || all[0].Key > all[1].Key {
				t.Fatalf("expected two keys in order, got %+v", all)
			}

			existed, err := store.Delete(ctx, "meets/m1/a.json")
			if err != nil || !existed {
				t.Fatalf("delete: %v %v", existed, err)
			}
			existed, err = store.Delete(ctx, "meets/m1/a.json")
			if err != nil || existed {
				t.Fatalf("second delete should report missing: %v %v", existed, err)
			}
			if _, err := store.Head(ctx, "meets/m1/a.json"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound from head, got %v", err)
			}
			if _, _, err := store.Get(ctx, "meets/m1/a.json"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound from get, got %v", err)
			}
		})
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name   string
		cfg    Config
		driver Driver
		fail   bool
	}{
		{"default is filesystem", Config{FSRoot: t.TempDir()}, DriverFilesystem, false},
		{"memory", Config{Driver: DriverMemory}, DriverMemory, false},
		{"s3 without bucket", Config{Driver: DriverS3}, "", true},
		{"unknown", Config{Driver: "tape"}, "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store, err := Open(ctx, tc.cfg)
			if tc.fail {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			if store.Driver() != tc.driver {
				t.Fatalf("driver = %s, want %s", store.Driver(), tc.driver)
			}
		})
	}
}

func TestPresignURL(t *testing.T) {
	ctx := context.Background()
	stores := backends(t)
	for _, store := range stores {
		if _, err := store.Put(ctx, "k.json", bytes.NewReader([]byte("{}")), PutOptions{}); err != nil {
			t.Fatalf("%s put: %v", store.Driver(), err)
		}
	}

	if _, err := stores["memory"].PresignURL(ctx, "k.json", SignedURLOptions{}); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("memory presign should be unsupported, got %v", err)
	}
	u, err := stores["fs"].PresignURL(ctx, "k.json", SignedURLOptions{})
	if err != nil || !strings.HasPrefix(u, "file://") || !strings.HasSuffix(u, "/k.json") {
		t.Fatalf("unexpected fs url %q %v", u, err)
	}
	u, err = stores["s3"].PresignURL(ctx, "k.json", SignedURLOptions{Expiry: time.Minute})
	if err != nil || !strings.Contains(u, "k.json") || !strings.Contains(u, "X-Amz-Expires=60") {
		t.Fatalf("unexpected s3 url %q %v", u, err)
	}
	for _, store := range stores {
		if _, err := store.PresignURL(ctx, "k.json", SignedURLOptions{Method: "PUT"}); err == nil {
			t.Fatalf("%s: PUT urls are not offered", store.Driver())
		}
	}
}

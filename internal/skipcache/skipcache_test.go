package skipcache

import "testing"

func TestNew_SelectsBackendByKind(t *testing.T) {
	cases := []struct {
		kind    string
		cfg     Config
		wantErr bool
	}{
		{kind: "", cfg: Config{}, wantErr: false},
		{kind: "local", cfg: Config{LocalDir: t.TempDir()}, wantErr: false},
		{kind: "redis", cfg: Config{RedisAddr: "localhost:6379"}, wantErr: false},
		{kind: "s3", cfg: Config{S3Endpoint: "s3.amazonaws.com", S3Bucket: "b", S3AccessKey: "k", S3SecretKey: "s"}, wantErr: false},
		{kind: "carrier-pigeon", cfg: Config{}, wantErr: true},
	}
	for _, c := range cases {
		backend, err := New(c.kind, c.cfg)
		if c.wantErr {
			if err == nil {
				t.Errorf("New(%q) expected error, got nil", c.kind)
			}
			continue
		}
		if err != nil {
			t.Errorf("New(%q) unexpected error: %v", c.kind, err)
			continue
		}
		if backend == nil {
			t.Errorf("New(%q) returned nil backend with nil error", c.kind)
		}
	}
}

func TestLocal_PutThenHas(t *testing.T) {
	l := NewLocal(t.TempDir())
	key := "job-skip-ci-lint-amd64-abc123"

	has, err := l.Has(key)
	if err != nil {
		t.Fatalf("Has (before Put): %v", err)
	}
	if has {
		t.Fatal("Has reported a hit before Put ever ran")
	}

	if err := l.Put(key); err != nil {
		t.Fatalf("Put: %v", err)
	}

	has, err = l.Has(key)
	if err != nil {
		t.Fatalf("Has (after Put): %v", err)
	}
	if !has {
		t.Fatal("Has reported a miss after Put")
	}
}

package password

import "testing"

func testConfig() Config {
	// Cheap parameters so the suite stays fast; cost does not change semantics.
	return Config{Params: Argon2idParams{
		MemoryKiB:   8 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}}
}

func TestHashNewAndVerify_OK(t *testing.T) {
	cfg := testConfig()

	hash, salt, err := cfg.HashNew("thisisapassword")
	if err != nil {
		t.Fatalf("HashNew error: %v", err)
	}
	if hash == "" || salt == "" {
		t.Fatalf("expected non-empty hash and salt")
	}

	if !cfg.Verify("thisisapassword", hash, salt) {
		t.Fatalf("expected match")
	}
}

func TestVerify_WrongPassword(t *testing.T) {
	cfg := testConfig()

	hash, salt, err := cfg.HashNew("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashNew error: %v", err)
	}

	if cfg.Verify("wrong password", hash, salt) {
		t.Fatalf("expected mismatch")
	}
}

func TestVerify_WrongSalt(t *testing.T) {
	cfg := testConfig()

	hash := cfg.Hash("secret", "salt-a")
	if cfg.Verify("secret", hash, "salt-b") {
		t.Fatalf("expected mismatch under a different salt")
	}
	if !cfg.Verify("secret", hash, "salt-a") {
		t.Fatalf("expected match under the original salt")
	}
}

func TestHash_Deterministic(t *testing.T) {
	cfg := testConfig()

	a := cfg.Hash("pw", "fixed-salt")
	b := cfg.Hash("pw", "fixed-salt")
	if a != b {
		t.Fatalf("hash not deterministic: %q vs %q", a, b)
	}
}

func TestGenerateSalt_Unique(t *testing.T) {
	cfg := testConfig()

	seen := make(map[string]bool)
	for i := 0; i < 64; i++ {
		s, err := cfg.GenerateSalt()
		if err != nil {
			t.Fatalf("GenerateSalt error: %v", err)
		}
		if seen[s] {
			t.Fatalf("salt repeated: %q", s)
		}
		seen[s] = true
	}
}

func TestVerify_EmptyStoredHash(t *testing.T) {
	cfg := testConfig()

	if cfg.Verify("anything", "", "salt") {
		t.Fatalf("empty stored hash must never verify")
	}
}

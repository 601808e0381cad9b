package password

import "testing"

func BenchmarkHash_Default(b *testing.B) {
	cfg := DefaultConfig()
	for i := 0; i < b.N; i++ {
		_ = cfg.Hash("benchmark-password", "benchmark-salt")
	}
}

func BenchmarkVerify_Default(b *testing.B) {
	cfg := DefaultConfig()
	hash, salt, err := cfg.HashNew("benchmark-password")
	if err != nil {
		b.Fatalf("HashNew error: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if !cfg.Verify("benchmark-password", hash, salt) {
			b.Fatalf("expected match")
		}
	}
}

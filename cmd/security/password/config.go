package password

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// Argon2idParams controls Argon2id hashing cost.
// MemoryKiB is in KiB as required by argon2.IDKey.
type Argon2idParams struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Config is the single configuration surface for this package.
type Config struct {
	Params Argon2idParams
}

// DefaultConfig returns a conservative baseline for interactive logins.
// Parallelism follows CPU count, clamped to [1..4] to keep resource usage
// predictable in containers.
func DefaultConfig() Config {
	threads := runtime.NumCPU()
	if threads <= 0 {
		threads = 1
	}
	if threads > 4 {
		threads = 4
	}

	return Config{
		Params: Argon2idParams{
			MemoryKiB:   64 * 1024, // 64 MiB
			Iterations:  3,
			Parallelism: uint8(threads), // #nosec G115 -- clamped to [1..4] above; safe conversion.
			SaltLength:  16,
			KeyLength:   32,
		},
	}
}

// FromEnv loads config from environment variables.
//
// Env surface:
// - LODGE_ARGON2_MEMORY_KIB
// - LODGE_ARGON2_ITERATIONS
// - LODGE_ARGON2_PARALLELISM
// - LODGE_ARGON2_SALT_LEN
// - LODGE_ARGON2_KEY_LEN
func FromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v, ok := os.LookupEnv("LODGE_ARGON2_MEMORY_KIB"); ok {
		u, err := atou32(v, 8*1024, 1024*1024) // 8 MiB .. 1 GiB
		if err != nil {
			return Config{}, fmt.Errorf("LODGE_ARGON2_MEMORY_KIB: %w", err)
		}
		cfg.Params.MemoryKiB = u
	}

	if v, ok := os.LookupEnv("LODGE_ARGON2_ITERATIONS"); ok {
		u, err := atou32(v, 1, 20)
		if err != nil {
			return Config{}, fmt.Errorf("LODGE_ARGON2_ITERATIONS: %w", err)
		}
		cfg.Params.Iterations = u
	}

	if v, ok := os.LookupEnv("LODGE_ARGON2_PARALLELISM"); ok {
		u, err := atou32(v, 1, 255)
		if err != nil {
			return Config{}, fmt.Errorf("LODGE_ARGON2_PARALLELISM: %w", err)
		}
		cfg.Params.Parallelism = uint8(u) // #nosec G115 -- bounded by atou32 above.
	}

	if v, ok := os.LookupEnv("LODGE_ARGON2_SALT_LEN"); ok {
		u, err := atou32(v, 8, 64)
		if err != nil {
			return Config{}, fmt.Errorf("LODGE_ARGON2_SALT_LEN: %w", err)
		}
		cfg.Params.SaltLength = u
	}

	if v, ok := os.LookupEnv("LODGE_ARGON2_KEY_LEN"); ok {
		u, err := atou32(v, 16, 64)
		if err != nil {
			return Config{}, fmt.Errorf("LODGE_ARGON2_KEY_LEN: %w", err)
		}
		cfg.Params.KeyLength = u
	}

	return cfg, nil
}

func atou32(s string, minVal, maxVal uint32) (uint32, error) {
	s = strings.TrimSpace(s)
	u64, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("not an unsigned integer")
	}

	u := uint32(u64)
	if u < minVal || u > maxVal {
		return 0, fmt.Errorf("out of range [%d..%d]", minVal, maxVal)
	}
	return u, nil
}

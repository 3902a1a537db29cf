// ABOUTME: Test helpers for config tests
// ABOUTME: Provides utilities for environment variable management

package config

import (
	"os"
	"testing"
)

// withCleanAPIEnv clears the environment, sets the required upstream and
// token settings to test values, and returns a cleanup function that restores
// the original env. Use with t.Cleanup().
//
// Example:
//
//	func TestSomething(t *testing.T) {
//	    t.Cleanup(withCleanAPIEnv(t))
//	    // Environment is cleared, API_BASE_URL and JWT_SECRET are set
//	}
func withCleanAPIEnv(t *testing.T) func() {
	t.Helper()
	return withCleanAPIEnvAndExtra(t, nil)
}

// withCleanAPIEnvAndExtra clears the environment, sets the required vars
// plus additional vars, and returns a cleanup function that restores the
// original env. Use with t.Cleanup().
//
// Example:
//
//	func TestSomething(t *testing.T) {
//	    t.Cleanup(withCleanAPIEnvAndExtra(t, map[string]string{
//	        "CACHE_BACKEND": "redis",
//	    }))
//	}
func withCleanAPIEnvAndExtra(t *testing.T, extra map[string]string) func() {
	t.Helper()

	// Save entire environment
	originalEnv := os.Environ()

	// Clear environment for clean slate
	os.Clearenv()

	os.Setenv("API_BASE_URL", "https://api.acreditaciones.test")
	os.Setenv("JWT_SECRET", "test-secret")
	os.Setenv("ENV_FILE", "testdata/does-not-exist.env")

	// Set extra values
	for key, value := range extra {
		os.Setenv(key, value)
	}

	// Return cleanup function that restores original environment
	return func() {
		os.Clearenv()
		for _, env := range originalEnv {
			for i := 0; i < len(env); i++ {
				if env[i] == '=' {
					os.Setenv(env[:i], env[i+1:])
					break
				}
			}
		}
	}
}

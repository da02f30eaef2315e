package fingerprint

import (
	"encoding/hex"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_Fingerprint(t *testing.T) {
	m := NewManager()

	fp := m.Fingerprint()
	require.NotEmpty(t, fp)
	assert.Len(t, fp, 64, "SHA-256 hex digest")

	_, err := hex.DecodeString(fp)
	assert.NoError(t, err, "fingerprint must be valid hex")
}

func TestManager_FingerprintIsStable(t *testing.T) {
	m := NewManager()

	first := m.Fingerprint()
	second := m.Fingerprint()
	assert.Equal(t, first, second, "cached fingerprint is reused")

	m.Invalidate()
	third := m.Fingerprint()
	assert.Equal(t, first, third, "recomputed fingerprint matches on the same machine")
}

func TestManager_ConcurrentAccess(t *testing.T) {
	m := NewManager()

	var wg sync.WaitGroup
	results := make([]string, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = m.Fingerprint()
		}(i)
	}
	wg.Wait()

	for _, fp := range results {
		assert.Equal(t, results[0], fp)
	}
}

func TestManager_Describe(t *testing.T) {
	m := NewManager()
	desc := m.Describe()
	assert.Contains(t, desc, "host=")
	assert.Contains(t, desc, "os=")
}

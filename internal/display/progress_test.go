package display

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressIndicator(t *testing.T) {
	var buf bytes.Buffer
	pi := NewProgressIndicator(&buf, 2)
	require.NotNil(t, pi)
	assert.False(t, pi.colorOutput)

	pi.Start()
	pi.Step("/tmp/crews/research.yaml")
	pi.Step("crews/writer.md")
	pi.Complete()

	want := "Loading crew files:\n" +
		"  [1/2] research.yaml\n" +
		"  [2/2] writer.md\n" +
		"✓ Loaded 2 crew files\n\n"
	assert.Equal(t, want, buf.String())
	assert.NotContains(t, buf.String(), "\x1b[")
}

func TestProgressIndicator_ConcurrentSteps(t *testing.T) {
	const total = 20
	var buf bytes.Buffer
	pi := NewProgressIndicator(&buf, total)

	var wg sync.WaitGroup
	for i := 0; i < total; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			pi.Step(fmt.Sprintf("crew%d.yaml", i))
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, total)
	for i, line := range lines {
		assert.True(t, strings.HasPrefix(line, fmt.Sprintf("  [%d/%d] crew", i+1, total)), line)
	}
}

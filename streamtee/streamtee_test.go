package streamtee

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTeeDeliversSameBytesToBothConsumers(t *testing.T) {
	src := io.NopCloser(strings.NewReader("hello world, this is a streamed response"))
	live, capture := Tee(src, 1<<20)

	liveBytes, err := io.ReadAll(live)
	require.NoError(t, err)

	capture.Wait()
	assert.Equal(t, StateDone, capture.State())
	assert.Equal(t, "hello world, this is a streamed response", string(liveBytes))
	assert.Equal(t, string(liveBytes), string(capture.Bytes()))
}

func TestTeeOverflowAbandonsCaptureWithoutAffectingLive(t *testing.T) {
	payload := strings.Repeat("x", 100)
	src := io.NopCloser(strings.NewReader(payload))
	live, capture := Tee(src, 10)

	liveBytes, err := io.ReadAll(live)
	require.NoError(t, err)
	assert.Equal(t, payload, string(liveBytes), "live must receive all bytes even though capture overflowed")

	capture.Wait()
	assert.Equal(t, StateOverflow, capture.State())
}

func TestTeeLiveCancellationDoesNotStopCapture(t *testing.T) {
	pr, pw := io.Pipe()
	go func() {
		pw.Write([]byte("first chunk "))
		time.Sleep(10 * time.Millisecond)
		pw.Write([]byte("second chunk"))
		pw.Close()
	}()

	live, capture := Tee(pr, 1<<20)

	buf := make([]byte, len("first chunk "))
	_, err := io.ReadFull(live, buf)
	require.NoError(t, err)
	require.NoError(t, live.Close())

	capture.Wait()
	assert.Equal(t, StateDone, capture.State())
	assert.Equal(t, "first chunk second chunk", string(capture.Bytes()))
}

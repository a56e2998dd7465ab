package proc

import (
	"bytes"
	"io"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// oggPage builds a minimal Ogg page carrying the given packets.
func oggPage(packets ...[]byte) []byte {
	var lacing, body []byte
	for _, p := range packets {
		n := len(p)
		for n >= 255 {
			lacing = append(lacing, 255)
			n -= 255
		}
		lacing = append(lacing, byte(n))
		body = append(body, p...)
	}
	header := make([]byte, 27)
	copy(header, "OggS")
	header[26] = byte(len(lacing))
	return append(append(header, lacing...), body...)
}

func TestStreamProvider_Packets(t *testing.T) {
	long := bytes.Repeat([]byte{7}, 300)
	var stream bytes.Buffer
	stream.WriteString("junk")
	stream.Write(oggPage([]byte("OpusHead\x01\x02"), []byte("OpusTags....")))
	stream.Write(oggPage([]byte{1, 2, 3}, long))
	stream.Write(oggPage([]byte{4}))

	var finished atomic.Int32
	p := NewStreamProvider(&stream, nil)
	p.OnFinish = func() { finished.Add(1) }

	f, err := p.ProvideOpusFrame()
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, f)

	f, err = p.ProvideOpusFrame()
	require.NoError(t, err)
	assert.Equal(t, long, f)

	f, err = p.ProvideOpusFrame()
	require.NoError(t, err)
	assert.Equal(t, []byte{4}, f)

	_, err = p.ProvideOpusFrame()
	assert.ErrorIs(t, err, io.EOF)
	_, err = p.ProvideOpusFrame()
	assert.Error(t, err)

	assert.EqualValues(t, 1, finished.Load())
	assert.EqualValues(t, 3, p.Frames())
}

func TestStreamProvider_PausedIsSilent(t *testing.T) {
	var paused atomic.Bool
	paused.Store(true)
	p := NewStreamProvider(bytes.NewReader(oggPage([]byte{9, 9})), paused.Load)

	f, err := p.ProvideOpusFrame()
	assert.NoError(t, err)
	assert.Nil(t, f)
	assert.Zero(t, p.Frames())

	paused.Store(false)
	f, err = p.ProvideOpusFrame()
	require.NoError(t, err)
	assert.Equal(t, []byte{9, 9}, f)
}

func TestStreamProvider_TruncatedPage(t *testing.T) {
	page := oggPage(bytes.Repeat([]byte{1}, 100))
	var finished atomic.Int32
	p := NewStreamProvider(bytes.NewReader(page[:len(page)-10]), nil)
	p.OnFinish = func() { finished.Add(1) }

	_, err := p.ProvideOpusFrame()
	assert.Error(t, err)
	p.Close()
	assert.EqualValues(t, 1, finished.Load())
}

func TestFFmpegArgs(t *testing.T) {
	args := ffmpegArgs()
	assert.Contains(t, args, "pipe:0")
	assert.Equal(t, "pipe:1", args[len(args)-1])
	assert.Contains(t, args, "opus")
}

func TestStream_SharedStderr(t *testing.T) {
	s := newStream(exec.Command("yt-dlp"), exec.Command("ffmpeg"))
	assert.Same(t, s.stderr, s.download.Stderr)
	assert.Same(t, s.stderr, s.encode.Stderr)

	// Both processes write at once, as os/exec does with one copier per command.
	var wg sync.WaitGroup
	for _, w := range []io.Writer{s.download.Stderr, s.encode.Stderr} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 2000 {
				_, _ = w.Write([]byte("error line\n"))
			}
		}()
	}
	wg.Wait()

	out := s.stderr.String()
	assert.Len(t, out, stderrLimit)
	assert.True(t, strings.HasPrefix(out, "error line\n"))
}

func TestLimitedWriter_DropsOverflow(t *testing.T) {
	w := newLimitedWriter(5)
	n, err := w.Write([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	n, _ = w.Write([]byte("defgh"))
	assert.Equal(t, 5, n)
	assert.Equal(t, "abcde", w.String())
}

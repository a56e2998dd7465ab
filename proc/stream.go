package proc

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/lrstanley/go-ytdlp"
)

// ErrNoAudio is returned when a stream ended without a single frame.
var ErrNoAudio = errors.New("stream produced no audio")

// Stream is a running yt-dlp | ffmpeg pipeline producing Ogg/Opus on Stdout.
type Stream struct {
	Stdout   io.ReadCloser
	download *exec.Cmd
	encode   *exec.Cmd
	stderr   *limitedWriter
	once     sync.Once
	err      error
}

func ffmpegArgs() []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-i", "pipe:0",
		"-map", "0:a",
		"-acodec", "libopus",
		"-b:a", "128k",
		"-vbr", "on",
		"-compression_level", "10",
		"-frame_duration", "20",
		"-ar", "48000",
		"-ac", "2",
		"-analyzeduration", "0",
		"-f", "opus",
		"pipe:1",
	}
}

// StartStream launches the pipeline for url. Cancelling ctx kills both processes.
func StartStream(ctx context.Context, url, proxy string) (*Stream, error) {
	dl := ytdlp.New().
		Format("bestaudio[ext=webm]/bestaudio/best").
		Output("-").
		NoPart().
		NoPlaylist().
		NoCheckFormats().
		NoWarnings().
		IgnoreConfig()
	if proxy != "" {
		dl.Proxy(proxy)
	}
	download := dl.BuildCommand(ctx, url)
	download.Env = append(os.Environ(), "PYTHONUNBUFFERED=1")

	encode := exec.CommandContext(ctx, "ffmpeg", ffmpegArgs()...)

	s := newStream(download, encode)

	pipe, err := download.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("yt-dlp stdout: %w", err)
	}
	encode.Stdin = pipe
	out, err := encode.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdout: %w", err)
	}
	s.Stdout = out

	if err := download.Start(); err != nil {
		return nil, fmt.Errorf("start yt-dlp: %w", err)
	}
	if err := encode.Start(); err != nil {
		_ = download.Process.Kill()
		_ = download.Wait()
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}
	return s, nil
}

// newStream pipes both processes' stderr into one bounded sink. os/exec
// copies each into it from its own goroutine.
func newStream(download, encode *exec.Cmd) *Stream {
	s := &Stream{download: download, encode: encode, stderr: newLimitedWriter(stderrLimit)}
	download.Stderr = s.stderr
	encode.Stderr = s.stderr
	return s
}

// Close kills whatever is still running and reaps both processes.
func (s *Stream) Close() error {
	s.once.Do(func() {
		for _, c := range []*exec.Cmd{s.download, s.encode} {
			if c.Process != nil {
				_ = c.Process.Kill()
			}
		}
		errDl := s.download.Wait()
		errEnc := s.encode.Wait()
		// A killed downloader or a broken pipe is the normal way a stream ends early.
		stderr := strings.TrimSpace(s.stderr.String())
		if errEnc != nil && !isKilled(errEnc) {
			s.err = fmt.Errorf("ffmpeg: %w (%s)", errEnc, stderr)
		} else if errDl != nil && !isKilled(errDl) && !strings.Contains(strings.ToLower(stderr), "broken pipe") {
			s.err = fmt.Errorf("yt-dlp: %w (%s)", errDl, stderr)
		}
	})
	return s.err
}

func isKilled(err error) bool {
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return !ee.Exited()
	}
	return false
}

const stderrLimit = 4096

// limitedWriter keeps the first n bytes written to it and drops the rest.
// It is safe for concurrent writers.
type limitedWriter struct {
	mu  sync.Mutex
	buf bytes.Buffer
	n   int
}

func newLimitedWriter(n int) *limitedWriter {
	return &limitedWriter{n: n}
}

func (l *limitedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if room := l.n - l.buf.Len(); room > 0 {
		if len(p) > room {
			l.buf.Write(p[:room])
		} else {
			l.buf.Write(p)
		}
	}
	return len(p), nil
}

func (l *limitedWriter) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.String()
}

// StreamProvider implements voice.OpusFrameProvider by parsing Ogg pages.
// While paused it hands out silence without reading.
type StreamProvider struct {
	reader    *bufio.Reader
	header    []byte
	segBuf    []byte
	packetBuf bytes.Buffer
	queue     [][]byte
	paused    func() bool
	frames    atomic.Int64
	OnFinish  func()
	once      sync.Once
}

func NewStreamProvider(r io.Reader, paused func() bool) *StreamProvider {
	return &StreamProvider{
		reader: bufio.NewReaderSize(r, 16384),
		header: make([]byte, 27),
		segBuf: make([]byte, 255),
		paused: paused,
	}
}

// Frames returns how many audio packets were handed out.
func (p *StreamProvider) Frames() int64 {
	return p.frames.Load()
}

func (p *StreamProvider) Close() {
	p.finish()
}

func (p *StreamProvider) finish() {
	p.once.Do(func() {
		if p.OnFinish != nil {
			p.OnFinish()
		}
	})
}

// ProvideOpusFrame returns the next Opus packet, (nil, nil) for silence, or
// an error once the stream is exhausted.
func (p *StreamProvider) ProvideOpusFrame() ([]byte, error) {
	if p.paused != nil && p.paused() {
		return nil, nil
	}
	if len(p.queue) > 0 {
		return p.pop(), nil
	}

	for {
		sig, err := p.reader.Peek(4)
		if err != nil {
			p.finish()
			return nil, err
		}
		if string(sig) != "OggS" {
			_, _ = p.reader.Discard(1)
			continue
		}
		if _, err := io.ReadFull(p.reader, p.header); err != nil {
			p.finish()
			return nil, err
		}

		segTable := p.segBuf[:int(p.header[26])]
		if _, err := io.ReadFull(p.reader, segTable); err != nil {
			p.finish()
			return nil, err
		}

		for _, segLen := range segTable {
			l := int(segLen)
			if _, err := io.CopyN(&p.packetBuf, p.reader, int64(l)); err != nil {
				p.finish()
				return nil, err
			}
			if l == 255 {
				continue
			}
			frame := bytes.Clone(p.packetBuf.Bytes())
			p.packetBuf.Reset()
			if len(frame) >= 8 && (string(frame[:8]) == "OpusHead" || string(frame[:8]) == "OpusTags") {
				continue
			}
			p.queue = append(p.queue, frame)
		}

		if len(p.queue) > 0 {
			return p.pop(), nil
		}
	}
}

func (p *StreamProvider) pop() []byte {
	f := p.queue[0]
	p.queue = p.queue[1:]
	p.frames.Add(1)
	return f
}

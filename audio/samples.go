package audio

import (
	"bytes"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/flac"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/vorbis"
	"github.com/gopxl/beep/wav"
)

// SampleLoader fetches and decodes named audio assets into memory.
// Decoded buffers are cached for the loader's lifetime; a name that
// is already being fetched is awaited rather than fetched twice. A
// failed load leaves the name uncached and reports the error to that
// caller only.
type SampleLoader struct {
	mu       sync.Mutex
	cache    map[string]*beep.Buffer
	inflight map[string]*pendingLoad
	client   *http.Client
}

type pendingLoad struct {
	done chan struct{}
	buf  *beep.Buffer
	err  error
}

func NewSampleLoader() *SampleLoader {
	return &SampleLoader{
		cache:    make(map[string]*beep.Buffer),
		inflight: make(map[string]*pendingLoad),
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Load returns the cached buffer for name, fetching and decoding it
// from path on first use. Concurrent loads of the same name share a
// single fetch.
func (l *SampleLoader) Load(name, path string) (*beep.Buffer, error) {
	l.mu.Lock()
	if buf, ok := l.cache[name]; ok {
		l.mu.Unlock()
		return buf, nil
	}
	if p, ok := l.inflight[name]; ok {
		l.mu.Unlock()
		<-p.done
		return p.buf, p.err
	}
	p := &pendingLoad{done: make(chan struct{})}
	l.inflight[name] = p
	l.mu.Unlock()

	p.buf, p.err = l.fetchAndDecode(path)

	l.mu.Lock()
	delete(l.inflight, name)
	if p.err == nil {
		l.cache[name] = p.buf
	}
	l.mu.Unlock()
	close(p.done)
	return p.buf, p.err
}

// Get returns a cached buffer without loading
func (l *SampleLoader) Get(name string) (*beep.Buffer, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	buf, ok := l.cache[name]
	return buf, ok
}

// Has reports whether name is cached
func (l *SampleLoader) Has(name string) bool {
	_, ok := l.Get(name)
	return ok
}

// RandomVariant scans base_1..base_max and returns one cached variant
// name at random. The second return is false when none are cached;
// callers treat that as the synthesis-fallback trigger, not an error.
func (l *SampleLoader) RandomVariant(base string, max int) (string, bool) {
	l.mu.Lock()
	var present []string
	for i := 1; i <= max; i++ {
		name := fmt.Sprintf("%s_%d", base, i)
		if _, ok := l.cache[name]; ok {
			present = append(present, name)
		}
	}
	l.mu.Unlock()
	if len(present) == 0 {
		return "", false
	}
	return present[rand.Intn(len(present))], true
}

// Len reports the number of cached buffers
func (l *SampleLoader) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.cache)
}

func (l *SampleLoader) fetchAndDecode(path string) (*beep.Buffer, error) {
	data, err := l.fetch(path)
	if err != nil {
		return nil, err
	}
	stream, format, err := decode(path, data)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	buf := beep.NewBuffer(bufferFormat)
	if format.SampleRate == sampleRate {
		buf.Append(stream)
	} else {
		buf.Append(beep.Resample(4, format.SampleRate, sampleRate, stream))
	}
	if buf.Len() == 0 {
		return nil, fmt.Errorf("audio: empty asset %q", path)
	}
	return buf, nil
}

// fetch retrieves raw encoded bytes from an http(s) URL or a file path
func (l *SampleLoader) fetch(path string) ([]byte, error) {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		resp, err := l.client.Get(path)
		if err != nil {
			return nil, fmt.Errorf("audio: fetch %q: %w", path, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("audio: fetch %q: status %d", path, resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("audio: read %q: %w", path, err)
	}
	return data, nil
}

// decode picks a decoder by file extension
func decode(path string, data []byte) (beep.StreamSeekCloser, beep.Format, error) {
	rc := io.NopCloser(bytes.NewReader(data))
	switch strings.ToLower(filepath.Ext(strippedPath(path))) {
	case ".wav":
		return wav.Decode(rc)
	case ".mp3":
		return mp3.Decode(rc)
	case ".ogg":
		return vorbis.Decode(rc)
	case ".flac":
		return flac.Decode(rc)
	default:
		return nil, beep.Format{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, path)
	}
}

// strippedPath drops any URL query so extension sniffing works
func strippedPath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		return path[:i]
	}
	return path
}

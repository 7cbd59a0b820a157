package media

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/pipelined/flac"
	"github.com/pipelined/mp3"
	oldpipe "github.com/pipelined/pipe"
	"github.com/pipelined/wav"

	"pipelined.dev/signal"
)

// wavPump, mp3Pump and flacPump mirror file/file.go's format.Pump switch,
// one constructor per codec package.
func wavPump(rs io.ReadSeeker) oldpipe.Pump  { return &wav.Pump{ReadSeeker: rs} }
func mp3Pump(rs io.ReadSeeker) oldpipe.Pump  { return &mp3.Pump{Reader: rs} }
func flacPump(rs io.ReadSeeker) oldpipe.Pump { return &flac.Pump{Reader: rs} }

// ErrCodecNotBound is returned by a pumpDecoder's Decode. Opening, probing
// and decoding a real file is delegated to the external media framework
// collaborator — this engine only owns dispatch (picking the right backend
// by extension) and the File/Decoder contract the worker drives; the codec
// itself is out of scope here.
var ErrCodecNotBound = errors.New("media: codec decode not bound (out of scope collaborator)")

// ErrUnsupportedFormat is returned when a path's extension does not match
// any registered Format.
var ErrUnsupportedFormat = errors.New("media: unsupported file format")

// Decoder is the frame-level decode contract: one Decode call yields either
// a frame, eof, or an error; never more than one of (frame!=nil) and eof.
type Decoder interface {
	Decode() (frame signal.Floating, eof bool, err error)
	SeekTo(seconds float64) error
	Close() error
}

// Format names a concrete container/codec and constructs a Decoder for it.
// Mirrors pipelined.dev/audio/file's Format interface.
type Format interface {
	Name() string
	Extensions() []string
	MatchExtension(ext string) bool
}

type format struct {
	name       string
	extensions []string
}

func (f *format) Name() string          { return f.name }
func (f *format) Extensions() []string  { return append(f.extensions[:0:0], f.extensions...) }
func (f *format) MatchExtension(ext string) bool {
	ext = strings.ToLower(ext)
	for _, e := range f.extensions {
		if e == ext {
			return true
		}
	}
	return false
}

var (
	// WAV represents Waveform Audio file format, decoded via
	// github.com/pipelined/wav.
	WAV Format = &format{name: "wav", extensions: []string{".wav", ".wave"}}
	// MP3 represents MPEG-1/2 Audio Layer III, decoded via
	// github.com/pipelined/mp3.
	MP3 Format = &format{name: "mp3", extensions: []string{".mp3"}}
	// FLAC represents Free Lossless Audio Codec, decoded via
	// github.com/pipelined/flac.
	FLAC Format = &format{name: "flac", extensions: []string{".flac"}}

	formatByExtension = func(formats ...Format) map[string]Format {
		m := make(map[string]Format)
		for _, fmt := range formats {
			for _, ext := range fmt.Extensions() {
				m[ext] = fmt
			}
		}
		return m
	}(WAV, MP3, FLAC)
)

// FormatByPath determines the file format from a path's extension, the same
// way pipelined.dev/audio/file.FormatByPath does.
func FormatByPath(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	f, ok := formatByExtension[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, path)
	}
	return f, nil
}

// pumpDecoder wraps an opaque github.com/pipelined/pipe.Pump obtained from
// one of the format-specific packages (pipelined/wav, pipelined/mp3,
// pipelined/flac). The handle is held but never driven directly — exactly
// how pipelined.dev/audio/file.WalkPipe treats it, passing it along to
// pipe.New's own runtime rather than calling methods on it — because driving
// the real codec is the external collaborator's job.
type pumpDecoder struct {
	pump oldpipe.Pump
	rs   io.ReadSeeker
}

// NewPumpDecoder constructs a Decoder bound to a real file via its detected
// Format. Decode on the result returns ErrCodecNotBound until a concrete
// binding to the pipe runtime is supplied by the embedding application —
// see SPEC_FULL.md §6 for why this boundary is intentional.
func NewPumpDecoder(f Format, rs io.ReadSeeker) (Decoder, error) {
	ff, ok := f.(*format)
	if !ok {
		return nil, fmt.Errorf("media: unknown format implementation %T", f)
	}
	var pump oldpipe.Pump
	switch ff {
	case WAV.(*format):
		pump = wavPump(rs)
	case MP3.(*format):
		pump = mp3Pump(rs)
	case FLAC.(*format):
		pump = flacPump(rs)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ff.name)
	}
	return &pumpDecoder{pump: pump, rs: rs}, nil
}

func (d *pumpDecoder) Decode() (signal.Floating, bool, error) {
	if d.pump == nil {
		return nil, false, ErrCodecNotBound
	}
	return nil, false, ErrCodecNotBound
}

func (d *pumpDecoder) SeekTo(seconds float64) error {
	if seeker, ok := d.rs.(io.Seeker); ok {
		_, err := seeker.Seek(0, io.SeekStart)
		_ = seconds // real seek-by-time requires the bound codec; see ErrCodecNotBound.
		return err
	}
	return ErrCodecNotBound
}

func (d *pumpDecoder) Close() error {
	if c, ok := d.rs.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// memoryDecoder decodes directly from an in-memory signal.Floating asset,
// sliced into fixed- or variable-size frames. Grounded on source.go's
// floatingSource/signedSource/unsignedSource slicing loops. Used by tests
// and by callers that already hold decoded PCM (loudness scanners,
// fingerprinters feeding synthetic fixtures).
type memoryDecoder struct {
	mu        sync.Mutex
	data      signal.Floating
	pos       int
	frameSize int // frames per Decode call; 0 = the whole remaining signal
}

// NewMemoryDecoder returns a Decoder that walks pre-decoded PCM in memory.
// frameSize of 0 yields the entire remaining signal in one Decode call; pass
// a positive frameSize (in frames per channel) to emulate a codec's fixed
// decode granularity.
func NewMemoryDecoder(data signal.Floating, frameSize int) Decoder {
	return &memoryDecoder{data: data, frameSize: frameSize}
}

func (d *memoryDecoder) Decode() (signal.Floating, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pos >= d.data.Length() {
		return nil, true, nil
	}
	size := d.frameSize
	if size <= 0 {
		size = d.data.Length() - d.pos
	}
	end := d.pos + size
	if end > d.data.Length() {
		end = d.data.Length()
	}
	frame := d.data.Slice(d.pos, end)
	d.pos = end
	return frame, false, nil
}

func (d *memoryDecoder) SeekTo(seconds float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	pos := int(seconds * float64(d.data.Length()))
	if pos < 0 {
		pos = 0
	}
	if pos > d.data.Length() {
		pos = d.data.Length()
	}
	d.pos = pos
	return nil
}

func (d *memoryDecoder) Close() error { return nil }

// File is the opaque per-item handle the engine decodes from: current
// stream format, running audio clock, seek state, and pause/resume, bound
// to a concrete Decoder.
type File struct {
	decoder Decoder
	format  StreamFormat

	seekMu    sync.Mutex
	seekPos   float64 // -1 = no pending seek
	seekFlush bool
	eof       bool

	clockMu sync.Mutex
	clock   float64

	paused       atomic.Bool
	abortRequest atomic.Bool

	decodeErrorStreak atomic.Int32
}

// NewFile wraps decoder with the seek/clock/pause bookkeeping the engine
// needs. The initial seek is to position zero, pending, matching the
// behavior of inserting into an empty playlist.
func NewFile(decoder Decoder, format StreamFormat) *File {
	return &File{
		decoder: decoder,
		format:  format,
		seekPos: 0,
	}
}

// Format returns the file's current stream format.
func (f *File) Format() StreamFormat { return f.format }

// LockSeek acquires the file's seek lock. The producer may hold the
// coordinator lock then the file seek lock, never the reverse.
func (f *File) LockSeek() { f.seekMu.Lock() }

// UnlockSeek releases the file's seek lock.
func (f *File) UnlockSeek() { f.seekMu.Unlock() }

// RequestSeek records a pending seek. Safe to call without holding the seek
// lock; it takes it internally. Used by Playlist.Seek and by the worker
// when advancing the decode head to the next item (a non-flushing
// seek-to-zero).
func (f *File) RequestSeek(seconds float64, flush bool) {
	f.seekMu.Lock()
	f.seekPos = seconds
	f.seekFlush = flush
	f.seekMu.Unlock()
}

// TakeSeek returns and clears a pending seek. Must be called while holding
// the seek lock (LockSeek/UnlockSeek).
func (f *File) TakeSeek() (pos float64, flush, pending bool) {
	if f.seekPos < 0 {
		return 0, false, false
	}
	pos, flush = f.seekPos, f.seekFlush
	f.seekPos = -1
	f.seekFlush = false
	return pos, flush, true
}

// IsEOF reports whether the file reached end of stream. Must be called
// while holding the seek lock.
func (f *File) IsEOF() bool { return f.eof }

// SetEOF records end-of-stream. Must be called while holding the seek lock.
func (f *File) SetEOF(v bool) { f.eof = v }

// Pause/Resume/Paused implement the file's play/pause transitions without
// requiring a lock (single bool sampled once per worker iteration).
func (f *File) Pause()       { f.paused.Store(true) }
func (f *File) Resume()      { f.paused.Store(false) }
func (f *File) Paused() bool { return f.paused.Load() }

// RequestAbort/AbortRequested implement per-file cancellation: once the flag
// is set, the worker treats the item as ended. Playlist.Destroy does not set
// it.
func (f *File) RequestAbort()      { f.abortRequest.Store(true) }
func (f *File) AbortRequested() bool { return f.abortRequest.Load() }

// AudioClock returns the running audio clock in seconds.
func (f *File) AudioClock() float64 {
	f.clockMu.Lock()
	defer f.clockMu.Unlock()
	return f.clock
}

// SetClock sets the audio clock, used when a decoded packet carries an
// explicit PTS.
func (f *File) SetClock(seconds float64) {
	f.clockMu.Lock()
	f.clock = seconds
	f.clockMu.Unlock()
}

// AdvanceClock advances the audio clock by the given number of seconds,
// used when packet PTS is absent and the worker estimates position from
// bytes emitted divided by the representative byte rate.
func (f *File) AdvanceClock(bySeconds float64) {
	f.clockMu.Lock()
	f.clock += bySeconds
	f.clockMu.Unlock()
}

// Decode pulls one frame from the bound Decoder.
func (f *File) Decode() (signal.Floating, bool, error) {
	return f.decoder.Decode()
}

// RegisterDecodeError records a failed Decode call and returns the updated
// number of consecutive failures (reset by RegisterDecodeSuccess). A
// Decoder that errors on every call without ever advancing (e.g. one bound
// to a codec that was never wired up) would otherwise make the worker retry
// the same item forever.
func (f *File) RegisterDecodeError() int32 {
	return f.decodeErrorStreak.Add(1)
}

// RegisterDecodeSuccess clears the consecutive decode-error count.
func (f *File) RegisterDecodeSuccess() {
	f.decodeErrorStreak.Store(0)
}

// SeekDecoder performs the actual codec-level seek. Must be called while
// holding the seek lock, after TakeSeek.
func (f *File) SeekDecoder(seconds float64) error {
	return f.decoder.SeekTo(seconds)
}

// Close releases the underlying decoder.
func (f *File) Close() error {
	return f.decoder.Close()
}

// beep-backed channel handles: download, decode, and play stems on the
// shared speaker.
package player

import (
	"context"
	"crypto/sha1"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/wav"

	"github.com/soundlift/stemx/internal/models"
	"github.com/soundlift/stemx/internal/shared"
)

// OpenerOpts configures the production [HandleOpener].
type OpenerOpts struct {
	Logger     *log.Logger
	HTTPClient *http.Client
	CacheDir   string        // downloaded stems are cached here; empty means os.TempDir
	SampleRate int           // speaker rate; sources at other rates are resampled
	Buffer     time.Duration // speaker buffer length
}

type opener struct {
	logger     *log.Logger
	httpClient *http.Client
	cacheDir   string
	rate       beep.SampleRate
}

// NewOpener initializes the speaker and returns a HandleOpener that fetches a
// stem's playback URL into the local cache, decodes it, and attaches it to the
// speaker paused and looping.
func NewOpener(opts OpenerOpts) (HandleOpener, error) {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.CacheDir == "" {
		opts.CacheDir = filepath.Join(os.TempDir(), "stemx-cache")
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = 44100
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 100 * time.Millisecond
	}

	if err := os.MkdirAll(opts.CacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create stem cache: %w", err)
	}

	rate := beep.SampleRate(opts.SampleRate)
	if err := speaker.Init(rate, rate.N(opts.Buffer)); err != nil {
		return nil, fmt.Errorf("failed to initialize speaker: %w", err)
	}

	o := &opener{
		logger:     opts.Logger,
		httpClient: opts.HTTPClient,
		cacheDir:   opts.CacheDir,
		rate:       rate,
	}
	return o.open, nil
}

func (o *opener) open(ctx context.Context, stem models.StemName, asset models.StemAsset) (Handle, error) {
	local, err := o.fetch(ctx, asset.PlaybackURL)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(local)
	if err != nil {
		return nil, fmt.Errorf("failed to open cached stem: %w", err)
	}

	seeker, format, err := decode(local, f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode stem %s: %w", stem, err)
	}

	// Media-level loop; the player re-phases all channels when the reference
	// wraps, so individual drift never outlives one cycle.
	var stream beep.Streamer = beep.Loop(-1, seeker)
	if format.SampleRate != o.rate {
		stream = beep.Resample(4, format.SampleRate, o.rate, stream)
	}

	ctrl := &beep.Ctrl{Streamer: stream, Paused: true}
	volume := &effects.Volume{Streamer: ctrl, Base: 2, Volume: 0, Silent: false}
	speaker.Play(volume)

	o.logger.Debug("channel attached", "stem", stem, "file", filepath.Base(local), "rate", int(format.SampleRate))

	return &beepHandle{
		seeker: seeker,
		format: format,
		ctrl:   ctrl,
		volume: volume,
		vol:    1,
	}, nil
}

// fetch downloads the URL into the cache, keyed by URL hash, and returns the
// local path. Cached files are reused across loads.
func (o *opener) fetch(ctx context.Context, rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: bad playback URL: %v", shared.ErrInvalidInput, err)
	}

	ext := path.Ext(parsed.Path)
	if ext == "" {
		ext = ".wav"
	}
	local := filepath.Join(o.cacheDir, fmt.Sprintf("%x%s", sha1.Sum([]byte(rawURL)), ext))

	if _, err := os.Stat(local); err == nil {
		return local, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download stem: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: status %d downloading stem", shared.ErrAPIRequest, resp.StatusCode)
	}

	tmp, err := os.CreateTemp(o.cacheDir, "download-*")
	if err != nil {
		return "", fmt.Errorf("failed to create cache file: %w", err)
	}

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write stem to cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to finalize cache file: %w", err)
	}

	if err := os.Rename(tmp.Name(), local); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to move stem into cache: %w", err)
	}

	return local, nil
}

// decode picks a decoder by file extension. The separation service serves
// WAV; MP3 is accepted for older artifacts.
func decode(name string, f *os.File) (beep.StreamSeekCloser, beep.Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".mp3":
		return mp3.Decode(f)
	default:
		return wav.Decode(f)
	}
}

// beepHandle implements [Handle] on a beep streamer chain. All mutation goes
// through speaker.Lock to stay coherent with the audio goroutine.
type beepHandle struct {
	seeker beep.StreamSeekCloser
	format beep.Format
	ctrl   *beep.Ctrl
	volume *effects.Volume

	vol    float64
	silent bool
}

var _ Handle = (*beepHandle)(nil)

func (h *beepHandle) Play() {
	speaker.Lock()
	h.ctrl.Paused = false
	speaker.Unlock()
}

func (h *beepHandle) Pause() {
	speaker.Lock()
	h.ctrl.Paused = true
	speaker.Unlock()
}

func (h *beepHandle) Stop() error {
	speaker.Lock()
	h.ctrl.Paused = true
	err := h.seeker.Seek(0)
	speaker.Unlock()
	return err
}

func (h *beepHandle) Seek(pos time.Duration) error {
	n := h.format.SampleRate.N(pos)
	if last := h.seeker.Len() - 1; n > last {
		n = last
	}
	if n < 0 {
		n = 0
	}

	speaker.Lock()
	err := h.seeker.Seek(n)
	speaker.Unlock()
	return err
}

func (h *beepHandle) Position() time.Duration {
	speaker.Lock()
	n := h.seeker.Position()
	speaker.Unlock()
	return h.format.SampleRate.D(n)
}

func (h *beepHandle) Duration() time.Duration {
	return h.format.SampleRate.D(h.seeker.Len())
}

func (h *beepHandle) SetVolume(v float64) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}

	speaker.Lock()
	h.vol = v
	if v > 0 {
		h.volume.Volume = math.Log2(v)
	}
	h.volume.Silent = h.silent || v == 0
	speaker.Unlock()
}

func (h *beepHandle) SetSilent(silent bool) {
	speaker.Lock()
	h.silent = silent
	h.volume.Silent = silent || h.vol == 0
	speaker.Unlock()
}

func (h *beepHandle) Close() error {
	speaker.Lock()
	h.ctrl.Streamer = nil
	speaker.Unlock()
	return h.seeker.Close()
}

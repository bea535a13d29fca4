package mearec

import (
	"time"

	"github.com/robert-malhotra/go-mearec/internal/object"
	"go.uber.org/zap"
)

// Defaults for new recordings.
const (
	DefaultChannels   = 64
	DefaultBlockSize  = 20000
	DefaultSampleRate = 10000
	DefaultRoom       = "recorded in d239"
	DefaultArray      = "hexagonal"

	// DateFormat is the layout of the date attribute.
	DateFormat = "2006-01-02T15:04:05"
)

// Option configures how a recording is created or opened.
type Option func(*options)

type options struct {
	channels      uint32
	blockSize     uint32
	sampleRate    float32
	sampleType    SampleType
	gain          float32
	offset        float32
	room          string
	array         string
	date          string
	configuration bool
	syncOnPublish bool
	retry         object.Retry
	logger        *zap.SugaredLogger
}

func defaultOptions() *options {
	return &options{
		channels:      DefaultChannels,
		blockSize:     DefaultBlockSize,
		sampleRate:    DefaultSampleRate,
		sampleType:    SampleInt16,
		gain:          1,
		room:          DefaultRoom,
		array:         DefaultArray,
		syncOnPublish: true,
		retry:         object.DefaultRetry,
	}
}

// log returns the injected logger or the global one tagged with service.
func (o *options) log(service string) *zap.SugaredLogger {
	if o.logger != nil {
		return o.logger
	}
	return zap.L().Sugar().With("service", service)
}

func newOptions(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithChannels sets the number of channels of a new recording.
func WithChannels(n uint32) Option {
	return func(o *options) { o.channels = n }
}

// WithBlockSize sets the chunk length along the sample axis.
func WithBlockSize(n uint32) Option {
	return func(o *options) { o.blockSize = n }
}

// WithSampleRate sets the sample rate in Hz.
func WithSampleRate(hz float32) Option {
	return func(o *options) { o.sampleRate = hz }
}

// WithSampleType sets the stored ADC code type.
func WithSampleType(t SampleType) Option {
	return func(o *options) { o.sampleType = t }
}

// WithGain sets the gain of the raw to physical conversion.
func WithGain(g float32) Option {
	return func(o *options) { o.gain = g }
}

// WithOffset sets the offset of the raw to physical conversion.
func WithOffset(off float32) Option {
	return func(o *options) { o.offset = off }
}

// WithRoom sets the room attribute.
func WithRoom(room string) Option {
	return func(o *options) { o.room = room }
}

// WithArray sets the array attribute. Arrays named "hidens..." carry an
// electrode configuration.
func WithArray(array string) Option {
	return func(o *options) { o.array = array }
}

// WithDate sets the date attribute; the creation time is used otherwise.
func WithDate(t time.Time) Option {
	return func(o *options) { o.date = t.Format(DateFormat) }
}

// WithConfiguration enables the electrode configuration sidecar regardless
// of the array name.
func WithConfiguration() Option {
	return func(o *options) { o.configuration = true }
}

// WithSyncOnPublish controls whether SetLastValidSample syncs sample data to
// stable storage before publishing the watermark. Enabled by default.
func WithSyncOnPublish(sync bool) Option {
	return func(o *options) { o.syncOnPublish = sync }
}

// WithRetry sets how often metadata reads are repeated when they observe a
// concurrent rewrite.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(o *options) {
		o.retry.Attempts = attempts
		o.retry.Backoff = backoff
	}
}

// WithLogger sets the logger. zap.L() is used otherwise.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(o *options) { o.logger = log }
}

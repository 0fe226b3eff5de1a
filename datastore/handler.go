package datastore

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/tailored-agentic-units/datastore/observability"
	"github.com/tailored-agentic-units/datastore/tlv"
)

// Handler is the byte-level contract shared by FileHandler and
// NoOpHandler. Typed access goes through Get, Set and Delete.
//
// Callbacks may be nil. Implementations invoke each callback exactly once,
// either on the caller's goroutine (invalid key, closed handler) or on the
// handler's worker goroutine.
type Handler interface {
	// Read loads the value stored under key. An invalid key reads as
	// NoData, like a missing file.
	Read(key string, cb func(Result[[]byte]), opts ...ReadOption)
	// Write stores the bytes returned by encode under key, stamped with
	// version and the current time. encode runs on the worker.
	Write(key string, version int, encode func() ([]byte, error), cb func(error))
	// Remove deletes the value stored under key. Removing a missing key
	// succeeds.
	Remove(key string, cb func(error))
	// Clear deletes every value of the feature.
	Clear(cb func(error))
}

// FileHandler stores one feature's values as TLV files under a dedicated
// directory. All filesystem access happens on a single worker goroutine in
// submission order.
type FileHandler struct {
	feature        string
	resolver       Resolver
	currentVersion int
	staleAfter     time.Duration

	observer observability.Observer
	now      func() time.Time
	metrics  *handlerMetrics
	queue    *taskQueue
}

// New creates a FileHandler for feature and starts its worker. The caller
// owns the handler and must Close it to stop the worker.
func New(feature string, cfg Config, opts ...Option) (*FileHandler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !isSafeSegment(feature) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFeature, feature)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	metrics, err := newHandlerMetrics(o.registerer)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	staleAfter := cfg.StaleAfter
	if staleAfter == 0 {
		staleAfter = DefaultStaleAfter
	}

	h := &FileHandler{
		feature: feature,
		resolver: Resolver{
			StorageDir: cfg.StorageDir,
			InstanceID: cfg.InstanceID,
			Feature:    feature,
		},
		currentVersion: cfg.CurrentVersion,
		staleAfter:     staleAfter,
		observer:       o.observer,
		now:            o.now,
		metrics:        metrics,
	}
	h.queue = newTaskQueue(func(depth int) {
		h.metrics.setDepth(feature, depth)
	})

	return h, nil
}

// Feature returns the feature name the handler was created for.
func (h *FileHandler) Feature() string {
	return h.feature
}

// Dir returns the directory holding the feature's files.
func (h *FileHandler) Dir() string {
	return h.resolver.Dir()
}

// Path returns the file backing key.
func (h *FileHandler) Path(key string) (string, error) {
	return h.resolver.Resolve(key)
}

func (h *FileHandler) Read(key string, cb func(Result[[]byte]), opts ...ReadOption) {
	var ro readOptions
	for _, opt := range opts {
		opt(&ro)
	}

	reply := func(r Result[[]byte]) {
		if cb != nil {
			cb(r)
		}
	}

	path, err := h.resolve(key, opGet)
	if err != nil {
		h.metrics.observe(h.feature, opGet, StatusNoData.String(), 0)
		reply(Result[[]byte]{Status: StatusNoData})
		return
	}

	ok := h.submit(opGet, func() {
		start := time.Now()
		result := h.read(key, path, ro.version)
		h.metrics.observe(h.feature, opGet, result.Status.String(), time.Since(start))
		reply(result)
	})
	if !ok {
		reply(Result[[]byte]{Status: StatusFailure, Err: ErrHandlerClosed})
	}
}

func (h *FileHandler) Write(key string, version int, encode func() ([]byte, error), cb func(error)) {
	reply := replier(cb)

	path, err := h.resolve(key, opSet)
	if err != nil {
		h.metrics.observe(h.feature, opSet, StatusFailure.String(), 0)
		reply(err)
		return
	}

	ok := h.submit(opSet, func() {
		start := time.Now()
		err := h.write(key, path, version, encode)
		h.metrics.observe(h.feature, opSet, errStatus(err), time.Since(start))
		reply(err)
	})
	if !ok {
		reply(ErrHandlerClosed)
	}
}

func (h *FileHandler) Remove(key string, cb func(error)) {
	reply := replier(cb)

	path, err := h.resolve(key, opDelete)
	if err != nil {
		h.metrics.observe(h.feature, opDelete, StatusFailure.String(), 0)
		reply(err)
		return
	}

	ok := h.submit(opDelete, func() {
		start := time.Now()
		err := h.remove(key, path)
		h.metrics.observe(h.feature, opDelete, errStatus(err), time.Since(start))
		reply(err)
	})
	if !ok {
		reply(ErrHandlerClosed)
	}
}

func (h *FileHandler) Clear(cb func(error)) {
	reply := replier(cb)

	ok := h.submit(opClear, func() {
		start := time.Now()
		var err error
		if rmErr := os.RemoveAll(h.resolver.Dir()); rmErr != nil {
			h.emit(EventClearFailed, observability.LevelError, ClearFailedMessage, map[string]any{
				"dir":   h.resolver.Dir(),
				"error": rmErr.Error(),
			})
			err = fmt.Errorf("%w: %v", ErrDeleteFailed, rmErr)
		}
		h.metrics.observe(h.feature, opClear, errStatus(err), time.Since(start))
		reply(err)
	})
	if !ok {
		reply(ErrHandlerClosed)
	}
}

// Flush blocks until every operation submitted before the call has
// completed.
func (h *FileHandler) Flush(ctx context.Context) error {
	done := make(chan struct{})
	if !h.queue.submit(func() { close(done) }) {
		return ErrHandlerClosed
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting operations and waits for the queued ones to drain.
// It is safe to call more than once.
func (h *FileHandler) Close(ctx context.Context) error {
	h.queue.close()

	select {
	case <-h.queue.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// resolve maps key to its file. An invalid key is a caller error and is
// logged as a warning.
func (h *FileHandler) resolve(key, op string) (string, error) {
	path, err := h.resolver.Resolve(key)
	if err != nil {
		h.emit(EventInvalidKey, observability.LevelWarning, fmt.Sprintf(InvalidKeyMessageFormat, key), map[string]any{
			"key": key,
			"op":  op,
		})
	}
	return path, err
}

func (h *FileHandler) submit(op string, task func()) bool {
	ok := h.queue.submit(func() {
		defer h.recoverTask(op)
		task()
	})
	if !ok {
		h.emit(EventHandlerClosed, observability.LevelWarning, HandlerClosedMessage, map[string]any{
			"op": op,
		})
	}
	return ok
}

// recoverTask keeps the worker alive when a codec or callback panics.
func (h *FileHandler) recoverTask(op string) {
	if r := recover(); r != nil {
		h.emit(EventTaskPanic, observability.LevelError, TaskPanicMessage, map[string]any{
			"op":    op,
			"panic": fmt.Sprint(r),
		})
	}
}

func (h *FileHandler) read(key, path string, version *int) Result[[]byte] {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result[[]byte]{Status: StatusNoData}
		}
		h.emit(EventReadFailed, observability.LevelError, fmt.Sprintf(ReadFailedMessageFormat, key), map[string]any{
			"key":   key,
			"path":  path,
			"error": err.Error(),
		})
		return Result[[]byte]{Status: StatusFailure, Err: fmt.Errorf("%w: %s: %v", ErrReadFailed, key, err)}
	}

	blocks, decodeErr := tlv.Decode(data)
	outcome := Validate(blocks, Policy{
		RequestedVersion: version,
		CurrentVersion:   h.currentVersion,
		StaleAfter:       h.staleAfter,
		Now:              h.now(),
	})

	// Three complete blocks followed by a partial record.
	if decodeErr != nil && outcome.Kind != OutcomeInvalidBlockCount {
		h.emit(EventTrailingData, observability.LevelError, TrailingDataMessage, map[string]any{
			"key":   key,
			"error": decodeErr.Error(),
		})
		h.purge(key, path, "corrupt")
		return Result[[]byte]{Status: StatusFailure, Err: fmt.Errorf("%w: %s: %v", ErrCorrupt, key, decodeErr)}
	}

	switch outcome.Kind {
	case OutcomeValid:
		return Result[[]byte]{
			Status: StatusSuccess,
			Content: Content[[]byte]{
				Version:      outcome.Version,
				LastUpdateMs: outcome.LastUpdateMs,
				Data:         outcome.Data,
			},
		}

	case OutcomeVersionMismatch:
		return Result[[]byte]{Status: StatusNoData}

	case OutcomeVersionTooOld, OutcomeStale:
		h.purge(key, path, outcome.Kind.String())
		return Result[[]byte]{Status: StatusNoData}
	}

	h.reportCorruption(key, outcome)
	h.purge(key, path, "corrupt")
	return Result[[]byte]{Status: StatusFailure, Err: fmt.Errorf("%w: %s: %s", ErrCorrupt, key, outcome.Kind)}
}

func (h *FileHandler) reportCorruption(key string, o Outcome) {
	data := map[string]any{
		"key":         key,
		"block_count": o.Count,
	}

	switch o.Kind {
	case OutcomeInvalidBlockCount:
		h.emit(EventInvalidBlockCount, observability.LevelError, fmt.Sprintf(InvalidBlockCountMessageFormat, o.Count), data)
	case OutcomeDuplicateBlock:
		data["block_type"] = o.Block.String()
		h.emit(EventDuplicateBlock, observability.LevelError, fmt.Sprintf(DuplicateBlockMessageFormat, o.Block), data)
	case OutcomeMissingBlock:
		data["block_type"] = o.Block.String()
		h.emit(EventMissingBlock, observability.LevelError, fmt.Sprintf(MissingBlockMessageFormat, o.Block), data)
	case OutcomeMalformedBlock:
		data["block_type"] = o.Block.String()
		h.emit(EventMalformedBlock, observability.LevelError, fmt.Sprintf(MalformedBlockMessageFormat, o.Block), data)
	}
}

// purge deletes a file found outdated, stale or corrupt during a read. A
// failure is logged and does not change the read outcome.
func (h *FileHandler) purge(key, path, reason string) {
	if err := removeFile(path); err != nil {
		h.emit(EventPurgeFailed, observability.LevelError, fmt.Sprintf(PurgeFailedMessageFormat, key), map[string]any{
			"key":    key,
			"path":   path,
			"reason": reason,
			"error":  err.Error(),
		})
		return
	}
	h.metrics.purged(h.feature, reason)
	h.emit(EventPurged, observability.LevelVerbose, "", map[string]any{
		"key":    key,
		"reason": reason,
	})
}

func (h *FileHandler) write(key, path string, version int, encode func() ([]byte, error)) error {
	data, err := safeEncode(encode)
	switch {
	case err != nil:
	case data == nil:
		err = fmt.Errorf("serializer returned no data")
	case len(data) > maxPayloadSize:
		err = fmt.Errorf("payload of %d bytes exceeds the %d byte block limit", len(data), maxPayloadSize)
	}
	if err != nil {
		h.emit(EventSerializeFailed, observability.LevelError, SerializeFailedMessage, map[string]any{
			"key":   key,
			"error": err.Error(),
		})
		return fmt.Errorf("%w: %s: %v", ErrSerializeFailed, key, err)
	}

	content := tlv.Encode(
		tlv.NewVersionBlock(version),
		tlv.NewLastUpdateBlock(h.now().UnixMilli()),
		tlv.NewDataBlock(data),
	)

	if err := writeFileAtomic(path, content); err != nil {
		h.emit(EventWriteFailed, observability.LevelError, fmt.Sprintf(WriteFailedMessageFormat, key), map[string]any{
			"key":   key,
			"path":  path,
			"error": err.Error(),
		})
		return fmt.Errorf("%w: %s: %v", ErrWriteFailed, key, err)
	}
	return nil
}

func (h *FileHandler) remove(key, path string) error {
	if err := removeFile(path); err != nil {
		h.emit(EventDeleteFailed, observability.LevelError, fmt.Sprintf(DeleteFailedMessageFormat, key), map[string]any{
			"key":   key,
			"path":  path,
			"error": err.Error(),
		})
		return fmt.Errorf("%w: %s: %v", ErrDeleteFailed, key, err)
	}
	return nil
}

// maxPayloadSize is the largest DATA block a write accepts.
var maxPayloadSize = tlv.MaxPayloadSize

func (h *FileHandler) emit(t observability.EventType, level observability.Level, msg string, data map[string]any) {
	if data == nil {
		data = make(map[string]any, 1)
	}
	data["feature"] = h.feature

	h.observer.OnEvent(context.Background(), observability.Event{
		Type:      t,
		Level:     level,
		Target:    observability.TargetMaintainer,
		Timestamp: h.now(),
		Source:    "datastore.FileHandler",
		Message:   msg,
		Data:      data,
	})
}

// safeEncode runs a serializer, turning a panic into an error.
func safeEncode(encode func() ([]byte, error)) (data []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			data, err = nil, fmt.Errorf("serializer panicked: %v", r)
		}
	}()
	if encode == nil {
		return nil, fmt.Errorf("no serializer")
	}
	return encode()
}

func replier(cb func(error)) func(error) {
	return func(err error) {
		if cb != nil {
			cb(err)
		}
	}
}

package datastore

// NoOpHandler persists nothing. Reads report NoData and writes succeed.
// Callbacks run synchronously on the caller's goroutine.
type NoOpHandler struct{}

func (NoOpHandler) Read(_ string, cb func(Result[[]byte]), _ ...ReadOption) {
	if cb != nil {
		cb(Result[[]byte]{Status: StatusNoData})
	}
}

func (NoOpHandler) Write(_ string, _ int, _ func() ([]byte, error), cb func(error)) {
	if cb != nil {
		cb(nil)
	}
}

func (NoOpHandler) Remove(_ string, cb func(error)) {
	if cb != nil {
		cb(nil)
	}
}

func (NoOpHandler) Clear(cb func(error)) {
	if cb != nil {
		cb(nil)
	}
}

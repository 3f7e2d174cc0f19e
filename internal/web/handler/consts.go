package handler

const (
	// APIPrefix is the common path prefix of all API route groups.
	APIPrefix = "/api"

	// ErrNilACDFatalLogMsg is used if app or cfg or db var pointer is nil.
	ErrNilACDFatalLogMsg = "app, cfg or db is nil"
)

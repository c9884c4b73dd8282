package constant

const (
	// LocalsConsoleId is the fiber Locals key holding the caller's console id.
	LocalsConsoleId = "console_id"

	// HeaderFragment marks requests sent by the console scripts. Form posts
	// without it get a redirect back to the page instead of a fragment.
	HeaderFragment = "X-Console-Fragment"

	TranscriptTopic = "console.transcript"

	HealthStatusOK       = "ok"
	HealthStatusDegraded = "degraded"
	BackendReachable     = "reachable"
	BackendUnreachable   = "unreachable"
)

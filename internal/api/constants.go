package api

// Security requirements attached to operations.
var (
	// bearerSecurity marks operations that need an operator token.
	bearerSecurity = []map[string][]string{{"bearer": {}}}
)

// Operation tags.
const (
	tagHealth    = "Health"
	tagAuth      = "Auth"
	tagUsers     = "Users"
	tagPlatforms = "Platforms"
	tagAdmin     = "Admin"
	tagReports   = "Reports"
)

package config

type SecurityLevel int

const (
	SecurityPublic SecurityLevel = iota // No authentication
	SecurityAccess                      // Access token required
	SecurityAdmin                       // Access token of an admin account required
)

// RouteSecurityConfig maps "METHOD /route/template" to its required security level
var RouteSecurityConfig = map[string]SecurityLevel{
	// Auth
	"POST /api/auth/signup": SecurityPublic,
	"POST /api/auth/login":  SecurityPublic,
	"GET /api/auth/me":      SecurityAccess,
	"PUT /api/auth/profile": SecurityAccess,

	// Wallet
	"GET /api/wallet":           SecurityAccess,
	"POST /api/wallet/topup":    SecurityAccess,
	"POST /api/wallet/withdraw": SecurityAccess,

	// Items
	"GET /api/items":                 SecurityPublic,
	"GET /api/items/{id}":            SecurityPublic,
	"GET /api/items/{id}/reviews":    SecurityPublic,
	"POST /api/items":                SecurityAccess,
	"PUT /api/items/{id}":            SecurityAccess,
	"DELETE /api/items/{id}":         SecurityAccess,
	"POST /api/rentals/{id}/reviews": SecurityAccess,

	// Rentals
	"POST /api/rentals":            SecurityAccess,
	"GET /api/rentals":             SecurityAccess,
	"GET /api/rentals/{id}":        SecurityAccess,
	"PUT /api/rentals/{id}/status": SecurityAccess,

	// Chat
	"GET /api/chat/rooms":                SecurityAccess,
	"POST /api/chat/rooms":               SecurityAccess,
	"GET /api/chat/rooms/{id}/messages":  SecurityAccess,
	"POST /api/chat/rooms/{id}/messages": SecurityAccess,

	// Admin
	"GET /api/admin/stats":          SecurityAdmin,
	"GET /api/admin/reconciliation": SecurityAdmin,
	"PUT /api/admin/users/{id}/ban": SecurityAdmin,
	"DELETE /api/admin/items/{id}":  SecurityAdmin,

	// Operations
	"GET /healthz": SecurityPublic,
	"GET /metrics": SecurityPublic,
}

// GetSecurityLevel returns the security level for a given method and route template
func GetSecurityLevel(method, routeTemplate string) SecurityLevel {
	if level, exists := RouteSecurityConfig[method+" "+routeTemplate]; exists {
		return level
	}
	// Default to access for unknown routes
	return SecurityAccess
}

package backend

// SessionInfo is the session check response from GET /api/auth/session.
type SessionInfo struct {
	Authenticated bool   `json:"authenticated"`
	UserID        string `json:"user_id"`
	SessionID     string `json:"session_id"`
	Token         string `json:"token,omitempty"`
	IsPremium     bool   `json:"is_premium,omitempty"`
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UsageStats is the response of GET /api/usage.
// CanGenerate is authoritative for gating on the client side: premium and
// unlimited accounts bypass the today_used/daily_limit comparison.
type UsageStats struct {
	TodayUsed     int     `json:"today_used"`
	DailyLimit    int     `json:"daily_limit"`
	CanGenerate   bool    `json:"can_generate"`
	IsPremium     bool    `json:"is_premium"`
	NextAvailable *string `json:"next_available"` // RFC 3339 or null
	Reason        string  `json:"reason,omitempty"`
}

// AISummaryRequest is the body of POST /api/ai-summary. The file is not
// re-uploaded; UploadID refers to the handle issued by the analyze call.
type AISummaryRequest struct {
	UploadID     string `json:"upload_id"`
	BusinessGoal string `json:"business_goal"`
	Audience     string `json:"audience"`
}

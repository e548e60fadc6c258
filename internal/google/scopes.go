package google

// DefaultOAuthScopes are the Google OAuth scopes the agent needs.
//
// The scopes provide access to:
//   - Gmail: read and modify (modify is needed to mark processed messages read)
//   - Google Calendar: full access (event insertion)
var DefaultOAuthScopes = []string{
	"https://www.googleapis.com/auth/gmail.readonly",
	"https://www.googleapis.com/auth/gmail.modify",
	"https://www.googleapis.com/auth/calendar",
}

package logger

// Intention is the semantic kind of a log line, orthogonal to its level.
// The console handler renders it as a leading icon; file records keep it as
// the "intention" attribute.
type Intention string

const (
	IntentionModel     Intention = "model"
	IntentionTool      Intention = "tool"
	IntentionPage      Intention = "page"
	IntentionTransport Intention = "transport"
	IntentionStatus    Intention = "status"
	IntentionSuccess   Intention = "success"
	IntentionConfig    Intention = "config"
	IntentionCancel    Intention = "cancel"
	IntentionDebug     Intention = "debug"
	IntentionWarning   Intention = "warning"
	IntentionError     Intention = "error"
)

var icons = map[Intention]string{
	IntentionModel:     "🧠",
	IntentionTool:      "🔧",
	IntentionPage:      "📄",
	IntentionTransport: "🔌",
	IntentionStatus:    "ℹ️",
	IntentionSuccess:   "✅",
	IntentionConfig:    "⚙️",
	IntentionCancel:    "🛑",
	IntentionDebug:     "🛠️",
}

func iconFor(i Intention) string {
	if icon, ok := icons[i]; ok {
		return icon
	}
	return "➤"
}

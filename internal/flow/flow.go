// Package flow holds the declarative conversation graph the bot interprets.
// The graph is loaded once from JSON and treated as immutable afterwards;
// hot reloads swap the whole graph atomically via Provider.
package flow

import "strings"

const (
	// StateStart is the entry node every conversation begins at.
	StateStart = "start"
	// DefaultNext is the fallback transition target for capture states
	// that do not declare an explicit next state.
	DefaultNext = "menu_main"
)

// Input capture kinds accepted by ExpectSpec.Type.
const (
	InputText       = "text"
	InputFileOrText = "file_or_text"
	InputTextOrFile = "text_or_file"
)

// Graph is the full conversation definition: states, keyword automations
// and the slash-command table.
type Graph struct {
	States      map[string]*StateDef `json:"flow"`
	Automations Automations          `json:"automations"`
	Commands    []Command            `json:"commands"`
}

// StateDef describes a single screen of the conversation.
type StateDef struct {
	Message     string         `json:"message"`
	Keyboard    [][]Button     `json:"keyboard,omitempty"`
	Expect      *ExpectSpec    `json:"expect,omitempty"`
	Deliver     []DocumentSpec `json:"deliver,omitempty"`
	NotifyAdmin bool           `json:"notify_admin,omitempty"`
	Next        string         `json:"next,omitempty"`
}

// Button is one reply-keyboard cell. Its text doubles as the match key
// because Telegram reply keyboards echo the label back as plain text.
type Button struct {
	Text   string         `json:"text"`
	Goto   string         `json:"goto,omitempty"`
	Set    map[string]any `json:"set,omitempty"`
	Toggle map[string]any `json:"toggle,omitempty"`
}

// ExpectSpec marks a state as an input-capture state.
type ExpectSpec struct {
	Field      string `json:"field"`
	Type       string `json:"type"`
	Required   bool   `json:"required"`
	Validators []Rule `json:"validators,omitempty"`
}

// AllowsDocument reports whether a document attachment satisfies this capture.
func (e *ExpectSpec) AllowsDocument() bool {
	return e.Type == InputFileOrText || e.Type == InputTextOrFile
}

// DocumentSpec is a document attached to a state, sent after its message.
type DocumentSpec struct {
	Type  string `json:"type"`
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// Automations carries the global keyword lists matched before anything else.
type Automations struct {
	UnsubscribeKeywords []string `json:"unsubscribe_keywords"`
	ConsentKeywords     []string `json:"consent_keywords"`
}

// IsUnsubscribe reports whether text is an unsubscribe keyword (case-insensitive).
func (a Automations) IsUnsubscribe(text string) bool {
	return containsFold(a.UnsubscribeKeywords, text)
}

// IsConsent reports whether text is a consent keyword (case-insensitive).
func (a Automations) IsConsent(text string) bool {
	return containsFold(a.ConsentKeywords, text)
}

func containsFold(keywords []string, text string) bool {
	for _, kw := range keywords {
		if strings.EqualFold(kw, text) {
			return true
		}
	}
	return false
}

// Command binds a slash-command to a state and carries its menu description.
type Command struct {
	Cmd   string `json:"cmd"`
	Desc  string `json:"desc"`
	State string `json:"state,omitempty"`
}

// State returns the definition for key, if present.
func (g *Graph) State(key string) (*StateDef, bool) {
	st, ok := g.States[key]
	return st, ok
}

// StateOrStart resolves key, falling back to the start state when the key
// is unknown. This tolerates sessions left behind by an edited graph.
func (g *Graph) StateOrStart(key string) (string, *StateDef) {
	if st, ok := g.States[key]; ok {
		return key, st
	}
	return StateStart, g.States[StateStart]
}

// CommandState returns the state bound to a slash-command.
func (g *Graph) CommandState(cmd string) (string, bool) {
	for _, c := range g.Commands {
		if c.Cmd == cmd && c.State != "" {
			return c.State, true
		}
	}
	return "", false
}

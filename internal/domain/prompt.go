package domain

// TaskKind classifies a completion request and decides which instructions
// accompany the prompt.
type TaskKind string

const (
	TaskGenerateCode TaskKind = "generate_code"
	TaskExplain      TaskKind = "explain"
	TaskModify       TaskKind = "modify"
	TaskFreeform     TaskKind = "freeform"
)

// PromptRequest is a fully assembled completion request. It is built once per
// call and passed by value.
type PromptRequest struct {
	Kind               TaskKind
	SystemInstructions string
	UserContent        string
	MaxTokens          int
	Temperature        float64
}

// Messages returns the system/user message pair for the request.
func (r PromptRequest) Messages() []ChatMessage {
	return []ChatMessage{
		{Role: RoleSystem, Content: r.SystemInstructions},
		{Role: RoleUser, Content: r.UserContent},
	}
}

package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// UserInputPlaceholder is what the model types instead of a secret the human supplied.
const UserInputPlaceholder = "{{user_input}}"

type Task struct {
	ID          uuid.UUID
	Description string
	Status      TaskStatus
	CreatedAt   time.Time
	CompletedAt *time.Time
	Steps       []Step
	Result      string
	Error       string
	Pauses      int

	// Inputs holds values collected while paused, keyed by rule name and
	// "user_input" for the latest one. Never serialized.
	Inputs map[string]string `json:"-"`
}

// SetInput stores a value collected from the human.
func (t *Task) SetInput(rule, value string) {
	if t.Inputs == nil {
		t.Inputs = make(map[string]string)
	}

	t.Inputs[rule] = value
	t.Inputs["user_input"] = value
}

// ExpandInputs replaces {{name}} placeholders with collected inputs.
func (t *Task) ExpandInputs(s string) string {
	if len(t.Inputs) == 0 || !strings.Contains(s, "{{") {
		return s
	}

	pairs := make([]string, 0, len(t.Inputs)*2)
	for k, v := range t.Inputs {
		pairs = append(pairs, "{{"+k+"}}", v)
	}

	return strings.NewReplacer(pairs...).Replace(s)
}

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

type Step struct {
	ID          uuid.UUID
	Action      string
	Description string
	Timestamp   time.Time
	Success     bool
	Error       string
}

type BrowserAction struct {
	Type     ActionType
	Selector string
	Value    string
	URL      string
	WaitFor  int
	X        float64
	Y        float64
}

type ActionType string

const (
	ActionTypeNavigate         ActionType = "navigate"
	ActionTypeClick            ActionType = "click"
	ActionTypeClickCoordinates ActionType = "click_coordinates"
	ActionTypeFill             ActionType = "fill"
	ActionTypeWait             ActionType = "wait"
	ActionTypeScroll           ActionType = "scroll"
	ActionTypePress            ActionType = "press"
	ActionTypeRequestInput     ActionType = "request_user_input"
)

type PageState struct {
	URL       string
	Title     string
	Elements  []Element
	Timestamp time.Time
}

type Element struct {
	Tag         string
	Text        string
	Selector    string
	Attributes  map[string]string
	Visible     bool
	Clickable   bool
	BoundingBox BoundingBox
}

type BoundingBox struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

type MessageContent struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *ImageSource `json:"source,omitempty"`
}

type ImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type AIMessage struct {
	Role    string
	Content interface{}
}

type AIResponse struct {
	Action   *BrowserAction
	Thought  string
	Complete bool
	Result   string
}

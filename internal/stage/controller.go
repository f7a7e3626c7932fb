package stage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/testament/internal/model"
	"github.com/ppiankov/testament/internal/roster"
)

var (
	// ErrTerminal is returned when advancing past the review stage
	ErrTerminal = errors.New("review is the final stage")

	// ErrFirstStage is returned when retreating from the first stage
	ErrFirstStage = errors.New("already at the first stage")

	// ErrNotSkippable is returned when skipping a stage that cannot be skipped
	ErrNotSkippable = errors.New("stage cannot be skipped")
)

// NotSatisfiedError is returned when advancing from a heuristic stage
// whose completion predicate does not hold yet
type NotSatisfiedError struct {
	Stage  model.Stage
	Reason string
}

func (e *NotSatisfiedError) Error() string {
	return fmt.Sprintf("%s stage not complete: %s", e.Stage, e.Reason)
}

// Signals is what the completion predicates consult
type Signals struct {
	MessageCount       int
	LastAssistantReply string
	Contacts           []model.Contact
	DocumentCount      int
	VideoRecorded      bool
}

// Controller is the stage state machine of one will. It never advances
// on its own; callers confirm with Advance.
type Controller struct {
	cfg      model.StagesConfig
	required []model.Role
	current  model.Stage
	skipped  map[model.Stage]bool
	notified bool // Stage-complete affordance already surfaced for this entry
}

// NewController creates a controller positioned at the information stage
func NewController(cfg model.StagesConfig) *Controller {
	if cfg.MessageThreshold <= 0 {
		cfg.MessageThreshold = model.DefaultConfig().Stages.MessageThreshold
	}
	if len(cfg.CompletionPhrases) == 0 {
		cfg.CompletionPhrases = model.DefaultCompletionPhrases
	}
	if len(cfg.RequiredRoles) == 0 {
		cfg.RequiredRoles = model.DefaultConfig().Stages.RequiredRoles
	}
	return &Controller{
		cfg:      cfg,
		required: roster.ParseRoles(cfg.RequiredRoles),
		current:  model.StageInformation,
		skipped:  make(map[model.Stage]bool),
	}
}

// Current returns the active stage
func (c *Controller) Current() model.Stage {
	return c.current
}

// RequiredRoles returns the roles the contacts stage requires
func (c *Controller) RequiredRoles() []model.Role {
	return append([]model.Role(nil), c.required...)
}

// Satisfied evaluates the active stage's completion predicate
func (c *Controller) Satisfied(s Signals) bool {
	return c.reason(s) == nil
}

// Check evaluates the predicate and reports newly=true the first time it
// holds since the stage was entered, so callers surface the affordance once
func (c *Controller) Check(s Signals) (satisfied, newly bool) {
	satisfied = c.Satisfied(s)
	if satisfied && !c.notified {
		c.notified = true
		return true, true
	}
	return satisfied, false
}

// Advance moves to the next stage on the user's explicit confirmation.
//
// The gates are deliberately uneven. Information advances whenever the
// user confirms, even before its message-count or completion-phrase
// heuristic has fired, because that heuristic only guesses when enough
// was said and the user is the authority on it. Contacts never advance
// while the roster is incomplete, because the required roles are a hard
// precondition of a valid will; the returned *roster.IncompleteError
// names what is missing. Documents and video advance once something was
// added or the stage was skipped.
func (c *Controller) Advance(s Signals) error {
	switch c.current {
	case model.StageReview:
		return ErrTerminal
	case model.StageContacts:
		if err := roster.Check(s.Contacts, c.required); err != nil {
			return err
		}
	case model.StageDocuments, model.StageVideo:
		if err := c.reason(s); err != nil {
			return err
		}
	}
	c.enter(c.current + 1)
	return nil
}

// Retreat moves to the previous stage; collected data is untouched
func (c *Controller) Retreat() error {
	if c.current == model.StageInformation {
		return ErrFirstStage
	}
	c.enter(c.current - 1)
	return nil
}

// Skip marks the documents or video stage as explicitly skipped, which
// satisfies its predicate
func (c *Controller) Skip() error {
	switch c.current {
	case model.StageDocuments, model.StageVideo:
		c.skipped[c.current] = true
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrNotSkippable, c.current)
	}
}

// Skipped reports whether a stage was explicitly skipped
func (c *Controller) Skipped(stage model.Stage) bool {
	return c.skipped[stage]
}

// Restore positions the controller at a saved stage
func (c *Controller) Restore(stage model.Stage, skipped []model.Stage) {
	c.current = stage
	c.notified = false
	c.skipped = make(map[model.Stage]bool)
	for _, s := range skipped {
		c.skipped[s] = true
	}
}

// SkippedStages lists explicitly skipped stages in pipeline order
func (c *Controller) SkippedStages() []model.Stage {
	var out []model.Stage
	for _, s := range model.Stages {
		if c.skipped[s] {
			out = append(out, s)
		}
	}
	return out
}

func (c *Controller) enter(stage model.Stage) {
	// Re-entering any stage, Contacts in particular, re-validates from
	// scratch instead of trusting an earlier "complete" flag
	c.current = stage
	c.notified = false
}

// reason returns nil when the active stage's predicate holds
func (c *Controller) reason(s Signals) error {
	switch c.current {
	case model.StageInformation:
		if s.MessageCount >= c.cfg.MessageThreshold || c.hasCompletionPhrase(s.LastAssistantReply) {
			return nil
		}
		return &NotSatisfiedError{Stage: c.current, Reason: "conversation still in progress"}
	case model.StageContacts:
		return roster.Check(s.Contacts, c.required)
	case model.StageDocuments:
		if s.DocumentCount > 0 || c.skipped[model.StageDocuments] {
			return nil
		}
		return &NotSatisfiedError{Stage: c.current, Reason: "attach a document or skip"}
	case model.StageVideo:
		if s.VideoRecorded || c.skipped[model.StageVideo] {
			return nil
		}
		return &NotSatisfiedError{Stage: c.current, Reason: "record a video or skip"}
	default:
		return &NotSatisfiedError{Stage: c.current, Reason: "final stage"}
	}
}

func (c *Controller) hasCompletionPhrase(reply string) bool {
	reply = strings.ToLower(reply)
	if reply == "" {
		return false
	}
	for _, phrase := range c.cfg.CompletionPhrases {
		if phrase != "" && strings.Contains(reply, strings.ToLower(phrase)) {
			return true
		}
	}
	return false
}

package session

import "github.com/ppiankov/testament/internal/model"

// Sink receives session events. Methods are called with the session
// locked, in event order, and must not call back into the session.
type Sink interface {
	// Preview delivers a freshly rendered document after facts changed
	Preview(doc model.Document, section string)

	// StageComplete fires once per stage entry when its predicate first holds
	StageComplete(stage model.Stage)

	// Warning reports a non-blocking failure such as an unsaved change
	Warning(err error)
}

// NopSink discards every event
type NopSink struct{}

func (NopSink) Preview(model.Document, string) {}
func (NopSink) StageComplete(model.Stage)      {}
func (NopSink) Warning(error)                  {}

// SinkFuncs adapts plain functions to a Sink. Nil funcs are skipped.
type SinkFuncs struct {
	OnPreview       func(doc model.Document, section string)
	OnStageComplete func(stage model.Stage)
	OnWarning       func(err error)
}

func (f SinkFuncs) Preview(doc model.Document, section string) {
	if f.OnPreview != nil {
		f.OnPreview(doc, section)
	}
}

func (f SinkFuncs) StageComplete(stage model.Stage) {
	if f.OnStageComplete != nil {
		f.OnStageComplete(stage)
	}
}

func (f SinkFuncs) Warning(err error) {
	if f.OnWarning != nil {
		f.OnWarning(err)
	}
}

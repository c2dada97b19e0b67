package store

import "slices"

// API is the view of the store handed to stages and deferred actions.
type API interface {
	Dispatch(Action) (Action, error)
	GetState() *State
}

// Next is the handle a stage uses to pass an action further down the pipeline.
type Next interface {
	Dispatch(Action) (Action, error)
}

// Stage is one step of the pipeline. A stage either forwards the action via
// next (possibly transformed, possibly later) or swallows it by returning
// without calling next.
type Stage interface {
	Name() string
	Handle(api API, action Action, next Next) (Action, error)
}

// Starter is implemented by stages that need to run code once the store
// exists, e.g. to start long-running programs.
type Starter interface {
	Start(api API) error
}

// Stopper is implemented by stages holding resources released on Close.
type Stopper interface {
	Stop() error
}

// Enhancer rewrites the pipeline before it is built.
type Enhancer func(*Pipeline) *Pipeline

// Identity is the no-op Enhancer.
func Identity(p *Pipeline) *Pipeline { return p }

// Pipeline is an ordered list of stages. Stage i decides whether, when and how
// stage i+1 sees an action.
type Pipeline struct {
	stages []Stage
}

func NewPipeline(stages ...Stage) *Pipeline {
	p := &Pipeline{}
	for _, s := range stages {
		if s != nil {
			p.stages = append(p.stages, s)
		}
	}
	return p
}

// Use returns a new pipeline with s appended; p is left untouched.
func (p *Pipeline) Use(s Stage) *Pipeline {
	out := &Pipeline{stages: slices.Clone(p.stages)}
	if s != nil {
		out.stages = append(out.stages, s)
	}
	return out
}

func (p *Pipeline) Stages() []Stage {
	return slices.Clone(p.stages)
}

// Build links the stages in order in front of terminal and returns the head
// of the chain.
func (p *Pipeline) Build(api API, terminal Next) Next {
	head := terminal
	for i := len(p.stages) - 1; i >= 0; i-- {
		head = &link{stage: p.stages[i], api: api, next: head}
	}
	return head
}

type link struct {
	stage Stage
	api   API
	next  Next
}

func (l *link) Dispatch(a Action) (Action, error) {
	if a == nil {
		return nil, ErrNilAction
	}
	return l.stage.Handle(l.api, a, l.next)
}

// DeferredStage runs Deferred actions immediately with the store API. Any
// dispatch performed by the deferred function while the store is busy is
// queued behind the current dispatch.
type DeferredStage struct{}

func (DeferredStage) Name() string { return "deferred" }

func (DeferredStage) Handle(api API, a Action, next Next) (Action, error) {
	var d Deferred
	switch v := a.(type) {
	case Deferred:
		d = v
	case *Deferred:
		if v == nil {
			return a, nil
		}
		d = *v
	default:
		return next.Dispatch(a)
	}
	if d.Run == nil {
		return a, nil
	}
	return a, d.Run(api)
}

// StageFunc adapts a function into a Stage.
type StageFunc struct {
	Label string
	Fn    func(api API, a Action, next Next) (Action, error)
}

func (s StageFunc) Name() string { return s.Label }

func (s StageFunc) Handle(api API, a Action, next Next) (Action, error) {
	return s.Fn(api, a, next)
}

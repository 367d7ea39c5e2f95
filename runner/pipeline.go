package runner

import (
	"github.com/hupe1980/agenthooks/middleware"
	"github.com/hupe1980/agenthooks/model"
	"github.com/hupe1980/agenthooks/tool"
)

// Pipeline bundles everything a run executes: the model, its system
// instructions, callable tools and the middleware chain interposed on the
// hook points.
type Pipeline struct {
	// Name identifies the pipeline in events and logs.
	Name string
	// Model produces assistant turns.
	Model model.Model
	// Instructions is the system prompt. It may contain text/template
	// expressions rendered against the session state before each call.
	Instructions string
	// Tools are callable by the model via function calling.
	Tools []tool.Tool
	// Chain holds the composed middlewares. A nil chain behaves like an
	// empty one.
	Chain *middleware.Chain
	// Stream requests incremental responses from the model where supported.
	Stream bool
}

// chain returns the middleware chain, substituting an empty chain for nil.
func (p *Pipeline) chain() *middleware.Chain {
	if p.Chain == nil {
		return middleware.NewChain(nil)
	}
	return p.Chain
}

// findTool returns the registered tool with the given name.
func (p *Pipeline) findTool(name string) (tool.Tool, bool) {
	for _, t := range p.Tools {
		if t.Name() == name {
			return t, true
		}
	}
	return nil, false
}

// toolDefinitions converts registered tools into model request declarations.
func (p *Pipeline) toolDefinitions() []model.ToolDefinition {
	if len(p.Tools) == 0 {
		return nil
	}
	defs := make([]model.ToolDefinition, 0, len(p.Tools))
	for _, t := range p.Tools {
		defs = append(defs, model.ToolDefinition{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}
	return defs
}

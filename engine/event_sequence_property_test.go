package engine_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/agentscope-go/reactcore/engine"
	"github.com/agentscope-go/reactcore/hooks"
	"github.com/agentscope-go/reactcore/memory"
	"github.com/agentscope-go/reactcore/message"
	"github.com/agentscope-go/reactcore/modelport"
	"github.com/agentscope-go/reactcore/toolkit"
)

// kindLetter maps each hooks.Kind onto a single rune so an event sequence can
// be checked against a regular expression. ErrorEvent may interleave
// anywhere, per the invariant below.
func kindLetter(k hooks.Kind) byte {
	switch k {
	case hooks.PreCall:
		return 'C'
	case hooks.PreReasoning:
		return 'r'
	case hooks.ReasoningChunk:
		return 'k'
	case hooks.PostReasoning:
		return 'R'
	case hooks.PreActing:
		return 'a'
	case hooks.ActingChunk:
		return 'g'
	case hooks.PostActing:
		return 'A'
	case hooks.PostCall:
		return 'Z'
	case hooks.ErrorEvent:
		return 'e'
	default:
		return '?'
	}
}

// grammar validates: PreCall (PreReasoning ReasoningChunk* PostReasoning
// (PreActing ActingChunk* PostActing)?)+ PostCall, with Error events allowed
// to interleave anywhere.
var grammar = regexp.MustCompile(`^e*C(e*(e*rk*Re*(e*ag*Ae*)?)+e*)Z $`)

// TestEventSequenceMatchesGrammar runs the engine over a randomly generated
// number of tool-call iterations (each a well-formed call to the add tool)
// and checks that the resulting event-kind sequence matches the
// call grammar every time.
func TestEventSequenceMatchesGrammar(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("every run emits a grammatically valid event sequence", prop.ForAll(
		func(iters int) bool {
			replies := make([][]modelport.Fragment, 0, iters+1)
			for i := 0; i < iters; i++ {
				replies = append(replies, toolCallReply("c1", "add", `{"a":1,"b":2}`))
			}
			replies = append(replies, textReply("done"))

			port := &scriptedPort{replies: replies}
			tk := toolkit.New(nil)
			_ = tk.Register(context.Background(), addTool())
			mem := memory.New("")
			pipeline := hooks.New(time.Second, nil, nil)
			cfg := engine.DefaultConfig()
			cfg.MaxIters = iters + 2

			e, err := engine.New(port, tk, mem, pipeline, cfg)
			if err != nil {
				return false
			}

			events := e.Stream(context.Background(), []message.Message{message.NewUser("go")})
			var letters []byte
			for evt := range events {
				letters = append(letters, kindLetter(evt.Kind()))
			}

			seq := string(letters) + " "
			return grammar.MatchString(seq)
		},
		gen.IntRange(0, 4),
	))

	properties.TestingRun(t)
}

// TestPreReasoningNeverExceedsMaxIters runs the engine with a tool that
// always gets called again (forcing another loop iteration) and checks the
// PreReasoning event count never exceeds the configured budget.
func TestPreReasoningNeverExceedsMaxIters(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30
	properties := gopter.NewProperties(parameters)

	properties.Property("PreReasoning count is bounded by maxIters", prop.ForAll(
		func(maxIters int) bool {
			replies := make([][]modelport.Fragment, 0, maxIters+3)
			for i := 0; i < maxIters+3; i++ {
				replies = append(replies, toolCallReply("c1", "add", `{"a":1,"b":2}`))
			}

			port := &scriptedPort{replies: replies}
			tk := toolkit.New(nil)
			_ = tk.Register(context.Background(), addTool())
			mem := memory.New("")
			pipeline := hooks.New(time.Second, nil, nil)
			cfg := engine.DefaultConfig()
			cfg.MaxIters = maxIters

			e, err := engine.New(port, tk, mem, pipeline, cfg)
			if err != nil {
				return false
			}

			events := e.Stream(context.Background(), []message.Message{message.NewUser("go")})
			count := 0
			for evt := range events {
				if evt.Kind() == hooks.PreReasoning {
					count++
				}
			}
			return count <= maxIters
		},
		gen.IntRange(1, 6),
	))

	properties.TestingRun(t)
}

package agenthooks

import (
	"context"
	"testing"

	"github.com/hupe1980/agenthooks/middleware"
	"github.com/hupe1980/agenthooks/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgentRunSync(t *testing.T) {
	m := model.NewMockModel("mock", "test")
	m.AddResponse("hello", "hi there")

	agent := New(m)

	final, err := agent.RunSync(context.Background(), "s1", "hello")
	require.NoError(t, err)
	assert.Equal(t, "hi there", final)
}

func TestAgentRunSyncWithMiddleware(t *testing.T) {
	agent := New(model.NewMockModel("mock", "test"), func(o *Options) {
		o.Name = "screened"
		o.Middlewares = []middleware.Middleware{middleware.NewPIIBlock()}
	})

	final, err := agent.RunSync(context.Background(), "s1", "my ssn is 123-45-6789")
	require.NoError(t, err)
	assert.Equal(t, middleware.DefaultRefusalMessage, final)
}

func TestAgentRunStreamsEvents(t *testing.T) {
	agent := New(model.NewMockModel("mock", "test"))

	runID, eventsCh, errorsCh, err := agent.Run(context.Background(), "s1", "hello")
	require.NoError(t, err)
	assert.NotEmpty(t, runID)

	sawAssistant := false
	for ev := range eventsCh {
		if ev.Content != nil && ev.Content.Role == "assistant" && !ev.IsPartial() {
			sawAssistant = true
		}
	}
	require.NoError(t, <-errorsCh)
	assert.True(t, sawAssistant)
}

func TestAgentSharedSessionHistory(t *testing.T) {
	agent := New(model.NewMockModel("mock", "test"))

	_, err := agent.RunSync(context.Background(), "s1", "first")
	require.NoError(t, err)
	_, err = agent.RunSync(context.Background(), "s1", "second")
	require.NoError(t, err)

	sess, err := agent.SessionStore().Get("s1")
	require.NoError(t, err)
	msgs := sess.StateSnapshot().Messages()
	assert.Len(t, msgs, 4, "history accumulates across runs in a session")
}

// Package agentrun drives conversations with a remote OpenAI assistant and
// answers the function calls it makes along the way.
//
// # Overview
//
// The assistant lives remotely and works in runs: a run reads the thread,
// thinks, and either finishes or stops in requires_action asking the client to
// execute one or more functions. This package owns that loop on the client
// side: create or continue the thread → poll the run → execute requested
// functions and submit their outputs → read back the newest message.
//
// # Key concepts
//
//   - Function: a name, a description, a parameter Schema, and Execute. Build one
//     with NewFunction or implement the interface directly.
//   - Registry: an explicit, thread-safe collection of functions used to export
//     their schemas (ExportSchemas) for uploading to the assistant definition.
//   - Controller: one conversation. Complete sends a message and returns the
//     assistant's answer; the thread handle lives in a ThreadStore so later calls
//     continue the same conversation.
//   - Terminal failures (failed, cancelled, expired, incomplete) surface as
//     *RunFailedError carrying the remote error message.
//
// # Example
//
//	weather, err := agentrun.NewFunction("get_weather", "Current weather for a city",
//	    []agentrun.Parameter{{Name: "city", Type: "string", Required: true}},
//	    func(_ context.Context, args map[string]any) (any, error) {
//	        return map[string]any{"temp": 22.5}, nil
//	    })
//	if err != nil { ... }
//	ctrl, err := agentrun.New(openai.NewClient(apiKey), "asst_123",
//	    agentrun.WithFunctions(weather), agentrun.WithLog(true))
//	if err != nil { ... }
//	answer, ok, err := ctrl.Complete(ctx, "What's the weather in Lisbon?")
package agentrun

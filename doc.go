// Package ruminate turns a single language-model call into a bounded,
// quality-aware iterative process: generate a candidate solution, critique it
// along multiple quality dimensions, decide whether to keep refining, and
// optionally branch into parallel alternative approaches or pull in external
// information before continuing.
//
// Key Components:
//
//   - Core: The provider boundary. An LLM is anything that accepts a list of
//     role-tagged messages plus generation parameters and returns text with
//     token-usage counters. Ruminate never retries or falls back across
//     providers; that belongs to the provider itself.
//
//   - Thinking: The iteration subsystem:
//     * Recorder: append-only log of reasoning steps forming a dependency DAG
//     * Critic: structured multi-dimensional self-assessment of a candidate
//     * Policy: quantitative stopping criteria evaluated after every cycle
//     * Augmenter: uncertainty detection and web-search augmentation
//     * Explorer: concurrent exploration of alternative solution strategies
//     * Orchestrator: the generate -> critique -> decide control loop
//
//   - Store: Optional archival of completed thinking chains to SQLite for
//     later inspection. The live loop never reads or writes the store.
//
//   - LLMs: A ready-made Anthropic provider binding so the library is usable
//     out of the box.
//
// Example usage:
//
//	llm, err := llms.NewAnthropicLLM(apiKey, llms.ModelSonnet)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	orch := thinking.NewOrchestrator(llm, thinking.DefaultConfig())
//	result, err := orch.Think(ctx, "Design a rate limiter for a public API")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Solution, result.StoppingReason)
package ruminate

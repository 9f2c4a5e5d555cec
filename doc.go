// Package krrs implements a question-answering orchestrator that classifies
// a user question by subject, dispatches it to a subject specialist backed by
// a language model, lets the specialist retrieve supporting documents through
// a bounded set of tools, and iterates under a critique loop until the answer
// is judged adequate.
//
// The core is an explicit state machine:
//
//	Classifying -> Dispatch -> SpecialistActive <-> Tooling -> Critiquing -> Responding
//
// A critique pass may send control back to the same specialist (retry or
// improve_query); guards on critique passes and tool rounds bound the loop.
// All retrieved content passes through a document budget that caps
// per-document and aggregate size before it reaches a prompt.
//
// Collaborators live behind small interfaces: llm.LLM (the language-model
// oracle), retrieval.Retriever (the document store) and search.Provider
// (web search). Each is swappable; the orchestrator owns no connection state
// of its own.
//
// Basic usage:
//
//	orc, err := krrs.New(cfg,
//		krrs.WithLLM(llm.NewAnthropic()),
//		krrs.WithRetriever(store),
//		krrs.WithSearch(search.NewTavily(key)),
//	)
//	if err != nil {
//		return err
//	}
//	result, err := orc.Ask(ctx, "What caused World War I?")
package krrs

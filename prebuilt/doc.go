// Package prebuilt provides ready-made agent graphs built on the graph
// runtime.
//
// # Supervisor
//
// CreateSupervisor orchestrates worker agents through a forced "route" tool
// call:
//
//	supervisor, _ := prebuilt.CreateSupervisor(model, map[string]*graph.Runnable{
//		"researcher": researchAgent,
//		"coder":      codingAgent,
//	})
//
// # Summarizing chat
//
// CreateSummarizingChatAgent keeps a bounded context window by folding old
// messages into a running summary:
//
//	agent, _ := prebuilt.CreateSummarizingChatAgent(model, prebuilt.SummaryConfig{
//		MaxMessages: 6,
//		KeepLast:    2,
//	})
//
// # Plan and execute
//
// CreatePlanExecuteAgent plans a JSON step list, executes one step at a
// time and replans from the results:
//
//	agent, _ := prebuilt.CreatePlanExecuteAgent(prebuilt.PlanExecuteConfig{
//		Model:      model,
//		SearchTool: searchTool,
//	})
//
// # Team collaboration
//
// CreateTeamAgent runs a researcher, writer and reviewer in a revision loop
// until the reviewer approves the draft:
//
//	agent, _ := prebuilt.CreateTeamAgent(prebuilt.TeamConfig{Model: model})
package prebuilt

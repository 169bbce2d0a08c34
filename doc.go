// Package agentflow is a collection of agent building blocks and runnable
// demos: a compact state graph runtime, a namespaced long-term memory store
// with pluggable backends, checkpointing, and agent patterns (memory
// extraction, context engineering, RAG, human-in-the-loop streaming,
// supervisor / plan-execute / team workflows).
//
// The runnable programs live under examples/.
package agentflow

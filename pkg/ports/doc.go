/*
Package ports defines the driven ports (interfaces) of the ReAlign assistant.

These interfaces decouple the conversation core from storage backends and
remote services.

# Key Interfaces

  - ConversationEngine: the transition function (implemented by internal/runtime).
  - StateStore: persists and loads session State.
  - DistributedLocker: serializes concurrent access to a session across replicas.
  - AdviceService and ChatService: the two remote endpoints.
*/
package ports

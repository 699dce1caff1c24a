/*
Package domain contains the core domain models of the ReAlign intake assistant.

It defines the questionnaire, the typed profile, the message log and the
per-session State, plus the events and effects exchanged with the transition
function. This package is kept pure and free of external dependencies like
I/O or persistence.

# Key Entities

  - Question / Catalog: the ordered, typed script of the intake wizard.
  - Profile: validated answers keyed by question key.
  - Phase: the engine position (Selecting, Collecting(step), AwaitingAdvice, Chatting).
  - State: the single-writer bundle of a session (phase, profile, messages, thread id).
  - Event / Effect: inputs to and asynchronous outputs of the transition function.
*/
package domain

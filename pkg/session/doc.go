/*
Package session serializes access to conversation state.

Every transition of a session happens inside Manager.Update, which holds a
per-session lock (and, when configured, a distributed lock shared by replicas)
around the load, compute and save cycle.
*/
package session

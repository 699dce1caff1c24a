/*
Package observability turns engine lifecycle hooks into logs and Prometheus metrics.

Hooks from several sources can be merged with CombineHooks so that one engine
feeds both the structured logger and the metrics registry.
*/
package observability

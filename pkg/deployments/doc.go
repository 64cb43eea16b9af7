// Package deployments discovers and tracks the running model deployments
// of each configured AI Core provider.
//
// The Client speaks the AI Core lifecycle API (deployment listing) and the
// admin API (resource group listing). The Directory keeps one immutable
// snapshot of deployments per provider, keyed by lowercased model name,
// and swaps snapshots atomically on refresh. Readers never block on a
// refresh, and a refresh that fails leaves the previous snapshot serving.
//
// The Refresher drives periodic refreshes for all providers on a fixed
// interval using robfig/cron.
package deployments

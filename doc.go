// Package whatif is an alternate-reality portfolio timeline engine.
//
// It builds day-by-day value timelines for hypothetical portfolios by
// replaying historical market prices, derives and applies trade
// modifications (rule-based or planned by a language model), compares
// timelines for divergence, projects bull/base/bear scenarios with a
// deterministic fallback, and persists everything in a file-based store
// with an atomic index.
package whatif

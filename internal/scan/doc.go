// Package scan searches clustering hyperparameters against labelled graphs.
//
// A Controller runs one trial per parameter proposal: every graph is
// restricted to a memoised sector, clustered, and scored with a cheap
// metric, reporting the running mean to the study's pruner after the third
// graph. An optional expensive metric then re-scores the stored labels with
// continued report steps. The trial's objective is the mean of the per-graph
// scores ignoring NaN, and an EarlyStopping policy may end the search after
// any trial.
//
// Study is the optimizer: it proposes parameters through a Sampler, prunes
// through a Pruner and keeps the full trial history.
package scan

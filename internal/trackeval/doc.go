// Package trackeval scores a clustering of hits against ground-truth particle
// identity.
//
// Each predicted cluster is assigned the truth id that contributes most of its
// hits (its majority particle). Clusters are then classified per transverse
// momentum threshold under three matching rules:
//
//   - perfect: the cluster holds every hit of its majority particle and
//     nothing else (more than 99% purity).
//   - double majority: more than half of the cluster's hits belong to the
//     majority particle and more than half of that particle's hits are in
//     the cluster.
//   - lhc: more than 75% of the cluster's hits belong to the majority
//     particle.
//
// Ratios whose denominator is zero are reported as NaN ("undefined") rather
// than zero; use IsUndefined to test for it.
package trackeval

// Package winsorize bounds extreme values of a metric within comparison
// groups (overall, per year, or per year and size bucket).
//
// Clip replaces values outside the group's p and 1-p order statistics with
// the bound; Trim drops those rows. Groups with fewer than MinGroupSize
// values are exempt. Every pass returns a Report with the bounds, counts and
// before/after statistics of each group plus the list of affected rows.
// Inputs are never modified; results are aligned with the input slice.
package winsorize

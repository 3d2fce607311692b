// Package outlier flags bank-years whose distance to default falls below a
// threshold and sorts them into the data issue most likely behind the
// score: zero-cost debt inputs, negligible recorded debt, very low leverage,
// disagreement between the accounting and market models, or none of these.
// The report renders as markdown with one section per model.
package outlier

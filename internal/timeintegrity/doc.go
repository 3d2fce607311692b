// Package timeintegrity guards derived panels against lookahead.
//
// Every derived row carries the calendar span of the returns behind its
// sigma_E and, when its drift is a lagged return, the year that return came
// from. For a row of year t the window must end in t-1, must start no later
// than it ends, and the lagged drift must come from t-1. Assert collects all
// violations before failing so one run reports every offending row.
package timeintegrity

// Package report renders a finished scan study as a CSV trial table, an
// interactive HTML history page and a static PNG history plot.
package report

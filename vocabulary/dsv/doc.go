// Package dsv provides vocabulary predicates for aggregated data
// specification entities: classes, relationships, their profiles and
// generalizations.
//
// Import this package to auto-register predicates:
//
//	import _ "github.com/c360studio/semagg/vocabulary/dsv"
package dsv

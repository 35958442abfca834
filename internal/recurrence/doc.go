// Package recurrence expands weekly and monthly booking templates into the
// concrete dates they occupy.
package recurrence

// Package http contains the chi HTTP handlers exposing attendance snapshots:
// the summary block, the roll-sorted student table, single-student detail,
// today counts, roster exports, and health.
package http
